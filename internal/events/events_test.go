package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/hands/internal/model"
)

func TestTopicFor(t *testing.T) {
	for _, tc := range []struct {
		kind model.BroadcastKind
		want string
	}{
		{model.KindSessionStarted, TopicSessionStarted},
		{model.KindSessionEnded, TopicSessionEnded},
		{model.KindHandRaised, TopicHandRaised},
		{model.KindHandLowered, TopicHandLowered},
		{model.KindHandAcknowledged, TopicHandAcknowledged},
		{model.KindHandDenied, TopicHandDenied},
		{model.KindHandsCleared, TopicHandsCleared},
	} {
		if got := TopicFor(tc.kind); got != tc.want {
			t.Errorf("TopicFor(%q) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestNoopPublisher_Publish(t *testing.T) {
	pub := &NoopPublisher{}
	err := pub.Publish(context.Background(), TopicHandRaised, model.Broadcast{})
	if err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestPublishers_ImplementPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestPublishBroadcast(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicHandRaised, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	b := &model.Broadcast{
		ID:            "ev-1",
		Kind:          model.KindHandRaised,
		MeetingID:     "m1",
		ParticipantID: "u1",
		DisplayName:   "Alice",
		Count:         1,
	}
	if err := PublishBroadcast(context.Background(), pub, b); err != nil {
		t.Fatalf("PublishBroadcast: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		var got model.Broadcast
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.MeetingID != "m1" || got.ParticipantID != "u1" || got.Count != 1 {
			t.Errorf("got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_PublishMultipleTopics(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe(TopicAll, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	for _, kind := range []model.BroadcastKind{
		model.KindSessionStarted, model.KindHandRaised, model.KindHandDenied, model.KindSessionEnded,
	} {
		b := &model.Broadcast{Kind: kind, MeetingID: "m1"}
		if err := PublishBroadcast(context.Background(), pub, b); err != nil {
			t.Fatalf("Publish(%s): %v", kind, err)
		}
	}
	pub.conn.Flush()

	for i := 0; i < 4; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Publishing after close should fail.
	err = pub.Publish(context.Background(), TopicHandRaised, model.Broadcast{})
	if err == nil {
		t.Error("expected error publishing after close")
	}
}
