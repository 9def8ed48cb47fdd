package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alfredjeanlab/hands/internal/client"
	"github.com/alfredjeanlab/hands/internal/events"
)

// chanSubscriber replays canned payloads and then closes the channel.
type chanSubscriber struct {
	payloads []string
	topic    string
	err      error
}

func (s *chanSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	s.topic = topic
	ch := make(chan []byte, len(s.payloads))
	for _, p := range s.payloads {
		ch <- []byte(p)
	}
	close(ch)
	return ch, func() {}, nil
}

func (s *chanSubscriber) Close() error { return nil }

func TestStreamBroadcasts(t *testing.T) {
	sub := &chanSubscriber{payloads: []string{
		`{"id":"e1","kind":"hand.raised","meeting_id":"m1","participant_id":"u1","display_name":"Alice"}`,
		`not json`,
		`{"id":"e2","kind":"hand.raised","meeting_id":"m2","participant_id":"u2","display_name":"Bob"}`,
		`{"id":"e3","kind":"hand.lowered","meeting_id":"m1","participant_id":"u1"}`,
	}}

	var buf bytes.Buffer
	if err := streamBroadcasts(context.Background(), &buf, sub, "m1"); err != nil {
		t.Fatalf("streamBroadcasts: %v", err)
	}
	if sub.topic != events.TopicAll {
		t.Errorf("subscribed to %q, want %q", sub.topic, events.TopicAll)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines for m1, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "hand.raised m1 u1 (Alice)") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "hand.lowered m1 u1") {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestStreamBroadcasts_SubscribeError(t *testing.T) {
	sub := &chanSubscriber{err: errors.New("no responders")}
	err := streamBroadcasts(context.Background(), &bytes.Buffer{}, sub, "")
	if err == nil || !strings.Contains(err.Error(), "no responders") {
		t.Fatalf("expected subscribe error, got %v", err)
	}
}

func TestOpenSubscriber_DefaultsToServerStream(t *testing.T) {
	sub, err := openSubscriber("", "m1")
	if err != nil {
		t.Fatalf("openSubscriber: %v", err)
	}
	defer sub.Close()
	if _, ok := sub.(*client.EventStream); !ok {
		t.Fatalf("got %T, want *client.EventStream", sub)
	}
}

func TestOpenSubscriber_BadNATSURL(t *testing.T) {
	if _, err := openSubscriber("nats://127.0.0.1:1", ""); err == nil {
		t.Fatal("expected connection error")
	}
}
