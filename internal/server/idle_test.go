package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alfredjeanlab/hands/internal/model"
)

func TestEndIdleSession(t *testing.T) {
	s, pub, handler := newTestServer(t)
	ctx := context.Background()

	requireStatus(t, doJSON(t, handler, "POST", "/v1/meetings/m1/session", nil), http.StatusCreated)
	requireStatus(t, doJSON(t, handler, "POST", "/v1/meetings/m1/hands",
		map[string]any{"participant_id": "u1", "display_name": "Alice"}), http.StatusCreated)

	if s.endIdleSession(ctx, "m1", time.Hour) {
		t.Fatal("session with recent activity was ended")
	}
	if !s.sessions.IsActive(ctx, "m1") {
		t.Fatal("session should still be active")
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if !s.endIdleSession(ctx, "m1", time.Hour) {
		t.Fatal("idle session was not ended")
	}
	if s.sessions.IsActive(ctx, "m1") {
		t.Fatal("idle session still active")
	}
	if n := s.hands.Count(ctx, "m1"); n != 0 {
		t.Fatalf("expected entries torn down, got %d", n)
	}

	topics := pub.Topics()
	if last := topics[len(topics)-1]; last != "hands.session.ended" {
		t.Fatalf("expected session.ended broadcast, got %q", last)
	}

	// Ending a meeting that is already gone reports success.
	if !s.endIdleSession(ctx, "m1", time.Hour) {
		t.Fatal("missing session should count as ended")
	}
}

func TestLastActivity(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raise := start.Add(time.Minute)
	action := start.Add(2 * time.Minute)

	if got := lastActivity(&model.Session{StartedAt: start}); !got.Equal(start) {
		t.Errorf("got %v, want start", got)
	}
	if got := lastActivity(&model.Session{StartedAt: start, LastRaiseAt: &raise}); !got.Equal(raise) {
		t.Errorf("got %v, want raise", got)
	}
	if got := lastActivity(&model.Session{StartedAt: start, LastRaiseAt: &raise, LastActionAt: &action}); !got.Equal(action) {
		t.Errorf("got %v, want action", got)
	}
}

func TestHandleListSessions(t *testing.T) {
	_, _, handler := newTestServer(t)

	requireStatus(t, doJSON(t, handler, "POST", "/v1/meetings/m1/session", nil), http.StatusCreated)
	requireStatus(t, doJSON(t, handler, "POST", "/v1/meetings/m2/session", nil), http.StatusCreated)
	requireStatus(t, doJSON(t, handler, "POST", "/v1/meetings/m2/hands",
		map[string]any{"participant_id": "u1", "display_name": "Alice"}), http.StatusCreated)
	requireStatus(t, doJSON(t, handler, "DELETE", "/v1/meetings/m1/session", nil), http.StatusOK)

	rec := doJSON(t, handler, "GET", "/v1/sessions", nil)
	requireStatus(t, rec, http.StatusOK)
	var body struct {
		Sessions []struct {
			MeetingID  string `json:"meeting_id"`
			LastEvent  string `json:"last_event"`
			EventCount int64  `json:"event_count"`
		} `json:"sessions"`
	}
	decodeJSON(t, rec, &body)
	if len(body.Sessions) != 1 {
		t.Fatalf("expected only m2, got %+v", body.Sessions)
	}
	got := body.Sessions[0]
	if got.MeetingID != "m2" || got.LastEvent != "hand.raised" || got.EventCount != 2 {
		t.Fatalf("unexpected session activity %+v", got)
	}
}
