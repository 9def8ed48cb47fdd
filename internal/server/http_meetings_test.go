package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/hands/internal/cache"
	"github.com/alfredjeanlab/hands/internal/directory"
)

// memMeetings is an in-memory directory.MeetingStore.
type memMeetings struct {
	mu      sync.Mutex
	m       map[string]directory.Meeting
	pingErr error
}

func newMemMeetings() *memMeetings {
	return &memMeetings{m: make(map[string]directory.Meeting)}
}

func (s *memMeetings) HostOf(ctx context.Context, meetingID string) (string, error) {
	m, err := s.GetMeeting(ctx, meetingID)
	if err != nil {
		return "", err
	}
	return m.HostID, nil
}

func (s *memMeetings) GetMeeting(_ context.Context, meetingID string) (*directory.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.m[meetingID]
	if !ok {
		return nil, directory.ErrMeetingNotFound
	}
	return &m, nil
}

func (s *memMeetings) SetHost(_ context.Context, meetingID, hostID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	m, ok := s.m[meetingID]
	if !ok {
		m = directory.Meeting{ID: meetingID, CreatedAt: now}
	}
	m.HostID, m.Title, m.UpdatedAt = hostID, title, now
	s.m[meetingID] = m
	return nil
}

func (s *memMeetings) DeleteMeeting(_ context.Context, meetingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, meetingID)
	return nil
}

func (s *memMeetings) Ping(context.Context) error { return s.pingErr }

func TestMeetings_NotConfigured(t *testing.T) {
	_, _, handler := newServerOn(cache.Disabled{}, nil)
	for _, method := range []string{"GET", "DELETE"} {
		requireStatus(t, doJSON(t, handler, method, "/v1/meetings/m1", nil), http.StatusServiceUnavailable)
	}
	rec := doJSON(t, handler, "PUT", "/v1/meetings/m1", map[string]any{"host_id": "h1"})
	requireStatus(t, rec, http.StatusServiceUnavailable)
}

func TestMeetings_Lifecycle(t *testing.T) {
	store := newMemMeetings()
	s, _, handler := newServerOn(cache.Disabled{}, directory.NewVerifier(store, true))
	s.SetMeetingStore(store)

	requireStatus(t, doJSON(t, handler, "GET", "/v1/meetings/m1", nil), http.StatusNotFound)

	rec := doJSON(t, handler, "PUT", "/v1/meetings/m1", map[string]any{"host_id": "h1", "title": "standup"})
	requireStatus(t, rec, http.StatusOK)
	var m directory.Meeting
	decodeJSON(t, rec, &m)
	if m.ID != "m1" || m.HostID != "h1" || m.Title != "standup" {
		t.Fatalf("unexpected meeting %+v", m)
	}

	rec = doJSON(t, handler, "PUT", "/v1/meetings/m1", map[string]any{"host_id": "h2"})
	requireStatus(t, rec, http.StatusOK)
	rec = doJSON(t, handler, "GET", "/v1/meetings/m1", nil)
	requireStatus(t, rec, http.StatusOK)
	decodeJSON(t, rec, &m)
	if m.HostID != "h2" {
		t.Fatalf("expected host h2, got %q", m.HostID)
	}

	if err := s.verifier.VerifyHost(context.Background(), "m1", "h2"); err != nil {
		t.Fatalf("registered host rejected: %v", err)
	}

	requireStatus(t, doJSON(t, handler, "DELETE", "/v1/meetings/m1", nil), http.StatusNoContent)
	requireStatus(t, doJSON(t, handler, "GET", "/v1/meetings/m1", nil), http.StatusNotFound)
}

func TestMeetings_Validation(t *testing.T) {
	store := newMemMeetings()
	s, _, handler := newServerOn(cache.Disabled{}, nil)
	s.SetMeetingStore(store)

	rec := doJSON(t, handler, "PUT", "/v1/meetings/m1", map[string]any{"title": "no host"})
	requireStatus(t, rec, http.StatusBadRequest)
	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["error"] != "validation failed: host_id: is required" {
		t.Fatalf("unexpected error %q", resp["error"])
	}
}

func TestHandleHealth_Directory(t *testing.T) {
	store := newMemMeetings()
	srv, _, handler := newServerOn(cache.Disabled{}, directory.NewVerifier(store, false))
	srv.SetMeetingStore(store)

	rec := doJSON(t, handler, "GET", "/v1/health", nil)
	requireStatus(t, rec, http.StatusOK)
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["directory"] != "ok" {
		t.Fatalf("expected directory=ok, got %v", body)
	}

	store.pingErr = errors.New("connection refused")
	rec = doJSON(t, handler, "GET", "/v1/health", nil)
	body = nil
	decodeJSON(t, rec, &body)
	if body["directory"] != "unreachable" {
		t.Fatalf("expected directory=unreachable, got %v", body)
	}
}
