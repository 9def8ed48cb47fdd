// Package server exposes the hand-raise queue over HTTP and reports
// service health over gRPC.
//
// Handlers are thin: they decode and validate the request, check the host
// where the action is host-only, call the queue manager, and on success
// publish one broadcast describing what changed.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alfredjeanlab/hands/internal/cache"
	"github.com/alfredjeanlab/hands/internal/directory"
	"github.com/alfredjeanlab/hands/internal/events"
	"github.com/alfredjeanlab/hands/internal/hands"
	"github.com/alfredjeanlab/hands/internal/idgen"
	"github.com/alfredjeanlab/hands/internal/model"
	"github.com/alfredjeanlab/hands/internal/presence"
	"github.com/alfredjeanlab/hands/internal/session"
)

// HandsServer wires the queue manager to its transport collaborators.
type HandsServer struct {
	cache     cache.Cache
	sessions  *session.Registry
	hands     *hands.Manager
	verifier  *directory.Verifier
	meetings  directory.MeetingStore
	publisher events.Publisher
	sseHub    *sseHub
	presence  *presence.Tracker
	now       func() time.Time
}

// NewHandsServer returns a HandsServer. A nil verifier checks nothing and a
// nil publisher drops broadcasts; SSE clients are served either way.
func NewHandsServer(c cache.Cache, sessions *session.Registry, m *hands.Manager, v *directory.Verifier, p events.Publisher) *HandsServer {
	if v == nil {
		v = directory.NewVerifier(nil, false)
	}
	if p == nil {
		p = &events.NoopPublisher{}
	}
	return &HandsServer{
		cache:     c,
		sessions:  sessions,
		hands:     m,
		verifier:  v,
		publisher: p,
		sseHub:    newSSEHub(),
		presence:  presence.New(),
		now:       time.Now,
	}
}

// SetMeetingStore enables the meeting directory routes. Without a store
// they answer 503.
func (s *HandsServer) SetMeetingStore(ms directory.MeetingStore) {
	s.meetings = ms
}

// broadcast stamps b and hands it to NATS and the SSE hub. Delivery is
// best-effort; failures are logged and never reach the caller.
func (s *HandsServer) broadcast(ctx context.Context, b *model.Broadcast) *model.Broadcast {
	id, err := idgen.Event()
	if err != nil {
		slog.Warn("failed to generate event id", "kind", b.Kind, "meeting_id", b.MeetingID, "error", err)
	}
	b.ID = id
	b.Timestamp = s.now().UTC()

	topic := events.TopicFor(b.Kind)
	if err := events.PublishBroadcast(ctx, s.publisher, b); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "meeting_id", b.MeetingID, "error", err)
	}
	s.broadcastEvent(topic, b.MeetingID, b)
	s.presence.Record(b)
	return b
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// statusOf maps an operation error to an HTTP status code.
func statusOf(err error) int {
	var ie inputError
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ie), errors.As(err, &ve), errors.Is(err, hands.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, hands.ErrAlreadyRaised):
		return http.StatusConflict
	case errors.Is(err, hands.ErrSessionNotActive), errors.Is(err, hands.ErrNotRaised),
		errors.Is(err, directory.ErrMeetingNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrNotHost), errors.Is(err, directory.ErrHostUnverified):
		return http.StatusForbidden
	case errors.Is(err, hands.ErrDisabled), errors.Is(err, hands.ErrUnavailable),
		errors.Is(err, errNoDirectory):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
