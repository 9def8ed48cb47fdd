package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alfredjeanlab/hands/internal/hands"
	"github.com/alfredjeanlab/hands/internal/model"
)

// SessionResponse is returned by POST /v1/meetings/{id}/session.
type SessionResponse struct {
	Session   *model.Session   `json:"session"`
	Broadcast *model.Broadcast `json:"broadcast"`
}

// EndResponse is returned by DELETE /v1/meetings/{id}/session. Stats and
// Broadcast are nil when there was no session to end; leftover state is
// still cleared but nothing is announced.
type EndResponse struct {
	Stats     *model.Stats     `json:"stats"`
	Broadcast *model.Broadcast `json:"broadcast"`
}

// handleStartSession handles POST /v1/meetings/{id}/session.
func (s *HandsServer) handleStartSession(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("id")
	if !s.cache.Enabled() {
		writeOpError(w, hands.ErrDisabled)
		return
	}

	sess, ok := s.sessions.Start(r.Context(), meetingID)
	if !ok {
		writeOpError(w, hands.ErrUnavailable)
		return
	}

	b := s.broadcast(r.Context(), &model.Broadcast{
		Kind:      model.KindSessionStarted,
		MeetingID: meetingID,
	})
	writeJSON(w, http.StatusCreated, SessionResponse{Session: sess, Broadcast: b})
}

// handleEndSession handles DELETE /v1/meetings/{id}/session.
func (s *HandsServer) handleEndSession(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("id")
	if !s.cache.Enabled() {
		writeOpError(w, hands.ErrDisabled)
		return
	}

	stats, ok := s.hands.EndSession(r.Context(), meetingID)
	if !ok {
		writeOpError(w, hands.ErrUnavailable)
		return
	}
	if stats == nil {
		writeJSON(w, http.StatusOK, EndResponse{})
		return
	}

	b := s.broadcast(r.Context(), &model.Broadcast{
		Kind:      model.KindSessionEnded,
		MeetingID: meetingID,
		Stats:     stats,
	})
	writeJSON(w, http.StatusOK, EndResponse{Stats: stats, Broadcast: b})
}

// handleSessionStats handles GET /v1/meetings/{id}/session.
func (s *HandsServer) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.hands.Stats(r.Context(), r.PathValue("id"))
	if !ok {
		writeOpError(w, hands.ErrSessionNotActive)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleListSessions handles GET /v1/sessions. It reports the meetings this
// instance has seen activity for, most recent first.
func (s *HandsServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	staleThreshold := time.Duration(0)
	if v := r.URL.Query().Get("stale_threshold_secs"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			staleThreshold = time.Duration(secs) * time.Second
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.presence.Snapshot(staleThreshold),
	})
}
