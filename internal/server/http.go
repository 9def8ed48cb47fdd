package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *HandsServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/meetings/{id}/session", s.handleStartSession)
	mux.HandleFunc("DELETE /v1/meetings/{id}/session", s.handleEndSession)
	mux.HandleFunc("GET /v1/meetings/{id}/session", s.handleSessionStats)
	mux.HandleFunc("GET /v1/meetings/{id}/hands", s.handleListHands)
	mux.HandleFunc("POST /v1/meetings/{id}/hands", s.handleRaiseHand)
	mux.HandleFunc("DELETE /v1/meetings/{id}/hands", s.handleClearHands)
	mux.HandleFunc("GET /v1/meetings/{id}/hands/{pid}", s.handleGetHand)
	mux.HandleFunc("DELETE /v1/meetings/{id}/hands/{pid}", s.handleLowerHand)
	mux.HandleFunc("POST /v1/meetings/{id}/hands/{pid}/ack", s.handleDisposeHand)
	mux.HandleFunc("GET /v1/meetings/{id}/acks/{pid}", s.handleGetAck)
	mux.HandleFunc("GET /v1/meetings/{id}/acks", s.handleListAcks)
	mux.HandleFunc("PUT /v1/meetings/{id}", s.handlePutMeeting)
	mux.HandleFunc("GET /v1/meetings/{id}", s.handleGetMeeting)
	mux.HandleFunc("DELETE /v1/meetings/{id}", s.handleDeleteMeeting)
	mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health. It always answers 200; the cache
// field says whether hand raising is actually available.
func (s *HandsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status": "ok",
		"cache":  s.cacheState(),
	}
	if s.meetings != nil {
		body["directory"] = "ok"
		if err := s.meetings.Ping(r.Context()); err != nil {
			slog.Warn("meeting directory unreachable", "error", err)
			body["directory"] = "unreachable"
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *HandsServer) cacheState() string {
	switch {
	case !s.cache.Enabled():
		return "disabled"
	case !s.cache.Healthy():
		return "disconnected"
	default:
		return "ok"
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeOpError writes the response for a failed operation.
func writeOpError(w http.ResponseWriter, err error) {
	writeError(w, statusOf(err), err.Error())
}
