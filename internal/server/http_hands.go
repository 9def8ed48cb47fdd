package server

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/alfredjeanlab/hands/internal/model"
)

// ListResponse is returned by GET /v1/meetings/{id}/hands.
type ListResponse struct {
	MeetingID string        `json:"meeting_id"`
	Hands     []model.Entry `json:"hands"`
	Count     int           `json:"count"`
}

// RaiseResponse is returned by POST /v1/meetings/{id}/hands.
type RaiseResponse struct {
	Entry     *model.Entry     `json:"entry"`
	Broadcast *model.Broadcast `json:"broadcast"`
}

// DisposeResponse is returned by POST /v1/meetings/{id}/hands/{pid}/ack.
type DisposeResponse struct {
	Record    *model.AckRecord `json:"record"`
	Broadcast *model.Broadcast `json:"broadcast"`
}

// ClearResponse is returned by DELETE /v1/meetings/{id}/hands.
type ClearResponse struct {
	Cleared   int              `json:"cleared"`
	Broadcast *model.Broadcast `json:"broadcast"`
}

// BroadcastResponse is returned by mutations with no other result.
type BroadcastResponse struct {
	Broadcast *model.Broadcast `json:"broadcast"`
}

type raiseBody struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	TransportID   string `json:"transport_id,omitempty"`
}

type disposeBody struct {
	HostID string            `json:"host_id"`
	Action model.Disposition `json:"action"`
}

// handleListHands handles GET /v1/meetings/{id}/hands.
func (s *HandsServer) handleListHands(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("id")
	entries := slices.Collect(s.hands.List(r.Context(), meetingID))
	// Ensure hands is never null in JSON output.
	if entries == nil {
		entries = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, ListResponse{
		MeetingID: meetingID,
		Hands:     entries,
		Count:     s.hands.Count(r.Context(), meetingID),
	})
}

// handleRaiseHand handles POST /v1/meetings/{id}/hands.
func (s *HandsServer) handleRaiseHand(w http.ResponseWriter, r *http.Request) {
	var body raiseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in := model.RaiseInput{
		MeetingID:     r.PathValue("id"),
		ParticipantID: body.ParticipantID,
		DisplayName:   body.DisplayName,
		TransportID:   body.TransportID,
	}
	if err := model.Validate(in); err != nil {
		writeOpError(w, err)
		return
	}

	entry, err := s.hands.Raise(r.Context(), in.MeetingID, in.ParticipantID, in.DisplayName, in.TransportID)
	if err != nil {
		writeOpError(w, err)
		return
	}

	b := s.broadcast(r.Context(), &model.Broadcast{
		Kind:          model.KindHandRaised,
		MeetingID:     in.MeetingID,
		ParticipantID: entry.ParticipantID,
		DisplayName:   entry.DisplayName,
		Count:         s.hands.Count(r.Context(), in.MeetingID),
	})
	writeJSON(w, http.StatusCreated, RaiseResponse{Entry: entry, Broadcast: b})
}

// handleGetHand handles GET /v1/meetings/{id}/hands/{pid}.
func (s *HandsServer) handleGetHand(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"raised": s.hands.IsRaised(r.Context(), r.PathValue("id"), r.PathValue("pid")),
	})
}

// handleLowerHand handles DELETE /v1/meetings/{id}/hands/{pid}.
func (s *HandsServer) handleLowerHand(w http.ResponseWriter, r *http.Request) {
	meetingID, participantID := r.PathValue("id"), r.PathValue("pid")
	if err := s.hands.Lower(r.Context(), meetingID, participantID); err != nil {
		writeOpError(w, err)
		return
	}

	b := s.broadcast(r.Context(), &model.Broadcast{
		Kind:          model.KindHandLowered,
		MeetingID:     meetingID,
		ParticipantID: participantID,
		Count:         s.hands.Count(r.Context(), meetingID),
	})
	writeJSON(w, http.StatusOK, BroadcastResponse{Broadcast: b})
}

// handleDisposeHand handles POST /v1/meetings/{id}/hands/{pid}/ack.
func (s *HandsServer) handleDisposeHand(w http.ResponseWriter, r *http.Request) {
	var body disposeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in := model.DispositionInput{
		MeetingID:     r.PathValue("id"),
		ParticipantID: r.PathValue("pid"),
		HostID:        body.HostID,
		Action:        body.Action,
	}
	if err := model.Validate(in); err != nil {
		writeOpError(w, err)
		return
	}
	if err := s.verifier.VerifyHost(r.Context(), in.MeetingID, in.HostID); err != nil {
		writeOpError(w, err)
		return
	}

	rec, err := s.hands.Acknowledge(r.Context(), in.MeetingID, in.HostID, in.ParticipantID, in.Action)
	if err != nil {
		writeOpError(w, err)
		return
	}

	kind := model.KindHandAcknowledged
	if in.Action == model.DispositionDeny {
		kind = model.KindHandDenied
	}
	b := s.broadcast(r.Context(), &model.Broadcast{
		Kind:          kind,
		MeetingID:     in.MeetingID,
		ParticipantID: rec.ParticipantID,
		DisplayName:   rec.DisplayName,
		HostID:        in.HostID,
		Count:         s.hands.Count(r.Context(), in.MeetingID),
	})
	writeJSON(w, http.StatusOK, DisposeResponse{Record: rec, Broadcast: b})
}

// handleClearHands handles DELETE /v1/meetings/{id}/hands?host_id=.
func (s *HandsServer) handleClearHands(w http.ResponseWriter, r *http.Request) {
	in := model.HostInput{
		MeetingID: r.PathValue("id"),
		HostID:    r.URL.Query().Get("host_id"),
	}
	if err := model.Validate(in); err != nil {
		writeOpError(w, err)
		return
	}
	if err := s.verifier.VerifyHost(r.Context(), in.MeetingID, in.HostID); err != nil {
		writeOpError(w, err)
		return
	}
	if !s.cache.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "hand raising is unavailable")
		return
	}

	n := s.hands.ClearAll(r.Context(), in.MeetingID, in.HostID)
	b := s.broadcast(r.Context(), &model.Broadcast{
		Kind:      model.KindHandsCleared,
		MeetingID: in.MeetingID,
		HostID:    in.HostID,
		Count:     n,
	})
	writeJSON(w, http.StatusOK, ClearResponse{Cleared: n, Broadcast: b})
}

// handleGetAck handles GET /v1/meetings/{id}/acks/{pid}.
func (s *HandsServer) handleGetAck(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.hands.Acknowledgment(r.Context(), r.PathValue("id"), r.PathValue("pid"))
	if !ok {
		writeError(w, http.StatusNotFound, "no recent acknowledgment")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleListAcks handles GET /v1/meetings/{id}/acks.
func (s *HandsServer) handleListAcks(w http.ResponseWriter, r *http.Request) {
	recs := s.hands.Acknowledgments(r.Context(), r.PathValue("id"))
	if recs == nil {
		recs = []*model.AckRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"acknowledgments": recs})
}
