package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/hands/internal/model"
)

var errNoDirectory = errors.New("meeting directory not configured")

type meetingBody struct {
	HostID string `json:"host_id"`
	Title  string `json:"title,omitempty"`
}

// handlePutMeeting handles PUT /v1/meetings/{id}. It registers the meeting
// or reassigns its host.
func (s *HandsServer) handlePutMeeting(w http.ResponseWriter, r *http.Request) {
	if s.meetings == nil {
		writeOpError(w, errNoDirectory)
		return
	}
	var body meetingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in := model.MeetingInput{MeetingID: r.PathValue("id"), HostID: body.HostID, Title: body.Title}
	if err := model.Validate(in); err != nil {
		writeOpError(w, err)
		return
	}

	if err := s.meetings.SetHost(r.Context(), in.MeetingID, in.HostID, in.Title); err != nil {
		slog.Error("failed to set meeting host", "meeting_id", in.MeetingID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set meeting host")
		return
	}
	m, err := s.meetings.GetMeeting(r.Context(), in.MeetingID)
	if err != nil {
		slog.Error("failed to read meeting", "meeting_id", in.MeetingID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read meeting")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleGetMeeting handles GET /v1/meetings/{id}.
func (s *HandsServer) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	if s.meetings == nil {
		writeOpError(w, errNoDirectory)
		return
	}
	m, err := s.meetings.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			writeOpError(w, err)
			return
		}
		slog.Error("failed to read meeting", "meeting_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read meeting")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleDeleteMeeting handles DELETE /v1/meetings/{id}. The live session,
// if any, is left alone.
func (s *HandsServer) handleDeleteMeeting(w http.ResponseWriter, r *http.Request) {
	if s.meetings == nil {
		writeOpError(w, errNoDirectory)
		return
	}
	if err := s.meetings.DeleteMeeting(r.Context(), r.PathValue("id")); err != nil {
		slog.Error("failed to delete meeting", "meeting_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete meeting")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
