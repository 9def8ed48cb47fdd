// Package client talks to the hands HTTP API, including its SSE broadcast
// stream.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/hands/internal/directory"
	"github.com/alfredjeanlab/hands/internal/model"
	"github.com/alfredjeanlab/hands/internal/presence"
)

// HandsClient is the interface CLI commands use to reach the server.
type HandsClient interface {
	StartSession(ctx context.Context, meetingID string) (*SessionResult, error)
	EndSession(ctx context.Context, meetingID string) (*EndResult, error)
	Stats(ctx context.Context, meetingID string) (*model.Stats, error)

	ListHands(ctx context.Context, meetingID string) (*ListResult, error)
	Raise(ctx context.Context, meetingID string, req *RaiseRequest) (*RaiseResult, error)
	Lower(ctx context.Context, meetingID, participantID string) (*model.Broadcast, error)
	IsRaised(ctx context.Context, meetingID, participantID string) (bool, error)
	Dispose(ctx context.Context, meetingID, participantID string, req *DisposeRequest) (*DisposeResult, error)
	ClearAll(ctx context.Context, meetingID, hostID string) (*ClearResult, error)

	Acknowledgment(ctx context.Context, meetingID, participantID string) (*model.AckRecord, error)
	Acknowledgments(ctx context.Context, meetingID string) ([]*model.AckRecord, error)

	SetMeeting(ctx context.Context, meetingID string, req *MeetingRequest) (*directory.Meeting, error)
	GetMeeting(ctx context.Context, meetingID string) (*directory.Meeting, error)
	DeleteMeeting(ctx context.Context, meetingID string) error

	ListSessions(ctx context.Context, staleThreshold time.Duration) ([]presence.Activity, error)

	Health(ctx context.Context) (*HealthResult, error)
	Close() error
}

// RaiseRequest is the body of a raise.
type RaiseRequest struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	TransportID   string `json:"transport_id,omitempty"`
}

// DisposeRequest is the body of an acknowledge or deny.
type DisposeRequest struct {
	HostID string            `json:"host_id"`
	Action model.Disposition `json:"action"`
}

// MeetingRequest registers a meeting's host.
type MeetingRequest struct {
	HostID string `json:"host_id"`
	Title  string `json:"title,omitempty"`
}

type SessionResult struct {
	Session   *model.Session   `json:"session"`
	Broadcast *model.Broadcast `json:"broadcast"`
}

type EndResult struct {
	Stats     *model.Stats     `json:"stats"`
	Broadcast *model.Broadcast `json:"broadcast"`
}

type ListResult struct {
	MeetingID string        `json:"meeting_id"`
	Hands     []model.Entry `json:"hands"`
	Count     int           `json:"count"`
}

type RaiseResult struct {
	Entry     *model.Entry     `json:"entry"`
	Broadcast *model.Broadcast `json:"broadcast"`
}

type DisposeResult struct {
	Record    *model.AckRecord `json:"record"`
	Broadcast *model.Broadcast `json:"broadcast"`
}

type ClearResult struct {
	Cleared   int              `json:"cleared"`
	Broadcast *model.Broadcast `json:"broadcast"`
}

type HealthResult struct {
	Status    string `json:"status"`
	Cache     string `json:"cache"`
	Directory string `json:"directory,omitempty"`
}
