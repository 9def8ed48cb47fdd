// Package directory answers who hosts a meeting.
//
// The hand-raise subsystem does not own meetings. It asks the directory for
// a meeting's host before a host-only action and compares the result with
// the identity the caller claimed.
package directory

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMeetingNotFound is returned when the directory has no such meeting.
	ErrMeetingNotFound = errors.New("meeting not found")
	// ErrNotHost is returned when the caller is not the meeting's host.
	ErrNotHost = errors.New("caller is not the meeting host")
	// ErrHostUnverified is returned in strict mode when the host could not
	// be looked up.
	ErrHostUnverified = errors.New("meeting host could not be verified")
)

// Meeting is the directory's view of a meeting.
type Meeting struct {
	ID        string    `json:"id"`
	HostID    string    `json:"host_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Directory looks up meeting hosts.
type Directory interface {
	// HostOf returns the host id stored for meetingID, or ErrMeetingNotFound.
	HostOf(ctx context.Context, meetingID string) (string, error)
}

// MeetingStore manages directory records. The Postgres directory
// implements it; the server exposes it for registering meeting hosts.
type MeetingStore interface {
	Directory
	GetMeeting(ctx context.Context, meetingID string) (*Meeting, error)
	SetHost(ctx context.Context, meetingID, hostID, title string) error
	DeleteMeeting(ctx context.Context, meetingID string) error
	Ping(ctx context.Context) error
}
