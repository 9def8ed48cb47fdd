package model

import (
	"strconv"
	"time"
)

// EntryStatus is the stored status of a raised hand. Acknowledged and denied
// are never stored on an entry; the entry is removed when disposed.
type EntryStatus string

const StatusWaiting EntryStatus = "waiting"

// Disposition is a host's decision on a raised hand.
type Disposition string

const (
	DispositionAcknowledge Disposition = "acknowledge"
	DispositionDeny        Disposition = "deny"
)

// IsValid reports whether d is a known disposition.
func (d Disposition) IsValid() bool {
	switch d {
	case DispositionAcknowledge, DispositionDeny:
		return true
	}
	return false
}

// Past returns the past-tense form used in records and counters.
func (d Disposition) Past() string {
	if d == DispositionDeny {
		return "denied"
	}
	return "acknowledged"
}

// Entry is a participant's outstanding raised hand in one meeting.
type Entry struct {
	ID            string      `json:"id"`
	MeetingID     string      `json:"meeting_id"`
	ParticipantID string      `json:"participant_id"`
	DisplayName   string      `json:"display_name"`
	TransportID   string      `json:"transport_id,omitempty"`
	RaisedAt      time.Time   `json:"raised_at"`
	RaisedAtMilli int64       `json:"raised_at_ms"`
	Status        EntryStatus `json:"status"`
}

// NewEntry builds a waiting entry raised at now. The display name is cut to
// maxNameLen runes when maxNameLen is positive.
func NewEntry(meetingID, participantID, displayName, transportID string, maxNameLen int, now time.Time) *Entry {
	ms := now.UnixMilli()
	return &Entry{
		ID:            strconv.FormatInt(ms, 10) + "-" + participantID,
		MeetingID:     meetingID,
		ParticipantID: participantID,
		DisplayName:   TruncateName(displayName, maxNameLen),
		TransportID:   transportID,
		RaisedAt:      now.UTC(),
		RaisedAtMilli: ms,
		Status:        StatusWaiting,
	}
}

// TruncateName cuts name to at most max runes. A non-positive max leaves it
// unchanged.
func TruncateName(name string, max int) string {
	if max <= 0 {
		return name
	}
	r := []rune(name)
	if len(r) <= max {
		return name
	}
	return string(r[:max])
}

// AckRecord is the short-lived snapshot of a disposition decision. It embeds
// the entry as it was when the host acted. Kind is the past-tense outcome,
// "acknowledged" or "denied".
type AckRecord struct {
	Entry
	HostID      string      `json:"host_id"`
	DisposedAt  time.Time   `json:"disposed_at"`
	Disposition Disposition `json:"disposition"`
	Kind        string      `json:"kind"`
}
