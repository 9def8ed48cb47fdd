package model

import "time"

// SessionStatus is the lifecycle status of a coordination session. An ended
// session has no record at all, so "active" is the only stored value.
type SessionStatus string

const SessionActive SessionStatus = "active"

// Session is the live coordination context for one meeting's hand-raise
// feature. Its absence means every other record keyed by the meeting id is
// meaningless.
type Session struct {
	ID           string        `json:"id"`
	MeetingID    string        `json:"meeting_id"`
	Status       SessionStatus `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	Raised       int64         `json:"raised"`
	Acknowledged int64         `json:"acknowledged"`
	Denied       int64         `json:"denied"`
	LastRaiseAt  *time.Time    `json:"last_raise_at,omitempty"`
	LastActionAt *time.Time    `json:"last_action_at,omitempty"`
}

// Stats is the reporting view of a session: its counters plus the number of
// hands currently raised.
type Stats struct {
	MeetingID    string     `json:"meeting_id"`
	SessionID    string     `json:"session_id"`
	StartedAt    time.Time  `json:"started_at"`
	Raised       int64      `json:"raised"`
	Acknowledged int64      `json:"acknowledged"`
	Denied       int64      `json:"denied"`
	Active       int        `json:"active"`
	LastRaiseAt  *time.Time `json:"last_raise_at,omitempty"`
	LastActionAt *time.Time `json:"last_action_at,omitempty"`
}

// StatsOf builds the reporting view of s with the given live entry count.
func StatsOf(s *Session, active int) *Stats {
	return &Stats{
		MeetingID:    s.MeetingID,
		SessionID:    s.ID,
		StartedAt:    s.StartedAt,
		Raised:       s.Raised,
		Acknowledged: s.Acknowledged,
		Denied:       s.Denied,
		Active:       active,
		LastRaiseAt:  s.LastRaiseAt,
		LastActionAt: s.LastActionAt,
	}
}
