package model

import "time"

// BroadcastKind names what happened in a broadcast payload.
type BroadcastKind string

const (
	KindSessionStarted   BroadcastKind = "session.started"
	KindSessionEnded     BroadcastKind = "session.ended"
	KindHandRaised       BroadcastKind = "hand.raised"
	KindHandLowered      BroadcastKind = "hand.lowered"
	KindHandAcknowledged BroadcastKind = "hand.acknowledged"
	KindHandDenied       BroadcastKind = "hand.denied"
	KindHandsCleared     BroadcastKind = "hands.cleared"
)

// Broadcast describes a successful mutation for the real-time layer to fan
// out to connected participants.
type Broadcast struct {
	ID            string        `json:"id"`
	Kind          BroadcastKind `json:"kind"`
	MeetingID     string        `json:"meeting_id"`
	ParticipantID string        `json:"participant_id,omitempty"`
	DisplayName   string        `json:"display_name,omitempty"`
	HostID        string        `json:"host_id,omitempty"`
	Count         int           `json:"count,omitempty"`
	Stats         *Stats        `json:"stats,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}
