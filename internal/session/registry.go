// Package session tracks whether hand-raise coordination is live for a
// meeting and accumulates the session's counters.
//
// A Session record is the root of everything else kept for a meeting: the
// entry set, the order queue and the acknowledgment store are meaningless
// without it. Sessions never expire on their own; the only way one goes
// away is an explicit end.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/hands/internal/cache"
	"github.com/alfredjeanlab/hands/internal/idgen"
	"github.com/alfredjeanlab/hands/internal/model"
)

// EntryCounter reports how many hands are currently raised in a meeting.
type EntryCounter interface {
	Count(ctx context.Context, meetingID string) int
}

// Registry creates, inspects and deletes Session records.
type Registry struct {
	cache cache.Cache
	now   func() time.Time
}

// NewRegistry returns a Registry backed by c.
func NewRegistry(c cache.Cache) *Registry {
	return &Registry{cache: c, now: time.Now}
}

// Start writes a fresh Session record for meetingID. An existing record is
// overwritten, counters included; two racing starts both succeed and the
// later write wins. It fails only when the store is unavailable.
func (r *Registry) Start(ctx context.Context, meetingID string) (*model.Session, bool) {
	id, err := idgen.Session()
	if err != nil {
		slog.Warn("session: generating id", "meeting_id", meetingID, "error", err)
		return nil, false
	}
	s := &model.Session{
		ID:        id,
		MeetingID: meetingID,
		Status:    model.SessionActive,
		StartedAt: r.now().UTC(),
	}
	data, err := json.Marshal(s)
	if err != nil {
		slog.Warn("session: encoding record", "meeting_id", meetingID, "error", err)
		return nil, false
	}
	if err := r.cache.PutRecord(ctx, cache.SessionKey(meetingID), data); err != nil {
		logStoreError("start", meetingID, err)
		return nil, false
	}
	return s, true
}

// IsActive reports whether a Session record exists for meetingID.
func (r *Registry) IsActive(ctx context.Context, meetingID string) bool {
	_, ok := r.Get(ctx, meetingID)
	return ok
}

// Get returns the Session record for meetingID, if any.
func (r *Registry) Get(ctx context.Context, meetingID string) (*model.Session, bool) {
	data, err := r.cache.GetRecord(ctx, cache.SessionKey(meetingID))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logStoreError("get", meetingID, err)
		}
		return nil, false
	}
	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("session: decoding record", "meeting_id", meetingID, "error", err)
		return nil, false
	}
	return &s, true
}

// Stats returns the session's counters plus the live entry count reported
// by entries. It returns false when no session exists.
func (r *Registry) Stats(ctx context.Context, meetingID string, entries EntryCounter) (*model.Stats, bool) {
	s, ok := r.Get(ctx, meetingID)
	if !ok {
		return nil, false
	}
	return model.StatsOf(s, entries.Count(ctx, meetingID)), true
}

// Delete removes the Session record. It reports false only on store errors.
func (r *Registry) Delete(ctx context.Context, meetingID string) bool {
	if err := r.cache.DeleteRecord(ctx, cache.SessionKey(meetingID)); err != nil {
		logStoreError("delete", meetingID, err)
		return false
	}
	return true
}

// logStoreError logs a store failure. A disabled cache was already reported
// at startup and stays quiet here.
func logStoreError(op, meetingID string, err error) {
	if errors.Is(err, cache.ErrDisabled) {
		return
	}
	slog.Warn("session: store error", "op", op, "meeting_id", meetingID, "error", err)
}
