package hands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/alfredjeanlab/hands/internal/cache"
	"github.com/alfredjeanlab/hands/internal/model"
)

// storeAck writes rec to the acknowledgment store, where it expires after
// the grace period configured on the cache. A failed write is logged but
// does not undo the acknowledgment.
func (m *Manager) storeAck(ctx context.Context, rec *model.AckRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("hands: encoding ack record", "meeting_id", rec.MeetingID, "error", err)
		return
	}
	if err := m.cache.HashSet(ctx, cache.AcksKey(rec.MeetingID), rec.ParticipantID, data); err != nil {
		m.fail("store_ack", rec.MeetingID, err)
	}
}

// Acknowledgment returns the most recent acknowledgment record for
// participantID while it is within the grace period.
func (m *Manager) Acknowledgment(ctx context.Context, meetingID, participantID string) (*model.AckRecord, bool) {
	if meetingID == "" || participantID == "" || !m.cache.Enabled() {
		return nil, false
	}
	data, err := m.cache.HashGet(ctx, cache.AcksKey(meetingID), participantID)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			m.fail("get_ack", meetingID, err)
		}
		return nil, false
	}
	var rec model.AckRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("hands: decoding ack record", "meeting_id", meetingID, "participant_id", participantID, "error", err)
		return nil, false
	}
	return &rec, true
}

// Acknowledgments returns every live acknowledgment record for the meeting.
func (m *Manager) Acknowledgments(ctx context.Context, meetingID string) []*model.AckRecord {
	if meetingID == "" || !m.cache.Enabled() {
		return nil
	}
	all, err := m.cache.HashGetAll(ctx, cache.AcksKey(meetingID))
	if err != nil {
		m.fail("list_acks", meetingID, err)
		return nil
	}
	out := make([]*model.AckRecord, 0, len(all))
	for _, data := range all {
		var rec model.AckRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		out = append(out, &rec)
	}
	slices.SortFunc(out, func(a, b *model.AckRecord) int {
		return a.DisposedAt.Compare(b.DisposedAt)
	})
	return out
}
