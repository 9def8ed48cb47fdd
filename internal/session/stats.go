package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/alfredjeanlab/hands/internal/cache"
	"github.com/alfredjeanlab/hands/internal/model"
)

// RecordRaise bumps the raised counter and the last-raise time.
func (r *Registry) RecordRaise(ctx context.Context, meetingID string) bool {
	return r.mutate(ctx, "record_raise", meetingID, func(s *model.Session, now time.Time) {
		s.Raised++
		s.LastRaiseAt = &now
	})
}

// RecordDisposition bumps the acknowledged or denied counter and the
// last-action time.
func (r *Registry) RecordDisposition(ctx context.Context, meetingID string, d model.Disposition) bool {
	return r.mutate(ctx, "record_"+d.Past(), meetingID, func(s *model.Session, now time.Time) {
		if d == model.DispositionDeny {
			s.Denied++
		} else {
			s.Acknowledged++
		}
		s.LastActionAt = &now
	})
}

// mutate applies fn to the Session record with a revision-checked write, so
// concurrent counter updates never lose increments. A missing session is a
// silent no-op returning false.
func (r *Registry) mutate(ctx context.Context, op, meetingID string, fn func(*model.Session, time.Time)) bool {
	err := r.cache.UpdateRecord(ctx, cache.SessionKey(meetingID), func(cur []byte) ([]byte, error) {
		var s model.Session
		if err := json.Unmarshal(cur, &s); err != nil {
			return nil, err
		}
		fn(&s, r.now().UTC())
		return json.Marshal(&s)
	})
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logStoreError(op, meetingID, err)
		}
		return false
	}
	return true
}
