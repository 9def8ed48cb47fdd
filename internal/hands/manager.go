// Package hands implements the raise-hand queue for live sessions.
//
// Per (meeting, participant) the state machine is
//
//	absent -> waiting -> {acknowledged | denied | absent}
//
// where acknowledged and denied are never stored: the entry goes straight
// back to absent and the decision survives only as a short-lived
// acknowledgment record.
//
// Each meeting keeps an Entry Set (participant -> entry) and an Order Queue
// (participant ids in raise order). The two are written in separate store
// calls, so a reader can briefly see one without the other; List skips
// queue ids whose entry is missing.
//
// Failures never escape as faults. Every operation reports a sentinel error
// (or an empty result for reads); store errors are logged and reported as
// ErrUnavailable, and a disabled cache reports ErrDisabled without logging.
package hands

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/hands/internal/cache"
	"github.com/alfredjeanlab/hands/internal/model"
	"github.com/alfredjeanlab/hands/internal/session"
)

var (
	ErrDisabled         = errors.New("hand raising is unavailable")
	ErrUnavailable      = errors.New("store unavailable")
	ErrSessionNotActive = errors.New("session not active")
	ErrAlreadyRaised    = errors.New("hand already raised")
	ErrNotRaised        = errors.New("no raised hand")
	ErrInvalidInput     = errors.New("invalid input")
)

// Config bounds the queue.
type Config struct {
	// MaxQueue caps the Order Queue. Raising past it evicts the oldest
	// raisers. Default: 200.
	MaxQueue int
	// MaxNameLen caps display names, in runes. Default: 50.
	MaxNameLen int
}

func (c *Config) setDefaults() {
	if c.MaxQueue <= 0 {
		c.MaxQueue = 200
	}
	if c.MaxNameLen <= 0 {
		c.MaxNameLen = 50
	}
}

// Manager is the hand-raise queue. It keeps no state of its own; every call
// goes to the store.
type Manager struct {
	cache    cache.Cache
	sessions *session.Registry
	cfg      Config
	now      func() time.Time
}

// NewManager returns a Manager over c, using sessions for liveness and
// counters.
func NewManager(c cache.Cache, sessions *session.Registry, cfg Config) *Manager {
	cfg.setDefaults()
	return &Manager{cache: c, sessions: sessions, cfg: cfg, now: time.Now}
}

// Raise records a raised hand for participantID at the tail of the queue.
//
// Uniqueness is enforced with a create-if-absent write on the Entry Set, so
// two racing raises for the same participant cannot both succeed. If the
// queue push fails afterwards the entry is removed again. When the push
// overflows MaxQueue, the evicted participants' entries are deleted too so
// the set never outgrows the queue.
func (m *Manager) Raise(ctx context.Context, meetingID, participantID, displayName, transportID string) (*model.Entry, error) {
	if meetingID == "" || participantID == "" {
		return nil, ErrInvalidInput
	}
	if !m.cache.Enabled() {
		return nil, ErrDisabled
	}
	if !m.sessions.IsActive(ctx, meetingID) {
		return nil, ErrSessionNotActive
	}

	entry := model.NewEntry(meetingID, participantID, displayName, transportID, m.cfg.MaxNameLen, m.now())
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, m.fail("raise", meetingID, err)
	}

	created, err := m.cache.HashSetNX(ctx, cache.EntriesKey(meetingID), participantID, data)
	if err != nil {
		return nil, m.fail("raise", meetingID, err)
	}
	if !created {
		return nil, ErrAlreadyRaised
	}

	evicted, err := m.cache.ListPushTrim(ctx, cache.QueueKey(meetingID), participantID, m.cfg.MaxQueue)
	if err != nil {
		if _, derr := m.cache.HashDelete(ctx, cache.EntriesKey(meetingID), participantID); derr != nil {
			slog.Warn("hands: rolling back entry", "meeting_id", meetingID, "participant_id", participantID, "error", derr)
		}
		return nil, m.fail("raise", meetingID, err)
	}
	for _, id := range evicted {
		if _, err := m.cache.HashDelete(ctx, cache.EntriesKey(meetingID), id); err != nil {
			slog.Warn("hands: dropping evicted entry", "meeting_id", meetingID, "participant_id", id, "error", err)
		}
	}
	if len(evicted) > 0 {
		slog.Info("hands: queue full, evicted oldest", "meeting_id", meetingID, "evicted", len(evicted))
	}

	m.sessions.RecordRaise(ctx, meetingID)
	return entry, nil
}

// Lower withdraws participantID's raised hand.
func (m *Manager) Lower(ctx context.Context, meetingID, participantID string) error {
	if meetingID == "" || participantID == "" {
		return ErrInvalidInput
	}
	if !m.cache.Enabled() {
		return ErrDisabled
	}

	removed, err := m.cache.HashDelete(ctx, cache.EntriesKey(meetingID), participantID)
	if err != nil {
		return m.fail("lower", meetingID, err)
	}
	if !removed {
		return ErrNotRaised
	}
	// The hand is down once its entry is gone. A queue id left behind is
	// skipped by List and replaced by the next push of the same id.
	if _, err := m.cache.ListRemove(ctx, cache.QueueKey(meetingID), participantID); err != nil {
		slog.Warn("hands: removing lowered id from queue", "meeting_id", meetingID, "participant_id", participantID, "error", err)
	}
	return nil
}

// Acknowledge applies a host's disposition to participantID's raised hand.
//
// The entry is removed first; only the caller whose delete wins proceeds,
// so a duplicate acknowledge for the same hand fails with ErrNotRaised
// instead of counting twice. An acknowledge then writes the decorated
// record to the acknowledgment store, where it expires after the grace
// period. A deny writes no record.
//
// Acknowledge does not check that hostID owns the meeting; callers verify
// that before calling and this only records who claimed to act.
func (m *Manager) Acknowledge(ctx context.Context, meetingID, hostID, participantID string, action model.Disposition) (*model.AckRecord, error) {
	if meetingID == "" || participantID == "" || hostID == "" || !action.IsValid() {
		return nil, ErrInvalidInput
	}
	if !m.cache.Enabled() {
		return nil, ErrDisabled
	}

	data, err := m.cache.HashGet(ctx, cache.EntriesKey(meetingID), participantID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNotRaised
		}
		return nil, m.fail("acknowledge", meetingID, err)
	}
	var entry model.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, m.fail("acknowledge", meetingID, err)
	}

	removed, err := m.cache.HashDelete(ctx, cache.EntriesKey(meetingID), participantID)
	if err != nil {
		return nil, m.fail("acknowledge", meetingID, err)
	}
	if !removed {
		return nil, ErrNotRaised
	}
	if _, err := m.cache.ListRemove(ctx, cache.QueueKey(meetingID), participantID); err != nil {
		slog.Warn("hands: removing disposed id from queue", "meeting_id", meetingID, "participant_id", participantID, "error", err)
	}

	rec := &model.AckRecord{
		Entry:       entry,
		HostID:      hostID,
		DisposedAt:  m.now().UTC(),
		Disposition: action,
		Kind:        action.Past(),
	}
	if action == model.DispositionAcknowledge {
		m.storeAck(ctx, rec)
	}

	m.sessions.RecordDisposition(ctx, meetingID, action)
	return rec, nil
}

// ClearAll drops every raised hand in the meeting at once and returns how
// many there were. The session and acknowledgment store are left alone.
func (m *Manager) ClearAll(ctx context.Context, meetingID, hostID string) int {
	if meetingID == "" || !m.cache.Enabled() {
		return 0
	}
	n, err := m.cache.HashDeleteAll(ctx, cache.EntriesKey(meetingID))
	if err != nil {
		m.fail("clear", meetingID, err)
		return 0
	}
	if err := m.cache.ListDelete(ctx, cache.QueueKey(meetingID)); err != nil {
		m.fail("clear", meetingID, err)
	}
	slog.Info("hands: cleared", "meeting_id", meetingID, "host_id", hostID, "count", n)
	return n
}

// List yields the meeting's raised hands in raise order. The sequence is
// lazy: the queue is read when iteration starts and each entry is fetched
// as it is reached. Ranging over it again re-reads the store. An inactive
// session yields nothing.
func (m *Manager) List(ctx context.Context, meetingID string) iter.Seq[model.Entry] {
	return func(yield func(model.Entry) bool) {
		if meetingID == "" || !m.cache.Enabled() || !m.sessions.IsActive(ctx, meetingID) {
			return
		}
		ids, err := m.cache.ListRange(ctx, cache.QueueKey(meetingID))
		if err != nil {
			m.fail("list", meetingID, err)
			return
		}
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			data, err := m.cache.HashGet(ctx, cache.EntriesKey(meetingID), id)
			if err != nil {
				if !errors.Is(err, cache.ErrNotFound) {
					m.fail("list", meetingID, err)
				}
				continue
			}
			var e model.Entry
			if err := json.Unmarshal(data, &e); err != nil {
				slog.Warn("hands: decoding entry", "meeting_id", meetingID, "participant_id", id, "error", err)
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Count returns the size of the meeting's Entry Set.
func (m *Manager) Count(ctx context.Context, meetingID string) int {
	if meetingID == "" || !m.cache.Enabled() {
		return 0
	}
	n, err := m.cache.HashLen(ctx, cache.EntriesKey(meetingID))
	if err != nil {
		m.fail("count", meetingID, err)
		return 0
	}
	return n
}

// IsRaised reports whether participantID has an outstanding raised hand.
func (m *Manager) IsRaised(ctx context.Context, meetingID, participantID string) bool {
	if meetingID == "" || participantID == "" || !m.cache.Enabled() {
		return false
	}
	_, err := m.cache.HashGet(ctx, cache.EntriesKey(meetingID), participantID)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			m.fail("is_raised", meetingID, err)
		}
		return false
	}
	return true
}

// Stats returns the session's counters with the live entry count.
func (m *Manager) Stats(ctx context.Context, meetingID string) (*model.Stats, bool) {
	if meetingID == "" || !m.cache.Enabled() {
		return nil, false
	}
	return m.sessions.Stats(ctx, meetingID, m)
}

// EndSession captures the final statistics and then deletes the Entry Set,
// Order Queue, acknowledgment store and Session record for the meeting.
// It is the only cleanup path. The returned stats are nil if no session
// existed; the teardown still runs.
func (m *Manager) EndSession(ctx context.Context, meetingID string) (*model.Stats, bool) {
	if meetingID == "" || !m.cache.Enabled() {
		return nil, false
	}
	stats, _ := m.Stats(ctx, meetingID)

	ok := true
	if _, err := m.cache.HashDeleteAll(ctx, cache.EntriesKey(meetingID)); err != nil {
		m.fail("end", meetingID, err)
		ok = false
	}
	if err := m.cache.ListDelete(ctx, cache.QueueKey(meetingID)); err != nil {
		m.fail("end", meetingID, err)
		ok = false
	}
	if _, err := m.cache.HashDeleteAll(ctx, cache.AcksKey(meetingID)); err != nil {
		m.fail("end", meetingID, err)
		ok = false
	}
	if !m.sessions.Delete(ctx, meetingID) {
		ok = false
	}
	return stats, ok
}

// fail logs a store error and maps it to the error callers see.
func (m *Manager) fail(op, meetingID string, err error) error {
	if errors.Is(err, cache.ErrDisabled) {
		return ErrDisabled
	}
	slog.Warn("hands: store error", "op", op, "meeting_id", meetingID, "error", err)
	return ErrUnavailable
}
