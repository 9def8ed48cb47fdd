// Package presence tracks hand-raise activity per meeting and can end
// sessions that have gone idle.
//
// The server records every broadcast it emits, so the tracker only sees
// mutations handled by this instance. The reaper therefore never ends a
// session on its own say-so: it asks OnIdle, which checks the shared store,
// and a meeting that turns out to be busy elsewhere is simply marked seen.
//
// Idle expiry is off unless the server starts the reaper. Without it an
// unended session lives until someone ends it.
package presence

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alfredjeanlab/hands/internal/model"
)

// Activity is one meeting's recent activity as seen by this instance.
type Activity struct {
	MeetingID       string    `json:"meeting_id"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	LastEvent       string    `json:"last_event"`                 // broadcast kind, e.g. "hand.raised"
	LastParticipant string    `json:"last_participant,omitempty"` // participant in the last event
	IdleSecs        float64   `json:"idle_secs"`
	EventCount      int64     `json:"event_count"`
	Reaped          bool      `json:"reaped,omitempty"`
	ReapedAt        time.Time `json:"reaped_at,omitempty"`
}

// ReaperConfig configures the idle-session reaper.
type ReaperConfig struct {
	// IdleThreshold is how long a meeting must go without activity before
	// OnIdle is asked to end it.
	// Default: 2 hours.
	IdleThreshold time.Duration

	// EvictAfter is how long a reaped meeting stays in the tracker before
	// it is forgotten.
	// Default: 30 minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans for idle meetings.
	// Default: 60 seconds.
	SweepInterval time.Duration

	// OnIdle is called for each meeting newly found idle, outside the lock.
	// It returns false if the meeting is still active after all, in which
	// case the meeting counts as seen now.
	OnIdle func(meetingID string) bool
}

// Tracker maintains an in-memory map of meeting activity.
type Tracker struct {
	mu       sync.RWMutex
	meetings map[string]*meetingState
	now      func() time.Time

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type meetingState struct {
	firstSeen       time.Time
	lastSeen        time.Time
	lastEvent       string
	lastParticipant string
	eventCount      int64
	reaped          bool
	reapedAt        time.Time
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		meetings: make(map[string]*meetingState),
		now:      time.Now,
	}
}

// Record notes a broadcast. A session.ended broadcast forgets the meeting.
func (t *Tracker) Record(b *model.Broadcast) {
	if b == nil || b.MeetingID == "" {
		return
	}
	if b.Kind == model.KindSessionEnded {
		t.Forget(b.MeetingID)
		return
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.meetings[b.MeetingID]
	if !ok {
		state = &meetingState{firstSeen: now}
		t.meetings[b.MeetingID] = state
	}
	if state.reaped {
		slog.Info("presence: meeting active again", "meeting_id", b.MeetingID)
		state.reaped = false
		state.reapedAt = time.Time{}
	}
	state.lastSeen = now
	state.lastEvent = string(b.Kind)
	state.lastParticipant = b.ParticipantID
	state.eventCount++
}

// Forget drops a meeting from the tracker.
func (t *Tracker) Forget(meetingID string) {
	t.mu.Lock()
	delete(t.meetings, meetingID)
	t.mu.Unlock()
}

// Snapshot returns all tracked meetings, most recently active first.
// Meetings idle longer than staleThreshold are left out; pass 0 to include
// every meeting.
func (t *Tracker) Snapshot(staleThreshold time.Duration) []Activity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	out := make([]Activity, 0, len(t.meetings))
	for id, state := range t.meetings {
		idle := now.Sub(state.lastSeen)
		if staleThreshold > 0 && idle > staleThreshold {
			continue
		}
		out = append(out, Activity{
			MeetingID:       id,
			FirstSeen:       state.firstSeen,
			LastSeen:        state.lastSeen,
			LastEvent:       state.lastEvent,
			LastParticipant: state.lastParticipant,
			IdleSecs:        idle.Seconds(),
			EventCount:      state.eventCount,
			Reaped:          state.reaped,
			ReapedAt:        state.reapedAt,
		})
	}
	slices.SortFunc(out, func(a, b Activity) int {
		return b.LastSeen.Compare(a.LastSeen)
	})
	return out
}

// StartReaper launches a background goroutine that periodically hands idle
// meetings to cfg.OnIdle. Call Stop to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.IdleThreshold == 0 {
		cfg.IdleThreshold = 2 * time.Hour
	}
	if cfg.EvictAfter == 0 {
		cfg.EvictAfter = 30 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 60 * time.Second
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	slog.Info("presence: idle reaper started",
		"idle_threshold", cfg.IdleThreshold,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine. It is a no-op if the reaper was
// never started.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := t.now()
	var idle []string

	t.mu.Lock()
	for id, state := range t.meetings {
		if state.reaped {
			if now.Sub(state.reapedAt) > cfg.EvictAfter {
				delete(t.meetings, id)
			}
			continue
		}
		if now.Sub(state.lastSeen) > cfg.IdleThreshold {
			state.reaped = true
			state.reapedAt = now
			idle = append(idle, id)
		}
	}
	t.mu.Unlock()

	for _, id := range idle {
		slog.Info("presence: meeting idle", "meeting_id", id, "threshold", cfg.IdleThreshold)
		if cfg.OnIdle == nil || cfg.OnIdle(id) {
			continue
		}
		t.mu.Lock()
		if state, ok := t.meetings[id]; ok && state.reaped {
			state.reaped = false
			state.reapedAt = time.Time{}
			state.lastSeen = t.now()
		}
		t.mu.Unlock()
	}
}
