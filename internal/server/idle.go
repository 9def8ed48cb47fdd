package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/hands/internal/model"
	"github.com/alfredjeanlab/hands/internal/presence"
)

// StartIdleReaper ends sessions with no activity for idle. Call
// StopIdleReaper on shutdown.
func (s *HandsServer) StartIdleReaper(idle, sweep time.Duration) {
	s.presence.StartReaper(&presence.ReaperConfig{
		IdleThreshold: idle,
		SweepInterval: sweep,
		OnIdle: func(meetingID string) bool {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return s.endIdleSession(ctx, meetingID, idle)
		},
	})
}

// StopIdleReaper stops the reaper started by StartIdleReaper.
func (s *HandsServer) StopIdleReaper() {
	s.presence.Stop()
}

// endIdleSession ends meetingID's session if the shared session record
// agrees it has been idle for at least idle. It returns false when the
// session saw activity more recently, possibly through another instance.
func (s *HandsServer) endIdleSession(ctx context.Context, meetingID string, idle time.Duration) bool {
	sess, ok := s.sessions.Get(ctx, meetingID)
	if !ok {
		return true
	}
	if last := lastActivity(sess); s.now().Sub(last) < idle {
		return false
	}

	stats, ok := s.hands.EndSession(ctx, meetingID)
	if !ok {
		slog.Warn("failed to end idle session", "meeting_id", meetingID)
		return false
	}
	if stats == nil {
		return true
	}
	slog.Info("ended idle session", "meeting_id", meetingID, "idle", idle)
	s.broadcast(ctx, &model.Broadcast{
		Kind:      model.KindSessionEnded,
		MeetingID: meetingID,
		Stats:     stats,
	})
	return true
}

func lastActivity(sess *model.Session) time.Time {
	last := sess.StartedAt
	for _, t := range []*time.Time{sess.LastRaiseAt, sess.LastActionAt} {
		if t != nil && t.After(last) {
			last = *t
		}
	}
	return last
}
