package directory

import (
	"context"
	"errors"
	"log/slog"
)

// Verifier checks that a caller claiming to be host owns the meeting.
//
// When the lookup itself fails (directory down, meeting unknown, no
// directory configured) the default policy lets the action through and
// logs it. Strict mode denies instead.
type Verifier struct {
	dir    Directory
	strict bool
}

// NewVerifier returns a Verifier over dir. dir may be nil, in which case
// every lookup counts as failed.
func NewVerifier(dir Directory, strict bool) *Verifier {
	return &Verifier{dir: dir, strict: strict}
}

// VerifyHost returns nil if hostID may act as host of meetingID.
// It returns ErrNotHost on a mismatch and, in strict mode, ErrHostUnverified
// when the host could not be looked up.
func (v *Verifier) VerifyHost(ctx context.Context, meetingID, hostID string) error {
	var (
		stored string
		err    error
	)
	if v.dir == nil {
		err = errors.New("no meeting directory configured")
	} else {
		stored, err = v.dir.HostOf(ctx, meetingID)
	}
	if err != nil {
		if v.strict {
			slog.Warn("directory: host lookup failed, denying", "meeting_id", meetingID, "host_id", hostID, "error", err)
			return ErrHostUnverified
		}
		slog.Warn("directory: host lookup failed, allowing", "meeting_id", meetingID, "host_id", hostID, "error", err)
		return nil
	}
	if stored != hostID {
		slog.Info("directory: host mismatch", "meeting_id", meetingID, "host_id", hostID)
		return ErrNotHost
	}
	return nil
}
