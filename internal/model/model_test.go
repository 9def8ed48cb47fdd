package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTruncateName(t *testing.T) {
	for _, tc := range []struct {
		name string
		max  int
		want string
	}{
		{"Alice", 10, "Alice"},
		{"Alice", 3, "Ali"},
		{"Alice", 0, "Alice"},
		{"Zoë Çelik", 3, "Zoë"},
		{"", 5, ""},
	} {
		if got := TruncateName(tc.name, tc.max); got != tc.want {
			t.Errorf("TruncateName(%q, %d) = %q, want %q", tc.name, tc.max, got, tc.want)
		}
	}
}

func TestNewEntry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEntry("m1", "u1", strings.Repeat("x", 80), "sock-1", 50, now)

	if e.Status != StatusWaiting {
		t.Errorf("status = %q, want %q", e.Status, StatusWaiting)
	}
	if len(e.DisplayName) != 50 {
		t.Errorf("display name length = %d, want 50", len(e.DisplayName))
	}
	if e.RaisedAtMilli != now.UnixMilli() {
		t.Errorf("raised_at_ms = %d, want %d", e.RaisedAtMilli, now.UnixMilli())
	}
	if !strings.HasSuffix(e.ID, "-u1") {
		t.Errorf("id = %q, want suffix -u1", e.ID)
	}
	if e.TransportID != "sock-1" {
		t.Errorf("transport id = %q", e.TransportID)
	}
}

func TestDisposition(t *testing.T) {
	if !DispositionAcknowledge.IsValid() || !DispositionDeny.IsValid() {
		t.Fatal("known dispositions should be valid")
	}
	if Disposition("shrug").IsValid() {
		t.Fatal("unknown disposition should be invalid")
	}
	if DispositionDeny.Past() != "denied" || DispositionAcknowledge.Past() != "acknowledged" {
		t.Fatal("unexpected past tense")
	}
}

func TestStatsOf(t *testing.T) {
	s := &Session{ID: "hs-1", MeetingID: "m1", Raised: 3, Acknowledged: 1, Denied: 1}
	st := StatsOf(s, 1)
	if st.MeetingID != "m1" || st.Raised != 3 || st.Active != 1 || st.SessionID != "hs-1" {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(&RaiseInput{MeetingID: "m1", ParticipantID: "u1", DisplayName: "Alice"}); err != nil {
		t.Fatalf("valid raise: %v", err)
	}
	if err := Validate(&RaiseInput{MeetingID: "m1", ParticipantID: "u1"}); err != nil {
		t.Fatalf("raise without a display name: %v", err)
	}

	err := Validate(&RaiseInput{MeetingID: "m1"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(ve.Errors) != 1 {
		t.Fatalf("expected 1 field error, got %d: %v", len(ve.Errors), ve)
	}
	if ve.Errors[0].Field != "participant_id" || ve.Errors[0].Message != "is required" {
		t.Errorf("first error = %+v", ve.Errors[0])
	}

	err = Validate(&DispositionInput{MeetingID: "m1", ParticipantID: "u1", HostID: "h", Action: "shrug"})
	if !errors.As(err, &ve) || ve.Errors[0].Field != "action" {
		t.Fatalf("expected action error, got %v", err)
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("unexpected message: %v", err)
	}

	if err := Validate(&HostInput{MeetingID: "m1", HostID: "h1"}); err != nil {
		t.Fatalf("valid host input: %v", err)
	}
}
