package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/hands/internal/cache"
	"github.com/alfredjeanlab/hands/internal/client"
	"github.com/alfredjeanlab/hands/internal/directory"
	"github.com/alfredjeanlab/hands/internal/hands"
	"github.com/alfredjeanlab/hands/internal/server"
	"github.com/alfredjeanlab/hands/internal/session"
	"github.com/spf13/cobra"
)

// startTestServer runs a full server over an embedded NATS cache and points
// handsClient at it.
func startTestServer(t *testing.T) {
	t.Helper()
	ns, err := cache.StartEmbedded(t.TempDir(), -1)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	t.Cleanup(ns.Shutdown)

	c, err := cache.Open(context.Background(), cache.Options{URL: ns.ClientURL(), ExpiringTTL: 30 * time.Second})
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	sessions := session.NewRegistry(c)
	mgr := hands.NewManager(c, sessions, hands.Config{})
	s := server.NewHandsServer(c, sessions, mgr, directory.NewVerifier(nil, false), nil)
	ts := httptest.NewServer(s.NewHTTPHandler(""))
	t.Cleanup(ts.Close)

	handsClient = client.NewHTTPClient(ts.URL, "")
	t.Cleanup(func() { handsClient = nil })
}

// run invokes cmd's RunE with flags set and returns what it printed.
func run(t *testing.T, cmd *cobra.Command, args []string, flags map[string]string) (string, error) {
	t.Helper()
	for k, v := range flags {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatalf("setting --%s: %v", k, err)
		}
	}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

func mustRun(t *testing.T, cmd *cobra.Command, args []string, flags map[string]string) string {
	t.Helper()
	out, err := run(t, cmd, args, flags)
	if err != nil {
		t.Fatalf("%s %v: %v", cmd.Name(), args, err)
	}
	return out
}

func TestCommandsLifecycle(t *testing.T) {
	startTestServer(t)

	out := mustRun(t, sessionStartCmd, []string{"m1"}, nil)
	if !strings.Contains(out, "started for m1") {
		t.Errorf("session start output: %q", out)
	}

	out = mustRun(t, raiseCmd, []string{"m1", "u1"}, map[string]string{"name": "Alice"})
	if !strings.Contains(out, "Alice raised a hand in m1 (1 waiting)") {
		t.Errorf("raise output: %q", out)
	}
	mustRun(t, raiseCmd, []string{"m1", "u2"}, map[string]string{"name": "Bob"})

	if _, err := run(t, raiseCmd, []string{"m1", "u1"}, map[string]string{"name": "Alice"}); err == nil ||
		!strings.Contains(err.Error(), "hand already raised") {
		t.Errorf("duplicate raise error = %v", err)
	}

	out = mustRun(t, listCmd, []string{"m1"}, nil)
	if !strings.Contains(out, "2 raised in m1") || strings.Index(out, "Alice") > strings.Index(out, "Bob") {
		t.Errorf("list output:\n%s", out)
	}

	out = mustRun(t, statusCmd, []string{"m1", "u1"}, nil)
	if out != "u1: hand raised\n" {
		t.Errorf("status output: %q", out)
	}

	out = mustRun(t, ackCmd, []string{"m1", "u1"}, map[string]string{"host": "h1"})
	if !strings.Contains(out, "Alice acknowledged (1 waiting)") {
		t.Errorf("ack output: %q", out)
	}
	out = mustRun(t, statusCmd, []string{"m1", "u1"}, nil)
	if !strings.Contains(out, "u1: acknowledged by h1") {
		t.Errorf("status after ack: %q", out)
	}
	out = mustRun(t, acksCmd, []string{"m1"}, nil)
	if !strings.Contains(out, "Alice") || !strings.Contains(out, "h1") {
		t.Errorf("acks output:\n%s", out)
	}

	out = mustRun(t, denyCmd, []string{"m1", "u2"}, map[string]string{"host": "h1"})
	if !strings.Contains(out, "Bob denied (0 waiting)") {
		t.Errorf("deny output: %q", out)
	}

	mustRun(t, raiseCmd, []string{"m1", "u3"}, map[string]string{"name": "Carol"})
	mustRun(t, lowerCmd, []string{"m1", "u3"}, nil)
	mustRun(t, raiseCmd, []string{"m1", "u4"}, map[string]string{"name": "Dan"})
	out = mustRun(t, clearCmd, []string{"m1"}, map[string]string{"host": "h1"})
	if out != "cleared 1 hands in m1\n" {
		t.Errorf("clear output: %q", out)
	}

	out = mustRun(t, sessionStatsCmd, []string{"m1"}, nil)
	for _, want := range []string{"Raised:", "4", "Acknowledged:", "Denied:"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, sessionListCmd, nil, nil)
	if !strings.Contains(out, "m1") || !strings.Contains(out, "hands.cleared") {
		t.Errorf("session list output:\n%s", out)
	}

	out = mustRun(t, sessionEndCmd, []string{"m1"}, nil)
	if !strings.Contains(out, "session ended for m1") {
		t.Errorf("session end output: %q", out)
	}
	out = mustRun(t, sessionListCmd, nil, nil)
	if out != "no active sessions\n" {
		t.Errorf("session list after end: %q", out)
	}
	out = mustRun(t, listCmd, []string{"m1"}, nil)
	if out != "no hands raised in m1\n" {
		t.Errorf("list after end: %q", out)
	}
}

func TestHealthCommand(t *testing.T) {
	startTestServer(t)

	out := mustRun(t, healthCmd, nil, nil)
	if out != "Health: ok (cache ok)\n" {
		t.Errorf("health output: %q", out)
	}
}

func TestMeetingCommands_NoDirectory(t *testing.T) {
	startTestServer(t)

	_, err := run(t, meetingShowCmd, []string{"m1"}, nil)
	if err == nil || !strings.Contains(err.Error(), "meeting directory not configured") {
		t.Errorf("meeting show error = %v", err)
	}
}
