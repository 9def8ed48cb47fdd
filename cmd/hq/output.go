package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/hands/internal/model"
	"github.com/alfredjeanlab/hands/internal/presence"
	"github.com/alfredjeanlab/hands/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// formatWait renders how long a hand has been up, to the second.
func formatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	return d.String()
}

func printHandsTable(w io.Writer, meetingID string, entries []model.Entry, count int, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintf(w, "no hands raised in %s\n", meetingID)
		return
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.ParticipantID,
			e.DisplayName,
			formatWait(now.Sub(e.RaisedAt)),
		})
	}
	fmt.Fprintln(w, ui.Table([]string{"#", "PARTICIPANT", "NAME", "WAITING"}, rows))
	fmt.Fprintf(w, "%d raised in %s\n", count, meetingID)
}

func printStats(w io.Writer, s *model.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Meeting:\t%s\n", s.MeetingID)
	fmt.Fprintf(tw, "Session:\t%s\n", s.SessionID)
	fmt.Fprintf(tw, "Started:\t%s\n", s.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(tw, "Raised:\t%d\n", s.Raised)
	fmt.Fprintf(tw, "Acknowledged:\t%d\n", s.Acknowledged)
	fmt.Fprintf(tw, "Denied:\t%d\n", s.Denied)
	fmt.Fprintf(tw, "Active:\t%d\n", s.Active)
	if s.LastRaiseAt != nil {
		fmt.Fprintf(tw, "Last raise:\t%s\n", s.LastRaiseAt.Local().Format(time.DateTime))
	}
	if s.LastActionAt != nil {
		fmt.Fprintf(tw, "Last action:\t%s\n", s.LastActionAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}

func printAcksTable(w io.Writer, meetingID string, recs []*model.AckRecord) {
	if len(recs) == 0 {
		fmt.Fprintf(w, "no recent acknowledgments in %s\n", meetingID)
		return
	}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			r.ParticipantID,
			r.DisplayName,
			r.HostID,
			r.DisposedAt.Local().Format(time.TimeOnly),
		})
	}
	fmt.Fprintln(w, ui.Table([]string{"PARTICIPANT", "NAME", "HOST", "AT"}, rows))
}

func printSessionsTable(w io.Writer, sessions []presence.Activity) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no active sessions")
		return
	}
	rows := make([][]string, 0, len(sessions))
	for _, a := range sessions {
		idle := formatWait(time.Duration(a.IdleSecs * float64(time.Second)))
		if a.Reaped {
			idle += " (reaped)"
		}
		rows = append(rows, []string{
			a.MeetingID,
			a.LastEvent,
			strconv.FormatInt(a.EventCount, 10),
			idle,
		})
	}
	fmt.Fprintln(w, ui.Table([]string{"MEETING", "LAST EVENT", "EVENTS", "IDLE"}, rows))
}

// broadcastLine renders one broadcast as a single line for watch.
func broadcastLine(b *model.Broadcast) string {
	ts := b.Timestamp.Local().Format(time.TimeOnly)
	head := ui.RenderMuted(ts) + " " + ui.RenderAccent(string(b.Kind)) + " " + b.MeetingID
	switch b.Kind {
	case model.KindHandRaised:
		return fmt.Sprintf("%s %s (%s)", head, b.ParticipantID, b.DisplayName)
	case model.KindHandLowered:
		return head + " " + b.ParticipantID
	case model.KindHandAcknowledged, model.KindHandDenied:
		return fmt.Sprintf("%s %s by %s", head, b.ParticipantID, b.HostID)
	case model.KindHandsCleared:
		return fmt.Sprintf("%s %d cleared by %s", head, b.Count, b.HostID)
	case model.KindSessionEnded:
		if b.Stats != nil {
			return fmt.Sprintf("%s raised=%d acknowledged=%d denied=%d",
				head, b.Stats.Raised, b.Stats.Acknowledged, b.Stats.Denied)
		}
	}
	return head
}
