package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alfredjeanlab/hands/internal/client"
	"github.com/alfredjeanlab/hands/internal/events"
	"github.com/alfredjeanlab/hands/internal/model"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [meeting]",
	Short: "Stream hand-raise broadcasts as they happen",
	Long: `Stream hand-raise broadcasts. With a meeting argument only that meeting's
broadcasts are shown.

Broadcasts come from the server's event stream. With --nats (or
HANDS_NATS_URL) watch reads them straight from the bus instead.`,
	GroupID: "hands",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var meetingID string
		if len(args) == 1 {
			meetingID = args[0]
		}
		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = os.Getenv("HANDS_NATS_URL")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sub, err := openSubscriber(natsURL, meetingID)
		if err != nil {
			return err
		}
		defer sub.Close()
		return streamBroadcasts(ctx, cmd.OutOrStdout(), sub, meetingID)
	},
}

// openSubscriber reads from NATS when natsURL is set and from the server's
// event stream otherwise. The event stream filters by meeting server-side.
func openSubscriber(natsURL, meetingID string) (events.Subscriber, error) {
	if natsURL == "" {
		return client.NewEventStream(serverURL, authToken, meetingID), nil
	}
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.Name("hq-watch"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats: disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats: reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return sub, nil
}

// streamBroadcasts prints broadcasts from sub until ctx is done or the
// subscription closes.
func streamBroadcasts(ctx context.Context, w io.Writer, sub events.Subscriber, meetingID string) error {
	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribing to broadcasts: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if err := printBroadcast(w, data, meetingID); err != nil {
				slog.Warn("skipping malformed broadcast", "error", err)
			}
		}
	}
}

// printBroadcast decodes one payload and prints it if it belongs to
// meetingID.
func printBroadcast(w io.Writer, data []byte, meetingID string) error {
	var b model.Broadcast
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if meetingID != "" && b.MeetingID != meetingID {
		return nil
	}
	if jsonOutput {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, broadcastLine(&b))
	return err
}

func init() {
	watchCmd.Flags().String("nats", "", "read broadcasts from this NATS URL instead of the server")
}
