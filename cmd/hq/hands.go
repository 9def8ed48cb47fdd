package main

import (
	"fmt"
	"time"

	"github.com/alfredjeanlab/hands/internal/client"
	"github.com/alfredjeanlab/hands/internal/model"
	"github.com/alfredjeanlab/hands/internal/ui"
	"github.com/spf13/cobra"
)

var raiseCmd = &cobra.Command{
	Use:     "raise <meeting> <participant>",
	Short:   "Raise a participant's hand",
	GroupID: "hands",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		transport, _ := cmd.Flags().GetString("transport")

		res, err := handsClient.Raise(cmd.Context(), args[0], &client.RaiseRequest{
			ParticipantID: args[1],
			DisplayName:   name,
			TransportID:   transport,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		who := res.Entry.DisplayName
		if who == "" {
			who = res.Entry.ParticipantID
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s raised a hand in %s (%d waiting)\n",
			ui.RenderSuccess("✓"), who, args[0], res.Broadcast.Count)
		return nil
	},
}

var lowerCmd = &cobra.Command{
	Use:     "lower <meeting> <participant>",
	Short:   "Lower a participant's hand",
	GroupID: "hands",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := handsClient.Lower(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), b)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s lowered in %s\n", args[1], args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list <meeting>",
	Short:   "List raised hands in raise order",
	GroupID: "hands",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := handsClient.ListHands(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		printHandsTable(cmd.OutOrStdout(), res.MeetingID, res.Hands, res.Count, time.Now())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status <meeting> <participant>",
	Short:   "Show whether a participant's hand is up or was recently acknowledged",
	GroupID: "hands",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raised, err := handsClient.IsRaised(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		rec, err := handsClient.Acknowledgment(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"raised": raised, "acknowledgment": rec})
		}
		out := cmd.OutOrStdout()
		switch {
		case raised:
			fmt.Fprintf(out, "%s: hand raised\n", args[1])
		case rec != nil:
			fmt.Fprintf(out, "%s: acknowledged by %s at %s\n", args[1], rec.HostID, rec.DisposedAt.Local().Format(time.TimeOnly))
		default:
			fmt.Fprintf(out, "%s: no hand raised\n", args[1])
		}
		return nil
	},
}

func disposeCmd(action model.Disposition, use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use + " <meeting> <participant>",
		Short:   short,
		GroupID: "hands",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, _ := cmd.Flags().GetString("host")
			res, err := handsClient.Dispose(cmd.Context(), args[0], args[1], &client.DisposeRequest{
				HostID: host,
				Action: action,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%d waiting)\n",
				ui.RenderSuccess("✓"), res.Record.DisplayName, action.Past(), res.Broadcast.Count)
			return nil
		},
	}
	cmd.Flags().String("host", "", "host id performing the action (required)")
	_ = cmd.MarkFlagRequired("host")
	return cmd
}

var (
	ackCmd  = disposeCmd(model.DispositionAcknowledge, "ack", "Acknowledge a raised hand")
	denyCmd = disposeCmd(model.DispositionDeny, "deny", "Deny a raised hand")
)

var clearCmd = &cobra.Command{
	Use:     "clear <meeting>",
	Short:   "Lower every raised hand in a meeting",
	GroupID: "hands",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		res, err := handsClient.ClearAll(cmd.Context(), args[0], host)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %d hands in %s\n", res.Cleared, args[0])
		return nil
	},
}

var acksCmd = &cobra.Command{
	Use:     "acks <meeting>",
	Short:   "List acknowledgments still within the grace period",
	GroupID: "hands",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := handsClient.Acknowledgments(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), recs)
		}
		printAcksTable(cmd.OutOrStdout(), args[0], recs)
		return nil
	},
}

func init() {
	raiseCmd.Flags().String("name", "", "display name shown to the host")
	raiseCmd.Flags().String("transport", "", "real-time connection id of the participant")

	clearCmd.Flags().String("host", "", "host id performing the action (required)")
	_ = clearCmd.MarkFlagRequired("host")
}
