package main

import (
	"fmt"

	"github.com/alfredjeanlab/hands/internal/ui"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Short:   "Start, end and inspect hand-raise sessions",
	GroupID: "session",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <meeting>",
	Short: "Start a session (restarting resets its counters)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := handsClient.StartSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "session %s started for %s\n", res.Session.ID, args[0])
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <meeting>",
	Short: "End a session and drop all of its hand-raise state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := handsClient.EndSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		if res.Stats == nil {
			fmt.Fprintln(out, ui.RenderWarn("no session for "+args[0]+"; state cleared"))
			return nil
		}
		fmt.Fprintf(out, "session ended for %s\n", args[0])
		printStats(out, res.Stats)
		return nil
	},
}

var sessionStatsCmd = &cobra.Command{
	Use:   "stats <meeting>",
	Short: "Show session counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := handsClient.Stats(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List meetings with recent hand-raise activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stale, _ := cmd.Flags().GetDuration("stale")
		sessions, err := handsClient.ListSessions(cmd.Context(), stale)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), sessions)
		}
		printSessionsTable(cmd.OutOrStdout(), sessions)
		return nil
	},
}

func init() {
	sessionListCmd.Flags().Duration("stale", 0, "hide meetings idle for longer than this")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionStatsCmd)
}
