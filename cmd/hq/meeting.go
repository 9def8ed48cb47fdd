package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/hands/internal/client"
	"github.com/alfredjeanlab/hands/internal/directory"
	"github.com/spf13/cobra"
)

var meetingCmd = &cobra.Command{
	Use:     "meeting",
	Short:   "Register meeting hosts in the directory",
	GroupID: "session",
}

var meetingSetCmd = &cobra.Command{
	Use:   "set <meeting>",
	Short: "Register a meeting or reassign its host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		title, _ := cmd.Flags().GetString("title")
		m, err := handsClient.SetMeeting(cmd.Context(), args[0], &client.MeetingRequest{HostID: host, Title: title})
		if err != nil {
			return err
		}
		return printMeeting(cmd, m)
	},
}

var meetingShowCmd = &cobra.Command{
	Use:   "show <meeting>",
	Short: "Show a meeting's directory record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := handsClient.GetMeeting(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printMeeting(cmd, m)
	},
}

var meetingDeleteCmd = &cobra.Command{
	Use:   "delete <meeting>",
	Short: "Remove a meeting from the directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := handsClient.DeleteMeeting(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "meeting %s deleted\n", args[0])
		return nil
	},
}

func printMeeting(cmd *cobra.Command, m *directory.Meeting) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), m)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", m.ID)
	fmt.Fprintf(w, "Host:\t%s\n", m.HostID)
	if m.Title != "" {
		fmt.Fprintf(w, "Title:\t%s\n", m.Title)
	}
	fmt.Fprintf(w, "Updated:\t%s\n", m.UpdatedAt.Local().Format(time.DateTime))
	return w.Flush()
}

func init() {
	meetingSetCmd.Flags().String("host", "", "host id (required)")
	meetingSetCmd.Flags().String("title", "", "meeting title")
	_ = meetingSetCmd.MarkFlagRequired("host")

	meetingCmd.AddCommand(meetingSetCmd)
	meetingCmd.AddCommand(meetingShowCmd)
	meetingCmd.AddCommand(meetingDeleteCmd)
}
