package main

import (
	"os"

	"github.com/alfredjeanlab/hands/internal/client"
	"github.com/alfredjeanlab/hands/internal/logging"
	"github.com/alfredjeanlab/hands/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	authToken  string
	logLevel   string
	jsonOutput bool
	noColor    bool

	handsClient client.HandsClient
)

func defaultServer() string {
	if s := os.Getenv("HANDS_SERVER"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultToken() string {
	if s := os.Getenv("HANDS_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

var rootCmd = &cobra.Command{
	Use:          "hq <command>",
	Short:        "Raise-hand queue for live meetings",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			ui.ForceNoColor()
		}
		logging.Setup(os.Stderr, logLevel)
		handsClient = client.NewHTTPClient(serverURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if handsClient != nil {
			handsClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "bearer token")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "hands", Title: "Hands:"},
		&cobra.Group{ID: "session", Title: "Sessions:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Hands
	rootCmd.AddCommand(raiseCmd)
	rootCmd.AddCommand(lowerCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ackCmd)
	rootCmd.AddCommand(denyCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(acksCmd)
	rootCmd.AddCommand(watchCmd)

	// Sessions
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(meetingCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
