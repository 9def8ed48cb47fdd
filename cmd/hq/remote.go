package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// remoteFile is the on-disk list of named servers hq can talk to. Active
// names the remote whose URL and token become the --server and --token
// defaults.
type remoteFile struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is one hands server. Watch reads broadcasts from the server's event
// stream, so the HTTP URL is all it needs.
type Remote struct {
	URL         string `toml:"url"`
	Token       string `toml:"token,omitempty"`
	Description string `toml:"description,omitempty"`
}

// remotesPath returns ~/.local/state/hands/remotes.toml, creating the
// directory owner-only since the file holds tokens.
func remotesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "hands")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

// readRemotes loads the remote file. A missing file is an empty one.
func readRemotes() (*remoteFile, error) {
	path, err := remotesPath()
	if err != nil {
		return nil, err
	}
	rf := &remoteFile{}
	if _, err := toml.DecodeFile(path, rf); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	if rf.Remotes == nil {
		rf.Remotes = map[string]Remote{}
	}
	return rf, nil
}

func (rf *remoteFile) write() error {
	path, err := remotesPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(rf); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (rf *remoteFile) lookup(name string) (Remote, error) {
	r, ok := rf.Remotes[name]
	if !ok {
		return Remote{}, fmt.Errorf("remote %q not found", name)
	}
	return r, nil
}

// editRemotes applies fn to the remote file, saves it and prints the
// message fn returns.
func editRemotes(w io.Writer, fn func(rf *remoteFile) (string, error)) error {
	rf, err := readRemotes()
	if err != nil {
		return err
	}
	msg, err := fn(rf)
	if err != nil {
		return err
	}
	if err := rf.write(); err != nil {
		return err
	}
	fmt.Fprintln(w, msg)
	return nil
}

// activeRemote is read at most once per process; flag defaults call it
// before any command runs.
var activeRemote = sync.OnceValue(func() Remote {
	rf, err := readRemotes()
	if err != nil || rf.Active == "" {
		return Remote{}
	}
	return rf.Remotes[rf.Active]
})

func activeRemoteURL() string   { return activeRemote().URL }
func activeRemoteToken() string { return activeRemote().Token }

// checkServerURL rejects anything that is not an absolute http(s) URL.
func checkServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q: want http:// or https:// with a host", raw)
	}
	return nil
}

// redactToken keeps the first 8 characters of a token. Short tokens are
// shown as is. With fill the hidden part is replaced rune for rune,
// otherwise by an ellipsis.
func redactToken(token, fill string) string {
	if len(token) <= 8 {
		return token
	}
	if fill == "" {
		return token[:8] + "..."
	}
	return token[:8] + strings.Repeat(fill, len(token)-8)
}

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named server remotes",
	GroupID: "system",
	// Remote subcommands only touch the local profile file.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, target := args[0], strings.TrimRight(args[1], "/")
		if err := checkServerURL(target); err != nil {
			return err
		}
		token, _ := cmd.Flags().GetString("token")
		desc, _ := cmd.Flags().GetString("description")

		return editRemotes(cmd.OutOrStdout(), func(rf *remoteFile) (string, error) {
			rf.Remotes[name] = Remote{URL: target, Token: token, Description: desc}
			return fmt.Sprintf("remote %q added (%s)", name, target), nil
		})
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		return editRemotes(cmd.OutOrStdout(), func(rf *remoteFile) (string, error) {
			if _, err := rf.lookup(name); err != nil {
				return "", err
			}
			delete(rf.Remotes, name)
			if rf.Active == name {
				rf.Active = ""
			}
			return fmt.Sprintf("remote %q removed", name), nil
		})
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the active remote (no args clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editRemotes(cmd.OutOrStdout(), func(rf *remoteFile) (string, error) {
			if len(args) == 0 {
				rf.Active = ""
				return "active remote cleared", nil
			}
			if _, err := rf.lookup(args[0]); err != nil {
				return "", err
			}
			rf.Active = args[0]
			return fmt.Sprintf("active remote set to %q", args[0]), nil
		})
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rf, err := readRemotes()
		if err != nil {
			return err
		}
		if len(rf.Remotes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no remotes configured")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tURL\tTOKEN\tDESCRIPTION")
		for _, name := range slices.Sorted(maps.Keys(rf.Remotes)) {
			r := rf.Remotes[name]
			marker := "  "
			if name == rf.Active {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", marker, name, r.URL, redactToken(r.Token, ""), r.Description)
		}
		return w.Flush()
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show details for a remote (defaults to active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rf, err := readRemotes()
		if err != nil {
			return err
		}
		name := rf.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no active remote; specify a name or run 'hq remote use <name>'")
		}
		r, err := rf.lookup(name)
		if err != nil {
			return err
		}

		if name == rf.Active {
			name += " (active)"
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, row := range [][2]string{
			{"name", name},
			{"description", r.Description},
			{"url", r.URL},
			{"events", r.URL + "/v1/events/stream"},
			{"token", redactToken(r.Token, "*")},
		} {
			if row[1] != "" {
				fmt.Fprintf(w, "%s:\t%s\n", row[0], row[1])
			}
		}
		return w.Flush()
	},
}

func init() {
	remoteAddCmd.Flags().String("token", "", "bearer token for authentication")
	remoteAddCmd.Flags().String("description", "", "human-readable description of the remote")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteListCmd, remoteUseCmd, remoteShowCmd)
}
