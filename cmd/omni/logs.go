package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	tomeilog "github.com/omnicli/omni/internal/log"
	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/ui"
)

var logsListSessions bool
var logsNoColor bool
var logsCachePath string

var logsCmd = &cobra.Command{
	Use:   "logs [kind/name | kind name]",
	Short: "Show installation logs from the last up/down run",
	Long: `Show installation logs from the last omni up or omni down session.

Without arguments, lists all failed resources from the most recent session.
With a resource argument, shows the full log for that resource.
Resource can be specified as "kind/name" or "kind name" (the kind is case-insensitive).

Examples:
  omni logs                  # list failed resources from last session
  omni logs go/ripgrep       # show full log for go/ripgrep
  omni logs go ripgrep       # same (space-separated)
  omni logs --list           # list all sessions`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&logsListSessions, "list", false, "List all log sessions")
	logsCmd.Flags().BoolVar(&logsNoColor, "no-color", false, "Disable colored output")
	logsCmd.Flags().StringVar(&logsCachePath, "cache-path", "", "Override the cache root directory")
}

func runLogs(cmd *cobra.Command, args []string) error {
	if logsNoColor {
		color.NoColor = true
	}

	logsDir, err := resolveLogsDir()
	if err != nil {
		return err
	}

	if logsListSessions {
		return listSessions(cmd, logsDir)
	}

	if len(args) > 0 {
		return showResourceLogFromArgs(cmd, logsDir, args)
	}

	return showLatestSession(cmd, logsDir)
}

func resolveLogsDir() (string, error) {
	paths, err := resolvePaths(logsCachePath, "")
	if err != nil {
		return "", fmt.Errorf("failed to resolve cache paths: %w", err)
	}

	return paths.CacheRoot() + "/logs", nil
}

// parseResourceRef parses a "kind/name" or "kind name" argument list
// (case-insensitive on kind) into an operation.Kind and a name.
func parseResourceRef(args []string) (operation.Kind, string, error) {
	var kind, name string
	switch len(args) {
	case 1:
		var ok bool
		kind, name, ok = strings.Cut(args[0], "/")
		if !ok {
			return "", "", fmt.Errorf("expected kind/name, got %q", args[0])
		}
	case 2:
		kind, name = args[0], args[1]
	default:
		return "", "", fmt.Errorf("expected 1 or 2 arguments, got %d", len(args))
	}
	return operation.Kind(strings.ToLower(kind)), name, nil
}

func listSessions(cmd *cobra.Command, logsDir string) error {
	style := ui.NewStyle()

	sessions, err := tomeilog.ListSessions(logsDir)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		cmd.Println("No log sessions found.")
		return nil
	}

	style.Header.Fprintln(cmd.OutOrStdout(), "Log Sessions:")
	for _, s := range sessions {
		logs, err := tomeilog.ReadSessionLogs(s.Dir)
		if err != nil {
			continue
		}
		cmd.Printf("  %s  (%d logs)\n", s.ID, len(logs))
	}

	return nil
}

func showLatestSession(cmd *cobra.Command, logsDir string) error {
	style := ui.NewStyle()

	sessions, err := tomeilog.ListSessions(logsDir)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		cmd.Println("No log sessions found.")
		return nil
	}

	latest := sessions[0]
	logs, err := tomeilog.ReadSessionLogs(latest.Dir)
	if err != nil {
		return err
	}

	if len(logs) == 0 {
		cmd.Printf("No failure logs in session %s.\n", latest.ID)
		return nil
	}

	style.Header.Fprintf(cmd.OutOrStdout(), "Session: %s\n", latest.ID)
	cmd.Println()

	for _, l := range logs {
		cmd.Printf("  %s %s/%s\n", style.FailMark, l.Kind, l.Name)
	}

	cmd.Println()
	cmd.Println("Use 'omni logs <kind>/<name>' to see the full log.")

	return nil
}

func showResourceLogFromArgs(cmd *cobra.Command, logsDir string, args []string) error {
	kind, name, err := parseResourceRef(args)
	if err != nil {
		return err
	}

	sessions, err := tomeilog.ListSessions(logsDir)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		cmd.Println("No log sessions found.")
		return nil
	}

	latest := sessions[0]
	content, err := tomeilog.ReadResourceLog(latest.Dir, kind, name)
	if err != nil {
		return err
	}

	cmd.Print(content)
	return nil
}
