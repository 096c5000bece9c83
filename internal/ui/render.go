package ui

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/omnicli/omni/internal/orchestrator"
)

// View implements tea.Model. The last frame rendered before tea.Quit
// persists in the terminal scrollback.
func (m *ApplyModel) View() string {
	if m.applyStart.IsZero() {
		return ""
	}

	var b strings.Builder

	b.WriteString(renderRunHeader(m.phase, formatElapsed(m.totalElapsed), m.width))
	b.WriteByte('\n')
	renderTaskList(&b, m.tasks, m.taskOrder, m.completedOrder, m.width)

	renderLogPanel(&b, m.slogLines, m.width)

	fmt.Fprintf(&b, "\nElapsed: %s", formatElapsed(m.totalElapsed))

	return b.String()
}

// renderRunHeader renders the header line naming which phase is running.
// e.g. "Up                                                              4.4s"
func renderRunHeader(phase orchestrator.Phase, elapsed string, width int) string {
	prefix := "Up"
	if phase == orchestrator.PhaseRemove {
		prefix = "Down"
	}
	return layerHeaderStyle.Render(rightAlign(prefix, elapsed, width))
}

// renderTaskList renders all tasks to the builder. Completed/skipped/failed
// tasks are rendered first (in completion order), followed by running tasks
// (in start order).
func renderTaskList(b *strings.Builder, tasks map[string]*taskState, taskOrder []string, completedOrder []string, width int) {
	for _, key := range completedOrder {
		task := tasks[key]
		if task == nil {
			continue
		}
		renderTask(b, task, width)
	}

	completedSet := make(map[string]struct{}, len(completedOrder))
	for _, key := range completedOrder {
		completedSet[key] = struct{}{}
	}
	for _, key := range taskOrder {
		if _, done := completedSet[key]; done {
			continue
		}
		task := tasks[key]
		if task == nil {
			continue
		}
		renderTask(b, task, width)
	}
}

// renderTask renders a single task to the builder.
func renderTask(b *strings.Builder, task *taskState, width int) {
	taskElapsed := task.elapsed
	if task.status == taskRunning {
		taskElapsed = time.Since(task.startTime)
	}

	switch task.status {
	case taskDone:
		b.WriteString(renderCompletedLine(task, taskElapsed, width))
		b.WriteByte('\n')
	case taskSkipped:
		b.WriteString(renderSkippedLine(task, width))
		b.WriteByte('\n')
	case taskFailed:
		b.WriteString(renderFailedLine(task, taskElapsed, width))
		b.WriteByte('\n')
	case taskRunning:
		b.WriteString(renderRunningLine(task, taskElapsed, width))
		b.WriteByte('\n')
	}
}

// renderCompletedLine renders a completed task line.
// e.g. " ✓ go-install/cli  installed to ~/.local/share/omni/installs/cli     4.4s"
func renderCompletedLine(t *taskState, taskElapsed time.Duration, width int) string {
	elapsed := formatElapsed(taskElapsed)
	label := taskLabel(t)

	detail := "done"
	if t.installPath != "" {
		detail = "installed to " + shortenPath(t.installPath)
	} else if t.phase == orchestrator.PhaseRemove {
		detail = "removed"
	}

	prefix := fmt.Sprintf(" %s %s  %s", doneMark, label, detail)
	return rightAlign(prefix, elapsed, width)
}

// renderSkippedLine renders an already-installed task line.
func renderSkippedLine(t *taskState, width int) string {
	label := taskLabel(t)
	prefix := fmt.Sprintf(" %s %s  already installed", skipMark, label)
	return rightAlign(prefix, "", width)
}

// renderFailedLine renders a failed task line.
// e.g. " ✗ github-release/cli  failed: connection refused                    0.3s"
func renderFailedLine(t *taskState, taskElapsed time.Duration, width int) string {
	elapsed := formatElapsed(taskElapsed)
	label := taskLabel(t)

	errMsg := "unknown error"
	if t.err != nil {
		errMsg = t.err.Error()
		if len(errMsg) > 50 {
			errMsg = errMsg[:47] + "..."
		}
	}

	prefix := fmt.Sprintf(" %s %s  failed: %s", failMark, label, errMsg)
	return rightAlign(prefix, elapsed, width)
}

// renderRunningLine renders a running task with a spinner.
// e.g. " ⠹ node/node 20.11.0                                                  0.3s"
func renderRunningLine(t *taskState, taskElapsed time.Duration, width int) string {
	elapsed := formatElapsed(taskElapsed)
	label := taskLabel(t)
	frame := spinnerFrame(t.startTime)

	prefix := fmt.Sprintf(" %s %s", frame, label)
	return rightAlign(prefix, elapsed, width)
}

// spinnerFrame returns the current spinner character based on elapsed time.
func spinnerFrame(startTime time.Time) string {
	elapsed := time.Since(startTime)
	idx := int(elapsed.Milliseconds()/80) % len(spinnerChars)
	return spinnerChars[idx]
}

// taskLabel returns the display label for a task, e.g. "node/node 20.11.0".
func taskLabel(t *taskState) string {
	return fmt.Sprintf("%s/%s", t.kind, t.label)
}

// formatElapsed formats a duration as "X.Xs".
func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// shortenPath replaces the user's home directory with ~.
func shortenPath(p string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return p
	}
	if strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}

// rightAlign places suffix at the right edge of a line of given width.
// Uses width-1 to prevent terminals from wrapping at the exact column boundary.
func rightAlign(prefix, suffix string, width int) string {
	prefixLen := lipglossWidth(prefix)
	suffixLen := len(suffix)

	gap := max(width-1-prefixLen-suffixLen, 1)
	return prefix + strings.Repeat(" ", gap) + suffix
}

// renderLogPanel renders the slog log panel if there are log lines.
func renderLogPanel(b *strings.Builder, lines []slogLine, width int) {
	if len(lines) == 0 {
		return
	}

	sep := "── Logs " + strings.Repeat("─", max(width-8, 0))
	b.WriteByte('\n')
	b.WriteString(logSeparatorStyle.Render(sep))
	b.WriteByte('\n')

	for _, line := range lines {
		label := slogLevelLabel(line.level)
		text := fmt.Sprintf(" %s %s", label, line.message)
		styled := slogLineStyle(line.level, text)
		b.WriteString(styled)
		b.WriteByte('\n')
	}
}

// slogLevelLabel returns a styled short label for the log level.
func slogLevelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return errorLogStyle.Render("ERROR")
	case level >= slog.LevelWarn:
		return warnLogStyle.Render("WARN")
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return debugLogStyle.Render("DEBUG")
	}
}

// slogLineStyle applies color to the entire log line based on level.
func slogLineStyle(level slog.Level, text string) string {
	switch {
	case level >= slog.LevelError:
		return errorLogStyle.Render(text)
	case level >= slog.LevelWarn:
		return warnLogStyle.Render(text)
	case level >= slog.LevelInfo:
		return text
	default:
		return debugLogStyle.Render(text)
	}
}

// lipglossWidth returns the visible width of a string, stripping ANSI escape sequences.
func lipglossWidth(s string) int {
	width := 0
	inEscape := false
	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		width++
	}
	return width
}
