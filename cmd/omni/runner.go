package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	tomeilog "github.com/omnicli/omni/internal/log"
	"github.com/omnicli/omni/internal/orchestrator"
	"github.com/omnicli/omni/internal/ui"
)

// runFunc performs one Up or Down call against an already-wired
// orchestrator.Orchestrator; o.EventHandler is set by runOrchestrated
// before runFunc is invoked.
type runFunc func(ctx context.Context) error

// runOrchestrated drives runFn through the TUI (interactive terminal)
// or the mpb progress-bar renderer (non-TTY/quiet), wiring up and
// down's event stream to both the chosen renderer and logStore, then
// prints the run summary. Mirrors the TTY-branch/EventHandler/
// finishApply shape the teacher's apply command used, generalized to
// run either direction through one orchestrator.Orchestrator.
func runOrchestrated(
	ctx context.Context,
	o *orchestrator.Orchestrator,
	runFn runFunc,
	logStore *tomeilog.Store,
	w io.Writer,
	quiet bool,
) error {
	results := &ui.ApplyResults{}

	isTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	var runErr error
	if isTTY && !quiet {
		runErr = runWithTUI(ctx, o, runFn, results, logStore, w)
	} else {
		runErr = runWithProgressManager(ctx, o, runFn, results, logStore, w, quiet)
	}

	return finishRun(w, runErr, results, logStore, quiet)
}

func runWithTUI(
	ctx context.Context,
	o *orchestrator.Orchestrator,
	runFn runFunc,
	results *ui.ApplyResults,
	logStore *tomeilog.Store,
	w io.Writer,
) error {
	model := ui.NewApplyModel(results)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(w))

	prevLogger := slog.Default()
	slog.SetDefault(slog.New(ui.NewTUILogHandler(p, globalLogLevel.Level())))
	defer slog.SetDefault(prevLogger)

	reporter := ui.NewReporter(p)
	o.EventHandler = func(ev orchestrator.Event) {
		reporter.HandleEvent(ev)
		if logStore != nil {
			handleLogEvent(logStore, ev)
		}
	}

	go func() {
		reporter.Done(runFn(ctx))
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	fmt.Fprintln(w, model.FinalView())
	return model.Err()
}

func runWithProgressManager(
	ctx context.Context,
	o *orchestrator.Orchestrator,
	runFn runFunc,
	results *ui.ApplyResults,
	logStore *tomeilog.Store,
	w io.Writer,
	quiet bool,
) error {
	pm := ui.NewProgressManager(w)
	defer pm.Wait()

	if !quiet {
		o.EventHandler = func(ev orchestrator.Event) {
			pm.HandleEvent(ev, results)
			if logStore != nil {
				handleLogEvent(logStore, ev)
			}
		}
	} else if logStore != nil {
		o.EventHandler = func(ev orchestrator.Event) { handleLogEvent(logStore, ev) }
	}

	return runFn(ctx)
}

// finishRun flushes the log store and prints the run summary.
func finishRun(w io.Writer, runErr error, results *ui.ApplyResults, logStore *tomeilog.Store, quiet bool) error {
	if logStore != nil {
		if err := logStore.Flush(); err != nil {
			slog.Warn("failed to flush installation logs", "error", err)
		}
		if err := logStore.Cleanup(5); err != nil {
			slog.Warn("failed to clean up old log sessions", "error", err)
		}
	}

	if runErr != nil {
		if logStore != nil && !quiet {
			ui.PrintFailureLogs(w, logStore.FailedResources())
		}
		if !quiet {
			ui.PrintApplySummary(w, results)
		}
		return runErr
	}

	if !quiet {
		ui.PrintApplySummary(w, results)
	}
	return nil
}

func handleLogEvent(logStore *tomeilog.Store, event orchestrator.Event) {
	switch event.Type {
	case orchestrator.EventStart:
		logStore.RecordStart(event.Kind, event.Label, string(event.Phase))
	case orchestrator.EventError:
		logStore.RecordError(event.Kind, event.Label, event.Error)
	case orchestrator.EventComplete:
		logStore.RecordComplete(event.Kind, event.Label)
	}
}
