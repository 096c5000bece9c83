package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	tomeilog "github.com/omnicli/omni/internal/log"
	"github.com/omnicli/omni/internal/orchestrator"
)

// spinnerFrames are the frames used for the running-task spinner bar.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ApplyResults counts an Up or Down run's outcome from its event
// stream: one counter each for completed installs, skips, removals and
// failures. It is not the same shape as orchestrator.Result, which
// holds lists of plan items, references and env deltas and has no
// failure count.
type ApplyResults struct {
	Installed int
	Skipped   int
	Removed   int
	Failed    int
}

// ProgressManager manages progress display for a non-TUI (quiet or
// non-TTY) Up/Down run: one spinner bar per plan item, or a single
// printed line per item when stdout isn't a terminal.
type ProgressManager struct {
	mu            sync.Mutex
	w             io.Writer
	isTTY         bool
	progress      *mpb.Progress
	bars          map[string]*mpb.Bar
	headerShown   bool
}

// NewProgressManager creates a new progress manager.
func NewProgressManager(w io.Writer) *ProgressManager {
	isTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	pm := &ProgressManager{
		w:     w,
		isTTY: isTTY,
		bars:  make(map[string]*mpb.Bar),
	}

	if isTTY {
		pm.progress = mpb.New(mpb.WithOutput(w), mpb.WithWidth(40))
	}

	return pm
}

// Wait waits for all progress bars to complete.
func (pm *ProgressManager) Wait() {
	if pm.progress != nil {
		pm.progress.Wait()
	}
}

// HandleEvent handles one orchestrator event for progress display.
func (pm *ProgressManager) HandleEvent(event orchestrator.Event, results *ApplyResults) {
	key := taskKey(event.Kind, event.Label)

	switch event.Type {
	case orchestrator.EventStart:
		pm.handleStart(event, key)
	case orchestrator.EventSkip:
		pm.handleSkip(event, results, key)
	case orchestrator.EventComplete:
		pm.handleComplete(event, results, key)
	case orchestrator.EventError:
		pm.handleError(event, results, key)
	}
}

// handleStart handles EventStart.
func (pm *ProgressManager) handleStart(event orchestrator.Event, key string) {
	style := NewStyle()

	pm.mu.Lock()
	showHeader := !pm.headerShown && !pm.isTTY
	pm.headerShown = true

	if pm.isTTY {
		label := fmt.Sprintf(" %s %s/%s ", runMarkFor(event.Phase), event.Kind, style.Path.Sprint(event.Label))
		bar, _ := pm.progress.Add(0,
			mpb.SpinnerStyle(spinnerFrames...).Build(),
			mpb.BarFillerClearOnComplete(),
			mpb.PrependDecorators(
				decor.Name(label, decor.WC{W: 40, C: decor.DindentRight}),
			),
			mpb.AppendDecorators(
				decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 8}),
				decor.OnComplete(decor.Name(""), " done"),
			),
		)
		pm.bars[key] = bar
		pm.mu.Unlock()
	} else {
		if showHeader {
			fmt.Fprintln(pm.w)
			fmt.Fprintln(pm.w, runHeaderFor(event.Phase))
		}
		fmt.Fprintf(pm.w, "  %s %s/%s\n", runMarkFor(event.Phase), event.Kind, style.Path.Sprint(event.Label))
		pm.mu.Unlock()
	}
}

// handleSkip handles EventSkip: the item never gets a bar.
func (pm *ProgressManager) handleSkip(event orchestrator.Event, results *ApplyResults, key string) {
	style := NewStyle()

	pm.mu.Lock()
	if !pm.isTTY {
		fmt.Fprintf(pm.w, "  %s %s/%s already installed\n", style.SkipMark, event.Kind, style.Path.Sprint(event.Label))
	}
	results.Skipped++
	pm.mu.Unlock()
}

// handleComplete handles EventComplete.
func (pm *ProgressManager) handleComplete(event orchestrator.Event, results *ApplyResults, key string) {
	pm.mu.Lock()
	if bar, ok := pm.bars[key]; ok {
		bar.SetTotal(1, true)
		bar.SetCurrent(1)
		delete(pm.bars, key)
	} else if !pm.isTTY {
		style := NewStyle()
		fmt.Fprintf(pm.w, "  %s %s/%s done\n", style.SuccessMark, event.Kind, style.Path.Sprint(event.Label))
	}

	if event.Phase == orchestrator.PhaseRemove {
		results.Removed++
	} else {
		results.Installed++
	}
	pm.mu.Unlock()
}

// handleError handles EventError.
func (pm *ProgressManager) handleError(event orchestrator.Event, results *ApplyResults, key string) {
	style := NewStyle()

	pm.mu.Lock()
	if bar, ok := pm.bars[key]; ok {
		bar.Abort(true)
		delete(pm.bars, key)
	}
	fmt.Fprintf(pm.w, "  %s %s/%s failed: %v\n", style.FailMark, event.Kind, event.Label, event.Error)
	results.Failed++
	pm.mu.Unlock()
}

// runMarkFor returns the lifecycle mark for an apply- or remove-phase event.
func runMarkFor(phase orchestrator.Phase) string {
	if phase == orchestrator.PhaseRemove {
		return "-"
	}
	return "=>"
}

// runHeaderFor returns the non-TTY section header for a phase.
func runHeaderFor(phase orchestrator.Phase) string {
	if phase == orchestrator.PhaseRemove {
		return "Removing:"
	}
	return "Installing:"
}

// PrintApplySummary prints the apply/remove summary.
func PrintApplySummary(w io.Writer, results *ApplyResults) {
	style := NewStyle()

	total := results.Installed + results.Removed
	if total == 0 && results.Failed == 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s No changes to apply\n", style.SuccessMark)
		return
	}

	fmt.Fprintln(w)
	style.Header.Fprintln(w, "Summary:")

	if results.Installed > 0 {
		fmt.Fprintf(w, "  %s Installed: %d\n", style.SuccessMark, results.Installed)
	}
	if results.Skipped > 0 {
		fmt.Fprintf(w, "  %s Skipped:   %d\n", style.SkipMark, results.Skipped)
	}
	if results.Removed > 0 {
		fmt.Fprintf(w, "  %s Removed:   %d\n", style.RemoveMark, results.Removed)
	}
	if results.Failed > 0 {
		fmt.Fprintf(w, "  %s Failed:    %d\n", style.FailMark, results.Failed)
	}

	fmt.Fprintln(w)
	if results.Failed == 0 {
		style.Success.Fprintln(w, "Apply complete!")
	} else {
		color.New(color.FgRed, color.Bold).Fprintln(w, "Apply completed with errors")
	}
}

// PrintFailureLogs prints a one-line summary per failed plan item,
// pointing at the persisted log file for the full record. There is no
// accumulated command output to print inline: operation.Driver
// reports only a final error per item.
func PrintFailureLogs(w io.Writer, failed []tomeilog.FailedResource) {
	if len(failed) == 0 {
		return
	}

	style := NewStyle()

	fmt.Fprintln(w)
	style.Header.Fprintln(w, "Failure Details:")

	for _, f := range failed {
		fmt.Fprintf(w, "  %s %s/%s: %v\n", style.FailMark, f.Kind, f.Name, f.Error)
		fmt.Fprintf(w, "    see: omni logs %s/%s\n", f.Kind, f.Name)
	}
}
