package ui

import "github.com/charmbracelet/lipgloss"

var (
	doneMarkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))   // green
	failMarkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))   // red
	skipMarkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))   // yellow
	layerHeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))  // light cyan
	warnLogStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))   // yellow
	errorLogStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))   // red
	debugLogStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	logSeparatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	doneMark          = doneMarkStyle.Render("✓")
	failMark          = failMarkStyle.Render("✗")
	skipMark          = skipMarkStyle.Render("~")
)

// spinnerChars are the braille spinner frames.
var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
