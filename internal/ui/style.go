package ui

import "github.com/fatih/color"

// Style holds common output styling for CLI commands.
type Style struct {
	SuccessMark string
	FailMark    string
	WarnMark    string
	SkipMark    string
	RemoveMark  string
	Header      *color.Color
	Path        *color.Color
	Success     *color.Color
	Step        *color.Color
}

// NewStyle creates a new Style with standard colors.
func NewStyle() *Style {
	return &Style{
		SuccessMark: color.New(color.FgGreen).Sprint("✓"),
		FailMark:    color.New(color.FgRed).Sprint("✗"),
		WarnMark:    color.New(color.FgYellow).Sprint("⚠"),
		SkipMark:    color.New(color.FgYellow).Sprint("~"),
		RemoveMark:  color.New(color.FgYellow).Sprint("-"),
		Header:      color.New(color.FgCyan, color.Bold),
		Path:        color.New(color.FgCyan),
		Success:     color.New(color.FgGreen, color.Bold),
		Step:        color.New(color.FgYellow),
	}
}
