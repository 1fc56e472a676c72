// Package ui provides consistent styling for the pointerlock CLI
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ColorPrimary = lipgloss.Color("39")  // Bright blue
	ColorSuccess = lipgloss.Color("82")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorError   = lipgloss.Color("196") // Red
	ColorInfo    = lipgloss.Color("86")  // Cyan

	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			PaddingRight(2)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)
)

var (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconInfo    = "i"
)

// Row is one line of a key/value table.
type Row struct {
	Label string
	Value string
	OK    bool
}

// FormatHeader renders a title followed by a separator.
func FormatHeader(title string) string {
	return HeaderStyle.Render(title) + "\n" + CreateSeparator(len([]rune(title)), "─")
}

// FormatCheck renders a pass/fail line.
func FormatCheck(ok bool, label string) string {
	if ok {
		return SuccessStyle.Render(IconSuccess) + " " + label
	}
	return ErrorStyle.Render(IconError) + " " + label
}

// FormatTable aligns rows in two columns with a status icon in front.
func FormatTable(rows []Row) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.Label))
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		label := LabelStyle.Width(width + 2).Render(r.Label)
		value := r.Value
		if r.OK {
			value = SuccessStyle.Render(value)
		} else {
			value = SubtleStyle.Render(value)
		}
		lines = append(lines, FormatCheck(r.OK, label+value))
	}
	return strings.Join(lines, "\n")
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int, char string) string {
	if width <= 0 {
		width = 50
	}
	if char == "" {
		char = "─"
	}

	return lipgloss.NewStyle().
		Foreground(ColorSubtle).
		Render(strings.Repeat(char, width))
}
