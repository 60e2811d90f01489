// Package ui centralizes terminal styling for the CLI. Styles degrade
// automatically on dumb terminals via termenv's profile detection.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	accent  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failure = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimmed  = lipgloss.NewStyle().Faint(true)

	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Plain disables all styling, for --no-color and non-TTY output.
func Plain() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Accent highlights an identifier or emphasized value.
func Accent(s string) string { return accent.Render(s) }

// Success renders a positive outcome line.
func Success(s string) string { return success.Render(s) }

// Warn renders a warning.
func Warn(s string) string { return warning.Render(s) }

// Fail renders an error message.
func Fail(s string) string { return failure.Render(s) }

// Dim renders secondary detail.
func Dim(s string) string { return dimmed.Render(s) }

// Header renders a section heading.
func Header(s string) string { return headerStyle.Render(s) }

// StatusBadge colors an item lifecycle status.
func StatusBadge(status string) string {
	switch status {
	case "active":
		return success.Render(status)
	case "expired", "discarded":
		return failure.Render(status)
	case "consumed":
		return dimmed.Render(status)
	default:
		return status
	}
}

// Quantity formats a quantity with its unit abbreviation.
func Quantity(qty float64, abbrev string) string {
	if abbrev == "" {
		return fmt.Sprintf("%g", qty)
	}
	return fmt.Sprintf("%g %s", qty, abbrev)
}
