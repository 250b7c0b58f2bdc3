package display

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/RiptideSecurity/scour/pkg/jobs"
)

// Common color palette for consistent styling
var (
	ColorSuccess = lipgloss.Color("#00ff00")
	ColorWarning = lipgloss.Color("#ffaa00")
	ColorError   = lipgloss.Color("#ff0000")
	ColorInfo    = lipgloss.Color("#0099ff")
	ColorMuted   = lipgloss.Color("#666666")
)

var (
	successStyle = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(ColorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
)

// StateBadge renders a colored label for a job state.
func StateBadge(state jobs.State) string {
	switch state {
	case jobs.StateCompleted:
		return successStyle.Render(string(state))
	case jobs.StateRunning:
		return infoStyle.Render(string(state))
	case jobs.StatePending:
		return mutedStyle.Render(string(state))
	case jobs.StateCancelled:
		return warningStyle.Render(string(state))
	case jobs.StateFailed:
		return errorStyle.Render(string(state))
	default:
		return string(state)
	}
}

// VerifyBanner renders the certificate verification verdict.
func VerifyBanner(ok bool) string {
	if ok {
		return successStyle.Render("PASS: certificate is authentic and intact")
	}
	return errorStyle.Render("FAIL: certificate did not verify")
}
