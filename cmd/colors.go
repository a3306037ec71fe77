package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// formatMatched renders a finding's matched flag as a colored True/False.
func formatMatched(matched bool) string {
	if matched {
		return colorSuccess("True")
	}
	return colorError("False")
}

func formatSeverityWithColor(severity string) string {
	switch strings.ToLower(severity) {
	case "critical", "high":
		return colorError(severity)
	case "medium":
		return colorWarn(severity)
	case "low", "info":
		return colorInfo(severity)
	default:
		return severity
	}
}

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass", "completed":
		return colorSuccess(status)
	case "error", "fail", "failed":
		return colorError(status)
	default:
		return status
	}
}
