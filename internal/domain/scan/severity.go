package scan

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Severity is the template-declared impact of a finding.
// Unknown values are carried through as written.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// ParseSeverity lower-cases and trims s.
func ParseSeverity(s string) Severity {
	return Severity(strings.ToLower(strings.TrimSpace(s)))
}

// IsKnown reports whether s is one of the five standard levels.
func (s Severity) IsKnown() bool {
	return s.Score() > 0
}

// Score returns a numeric rank for sorting: critical=5 ... info=1, unknown=0.
func (s Severity) Score() int {
	switch ParseSeverity(string(s)) {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Title returns the severity with its first letter upper-cased ("High").
// An empty severity renders as "Unknown".
func (s Severity) Title() string {
	v := strings.ToLower(strings.TrimSpace(string(s)))
	if v == "" {
		return "Unknown"
	}
	r, size := utf8.DecodeRuneInString(v)
	return string(unicode.ToUpper(r)) + v[size:]
}

func (s Severity) String() string {
	return string(s)
}
