// Package report turns scan findings into report data.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
)

// DateLayout is the timestamp format used in summaries.
const DateLayout = "2006-01-02 15:04:05"

const (
	defaultDescription    = "No description available."
	defaultRecommendation = "No recommendation provided."
)

//go:embed templates/report.md
var templateFS embed.FS

var markdownTemplate = template.Must(
	template.New("report.md").ParseFS(templateFS, "templates/report.md"),
)

// Vulnerability is one matched finding in a summary.
type Vulnerability struct {
	Type           string `json:"type"`
	TemplateID     string `json:"template_id"`
	Severity       string `json:"severity"`
	Protocol       string `json:"protocol"`
	URL            string `json:"url"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// SeverityCount is the number of matched findings with one severity.
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// Summary is the report data for one scanned target.
type Summary struct {
	Website              string          `json:"website"`
	Date                 string          `json:"date"`
	TotalVulnerabilities int             `json:"total_vulnerabilities"`
	TotalProbes          int             `json:"total_probes"`
	BySeverity           []SeverityCount `json:"by_severity"`
	Vulnerabilities      []Vulnerability `json:"vulnerabilities"`
}

// Summarize builds the summary of findings for target. Only matched findings
// are listed; they are ordered by severity, most severe first, then by
// their original order.
func Summarize(findings []*scan.Finding, target string, now time.Time) Summary {
	summary := Summary{
		Website:         target,
		Date:            now.Format(DateLayout),
		Vulnerabilities: make([]Vulnerability, 0),
		BySeverity:      make([]SeverityCount, 0),
	}

	var matched []*scan.Finding
	for _, f := range findings {
		if f == nil {
			continue
		}
		summary.TotalProbes++
		if f.Matched {
			matched = append(matched, f)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Severity.Score() > matched[j].Severity.Score()
	})

	counts := make(map[string]int)
	var order []string
	for _, f := range matched {
		sev := f.Severity.Title()
		if _, seen := counts[sev]; !seen {
			order = append(order, sev)
		}
		counts[sev]++

		summary.Vulnerabilities = append(summary.Vulnerabilities, Vulnerability{
			Type:           f.Name,
			TemplateID:     f.TemplateID,
			Severity:       sev,
			Protocol:       string(f.Protocol),
			URL:            f.URL,
			Description:    orDefault(f.Description, defaultDescription),
			Recommendation: orDefault(f.Recommendation, defaultRecommendation),
		})
	}
	for _, sev := range order {
		summary.BySeverity = append(summary.BySeverity, SeverityCount{Severity: sev, Count: counts[sev]})
	}
	summary.TotalVulnerabilities = len(summary.Vulnerabilities)

	return summary
}

// Markdown renders the summary as a Markdown document.
func Markdown(summary Summary) (string, error) {
	var buf bytes.Buffer
	if err := markdownTemplate.Execute(&buf, summary); err != nil {
		return "", fmt.Errorf("render markdown report: %w", err)
	}
	return buf.String(), nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
