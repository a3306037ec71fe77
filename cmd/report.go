package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/khanhnv2901/seca-scan/internal/report"
	"github.com/spf13/cobra"
)

const (
	reportFormatTable    = "table"
	reportFormatJSON     = "json"
	reportFormatMarkdown = "md"
)

var reportFormat = reportFormatTable

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Summarize the matched findings of a saved scan run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateRunID(args[0]); err != nil {
			return err
		}
		appCtx := getAppContext(cmd)

		run, err := appCtx.Services.ScanService.GetRun(commandContext(cmd), args[0])
		if err != nil {
			return err
		}

		generatedAt := run.CompletedAt()
		if generatedAt.IsZero() {
			generatedAt = time.Now()
		}
		summary := report.Summarize(run.Findings(), run.Target(), generatedAt)

		return renderReport(cmd.OutOrStdout(), summary, reportFormat)
	},
}

func renderReport(w io.Writer, summary report.Summary, format string) error {
	switch strings.ToLower(format) {
	case reportFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil

	case reportFormatMarkdown, "markdown":
		md, err := report.Markdown(summary)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err

	case reportFormatTable, "":
		return writeReportTable(w, summary)

	default:
		return fmt.Errorf("unsupported report format %q (use table, json or md)", format)
	}
}

func writeReportTable(w io.Writer, summary report.Summary) error {
	fmt.Fprintf(w, "Website: %s\nDate: %s\nTotal vulnerabilities: %d (of %d probes)\n\n",
		summary.Website, summary.Date, summary.TotalVulnerabilities, summary.TotalProbes)

	if len(summary.Vulnerabilities) == 0 {
		fmt.Fprintf(w, "%s No vulnerabilities found\n", colorSuccess("✓"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tTYPE\tPROTOCOL\tURL")
	for _, v := range summary.Vulnerabilities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Severity, v.Type, v.Protocol, v.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts := make([]string, 0, len(summary.BySeverity))
	for _, c := range summary.BySeverity {
		counts = append(counts, fmt.Sprintf("%s:%d", c.Severity, c.Count))
	}
	fmt.Fprintf(w, "\n%s\n", strings.Join(counts, " "))
	return nil
}

func severityTitle(s string) string {
	return scan.ParseSeverity(s).Title()
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", reportFormat, "output format: table, json or md")
}
