package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	"github.com/khanhnv2901/seca-scan/internal/shared/security"
)

const telemetryFileName = "telemetry.jsonl"

type telemetryRecord struct {
	Timestamp           time.Time `json:"timestamp"`
	Command             string    `json:"command"`
	RunID               string    `json:"run_id"`
	Target              string    `json:"target"`
	TemplateCount       int       `json:"template_count"`
	ProbeCount          int       `json:"probe_count"`
	FindingCount        int       `json:"finding_count"`
	MatchedCount        int       `json:"matched_count"`
	InconclusiveCount   int       `json:"inconclusive_count"`
	MatchRate           float64   `json:"match_rate"`
	DurationSeconds     float64   `json:"duration_seconds"`
	AvgDurationPerProbe float64   `json:"avg_duration_per_probe"`
}

// recordTelemetry appends one summary line per scan run to telemetry.jsonl.
func recordTelemetry(resultsDir, command string, run *scan.Run, probes int, duration time.Duration) error {
	findings := len(run.Findings())
	matched := run.MatchedCount()

	matchRate := 0.0
	if findings > 0 {
		matchRate = (float64(matched) / float64(findings)) * 100
	}

	avgDuration := 0.0
	if probes > 0 {
		avgDuration = duration.Seconds() / float64(probes)
	}

	inconclusive := probes - findings
	if inconclusive < 0 {
		inconclusive = 0
	}

	record := telemetryRecord{
		Timestamp:           time.Now().UTC(),
		Command:             command,
		RunID:               run.ID(),
		Target:              run.Target(),
		TemplateCount:       run.TemplateCount(),
		ProbeCount:          probes,
		FindingCount:        findings,
		MatchedCount:        matched,
		InconclusiveCount:   inconclusive,
		MatchRate:           matchRate,
		DurationSeconds:     duration.Seconds(),
		AvgDurationPerProbe: avgDuration,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	telemetryPath, err := security.ResolveWithin(resultsDir, telemetryFileName)
	if err != nil {
		return fmt.Errorf("resolve telemetry path: %w", err)
	}
	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, constants.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}
