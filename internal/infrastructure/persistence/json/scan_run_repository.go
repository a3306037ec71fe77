package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
	"github.com/khanhnv2901/seca-scan/internal/shared/security"
)

// scanRunDTO is the data transfer object for JSON serialization
type scanRunDTO struct {
	ID            string       `json:"id"`
	Target        string       `json:"target"`
	Operator      string       `json:"operator"`
	TemplateCount int          `json:"template_count"`
	StartedAt     string       `json:"started_at"`
	CompletedAt   string       `json:"completed_at,omitempty"`
	Status        string       `json:"status"`
	Summary       summaryDTO   `json:"summary"`
	Findings      []findingDTO `json:"findings"`
}

type summaryDTO struct {
	Total   int `json:"total"`
	Matched int `json:"matched"`
}

type findingDTO struct {
	TemplateID     string   `json:"template_id"`
	Name           string   `json:"name"`
	Author         string   `json:"author"`
	Severity       string   `json:"severity"`
	Description    string   `json:"description,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Protocol       string   `json:"protocol"`
	URL            string   `json:"url"`
	StatusCode     int      `json:"status_code,omitempty"`
	QueryType      string   `json:"query_type,omitempty"`
	ResponseData   []string `json:"response_data,omitempty"`
	SSLOutcome     string   `json:"ssl_outcome,omitempty"`
	TLSVersion     string   `json:"tls_version,omitempty"`
	Matched        bool     `json:"matched"`
	Timestamp      string   `json:"timestamp"`
	ElapsedMs      int64    `json:"elapsed_ms"`
}

// ScanRunRepository implements the scan.Repository interface using one JSON
// file per run: <results_dir>/<run-id>/findings.json.
type ScanRunRepository struct {
	resultsDir string
	mu         sync.RWMutex
}

// NewScanRunRepository creates a new JSON-based scan run repository
func NewScanRunRepository(resultsDir string) (*ScanRunRepository, error) {
	if resultsDir == "" {
		return nil, fmt.Errorf("%w: results directory", sharedErrors.ErrMissingRequired)
	}

	// Ensure the results directory exists
	if err := os.MkdirAll(resultsDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &ScanRunRepository{
		resultsDir: resultsDir,
	}, nil
}

// Save persists a run with all its findings
func (r *ScanRunRepository) Save(ctx context.Context, run *scan.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	runDir, err := security.ResolveWithin(r.resultsDir, security.SanitizeComponent(run.ID()))
	if err != nil {
		return fmt.Errorf("invalid run directory: %w", err)
	}
	if err := os.MkdirAll(runDir, constants.DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	filePath, err := security.ResolveWithin(runDir, constants.FindingsFileName)
	if err != nil {
		return fmt.Errorf("invalid file path: %w", err)
	}

	data, err := json.MarshalIndent(r.toDTO(run), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}

	if err := os.WriteFile(filePath, data, constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("failed to save scan run: %w", err)
	}

	return nil
}

// FindByID retrieves a run by its ID
func (r *ScanRunRepository) FindByID(ctx context.Context, id string) (*scan.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filePath, err := r.runFile(id)
	if err != nil {
		return nil, err
	}

	run, err := r.loadFromFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", sharedErrors.ErrScanRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FindAll retrieves all runs, most recent first. Unreadable run files are skipped.
func (r *ScanRunRepository) FindAll(ctx context.Context) ([]*scan.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	runs := make([]*scan.Run, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		filePath, err := r.runFile(entry.Name())
		if err != nil {
			continue
		}
		run, err := r.loadFromFile(filePath)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt().After(runs[j].StartedAt())
	})
	return runs, nil
}

// Delete removes a run by its ID
func (r *ScanRunRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	runDir, err := r.lookupDir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", sharedErrors.ErrScanRunNotFound, id)
	}

	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("failed to delete scan run: %w", err)
	}
	return nil
}

// Helper methods

// lookupDir resolves the directory of an existing run. IDs that are not a
// single safe path component never name a stored run.
func (r *ScanRunRepository) lookupDir(id string) (string, error) {
	if security.SanitizeComponent(id) != id {
		return "", fmt.Errorf("%w: %s", sharedErrors.ErrScanRunNotFound, id)
	}
	dir, err := security.ResolveWithin(r.resultsDir, id)
	if err != nil {
		return "", fmt.Errorf("invalid run directory: %w", err)
	}
	return dir, nil
}

func (r *ScanRunRepository) runFile(id string) (string, error) {
	dir, err := r.lookupDir(id)
	if err != nil {
		return "", err
	}
	return security.ResolveWithin(dir, constants.FindingsFileName)
}

func (r *ScanRunRepository) loadFromFile(filePath string) (*scan.Run, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var dto scanRunDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}

	return r.fromDTO(dto)
}

func (r *ScanRunRepository) toDTO(run *scan.Run) scanRunDTO {
	findings := run.Findings()
	dto := scanRunDTO{
		ID:            run.ID(),
		Target:        run.Target(),
		Operator:      run.Operator(),
		TemplateCount: run.TemplateCount(),
		StartedAt:     run.StartedAt().Format(time.RFC3339Nano),
		Status:        string(run.Status()),
		Summary: summaryDTO{
			Total:   len(findings),
			Matched: run.MatchedCount(),
		},
		Findings: make([]findingDTO, 0, len(findings)),
	}

	if !run.CompletedAt().IsZero() {
		dto.CompletedAt = run.CompletedAt().Format(time.RFC3339Nano)
	}

	for _, f := range findings {
		dto.Findings = append(dto.Findings, findingToDTO(f))
	}

	return dto
}

func findingToDTO(f *scan.Finding) findingDTO {
	dto := findingDTO{
		TemplateID:     f.TemplateID,
		Name:           f.Name,
		Author:         f.Author,
		Severity:       string(f.Severity),
		Description:    f.Description,
		Recommendation: f.Recommendation,
		Protocol:       string(f.Protocol),
		URL:            f.URL,
		StatusCode:     f.StatusCode,
		QueryType:      f.QueryType,
		ResponseData:   f.ResponseData,
		SSLOutcome:     f.SSLOutcome,
		TLSVersion:     f.TLSVersion,
		Matched:        f.Matched,
		ElapsedMs:      f.ElapsedMs,
	}
	if !f.Timestamp.IsZero() {
		dto.Timestamp = f.Timestamp.Format(time.RFC3339Nano)
	}
	return dto
}

func (r *ScanRunRepository) fromDTO(dto scanRunDTO) (*scan.Run, error) {
	startedAt, err := time.Parse(time.RFC3339Nano, dto.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started at time: %w", err)
	}

	var completedAt time.Time
	if dto.CompletedAt != "" {
		completedAt, err = time.Parse(time.RFC3339Nano, dto.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed at time: %w", err)
		}
	}

	findings := make([]*scan.Finding, 0, len(dto.Findings))
	for _, fd := range dto.Findings {
		f := &scan.Finding{
			TemplateID:     fd.TemplateID,
			Name:           fd.Name,
			Author:         fd.Author,
			Severity:       scan.Severity(fd.Severity),
			Description:    fd.Description,
			Recommendation: fd.Recommendation,
			Protocol:       scan.Protocol(fd.Protocol),
			URL:            fd.URL,
			StatusCode:     fd.StatusCode,
			QueryType:      fd.QueryType,
			ResponseData:   fd.ResponseData,
			SSLOutcome:     fd.SSLOutcome,
			TLSVersion:     fd.TLSVersion,
			Matched:        fd.Matched,
			ElapsedMs:      fd.ElapsedMs,
		}
		if f.Protocol == scan.ProtocolDNS && f.ResponseData == nil {
			f.ResponseData = []string{}
		}
		if fd.Timestamp != "" {
			ts, err := time.Parse(time.RFC3339Nano, fd.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("failed to parse finding timestamp: %w", err)
			}
			f.Timestamp = ts
		}
		findings = append(findings, f)
	}

	return scan.Reconstruct(
		dto.ID,
		dto.Target,
		dto.Operator,
		dto.TemplateCount,
		startedAt,
		completedAt,
		scan.RunStatus(dto.Status),
		findings,
	), nil
}
