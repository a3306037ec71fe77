package scan

import (
	"context"
	"fmt"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
	"github.com/khanhnv2901/seca-scan/internal/template"
	"go.uber.org/zap"
)

// Scanner executes templates against one target.
type Scanner interface {
	Scan(ctx context.Context, templates []*template.Template, target string) []*scan.Finding
}

// Service coordinates scan runs: it drives the scanner and persists the outcome
type Service struct {
	runRepo scan.Repository
	scanner Scanner
	logger  *zap.Logger
}

// NewService creates a new scan service
func NewService(runRepo scan.Repository, scanner Scanner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runRepo: runRepo,
		scanner: scanner,
		logger:  logger,
	}
}

// Run scans target with templates and saves the run. When ctx is cancelled
// mid-scan the partial run is saved as failed and returned with an error.
func (s *Service) Run(ctx context.Context, target, operator string, templates []*template.Template) (*scan.Run, error) {
	if len(templates) == 0 {
		return nil, sharedErrors.ErrTemplatesNotFound
	}

	run, err := scan.NewRun(target, operator, len(templates))
	if err != nil {
		return nil, fmt.Errorf("failed to create scan run: %w", err)
	}

	if err := run.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scan run: %w", err)
	}

	findings := s.scanner.Scan(ctx, templates, target)
	if err := run.AddFindings(findings...); err != nil {
		return nil, fmt.Errorf("failed to add findings: %w", err)
	}

	// Interrupted runs are saved too.
	saveCtx := context.WithoutCancel(ctx)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if err := run.Fail(); err != nil {
			return nil, fmt.Errorf("failed to mark scan run failed: %w", err)
		}
		if err := s.runRepo.Save(saveCtx, run); err != nil {
			return nil, fmt.Errorf("failed to save scan run: %w", err)
		}
		s.logger.Warn("scan run interrupted",
			zap.String("run_id", run.ID()),
			zap.Int("findings", len(findings)),
		)
		return run, fmt.Errorf("scan interrupted: %w", ctxErr)
	}

	if err := run.Complete(); err != nil {
		return nil, fmt.Errorf("failed to complete scan run: %w", err)
	}

	if err := s.runRepo.Save(saveCtx, run); err != nil {
		return nil, fmt.Errorf("failed to save scan run: %w", err)
	}

	s.logger.Info("scan run saved",
		zap.String("run_id", run.ID()),
		zap.Int("findings", len(findings)),
		zap.Int("matched", run.MatchedCount()),
	)
	return run, nil
}

// GetRun retrieves a scan run by ID
func (s *Service) GetRun(ctx context.Context, id string) (*scan.Run, error) {
	run, err := s.runRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan run: %w", err)
	}

	return run, nil
}

// ListRuns retrieves all scan runs, most recent first
func (s *Service) ListRuns(ctx context.Context) ([]*scan.Run, error) {
	runs, err := s.runRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan runs: %w", err)
	}

	return runs, nil
}

// DeleteRun removes a scan run
func (s *Service) DeleteRun(ctx context.Context, id string) error {
	if err := s.runRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete scan run: %w", err)
	}

	return nil
}
