package application

import (
	"fmt"

	scanapp "github.com/khanhnv2901/seca-scan/internal/application/scan"
	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/khanhnv2901/seca-scan/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/seca-scan/internal/template"
	"go.uber.org/zap"
)

// Container holds all application services and repositories
// This is a simple dependency injection container
type Container struct {
	// Repositories
	ScanRunRepo scan.Repository

	// Services
	Loader      *template.Loader
	ScanService *scanapp.Service
}

// NewContainer creates a new application service container
func NewContainer(resultsDir string, scanner scanapp.Scanner, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Initialize repositories
	scanRunRepo, err := json.NewScanRunRepository(resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan run repository: %w", err)
	}

	// Initialize services
	return &Container{
		ScanRunRepo: scanRunRepo,
		Loader:      template.NewLoader(logger.Named("templates")),
		ScanService: scanapp.NewService(scanRunRepo, scanner, logger.Named("runs")),
	}, nil
}
