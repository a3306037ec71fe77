package scan

import "context"

// Repository defines the interface for scan run persistence
type Repository interface {
	// Save persists a run with all its findings
	Save(ctx context.Context, run *Run) error

	// FindByID retrieves a run by its ID
	FindByID(ctx context.Context, id string) (*Run, error)

	// FindAll retrieves all runs, most recent first
	FindAll(ctx context.Context) ([]*Run, error)

	// Delete removes a run by its ID
	Delete(ctx context.Context, id string) error
}
