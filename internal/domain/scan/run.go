package scan

import (
	"strings"
	"time"

	"github.com/google/uuid"
	sharedErrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// Run is one scan invocation against one target. It owns the findings the
// scanner produced, in template-declaration order.
type Run struct {
	id            string
	target        string
	operator      string
	templateCount int
	startedAt     time.Time
	completedAt   time.Time
	status        RunStatus
	findings      []*Finding
}

// RunStatus represents the status of a scan run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// NewRun creates a pending run.
func NewRun(target, operator string, templateCount int) (*Run, error) {
	if strings.TrimSpace(target) == "" {
		return nil, sharedErrors.ErrEmptyTarget
	}
	if strings.TrimSpace(operator) == "" {
		return nil, sharedErrors.ErrEmptyOperator
	}

	return &Run{
		id:            uuid.NewString(),
		target:        target,
		operator:      operator,
		templateCount: templateCount,
		startedAt:     time.Now(),
		status:        RunStatusPending,
		findings:      make([]*Finding, 0),
	}, nil
}

// Reconstruct creates a run from persisted data
func Reconstruct(id, target, operator string, templateCount int, startedAt, completedAt time.Time,
	status RunStatus, findings []*Finding) *Run {
	if findings == nil {
		findings = make([]*Finding, 0)
	}
	return &Run{
		id:            id,
		target:        target,
		operator:      operator,
		templateCount: templateCount,
		startedAt:     startedAt,
		completedAt:   completedAt,
		status:        status,
		findings:      findings,
	}
}

// Start marks the run as running
func (r *Run) Start() error {
	if r.status != RunStatusPending {
		return sharedErrors.ErrScanRunAlreadyStarted
	}
	r.status = RunStatusRunning
	r.startedAt = time.Now()
	return nil
}

// Complete marks the run as completed
func (r *Run) Complete() error {
	if r.status != RunStatusRunning {
		return sharedErrors.ErrScanRunNotRunning
	}
	r.status = RunStatusCompleted
	r.completedAt = time.Now()
	return nil
}

// Fail marks the run as failed
func (r *Run) Fail() error {
	if r.status == RunStatusCompleted {
		return sharedErrors.ErrScanRunAlreadyCompleted
	}
	r.status = RunStatusFailed
	r.completedAt = time.Now()
	return nil
}

// AddFindings appends findings while the run is running.
func (r *Run) AddFindings(findings ...*Finding) error {
	if r.status != RunStatusRunning {
		return sharedErrors.ErrScanRunNotRunning
	}
	for _, f := range findings {
		if f != nil {
			r.findings = append(r.findings, f)
		}
	}
	return nil
}

// Getters

func (r *Run) ID() string {
	return r.id
}

func (r *Run) Target() string {
	return r.target
}

func (r *Run) Operator() string {
	return r.operator
}

func (r *Run) TemplateCount() int {
	return r.templateCount
}

func (r *Run) StartedAt() time.Time {
	return r.startedAt
}

func (r *Run) CompletedAt() time.Time {
	return r.completedAt
}

func (r *Run) Status() RunStatus {
	return r.status
}

// Duration is zero until the run has finished.
func (r *Run) Duration() time.Duration {
	if r.completedAt.IsZero() {
		return 0
	}
	return r.completedAt.Sub(r.startedAt)
}

func (r *Run) Findings() []*Finding {
	// Return a copy to prevent external modification
	findingsCopy := make([]*Finding, len(r.findings))
	copy(findingsCopy, r.findings)
	return findingsCopy
}

// MatchedCount returns how many findings matched.
func (r *Run) MatchedCount() int {
	n := 0
	for _, f := range r.findings {
		if f.Matched {
			n++
		}
	}
	return n
}
