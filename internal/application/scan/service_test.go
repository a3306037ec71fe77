package scan

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
	"github.com/khanhnv2901/seca-scan/internal/template"
)

type memoryRepo struct {
	mu      sync.Mutex
	runs    map[string]*scan.Run
	saveErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{runs: make(map[string]*scan.Run)}
}

func (m *memoryRepo) Save(ctx context.Context, run *scan.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID()] = run
	return nil
}

func (m *memoryRepo) FindByID(_ context.Context, id string) (*scan.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, sharedErrors.ErrScanRunNotFound
	}
	return run, nil
}

func (m *memoryRepo) FindAll(context.Context) ([]*scan.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*scan.Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[id]; !ok {
		return sharedErrors.ErrScanRunNotFound
	}
	delete(m.runs, id)
	return nil
}

type stubScanner struct {
	findings []*scan.Finding
	onScan   func()
	target   string
}

func (s *stubScanner) Scan(_ context.Context, _ []*template.Template, target string) []*scan.Finding {
	s.target = target
	if s.onScan != nil {
		s.onScan()
	}
	return s.findings
}

func sampleTemplates() []*template.Template {
	return []*template.Template{{ID: "t1"}, {ID: "t2"}}
}

func TestServiceRunCompletesAndSaves(t *testing.T) {
	repo := newMemoryRepo()
	scanner := &stubScanner{findings: []*scan.Finding{
		{TemplateID: "t1", Matched: true},
		{TemplateID: "t2"},
	}}
	svc := NewService(repo, scanner, nil)

	run, err := svc.Run(context.Background(), "example.com", "alice", sampleTemplates())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if scanner.target != "example.com" {
		t.Errorf("Expected scanner target example.com, got %s", scanner.target)
	}
	if run.Status() != scan.RunStatusCompleted {
		t.Errorf("Expected status completed, got %s", run.Status())
	}
	if run.TemplateCount() != 2 {
		t.Errorf("Expected 2 templates, got %d", run.TemplateCount())
	}
	if len(run.Findings()) != 2 {
		t.Errorf("Expected 2 findings, got %d", len(run.Findings()))
	}
	if run.MatchedCount() != 1 {
		t.Errorf("Expected 1 matched finding, got %d", run.MatchedCount())
	}

	stored, err := svc.GetRun(context.Background(), run.ID())
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if stored != run {
		t.Error("Expected stored run to be the saved run")
	}

	runs, err := svc.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected 1 run, got %d", len(runs))
	}
}

func TestServiceRunRequiresTemplates(t *testing.T) {
	svc := NewService(newMemoryRepo(), &stubScanner{}, nil)

	_, err := svc.Run(context.Background(), "example.com", "alice", nil)
	if !errors.Is(err, sharedErrors.ErrTemplatesNotFound) {
		t.Errorf("Expected ErrTemplatesNotFound, got %v", err)
	}
}

func TestServiceRunValidatesInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), &stubScanner{}, nil)

	testCases := []struct {
		name     string
		target   string
		operator string
		wantErr  error
	}{
		{"Blank target", "  ", "alice", sharedErrors.ErrEmptyTarget},
		{"Missing operator", "example.com", "", sharedErrors.ErrEmptyOperator},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Run(context.Background(), tc.target, tc.operator, sampleTemplates())
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestServiceRunInterruptedIsSavedAsFailed(t *testing.T) {
	repo := newMemoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	scanner := &stubScanner{
		findings: []*scan.Finding{{TemplateID: "t1", Matched: true}},
		onScan:   cancel,
	}
	svc := NewService(repo, scanner, nil)

	run, err := svc.Run(ctx, "example.com", "alice", sampleTemplates())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if run == nil {
		t.Fatal("Expected partial run to be returned")
	}
	if run.Status() != scan.RunStatusFailed {
		t.Errorf("Expected status failed, got %s", run.Status())
	}
	if len(run.Findings()) != 1 {
		t.Errorf("Expected partial findings kept, got %d", len(run.Findings()))
	}

	stored, err := repo.FindByID(context.Background(), run.ID())
	if err != nil {
		t.Fatalf("Expected interrupted run to be saved: %v", err)
	}
	if stored.Status() != scan.RunStatusFailed {
		t.Errorf("Expected stored status failed, got %s", stored.Status())
	}
}

func TestServiceRunSaveError(t *testing.T) {
	repo := newMemoryRepo()
	repo.saveErr = sharedErrors.ErrRepositoryOperation
	svc := NewService(repo, &stubScanner{}, nil)

	_, err := svc.Run(context.Background(), "example.com", "alice", sampleTemplates())
	if !errors.Is(err, sharedErrors.ErrRepositoryOperation) {
		t.Errorf("Expected ErrRepositoryOperation, got %v", err)
	}
}

func TestServiceDeleteRun(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &stubScanner{}, nil)

	run, err := svc.Run(context.Background(), "example.com", "alice", sampleTemplates())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if err := svc.DeleteRun(context.Background(), run.ID()); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if err := svc.DeleteRun(context.Background(), run.ID()); !errors.Is(err, sharedErrors.ErrScanRunNotFound) {
		t.Errorf("Expected ErrScanRunNotFound on second delete, got %v", err)
	}
	if _, err := svc.GetRun(context.Background(), run.ID()); !errors.Is(err, sharedErrors.ErrScanRunNotFound) {
		t.Errorf("Expected ErrScanRunNotFound after delete, got %v", err)
	}
}
