package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/khanhnv2901/seca-scan/internal/application"
	"github.com/khanhnv2901/seca-scan/internal/scanner"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zaptest"
)

// setupTestAppContext initializes an AppContext with real services rooted in a temp dir.
func setupTestAppContext(t *testing.T) *AppContext {
	t.Helper()

	original := globalAppContext
	originalNoColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		globalAppContext = original
		color.NoColor = originalNoColor
	})

	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	resultsDir := filepath.Join(dataDir, "results")
	if err := os.MkdirAll(resultsDir, constants.DefaultDirPerm); err != nil {
		t.Fatalf("failed to create results directory: %v", err)
	}

	logger := zaptest.NewLogger(t)
	engine := &scanner.Scanner{Logger: logger}
	services, err := application.NewContainer(resultsDir, engine, logger)
	if err != nil {
		t.Fatalf("failed to initialize services: %v", err)
	}

	appCtx := &AppContext{
		Logger:     logger.Sugar(),
		Operator:   "test-operator",
		ResultsDir: resultsDir,
		Config:     newCLIConfig(),
		Scanner:    engine,
		Services:   services,
	}
	globalAppContext = appCtx
	return appCtx
}

// newTestCommand returns a command bound to appCtx with captured output.
func newTestCommand(t *testing.T, appCtx *AppContext) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	cmd := &cobra.Command{Use: "test"}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	storeAppContext(cmd, appCtx)
	return cmd, &stdout, &stderr
}

// writeTemplate writes a YAML template under dir.
func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), constants.DefaultFilePerm); err != nil {
		t.Fatalf("failed to write template %s: %v", name, err)
	}
}
