package cmd

import (
	"context"

	"github.com/khanhnv2901/seca-scan/internal/application"
	"github.com/khanhnv2901/seca-scan/internal/scanner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// AppContext carries the per-invocation state shared by subcommands.
type AppContext struct {
	Logger     *zap.SugaredLogger
	Operator   string
	ResultsDir string
	Config     *CLIConfig

	// Scanner is configured by the scan command before a run.
	Scanner  *scanner.Scanner
	Services *application.Container
}

type appContextKey struct{}

var globalAppContext *AppContext

// storeAppContext attaches appCtx to cmd and keeps it as the process fallback.
func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	if cmd == nil {
		return
	}
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	cmd.SetContext(context.WithValue(parent, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil && cmd.Context() != nil {
		if appCtx, ok := cmd.Context().Value(appContextKey{}).(*AppContext); ok && appCtx != nil {
			return appCtx
		}
	}
	return globalAppContext
}

// zapLogger returns the structured logger behind appCtx.Logger.
func (a *AppContext) zapLogger() *zap.Logger {
	if a == nil || a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger.Desugar()
}
