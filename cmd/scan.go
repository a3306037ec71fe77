package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/khanhnv2901/seca-scan/internal/executor"
	"github.com/khanhnv2901/seca-scan/internal/metrics"
	"github.com/khanhnv2901/seca-scan/internal/scanner"
	"github.com/khanhnv2901/seca-scan/internal/template"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Run templates against a target URL or host",
	Long: `Run every HTTP, SSL and DNS request spec of the loaded templates against
one target and save the findings as a scan run.

Only scan systems you are explicitly authorized to test.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScanCommand,
}

func runScanCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || args[0] == "" {
		return &TargetRequiredError{Command: "scan"}
	}
	target := args[0]

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	appCtx := getAppContext(cmd)
	runtimeCfg := appCtx.Config.Scan
	logger := appCtx.zapLogger()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%s Received %s, finishing in-flight probes...\n", colorWarn("!"), sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	templates, err := loadTemplates(appCtx, runtimeCfg.TemplatesPath, runtimeCfg.Tags)
	if err != nil {
		return err
	}

	recorder, err := metrics.NewRecorder()
	if err != nil {
		return fmt.Errorf("failed to create metrics recorder: %w", err)
	}
	if runtimeCfg.MetricsAddr != "" {
		srv, err := startMetricsServer(runtimeCfg.MetricsAddr, recorder, logger.Named("metrics"))
		if err != nil {
			return err
		}
		defer func() {
			if err := srv.Shutdown(); err != nil {
				logger.Warn("metrics server shutdown failed", zap.Error(err))
			}
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Metrics available at http://%s/metrics\n", colorInfo("→"), srv.Addr())
	}

	configureScanner(appCtx.Scanner, runtimeCfg, recorder)
	probes := scanner.CountSpecs(templates)

	var progress *progressPrinter
	if runtimeCfg.ProgressEnabled {
		progress = newProgressPrinter(cmd.ErrOrStderr(), probes, "scan")
		appCtx.Scanner.OnProbe = progress.Observe
		progress.Start()
	}

	out := cmd.OutOrStdout()
	if !runtimeCfg.JSONOutput {
		fmt.Fprintf(out, "%s Scanning target URL: %s (%d templates, %d request specs)\n",
			colorInfo("→"), target, len(templates), probes)
	}

	startTime := time.Now()
	run, runErr := appCtx.Services.ScanService.Run(ctx, target, appCtx.Operator, templates)
	duration := time.Since(startTime)

	if progress != nil {
		progress.Stop()
	}
	if run == nil {
		return fmt.Errorf("scan failed: %w", runErr)
	}

	if runtimeCfg.TelemetryEnabled {
		if err := recordTelemetry(appCtx.ResultsDir, "scan", run, probes, duration); err != nil {
			logger.Warn("failed to record telemetry", zap.Error(err))
		}
	}

	if runtimeCfg.JSONOutput {
		if err := writeFindingsJSON(out, run.Findings()); err != nil {
			return err
		}
	} else {
		printFindings(out, run.Findings())
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s Run %s %s: %d/%d matched in %s\n",
			colorInfo("→"), run.ID(), formatStatusWithColor(string(run.Status())),
			run.MatchedCount(), len(run.Findings()), duration.Round(time.Millisecond))
		fmt.Fprintf(out, "%s Results saved under %s\n", colorInfo("→"), appCtx.ResultsDir)
	}

	if runErr != nil && isInterrupted(runErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Scan interrupted; partial run %s saved\n", colorWarn("!"), run.ID())
	}
	return runErr
}

// configureScanner applies runtime settings to the shared scanner.
func configureScanner(s *scanner.Scanner, cfg ScanRuntimeConfig, recorder *metrics.Recorder) {
	s.Registry = executor.DefaultRegistry(executor.Options{
		Timeout:       time.Duration(cfg.TimeoutSecs) * time.Second,
		UserAgent:     cfg.UserAgent,
		Nameservers:   cfg.Nameservers,
		SkipTLSVerify: cfg.SkipTLSVerify,
	})
	s.Concurrency = cfg.Concurrency
	s.RateLimit = cfg.RateLimit
	s.Timeout = time.Duration(cfg.SpecTimeoutSecs) * time.Second
	s.Metrics = recorder
}

func loadTemplates(appCtx *AppContext, path string, tags []string) ([]*template.Template, error) {
	templates, err := appCtx.Services.Loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	templates = template.FilterByTags(templates, tags)
	if len(templates) == 0 {
		return nil, &TemplatesNotFoundError{Path: path, Tags: tags}
	}
	return templates, nil
}

// printFindings writes "[idx]name: [True|False][Severity]" lines.
func printFindings(w io.Writer, findings []*scan.Finding) {
	for idx, f := range findings {
		fmt.Fprintf(w, "[%d]%s: [%s][%s]\n",
			idx+1, f.Name, formatMatched(f.Matched), formatSeverityWithColor(f.Severity.Title()))
	}
}

func writeFindingsJSON(w io.Writer, findings []*scan.Finding) error {
	if findings == nil {
		findings = []*scan.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(findings); err != nil {
		return fmt.Errorf("failed to encode findings: %w", err)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isInterrupted reports whether err stems from a cancelled scan.
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func init() {
	flags := scanCmd.Flags()
	flags.StringVarP(&cliConfig.Scan.TemplatesPath, "templates", "t", cliConfig.Scan.TemplatesPath, "template file or directory")
	flags.StringSliceVar(&cliConfig.Scan.Tags, "tag", cliConfig.Scan.Tags, "only run templates with any of these tags (comma separated)")
	flags.IntVarP(&cliConfig.Scan.Concurrency, "concurrency", "c", cliConfig.Scan.Concurrency, "max request specs in flight")
	flags.IntVarP(&cliConfig.Scan.RateLimit, "rate-limit", "r", cliConfig.Scan.RateLimit, "request specs started per second (0 = unlimited)")
	flags.IntVar(&cliConfig.Scan.TimeoutSecs, "timeout", cliConfig.Scan.TimeoutSecs, "per-request timeout in seconds")
	flags.IntVar(&cliConfig.Scan.SpecTimeoutSecs, "spec-timeout", cliConfig.Scan.SpecTimeoutSecs, "upper bound in seconds for one request spec across all its paths (0 = none)")
	flags.StringSliceVar(&cliConfig.Scan.Nameservers, "nameserver", cliConfig.Scan.Nameservers, "DNS nameservers (ip:port), tried in order")
	flags.StringVar(&cliConfig.Scan.UserAgent, "user-agent", cliConfig.Scan.UserAgent, "User-Agent header for HTTP and SSL probes")
	flags.BoolVar(&cliConfig.Scan.SkipTLSVerify, "insecure", cliConfig.Scan.SkipTLSVerify, "skip certificate verification for HTTP probes (SSL probes always verify)")
	flags.BoolVar(&cliConfig.Scan.ProgressEnabled, "progress", cliConfig.Scan.ProgressEnabled, "display live progress on stderr")
	flags.BoolVar(&cliConfig.Scan.JSONOutput, "json", cliConfig.Scan.JSONOutput, "print findings as JSON")
	flags.BoolVar(&cliConfig.Scan.TelemetryEnabled, "telemetry", cliConfig.Scan.TelemetryEnabled, "append a run summary to telemetry.jsonl in the results directory")
	flags.StringVar(&cliConfig.Scan.MetricsAddr, "metrics-addr", cliConfig.Scan.MetricsAddr, "serve Prometheus metrics on this address during the scan (e.g. :9090)")
}
