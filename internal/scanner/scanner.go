// Package scanner drives protocol executors over a template set.
//
// Scan is total: it never returns an error and never panics because of a
// template or a probe. An empty result is a legitimate outcome.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/khanhnv2901/seca-scan/internal/executor"
	"github.com/khanhnv2901/seca-scan/internal/metrics"
	"github.com/khanhnv2901/seca-scan/internal/placeholder"
	"github.com/khanhnv2901/seca-scan/internal/template"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ProbeEvent describes one executed request spec.
type ProbeEvent struct {
	Template *template.Template
	Protocol template.Protocol
	Finding  *scan.Finding // nil when the spec was inconclusive
	Duration time.Duration
}

// Scanner orchestrates request specs with bounded concurrency and rate limiting
type Scanner struct {
	Registry    *executor.Registry
	Concurrency int           // Maximum number of specs in flight; <= 1 runs sequentially
	RateLimit   int           // Request specs started per second (global); 0 disables
	Timeout     time.Duration // Upper bound for one request spec; 0 leaves it to the executors
	Logger      *zap.Logger
	Metrics     *metrics.Recorder

	// OnProbe is called after every request spec, serialized.
	OnProbe func(ProbeEvent)

	probeMu sync.Mutex
}

// workItem is one request spec at its declaration position.
type workItem struct {
	tmpl     *template.Template
	protocol template.Protocol
	spec     template.Spec
}

// CountSpecs returns how many request specs a scan of templates executes.
func CountSpecs(templates []*template.Template) int {
	return len(plan(templates))
}

// plan flattens templates into request specs in declaration order: template,
// then protocol block, then spec.
func plan(templates []*template.Template) []workItem {
	var items []workItem
	for _, tmpl := range templates {
		if tmpl == nil {
			continue
		}
		for _, block := range tmpl.Blocks() {
			for _, spec := range block.Specs {
				items = append(items, workItem{tmpl: tmpl, protocol: block.Protocol, spec: spec})
			}
		}
	}
	return items
}

// Scan runs every request spec of templates against target and returns the
// findings in declaration order. Once ctx is done no further specs start;
// specs already running finish under their own timeouts.
func (s *Scanner) Scan(ctx context.Context, templates []*template.Template, target string) []*scan.Finding {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	normalized := placeholder.NormalizeTarget(target)
	sess := executor.NewSession(logger, normalized)
	items := plan(templates)

	logger.Info("scan started",
		zap.String("target", normalized),
		zap.Int("templates", len(templates)),
		zap.Int("specs", len(items)),
		zap.Int("concurrency", s.concurrency()),
	)
	start := time.Now()

	var limiter *rate.Limiter
	if s.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.RateLimit), s.RateLimit)
	}

	results := make([]*scan.Finding, len(items))
	var g errgroup.Group
	g.SetLimit(s.concurrency())

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = s.run(ctx, sess, limiter, item)
			return nil
		})
	}
	_ = g.Wait()
	s.Registry.CloseIdleConnections()

	findings := make([]*scan.Finding, 0, len(results))
	for _, f := range results {
		if f != nil {
			findings = append(findings, f)
		}
	}

	fields := []zap.Field{
		zap.String("target", normalized),
		zap.Int("findings", len(findings)),
		zap.Duration("duration", time.Since(start)),
	}
	if ctx.Err() != nil {
		logger.Warn("scan interrupted", append(fields, zap.Error(ctx.Err()))...)
	} else {
		logger.Info("scan finished", fields...)
	}

	return findings
}

func (s *Scanner) run(ctx context.Context, sess *executor.Session, limiter *rate.Limiter, item workItem) (finding *scan.Finding) {
	if ctx.Err() != nil {
		return nil
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
	}

	exec, ok := s.Registry.Lookup(item.protocol)
	if !ok {
		sess.Warn("scanner:protocol:"+string(item.protocol), "no executor for protocol",
			zap.String("protocol", string(item.protocol)))
		return nil
	}

	// In-flight probes are not cut short by cancellation, only by timeout.
	probeCtx := context.WithoutCancel(ctx)
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(probeCtx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			sess.Logger().Error("executor panicked",
				zap.String("template", item.tmpl.ID),
				zap.String("protocol", string(item.protocol)),
				zap.Any("panic", r),
			)
			finding = nil
		}
		s.observe(item, finding, time.Since(start))
	}()

	return exec.Execute(probeCtx, sess, item.tmpl, item.spec, sess.Target())
}

func (s *Scanner) observe(item workItem, finding *scan.Finding, d time.Duration) {
	outcome := metrics.OutcomeOf(finding)
	if outcome == metrics.OutcomeMatched {
		s.Metrics.ObserveFinding(string(finding.Severity))
	}
	s.Metrics.ObserveProbe(string(item.protocol), outcome, d)

	if s.OnProbe == nil {
		return
	}
	s.probeMu.Lock()
	defer s.probeMu.Unlock()
	s.OnProbe(ProbeEvent{
		Template: item.tmpl,
		Protocol: item.protocol,
		Finding:  finding,
		Duration: d,
	})
}

func (s *Scanner) concurrency() int {
	if s.Concurrency < 1 {
		return 1
	}
	return s.Concurrency
}
