// Package executor issues protocol probes for template request specs.
//
// Executors never return errors: a probe either yields a decisive Finding or
// nothing, and every failure is logged through the scan Session.
package executor

import (
	"context"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	"github.com/khanhnv2901/seca-scan/internal/template"
)

// Executor issues one kind of probe. A nil Finding means the spec produced no
// conclusive result.
type Executor interface {
	Protocol() template.Protocol
	Execute(ctx context.Context, sess *Session, tmpl *template.Template, spec template.Spec, target string) *scan.Finding
}

// Registry maps protocols to executors.
type Registry struct {
	executors map[template.Protocol]Executor
}

// NewRegistry creates a registry holding the given executors.
func NewRegistry(executors ...Executor) *Registry {
	r := &Registry{executors: make(map[template.Protocol]Executor, len(executors))}
	for _, e := range executors {
		r.Register(e)
	}
	return r
}

// Register installs e for its protocol, replacing any previous executor.
func (r *Registry) Register(e Executor) {
	r.executors[e.Protocol()] = e
}

// Lookup returns the executor for p.
func (r *Registry) Lookup(p template.Protocol) (Executor, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.executors[p]
	return e, ok
}

// CloseIdleConnections releases kept-alive connections held by executors
// that pool them.
func (r *Registry) CloseIdleConnections() {
	if r == nil {
		return
	}
	for _, e := range r.executors {
		if c, ok := e.(interface{ CloseIdleConnections() }); ok {
			c.CloseIdleConnections()
		}
	}
}

// Options configures the default executors.
type Options struct {
	Timeout       time.Duration
	UserAgent     string
	Nameservers   []string
	SkipTLSVerify bool // HTTP executor only; the SSL executor always verifies
}

// DefaultRegistry builds a registry with the HTTP, SSL and DNS executors.
func DefaultRegistry(opts Options) *Registry {
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultProbeTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = constants.DefaultUserAgent
	}

	return NewRegistry(
		&HTTPExecutor{
			Timeout:       opts.Timeout,
			UserAgent:     opts.UserAgent,
			SkipTLSVerify: opts.SkipTLSVerify,
		},
		&SSLExecutor{
			Timeout:   opts.Timeout,
			UserAgent: opts.UserAgent,
		},
		&DNSExecutor{
			Timeout:     opts.Timeout,
			Nameservers: opts.Nameservers,
		},
	)
}

func newFinding(tmpl *template.Template, protocol scan.Protocol, url string) *scan.Finding {
	return &scan.Finding{
		TemplateID:     tmpl.ID,
		Name:           tmpl.Info.Name,
		Author:         tmpl.Info.Author,
		Severity:       scan.Severity(tmpl.Info.Severity),
		Description:    tmpl.Info.Description,
		Recommendation: tmpl.Info.Advice(),
		Protocol:       protocol,
		URL:            url,
		Timestamp:      time.Now().UTC(),
	}
}
