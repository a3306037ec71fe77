package executor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/khanhnv2901/seca-scan/internal/matcher"
	"github.com/khanhnv2901/seca-scan/internal/placeholder"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	"github.com/khanhnv2901/seca-scan/internal/template"
	"go.uber.org/zap"
)

// SSLExecutor makes a certificate-verifying GET to each path and classifies
// the outcome as secure, insecure (answered over plain HTTP) or tls-error.
type SSLExecutor struct {
	Timeout   time.Duration
	UserAgent string

	// Client overrides the HTTP client. It must verify certificates.
	Client *http.Client

	clientOnce sync.Once
	shared     *http.Client
}

// Protocol implements Executor.
func (s *SSLExecutor) Protocol() template.Protocol { return template.ProtocolSSL }

// Execute returns a Finding for the first path that produced a decisive
// outcome. Matched is true when the outcome is in the spec's match-on list
// and, if a response exists, the spec's matchers also hold.
func (s *SSLExecutor) Execute(ctx context.Context, sess *Session, tmpl *template.Template, spec template.Spec, target string) *scan.Finding {
	req, ok := spec.(*template.SSLRequest)
	if !ok || req == nil {
		sess.Warn("ssl:spec:"+tmpl.ID, "unexpected spec for ssl executor", zap.String("template", tmpl.ID))
		return nil
	}

	paths := req.Path
	if len(paths) == 0 {
		paths = template.StringList{"{{BaseURL}}"}
	}

	client := s.client()
	for _, raw := range paths {
		if ctx.Err() != nil {
			break
		}

		url := placeholder.Resolve(raw, target)
		outcome, resp, state, err := s.probe(ctx, client, url)
		if err != nil {
			sess.Warn("ssl:"+url+":"+errorClass(err), "ssl probe failed",
				zap.String("template", tmpl.ID),
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}

		finding := newFinding(tmpl, scan.ProtocolSSL, url)
		finding.SSLOutcome = string(outcome)
		finding.Matched = req.Positive(outcome)
		if resp != nil {
			finding.StatusCode = resp.StatusCode
			finding.ElapsedMs = resp.Elapsed.Milliseconds()
			finding.Matched = finding.Matched && matcher.Evaluate(req.Matchers, resp)
		}
		if state != nil {
			finding.TLSVersion = tls.VersionName(state.Version)
		}

		sess.Logger().Debug("ssl probe",
			zap.String("template", tmpl.ID),
			zap.String("url", url),
			zap.String("outcome", string(outcome)),
			zap.Bool("matched", finding.Matched),
		)
		return finding
	}

	return nil
}

// probe returns a decisive outcome, or an error when the failure is not TLS
// related and the path is inconclusive.
func (s *SSLExecutor) probe(ctx context.Context, client *http.Client, url string) (template.SSLOutcome, *matcher.Response, *tls.ConnectionState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent())

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if isTLSError(err) {
			return template.SSLOutcomeTLSError, nil, nil, nil
		}
		return "", nil, nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, constants.MaxResponseBodyBytes))
	captured := matcher.NewResponse(resp, body, time.Since(start))

	outcome := template.SSLOutcomeInsecure
	if resp.Request != nil && resp.Request.URL.Scheme == "https" {
		outcome = template.SSLOutcomeSecure
	}
	return outcome, captured, resp.TLS, nil
}

func (s *SSLExecutor) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	s.clientOnce.Do(func() {
		timeout := s.Timeout
		if timeout <= 0 {
			timeout = constants.DefaultProbeTimeout
		}
		s.shared = &http.Client{
			Timeout:   timeout,
			Transport: newTransport(&tls.Config{MinVersion: tls.VersionTLS10}),
		}
	})
	return s.shared
}

// CloseIdleConnections closes kept-alive connections of the client.
func (s *SSLExecutor) CloseIdleConnections() {
	s.client().CloseIdleConnections()
}

func (s *SSLExecutor) userAgent() string {
	if s.UserAgent != "" {
		return s.UserAgent
	}
	return constants.DefaultUserAgent
}

// isTLSError reports certificate validation and handshake failures.
func isTLSError(err error) bool {
	if err == nil {
		return false
	}

	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		systemRoots      x509.SystemRootsError
		verification     *tls.CertificateVerificationError
		recordHeader     tls.RecordHeaderError
		alert            tls.AlertError
	)
	switch {
	case errors.As(err, &unknownAuthority),
		errors.As(err, &hostname),
		errors.As(err, &invalid),
		errors.As(err, &systemRoots),
		errors.As(err, &verification),
		errors.As(err, &recordHeader),
		errors.As(err, &alert):
		return true
	}

	// net/http flattens some handshake failures into plain strings.
	msg := err.Error()
	return strings.Contains(msg, "tls: ") ||
		strings.Contains(msg, "x509: ") ||
		strings.Contains(msg, "server gave HTTP response to HTTPS client")
}
