package executor

import (
	"context"
	"crypto/tls"
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

// HTTPExecutor probes each path of an HTTP request spec and scores the
// response with the spec's matchers.
type HTTPExecutor struct {
	Timeout       time.Duration
	UserAgent     string
	MaxBodyBytes  int64
	SkipTLSVerify bool

	// Client overrides the HTTP client. Its redirect policy is replaced per spec.
	Client *http.Client

	transportOnce sync.Once
	transport     *http.Transport
}

// Protocol implements Executor.
func (h *HTTPExecutor) Protocol() template.Protocol { return template.ProtocolHTTP }

// Execute runs the spec's paths in order. Under first-match it stops at the
// first matching path and otherwise reports the last path that answered;
// under last-probed it reports the last answering path. Paths failing at the
// transport level are skipped; if none answered there is no Finding.
func (h *HTTPExecutor) Execute(ctx context.Context, sess *Session, tmpl *template.Template, spec template.Spec, target string) *scan.Finding {
	req, ok := spec.(*template.HTTPRequest)
	if !ok || req == nil {
		sess.Warn("http:spec:"+tmpl.ID, "unexpected spec for http executor", zap.String("template", tmpl.ID))
		return nil
	}
	if len(req.Path) == 0 {
		sess.Warn("http:nopath:"+tmpl.ID, "http request has no paths", zap.String("template", tmpl.ID))
		return nil
	}

	client := h.client(req.FollowRedirects())
	firstMatch := req.EffectivePathPolicy() == template.PathPolicyFirstMatch

	var last *scan.Finding
	for _, raw := range req.Path {
		if ctx.Err() != nil {
			break
		}

		url := placeholder.Resolve(raw, target)
		resp, err := h.probe(ctx, client, req, url)
		if err != nil {
			sess.Warn("http:"+url+":"+errorClass(err), "http probe failed",
				zap.String("template", tmpl.ID),
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}

		finding := newFinding(tmpl, scan.ProtocolHTTP, url)
		finding.StatusCode = resp.StatusCode
		finding.ElapsedMs = resp.Elapsed.Milliseconds()
		finding.Matched = matcher.Evaluate(req.Matchers, resp)
		last = finding

		sess.Logger().Debug("http probe",
			zap.String("template", tmpl.ID),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.Bool("matched", finding.Matched),
		)

		if finding.Matched && firstMatch {
			return finding
		}
	}

	return last
}

func (h *HTTPExecutor) probe(ctx context.Context, client *http.Client, spec *template.HTTPRequest, url string) (*matcher.Response, error) {
	var body io.Reader
	if spec.Body != "" {
		body = strings.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.EffectiveMethod(), url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent())
	for k, v := range spec.Headers {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody()))
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return matcher.NewResponse(resp, data, elapsed), nil
}

func (h *HTTPExecutor) client(followRedirects bool) *http.Client {
	var c http.Client
	if h.Client != nil {
		c = *h.Client
	} else {
		c = http.Client{
			Timeout:   h.timeout(),
			Transport: h.sharedTransport(),
		}
	}

	if !followRedirects {
		c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return &c
}

// sharedTransport returns the transport reused by every spec of this executor.
func (h *HTTPExecutor) sharedTransport() *http.Transport {
	h.transportOnce.Do(func() {
		h.transport = newTransport(&tls.Config{InsecureSkipVerify: h.SkipTLSVerify}) // #nosec G402 -- verification is only skipped when the operator opts in.
	})
	return h.transport
}

// CloseIdleConnections closes kept-alive connections of the shared transport.
func (h *HTTPExecutor) CloseIdleConnections() {
	if h.Client != nil {
		h.Client.CloseIdleConnections()
		return
	}
	h.sharedTransport().CloseIdleConnections()
}

func newTransport(tlsConfig *tls.Config) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: constants.DefaultProbeTimeout,
		IdleConnTimeout:     constants.IdleConnTimeout,
		MaxIdleConnsPerHost: constants.MaxIdleConnsPerHost,
	}
}

func (h *HTTPExecutor) timeout() time.Duration {
	if h.Timeout > 0 {
		return h.Timeout
	}
	return constants.DefaultProbeTimeout
}

func (h *HTTPExecutor) userAgent() string {
	if h.UserAgent != "" {
		return h.UserAgent
	}
	return constants.DefaultUserAgent
}

func (h *HTTPExecutor) maxBody() int64 {
	if h.MaxBodyBytes > 0 {
		return h.MaxBodyBytes
	}
	return constants.MaxResponseBodyBytes
}

// errorClass buckets transport errors so repeated failures of the same kind
// for the same URL are reported once per scan.
func errorClass(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "refused"
	case strings.Contains(msg, "no such host"):
		return "nxdomain"
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "context canceled"):
		return "canceled"
	}
	return "other"
}
