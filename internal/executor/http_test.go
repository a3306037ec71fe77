package executor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/template"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func testTemplate(id string) *template.Template {
	return &template.Template{
		ID: id,
		Info: template.Info{
			Name:           "Test " + id,
			Author:         "tester",
			Severity:       "medium",
			Description:    "desc",
			Recommendation: "fix it",
		},
	}
}

func statusMatcher(codes ...int) template.Matcher {
	return template.Matcher{Kind: template.KindStatus, Condition: template.ConditionOr, Statuses: codes}
}

func TestHTTPExecutor_FirstMatchStopsAtMatchingPath(t *testing.T) {
	var otherHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/panel":
			_, _ = w.Write([]byte("welcome"))
		case "/other":
			otherHits.Add(1)
			_, _ = w.Write([]byte("welcome"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	spec := &template.HTTPRequest{
		Path:     template.StringList{"{{BaseURL}}/admin", "{{BaseURL}}/panel", "{{BaseURL}}/other"},
		Matchers: []template.Matcher{statusMatcher(200)},
	}
	exec := &HTTPExecutor{Timeout: 5 * time.Second}
	sess := NewSession(zaptest.NewLogger(t), server.URL)

	finding := exec.Execute(context.Background(), sess, testTemplate("panel"), spec, server.URL)
	if finding == nil {
		t.Fatal("Expected a finding")
	}
	if !finding.Matched {
		t.Error("Expected matched finding")
	}
	if finding.URL != server.URL+"/panel" {
		t.Errorf("Expected URL %s/panel, got %s", server.URL, finding.URL)
	}
	if finding.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", finding.StatusCode)
	}
	if finding.Recommendation != "fix it" || finding.Author != "tester" {
		t.Errorf("Expected template metadata on finding, got %+v", finding)
	}
	if otherHits.Load() != 0 {
		t.Error("Paths after the first match must not be probed")
	}
}

func TestHTTPExecutor_NoMatchReportsLastRespondingPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	spec := &template.HTTPRequest{
		Path:     template.StringList{"{{BaseURL}}/a", "{{BaseURL}}/b"},
		Matchers: []template.Matcher{statusMatcher(200, 301)},
	}
	finding := (&HTTPExecutor{Timeout: 5 * time.Second}).Execute(context.Background(), nil, testTemplate("miss"), spec, server.URL)

	if finding == nil {
		t.Fatal("Expected an explicit negative finding")
	}
	if finding.Matched {
		t.Error("404 must never produce a matched finding")
	}
	if finding.URL != server.URL+"/b" || finding.StatusCode != http.StatusNotFound {
		t.Errorf("Expected last path with 404, got %s (%d)", finding.URL, finding.StatusCode)
	}
}

func TestHTTPExecutor_LastProbedPolicy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/hit" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	spec := &template.HTTPRequest{
		Path:       template.StringList{"{{BaseURL}}/hit", "{{BaseURL}}/miss"},
		PathPolicy: template.PathPolicyLastProbed,
		Matchers:   []template.Matcher{statusMatcher(200)},
	}
	finding := (&HTTPExecutor{Timeout: 5 * time.Second}).Execute(context.Background(), nil, testTemplate("last"), spec, server.URL)

	if finding == nil {
		t.Fatal("Expected a finding")
	}
	if finding.Matched || finding.StatusCode != http.StatusForbidden {
		t.Errorf("Expected the last path's unmatched result, got matched=%v status=%d", finding.Matched, finding.StatusCode)
	}
}

func TestHTTPExecutor_TransportFailureYieldsNoFinding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	sess := NewSession(zap.New(core), target)
	spec := &template.HTTPRequest{
		Path:     template.StringList{"{{BaseURL}}/"},
		Matchers: []template.Matcher{statusMatcher(200)},
	}
	exec := &HTTPExecutor{Timeout: 2 * time.Second}

	for i := 0; i < 2; i++ {
		if finding := exec.Execute(context.Background(), sess, testTemplate("down"), spec, target); finding != nil {
			t.Fatalf("Expected no finding for unreachable target, got %+v", finding)
		}
	}

	warnings := logs.FilterMessage("http probe failed").FilterLevelExact(zapcore.WarnLevel).Len()
	if warnings != 1 {
		t.Errorf("Expected the failure to be warned once per scan, got %d warnings", warnings)
	}
	if logs.FilterMessage("http probe failed").Len() != 2 {
		t.Errorf("Expected repeated failures to still be logged at debug level")
	}
}

func TestHTTPExecutor_RedirectMatcherSeesUnfollowedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("new page"))
	}))
	defer server.Close()

	spec := &template.HTTPRequest{
		Path: template.StringList{"{{BaseURL}}/old"},
		Matchers: []template.Matcher{
			{Kind: template.KindRedirect, RedirectURL: "/new"},
		},
	}
	finding := (&HTTPExecutor{Timeout: 5 * time.Second}).Execute(context.Background(), nil, testTemplate("redir"), spec, server.URL)

	if finding == nil || !finding.Matched {
		t.Fatalf("Expected matched redirect finding, got %+v", finding)
	}
	if finding.StatusCode != http.StatusFound {
		t.Errorf("Expected status 302, got %d", finding.StatusCode)
	}
}

func TestHTTPExecutor_MethodHeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPut || r.Header.Get("X-Scan") != "1" || string(body) != "payload" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.UserAgent() != "custom-agent" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("accepted"))
	}))
	defer server.Close()

	spec := &template.HTTPRequest{
		Method:  "put",
		Path:    template.StringList{"{{BaseURL}}/upload"},
		Headers: map[string]string{"X-Scan": "1"},
		Body:    "payload",
		Matchers: []template.Matcher{
			statusMatcher(200),
			{Kind: template.KindMethod, Method: "PUT"},
			{Kind: template.KindWord, Words: []string{"accepted"}},
		},
	}
	exec := &HTTPExecutor{Timeout: 5 * time.Second, UserAgent: "custom-agent"}
	finding := exec.Execute(context.Background(), nil, testTemplate("put"), spec, server.URL)

	if finding == nil || !finding.Matched {
		t.Fatalf("Expected matched finding, got %+v", finding)
	}
}

func TestHTTPExecutor_EmptyMatchersAlwaysHit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	spec := &template.HTTPRequest{Path: template.StringList{"{{BaseURL}}"}}
	finding := (&HTTPExecutor{Timeout: 5 * time.Second}).Execute(context.Background(), nil, testTemplate("alive"), spec, server.URL)
	if finding == nil || !finding.Matched {
		t.Fatalf("Expected availability finding, got %+v", finding)
	}
}

func TestHTTPExecutor_WrongSpecType(t *testing.T) {
	finding := (&HTTPExecutor{}).Execute(context.Background(), nil, testTemplate("x"), &template.DNSRequest{}, "example.com")
	if finding != nil {
		t.Errorf("Expected nil finding for mismatched spec, got %+v", finding)
	}
}

func TestExecutorsReuseConnectionsAcrossSpecs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	httpExec := &HTTPExecutor{Timeout: 5 * time.Second}
	sslExec := &SSLExecutor{Timeout: 5 * time.Second}
	sess := NewSession(zap.NewNop(), server.URL)
	httpSpec := &template.HTTPRequest{
		Path:     template.StringList{"{{BaseURL}}/"},
		Matchers: []template.Matcher{statusMatcher(200)},
	}
	sslSpec := &template.SSLRequest{Path: template.StringList{"{{BaseURL}}"}}

	before := runtime.NumGoroutine()
	const runs = 200
	for i := 0; i < runs; i++ {
		if f := httpExec.Execute(context.Background(), sess, testTemplate("reuse"), httpSpec, server.URL); f == nil || !f.Matched {
			t.Fatalf("Expected matched http finding on run %d, got %+v", i, f)
		}
		if f := sslExec.Execute(context.Background(), sess, testTemplate("reuse"), sslSpec, server.URL); f == nil {
			t.Fatalf("Expected ssl finding on run %d", i)
		}
	}

	// Each pooled connection costs a few goroutines on both ends; a fresh
	// transport per spec would add them per run.
	if after := runtime.NumGoroutine(); after > before+20 {
		t.Errorf("Expected bounded goroutines after %d runs, before=%d after=%d", runs, before, after)
	}

	httpExec.CloseIdleConnections()
	sslExec.CloseIdleConnections()
}
