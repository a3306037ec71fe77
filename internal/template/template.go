// Package template holds the in-memory model of detection templates.
//
// A template bundles identifying metadata with one or more protocol blocks.
// Each block is an ordered list of Specs (HTTPRequest, SSLRequest or DNSRequest);
// the concrete Go type is the protocol tag, so executors never inspect ad hoc keys.
// Decoding from YAML happens at this boundary only: unknown top-level keys are
// reported by the loader and otherwise ignored.
package template

import (
	"strings"
)

// Protocol identifies a probe kind.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolSSL  Protocol = "ssl"
	ProtocolDNS  Protocol = "dns"
)

// Protocols lists the supported protocol blocks in execution order.
var Protocols = []Protocol{ProtocolHTTP, ProtocolSSL, ProtocolDNS}

// Template is a declarative detection rule. It is read-only once loaded.
type Template struct {
	ID   string         `yaml:"id"`
	Info Info           `yaml:"info"`
	HTTP []*HTTPRequest `yaml:"http,omitempty"`
	SSL  []*SSLRequest  `yaml:"ssl,omitempty"`
	DNS  []*DNSRequest  `yaml:"dns,omitempty"`

	// SourcePath is the file the template was loaded from, if any.
	SourcePath string `yaml:"-"`
}

// Info contains template metadata.
type Info struct {
	Name           string     `yaml:"name"`
	Author         string     `yaml:"author"`
	Severity       string     `yaml:"severity"`
	Description    string     `yaml:"description,omitempty"`
	Recommendation string     `yaml:"recommendation,omitempty"`
	Remediation    string     `yaml:"remediation,omitempty"`
	Tags           StringList `yaml:"tags,omitempty"`
}

// Advice returns the recommendation text, falling back to remediation.
func (i Info) Advice() string {
	if i.Recommendation != "" {
		return i.Recommendation
	}
	return i.Remediation
}

// Spec is one probe definition within a protocol block.
type Spec interface {
	Protocol() Protocol
}

// Block is an ordered group of specs sharing a protocol.
type Block struct {
	Protocol Protocol
	Specs    []Spec
}

// Blocks returns the declared protocol blocks in execution order, skipping
// protocols the template does not use.
func (t *Template) Blocks() []Block {
	if t == nil {
		return nil
	}

	var blocks []Block
	for _, p := range Protocols {
		var specs []Spec
		switch p {
		case ProtocolHTTP:
			for _, r := range t.HTTP {
				if r != nil {
					specs = append(specs, r)
				}
			}
		case ProtocolSSL:
			for _, r := range t.SSL {
				if r != nil {
					specs = append(specs, r)
				}
			}
		case ProtocolDNS:
			for _, r := range t.DNS {
				if r != nil {
					specs = append(specs, r)
				}
			}
		}
		if len(specs) > 0 {
			blocks = append(blocks, Block{Protocol: p, Specs: specs})
		}
	}
	return blocks
}

// HasTag reports whether the template carries the tag (case-insensitive).
// Comma separated tag strings are split.
func (t *Template) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, entry := range t.Info.Tags {
		for _, have := range strings.Split(entry, ",") {
			if strings.EqualFold(strings.TrimSpace(have), tag) {
				return true
			}
		}
	}
	return false
}

// PathPolicy selects which path result an HTTP spec reports.
type PathPolicy string

const (
	// PathPolicyFirstMatch stops at the first matching path and falls back to
	// a negative result for the last responding path.
	PathPolicyFirstMatch PathPolicy = "first-match"
	// PathPolicyLastProbed probes every path and reports the last response.
	PathPolicyLastProbed PathPolicy = "last-probed"
)

// HTTPRequest is an HTTP probe definition.
type HTTPRequest struct {
	Method     string            `yaml:"method,omitempty"`
	Path       StringList        `yaml:"path"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	Body       string            `yaml:"body,omitempty"`
	Redirects  *bool             `yaml:"redirects,omitempty"`
	PathPolicy PathPolicy        `yaml:"path-policy,omitempty"`
	Matchers   []Matcher         `yaml:"matchers,omitempty"`
}

// Protocol implements Spec.
func (r *HTTPRequest) Protocol() Protocol { return ProtocolHTTP }

// EffectiveMethod returns the upper-cased method, defaulting to GET.
func (r *HTTPRequest) EffectiveMethod() string {
	m := strings.ToUpper(strings.TrimSpace(r.Method))
	if m == "" {
		return "GET"
	}
	return m
}

// EffectivePathPolicy returns the declared policy or first-match.
func (r *HTTPRequest) EffectivePathPolicy() PathPolicy {
	if r.PathPolicy == PathPolicyLastProbed {
		return PathPolicyLastProbed
	}
	return PathPolicyFirstMatch
}

// FollowRedirects reports whether redirects should be followed. When unset,
// redirects are followed unless a redirect matcher needs the 3xx response.
func (r *HTTPRequest) FollowRedirects() bool {
	if r.Redirects != nil {
		return *r.Redirects
	}
	for _, m := range r.Matchers {
		if m.Kind == KindRedirect {
			return false
		}
	}
	return true
}

// SSLOutcome classifies a certificate-verifying connection attempt.
type SSLOutcome string

const (
	SSLOutcomeSecure   SSLOutcome = "secure"
	SSLOutcomeInsecure SSLOutcome = "insecure"
	SSLOutcomeTLSError SSLOutcome = "tls-error"
)

// DefaultSSLMatchOn treats a missing or broken TLS setup as the positive signal.
var DefaultSSLMatchOn = []SSLOutcome{SSLOutcomeInsecure, SSLOutcomeTLSError}

// SSLRequest is a TLS probe definition.
type SSLRequest struct {
	Path     StringList   `yaml:"path"`
	MatchOn  []SSLOutcome `yaml:"match-on,omitempty"`
	Matchers []Matcher    `yaml:"matchers,omitempty"`
}

// Protocol implements Spec.
func (r *SSLRequest) Protocol() Protocol { return ProtocolSSL }

// Positive reports whether the outcome counts as a match for this spec.
func (r *SSLRequest) Positive(outcome SSLOutcome) bool {
	matchOn := r.MatchOn
	if len(matchOn) == 0 {
		matchOn = DefaultSSLMatchOn
	}
	for _, o := range matchOn {
		if SSLOutcome(strings.ToLower(string(o))) == outcome {
			return true
		}
	}
	return false
}

// DNSRequest is a DNS probe definition.
type DNSRequest struct {
	Type     string       `yaml:"type,omitempty"`
	Query    string       `yaml:"query"`
	Resolver string       `yaml:"resolver,omitempty"`
	Matchers []DNSMatcher `yaml:"matchers,omitempty"`
}

// Protocol implements Spec.
func (r *DNSRequest) Protocol() Protocol { return ProtocolDNS }

// QueryType returns the upper-cased record type, defaulting to A.
func (r *DNSRequest) QueryType() string {
	t := strings.ToUpper(strings.TrimSpace(r.Type))
	if t == "" {
		return "A"
	}
	return t
}

// QueryName returns the placeholder-bearing query, defaulting to the target domain.
func (r *DNSRequest) QueryName() string {
	if strings.TrimSpace(r.Query) == "" {
		return "{{BaseDomain}}"
	}
	return strings.TrimSpace(r.Query)
}

// DNSMatcherType is the kind of a DNS matcher.
type DNSMatcherType string

const (
	DNSMatcherValue  DNSMatcherType = "value"
	DNSMatcherExists DNSMatcherType = "exists"
)

// DNSMatcher is a predicate over a DNS record set.
type DNSMatcher struct {
	Type  DNSMatcherType `yaml:"matcher_type"`
	Value string         `yaml:"value,omitempty"`
}
