package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/khanhnv2901/seca-scan/internal/matcher"
	"github.com/khanhnv2901/seca-scan/internal/placeholder"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
	"github.com/khanhnv2901/seca-scan/internal/template"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const resolvConfPath = "/etc/resolv.conf"

// supportedQueryTypes are the record types whose values can be rendered as text.
var supportedQueryTypes = map[string]uint16{
	"A":     dns.TypeA,
	"AAAA":  dns.TypeAAAA,
	"CNAME": dns.TypeCNAME,
	"MX":    dns.TypeMX,
	"NS":    dns.TypeNS,
	"TXT":   dns.TypeTXT,
	"PTR":   dns.TypePTR,
	"SOA":   dns.TypeSOA,
	"CAA":   dns.TypeCAA,
	"SRV":   dns.TypeSRV,
}

// DNSExecutor resolves a DNS request spec and scores the record set.
type DNSExecutor struct {
	Timeout     time.Duration
	Nameservers []string // host[:port]; consulted after a spec's own resolver

	// ResolvConf overrides the system resolver configuration path.
	ResolvConf string

	systemOnce sync.Once
	system     []string
}

// Protocol implements Executor.
func (d *DNSExecutor) Protocol() template.Protocol { return template.ProtocolDNS }

// Execute always returns a Finding. NXDOMAIN, empty answers and resolver
// failures all yield matched=false with an empty record set.
func (d *DNSExecutor) Execute(ctx context.Context, sess *Session, tmpl *template.Template, spec template.Spec, target string) *scan.Finding {
	req, ok := spec.(*template.DNSRequest)
	if !ok || req == nil {
		sess.Warn("dns:spec:"+tmpl.ID, "unexpected spec for dns executor", zap.String("template", tmpl.ID))
		return nil
	}

	name := placeholder.ResolveDomain(req.QueryName(), target)
	qtype := req.QueryType()

	finding := newFinding(tmpl, scan.ProtocolDNS, name)
	finding.QueryType = qtype
	finding.ResponseData = []string{}

	start := time.Now()
	records, err := d.Lookup(ctx, name, qtype, req.Resolver)
	finding.ElapsedMs = time.Since(start).Milliseconds()

	switch {
	case err == nil:
		finding.ResponseData = records
		finding.Matched = matcher.EvaluateRecords(req.Matchers, qtype, records)
	case errors.Is(err, sharedErrors.ErrDNSNameNotFound), errors.Is(err, sharedErrors.ErrDNSNoAnswer):
		sess.Logger().Debug("dns query returned no records",
			zap.String("template", tmpl.ID),
			zap.String("query", name),
			zap.String("type", qtype),
			zap.Error(err),
		)
	default:
		sess.Warn("dns:"+name+":"+qtype, "dns query failed",
			zap.String("template", tmpl.ID),
			zap.String("query", name),
			zap.String("type", qtype),
			zap.Error(err),
		)
	}

	return finding
}

// Lookup resolves name for qtype and returns the textual record values. The
// first nameserver that answers is authoritative for the result; resolver
// is tried before the executor's configured nameservers.
func (d *DNSExecutor) Lookup(ctx context.Context, name, qtype, resolver string) ([]string, error) {
	rrType, ok := supportedQueryTypes[strings.ToUpper(qtype)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sharedErrors.ErrUnsupportedQueryType, qtype)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, sharedErrors.ErrEmptyTarget
	}

	if rrType == dns.TypePTR && net.ParseIP(name) != nil {
		reverse, err := dns.ReverseAddr(name)
		if err != nil {
			return nil, err
		}
		name = reverse
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), rrType)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range d.servers(resolver) {
		resp, err := d.exchange(ctx, msg, server)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", server, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return answerValues(resp, rrType)
	}

	if lastErr == nil {
		lastErr = errors.New("no nameservers available")
	}
	return nil, lastErr
}

func (d *DNSExecutor) exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	client := &dns.Client{Net: "udp", Timeout: d.timeout()}
	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, err
	}

	if resp.Truncated {
		tcp := &dns.Client{Net: "tcp", Timeout: d.timeout()}
		if full, _, err := tcp.ExchangeContext(ctx, msg, server); err == nil {
			resp = full
		}
	}
	return resp, nil
}

func answerValues(resp *dns.Msg, rrType uint16) ([]string, error) {
	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, sharedErrors.ErrDNSNameNotFound
	default:
		return nil, fmt.Errorf("%w: %s", sharedErrors.ErrDNSRcode, dns.RcodeToString[resp.Rcode])
	}

	values := make([]string, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != rrType {
			continue
		}
		if v := recordValue(rr); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, sharedErrors.ErrDNSNoAnswer
	}
	return values, nil
}

func recordValue(rr dns.RR) string {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String()
	case *dns.AAAA:
		return v.AAAA.String()
	case *dns.CNAME:
		return v.Target
	case *dns.NS:
		return v.Ns
	case *dns.PTR:
		return v.Ptr
	case *dns.MX:
		return v.Mx
	case *dns.TXT:
		return strings.Join(v.Txt, "")
	case *dns.SOA:
		return v.Ns
	case *dns.CAA:
		return v.Value
	case *dns.SRV:
		return v.Target
	}
	return ""
}

// servers returns the nameservers to try in order: the spec resolver, the
// configured nameservers, the system resolvers, then the public fallback.
func (d *DNSExecutor) servers(resolver string) []string {
	var out []string
	if resolver = strings.TrimSpace(resolver); resolver != "" {
		out = append(out, withPort(resolver))
	}
	for _, ns := range d.Nameservers {
		if ns = strings.TrimSpace(ns); ns != "" {
			out = append(out, withPort(ns))
		}
	}
	if len(out) > 0 {
		return out
	}

	d.systemOnce.Do(func() {
		path := d.ResolvConf
		if path == "" {
			path = resolvConfPath
		}
		cfg, err := dns.ClientConfigFromFile(path)
		if err != nil {
			return
		}
		for _, s := range cfg.Servers {
			d.system = append(d.system, net.JoinHostPort(s, cfg.Port))
		}
	})
	if len(d.system) > 0 {
		return append(out, d.system...)
	}
	return append(out, constants.DefaultNameserver)
}

func (d *DNSExecutor) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return constants.DefaultProbeTimeout
}

func withPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}
