package matcher

import (
	"strings"

	"github.com/khanhnv2901/seca-scan/internal/template"
)

// nameValued lists record types whose values are domain names or addresses.
// Their values compare case-insensitively and ignore a trailing dot; other
// values (TXT, CAA) compare exactly.
var nameValued = map[string]bool{
	"A":     true,
	"AAAA":  true,
	"CNAME": true,
	"NS":    true,
	"MX":    true,
	"PTR":   true,
	"SRV":   true,
	"SOA":   true,
}

// EvaluateRecords applies DNS matchers to the textual record set of a qtype
// query with AND semantics, stopping at the first failure. An empty list holds.
func EvaluateRecords(matchers []template.DNSMatcher, qtype string, records []string) bool {
	names := nameValued[strings.ToUpper(strings.TrimSpace(qtype))]
	for _, m := range matchers {
		if !holdsRecords(m, names, records) {
			return false
		}
	}
	return true
}

func holdsRecords(m template.DNSMatcher, names bool, records []string) bool {
	switch template.DNSMatcherType(strings.ToLower(string(m.Type))) {
	case template.DNSMatcherExists:
		return len(records) > 0
	case template.DNSMatcherValue:
		want := normalizeRecord(m.Value, names)
		if want == "" {
			return false
		}
		for _, rec := range records {
			if normalizeRecord(rec, names) == want {
				return true
			}
		}
		return false
	}
	return false
}

func normalizeRecord(s string, name bool) string {
	s = strings.TrimSpace(s)
	if !name {
		return s
	}
	return strings.ToLower(strings.TrimSuffix(s, "."))
}
