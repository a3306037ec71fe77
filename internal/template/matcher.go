package template

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MatcherKind is the predicate type of a Matcher.
type MatcherKind string

const (
	KindRegex     MatcherKind = "regex"
	KindWord      MatcherKind = "word"
	KindStatus    MatcherKind = "status"
	KindHeader    MatcherKind = "header"
	KindMethod    MatcherKind = "method"
	KindRedirect  MatcherKind = "redirect"
	KindSubdomain MatcherKind = "subdomain"
	KindCookie    MatcherKind = "cookie"
	KindTime      MatcherKind = "time"
)

// Condition combines a matcher's own value list.
type Condition string

const (
	ConditionAnd Condition = "and"
	ConditionOr  Condition = "or"
)

// HeaderMode selects how a header matcher checks the header.
type HeaderMode string

const (
	HeaderPresent  HeaderMode = "present"
	HeaderContains HeaderMode = "contains"
)

// Matcher is a typed predicate over a probe response. Only the fields of its
// Kind are meaningful.
type Matcher struct {
	Kind      MatcherKind
	Condition Condition

	Patterns []string // regex
	Words    []string // word
	Statuses []int    // status

	Name       string     // header
	HeaderMode HeaderMode // header
	Value      string     // header, contains

	Method      string            // method
	RedirectURL string            // redirect
	Subdomain   string            // subdomain
	Cookies     map[string]string // cookie
	MaxSeconds  *float64          // time
}

// IsAnd reports whether every value must hold. Anything but "and" means "or".
func (m *Matcher) IsAnd() bool {
	return strings.EqualFold(strings.TrimSpace(string(m.Condition)), string(ConditionAnd))
}

// rawMatcher mirrors the YAML shape of a matcher, including aliases.
type rawMatcher struct {
	Type        string            `yaml:"type"`
	Kind        string            `yaml:"kind"`
	Condition   string            `yaml:"condition"`
	Pattern     StringList        `yaml:"pattern"`
	Patterns    StringList        `yaml:"patterns"`
	Regex       StringList        `yaml:"regex"`
	Words       StringList        `yaml:"words"`
	Status      []int             `yaml:"status"`
	Statuses    []int             `yaml:"statuses"`
	Name        string            `yaml:"name"`
	Value       string            `yaml:"value"`
	Method      string            `yaml:"method"`
	RedirectURL string            `yaml:"redirect_url"`
	Subdomain   string            `yaml:"subdomain"`
	Cookies     map[string]string `yaml:"cookies"`
	MaxSeconds  *float64          `yaml:"max_seconds"`
}

// UnmarshalYAML decodes the template matcher format. For header matchers the
// YAML "condition" key carries the header mode (present/contains).
func (m *Matcher) UnmarshalYAML(node *yaml.Node) error {
	var raw rawMatcher
	if err := node.Decode(&raw); err != nil {
		return err
	}

	kind := raw.Type
	if kind == "" {
		kind = raw.Kind
	}
	*m = Matcher{
		Kind:        MatcherKind(strings.ToLower(strings.TrimSpace(kind))),
		Patterns:    concat(raw.Pattern, raw.Patterns, raw.Regex),
		Words:       raw.Words,
		Statuses:    append(append([]int(nil), raw.Status...), raw.Statuses...),
		Name:        raw.Name,
		Value:       raw.Value,
		Method:      raw.Method,
		RedirectURL: raw.RedirectURL,
		Subdomain:   raw.Subdomain,
		Cookies:     raw.Cookies,
		MaxSeconds:  raw.MaxSeconds,
	}

	cond := strings.ToLower(strings.TrimSpace(raw.Condition))
	if m.Kind == KindHeader {
		switch HeaderMode(cond) {
		case HeaderPresent, HeaderContains:
			m.HeaderMode = HeaderMode(cond)
		default:
			m.HeaderMode = HeaderPresent
			if raw.Value != "" {
				m.HeaderMode = HeaderContains
			}
		}
		m.Condition = ConditionOr
		return nil
	}

	if cond == "" {
		cond = string(ConditionOr)
	}
	m.Condition = Condition(cond)
	return nil
}

// StringList decodes either a scalar or a sequence of scalars. Scalars of any
// YAML type (ints, floats) are kept as their literal text.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = StringList{node.Value}
	case yaml.SequenceNode:
		out := make(StringList, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
				continue
			}
			out = append(out, item.Value)
		}
		*l = out
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
	return nil
}

func concat(lists ...StringList) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
