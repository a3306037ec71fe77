// Package matcher evaluates template matchers against captured probe results.
//
// Every evaluator is a pure function of the matcher and the response: nothing
// here touches the network. A matcher missing the fields its kind requires
// simply fails.
package matcher

import (
	"sync"

	"github.com/khanhnv2901/seca-scan/internal/template"
)

// EvalFunc decides whether a single matcher holds against a response.
type EvalFunc func(m *template.Matcher, r *Response) bool

var (
	registryMu sync.RWMutex
	registry   = map[template.MatcherKind]EvalFunc{
		template.KindRegex:     matchRegex,
		template.KindWord:      matchWords,
		template.KindStatus:    matchStatus,
		template.KindHeader:    matchHeader,
		template.KindMethod:    matchMethod,
		template.KindRedirect:  matchRedirect,
		template.KindSubdomain: matchSubdomain,
		template.KindCookie:    matchCookies,
		template.KindTime:      matchTime,
	}
)

// Register installs (or replaces) the evaluator for kind.
func Register(kind template.MatcherKind, fn EvalFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = fn
}

func lookup(kind template.MatcherKind) (EvalFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[kind]
	return fn, ok
}

// Evaluate combines matchers with logical AND, stopping at the first one that
// fails. An empty list holds.
func Evaluate(matchers []template.Matcher, r *Response) bool {
	for i := range matchers {
		if !Holds(&matchers[i], r) {
			return false
		}
	}
	return true
}

// Holds evaluates one matcher. Unknown kinds and nil responses fail.
func Holds(m *template.Matcher, r *Response) bool {
	if m == nil || r == nil {
		return false
	}
	fn, ok := lookup(m.Kind)
	if !ok {
		return false
	}
	return fn(m, r)
}
