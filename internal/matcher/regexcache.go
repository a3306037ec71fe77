package matcher

import (
	"regexp"
	"sync"
)

// patterns caches compiled expressions; templates repeat the same patterns
// across paths and targets.
var patterns sync.Map

func compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patterns.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	actual, _ := patterns.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}
