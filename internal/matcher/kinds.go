package matcher

import (
	"strings"

	"github.com/khanhnv2901/seca-scan/internal/template"
)

func matchRegex(m *template.Matcher, r *Response) bool {
	if len(m.Patterns) == 0 {
		return false
	}

	if m.IsAnd() {
		for _, p := range m.Patterns {
			re, err := compile(p)
			if err != nil {
				return false // invalid pattern fails AND
			}
			if !re.MatchString(r.Body) {
				return false
			}
		}
		return true
	}

	for _, p := range m.Patterns {
		re, err := compile(p)
		if err != nil {
			continue
		}
		if re.MatchString(r.Body) {
			return true
		}
	}
	return false
}

func matchWords(m *template.Matcher, r *Response) bool {
	if len(m.Words) == 0 {
		return false
	}

	if m.IsAnd() {
		for _, w := range m.Words {
			if !strings.Contains(r.Body, w) {
				return false
			}
		}
		return true
	}

	for _, w := range m.Words {
		if strings.Contains(r.Body, w) {
			return true
		}
	}
	return false
}

func matchStatus(m *template.Matcher, r *Response) bool {
	for _, s := range m.Statuses {
		if s == r.StatusCode {
			return true
		}
	}
	return false
}

func matchHeader(m *template.Matcher, r *Response) bool {
	if m.Name == "" || r.Header == nil {
		return false
	}

	values := r.Header.Values(m.Name)
	if len(values) == 0 {
		// Header maps built by hand may not be canonicalized.
		for key, v := range r.Header {
			if strings.EqualFold(key, m.Name) {
				values = v
				break
			}
		}
	}
	if len(values) == 0 {
		return false
	}

	if m.HeaderMode != template.HeaderContains {
		return true
	}
	if m.Value == "" {
		return false
	}
	for _, v := range values {
		if strings.Contains(v, m.Value) {
			return true
		}
	}
	return false
}

func matchMethod(m *template.Matcher, r *Response) bool {
	if m.Method == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(m.Method), r.Method)
}

func matchRedirect(m *template.Matcher, r *Response) bool {
	if m.RedirectURL == "" || !r.IsRedirect() {
		return false
	}
	return r.Header.Get("Location") == m.RedirectURL
}

func matchSubdomain(m *template.Matcher, r *Response) bool {
	host := r.Hostname()
	if m.Subdomain == "" || host == "" {
		return false
	}
	label, _, _ := strings.Cut(host, ".")
	return label == m.Subdomain
}

func matchCookies(m *template.Matcher, r *Response) bool {
	if len(m.Cookies) == 0 {
		return false
	}
	for name, want := range m.Cookies {
		got, ok := r.Cookies[name]
		if !ok || got != want {
			return false
		}
	}
	return true
}

func matchTime(m *template.Matcher, r *Response) bool {
	if m.MaxSeconds == nil {
		return true
	}
	return r.Elapsed.Seconds() <= *m.MaxSeconds
}
