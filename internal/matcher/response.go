package matcher

import (
	"net/http"
	"net/url"
	"time"
)

// Response is a captured probe result. Evaluators only read it.
type Response struct {
	StatusCode int
	Header     http.Header
	Cookies    map[string]string
	Body       string
	Elapsed    time.Duration
	URL        *url.URL // effective URL after any followed redirects
	Method     string   // request method as sent
}

// NewResponse captures resp. The body must already be read by the caller.
func NewResponse(resp *http.Response, body []byte, elapsed time.Duration) *Response {
	r := &Response{
		Body:    string(body),
		Elapsed: elapsed,
		Cookies: map[string]string{},
		Header:  http.Header{},
	}
	if resp == nil {
		return r
	}

	r.StatusCode = resp.StatusCode
	if resp.Header != nil {
		r.Header = resp.Header
	}
	for _, c := range resp.Cookies() {
		r.Cookies[c.Name] = c.Value
	}
	if resp.Request != nil {
		r.URL = resp.Request.URL
		r.Method = resp.Request.Method
	}
	return r
}

// IsRedirect reports a 3xx redirect status carrying a Location header.
func (r *Response) IsRedirect() bool {
	switch r.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return r.Header.Get("Location") != ""
	}
	return false
}

// Hostname returns the effective URL's host without port.
func (r *Response) Hostname() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
