package placeholder

import (
	"strings"
)

// Supported placeholders.
const (
	BaseURL    = "BaseURL"
	BaseDomain = "BaseDomain"
	RootURL    = "RootURL"
	RootDomain = "RootDomain"
	Hostname   = "Hostname"
	Host       = "Host"
	Port       = "Port"
	Scheme     = "Scheme"
)

// Variables returns every placeholder value derived from target.
func Variables(target string) map[string]string {
	info := ParseTarget(target)
	return map[string]string{
		BaseURL:    info.FullURL,
		BaseDomain: info.Host,
		RootURL:    info.RootURL(),
		RootDomain: info.RootDomain(),
		Hostname:   info.HostPort(),
		Host:       info.Host,
		Port:       info.Port,
		Scheme:     info.Scheme,
	}
}

// Expand replaces every {{Name}} occurrence with vars[Name]. Unknown names
// stay as literal text.
func Expand(input string, vars map[string]string) string {
	if !strings.Contains(input, "{{") {
		return input
	}
	out := input
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}

// Resolve substitutes URL placeholders ({{BaseURL}} and friends) against the
// target and collapses the duplicate slashes the substitution leaves behind.
//
//	Resolve("{{BaseURL}}/admin", "example.com") == "http://example.com/admin"
func Resolve(input, target string) string {
	return cleanSlashes(Expand(input, Variables(target)))
}

// ResolveDomain substitutes {{BaseDomain}} (and friends) for DNS queries,
// where only the bare hostname is wanted.
func ResolveDomain(input, target string) string {
	return strings.TrimSpace(Expand(input, Variables(target)))
}

// cleanSlashes collapses runs of "/" in the path part of a URL. The "//" after
// the scheme and anything after "?" or "#" are left untouched.
func cleanSlashes(raw string) string {
	prefix := ""
	rest := raw
	if idx := strings.Index(raw, "://"); idx >= 0 {
		prefix = raw[:idx+3]
		rest = raw[idx+3:]
	}

	suffix := ""
	if idx := strings.IndexAny(rest, "?#"); idx >= 0 {
		suffix = rest[idx:]
		rest = rest[:idx]
	}

	var b strings.Builder
	b.Grow(len(rest))
	prevSlash := false
	for _, r := range rest {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}

	return prefix + b.String() + suffix
}
