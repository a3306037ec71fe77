// Package placeholder parses scan targets and substitutes template variables.
//
// Everything here is pure: no network access, no failure modes. Placeholders
// that cannot be resolved are left as literal text so template authoring
// mistakes show up as visibly broken URLs.
package placeholder

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original string // Original target string
	Scheme   string // http or https (defaults to http)
	Host     string // Hostname (without protocol, path, port)
	Port     string // Port if specified
	Path     string // Path if specified
	FullURL  string // Scheme-qualified URL without trailing slashes
}

// ParseTarget parses a target string into structured components.
// This handles various input formats:
//   - example.com
//   - http://example.com
//   - https://example.com:443/path
//   - example.com:8080
func ParseTarget(target string) *TargetInfo {
	target = strings.TrimSpace(target)
	info := &TargetInfo{
		Original: target,
	}

	parsed, err := url.Parse(target)

	// A missing scheme, or one that is really a host ("example.com:8080" parses
	// with scheme "example.com"), gets the http default.
	if err != nil || parsed.Scheme == "" || parsed.Host == "" || strings.Contains(parsed.Scheme, ".") {
		parsed, err = url.Parse("http://" + target)
	}

	if err == nil && parsed != nil {
		info.Scheme = strings.ToLower(parsed.Scheme)
		info.Host = parsed.Hostname()
		info.Port = parsed.Port()
		info.Path = parsed.Path
		parsed.Scheme = info.Scheme
		info.FullURL = strings.TrimRight(parsed.String(), "/")
	}

	// Fallback: if URL parsing completely failed, extract host manually
	if info.Host == "" {
		host := target
		host = strings.TrimPrefix(host, "http://")
		host = strings.TrimPrefix(host, "https://")
		host = strings.Split(host, "/")[0]
		parts := strings.Split(host, ":")
		info.Host = parts[0]
		if len(parts) > 1 {
			info.Port = parts[1]
		}
		if info.Scheme == "" {
			info.Scheme = "http"
		}
		info.FullURL = strings.TrimRight(info.Scheme+"://"+host, "/")
	}

	return info
}

// HostPort returns host[:port] as written in the target.
func (t *TargetInfo) HostPort() string {
	if t.Port == "" {
		return t.Host
	}
	return net.JoinHostPort(t.Host, t.Port)
}

// RootURL returns scheme://host[:port] without any path.
func (t *TargetInfo) RootURL() string {
	return t.Scheme + "://" + t.HostPort()
}

// RootDomain returns the registrable domain (eTLD+1) of the host. IPs and
// hosts the public suffix list cannot split are returned unchanged.
func (t *TargetInfo) RootDomain() string {
	if t.Host == "" || net.ParseIP(t.Host) != nil {
		return t.Host
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(strings.TrimSuffix(t.Host, "."))
	if err != nil {
		return t.Host
	}
	return root
}

// NormalizeTarget returns the scheme-qualified target without trailing slashes.
func NormalizeTarget(target string) string {
	return ParseTarget(target).FullURL
}
