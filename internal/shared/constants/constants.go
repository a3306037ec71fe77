package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultProbeTimeout bounds every HTTP request, TLS handshake and DNS query.
	DefaultProbeTimeout = 10 * time.Second
	// IdleConnTimeout closes kept-alive probe connections that sat unused this long.
	IdleConnTimeout = 30 * time.Second
	// MaxIdleConnsPerHost bounds the kept-alive connections to one target.
	MaxIdleConnsPerHost = 16
	// MaxResponseBodyBytes caps how much of a response body is kept for matching.
	MaxResponseBodyBytes = 10 * 1024 * 1024
	// DefaultUserAgent is sent with every HTTP probe unless a template overrides it.
	DefaultUserAgent = "seca-scan/1.0 (+authorized testing only)"
	// DefaultNameserver is used when no resolver configuration can be read.
	DefaultNameserver = "8.8.8.8:53"
	// FindingsFileName is the per-run results file inside the results directory.
	FindingsFileName = "findings.json"
)
