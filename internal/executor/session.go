package executor

import (
	"sync"

	"go.uber.org/zap"
)

// Session carries per-scan state shared by executors: the logger and the set
// of diagnostics already reported. Each scan gets its own Session so
// concurrent scans do not suppress each other's warnings.
type Session struct {
	logger *zap.Logger
	target string

	mu     sync.Mutex
	warned map[string]struct{}
}

// NewSession creates a session for one scan of target.
func NewSession(logger *zap.Logger, target string) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		logger: logger.With(zap.String("target", target)),
		target: target,
		warned: make(map[string]struct{}),
	}
}

// Logger returns the session logger. A nil session logs nothing.
func (s *Session) Logger() *zap.Logger {
	if s == nil {
		return zap.NewNop()
	}
	return s.logger
}

// Target returns the normalized target of the scan.
func (s *Session) Target() string {
	if s == nil {
		return ""
	}
	return s.target
}

// Warn logs msg at warn level the first time key is seen and at debug level
// afterwards.
func (s *Session) Warn(key, msg string, fields ...zap.Field) {
	if s == nil {
		return
	}
	if s.firstTime(key) {
		s.logger.Warn(msg, fields...)
		return
	}
	s.logger.Debug(msg, fields...)
}

func (s *Session) firstTime(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.warned[key]; seen {
		return false
	}
	s.warned[key] = struct{}{}
	return true
}
