package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/khanhnv2901/seca-scan/internal/metrics"
	"go.uber.org/zap"
)

const metricsShutdownTimeout = 5 * time.Second

// metricsServer exposes a recorder on /metrics for the lifetime of a scan.
type metricsServer struct {
	httpServer *http.Server
	addr       string
	errs       chan error
	logger     *zap.Logger
}

// startMetricsServer binds addr synchronously so a bad address fails the
// command before any probe runs.
func startMetricsServer(addr string, recorder *metrics.Recorder, logger *zap.Logger) (*metricsServer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &metricsServer{
		httpServer: &http.Server{
			Handler:           withRequestID(mux, logger),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		addr:   ln.Addr().String(),
		errs:   make(chan error, 1),
		logger: logger,
	}

	go func() {
		s.errs <- s.httpServer.Serve(ln)
	}()

	logger.Info("metrics server listening", zap.String("addr", s.addr))
	return s, nil
}

// withRequestID tags every response with X-Request-ID, reusing the client's
// value when present, and logs the request at debug level.
func withRequestID(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		logger.Debug("metrics request",
			zap.String("request_id", requestID),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
		)
		next.ServeHTTP(w, r)
	})
}

// Addr returns the bound listen address.
func (s *metricsServer) Addr() string {
	return s.addr
}

// Shutdown stops the server gracefully, forcing it closed after a timeout.
func (s *metricsServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if closeErr := s.httpServer.Close(); closeErr != nil {
			return fmt.Errorf("failed to shutdown metrics server: %w (close error: %v)", err, closeErr)
		}
		return fmt.Errorf("failed to shutdown metrics server: %w", err)
	}

	if err := <-s.errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server error: %w", err)
	}
	return nil
}
