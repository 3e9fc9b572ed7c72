// Package logging configures the process's structured logger and carries
// the rate-limited warning helper used across the core for conditions that
// can otherwise spam (real-time overruns, missing real->sim mappings),
// ported from aerosim-world's logging.rs.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// New builds a text-handler logger writing to stdout, and optionally also
// to a file, mirroring the upstream log4rs stdout+file appender pair
// (aerosim-world/src/logging.rs). level follows slog's convention.
func New(level slog.Level, logFile string) (*slog.Logger, error) {
	var w io.Writer = os.Stdout
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stdout, f)
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h), nil
}

// RateLimiter suppresses repeated warnings to at most once per window,
// ported from the upstream's warn_rate_limited helper.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
	logger *slog.Logger
}

// NewRateLimiter builds a RateLimiter emitting through slog.Default() at
// most once per window.
func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{window: window, logger: slog.Default()}
}

// WithLogger overrides the logger used for Warn calls.
func (r *RateLimiter) WithLogger(l *slog.Logger) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
	return r
}

// Warn logs msg at warn level, dropping the call if one already fired
// within the current window.
func (r *RateLimiter) Warn(msg string, args ...any) {
	r.mu.Lock()
	now := time.Now()
	if !r.last.IsZero() && now.Sub(r.last) < r.window {
		r.mu.Unlock()
		return
	}
	r.last = now
	logger := r.logger
	r.mu.Unlock()
	logger.Warn(msg, args...)
}
