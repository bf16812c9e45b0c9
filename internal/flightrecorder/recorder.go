// Package flightrecorder keeps a rolling runtime trace in memory and writes it to disk when a plan generation
// times out, so that slow generations can be inspected with go tool trace.
package flightrecorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync/atomic"
	"time"
)

const (
	defaultMinAge   = 5 * time.Minute
	defaultMaxBytes = 64 * 1024 * 1024
	defaultCooldown = 30 * time.Minute
)

// Recorder captures generation timeout traces. At most one trace is written per cooldown period.
type Recorder struct {
	logger    *slog.Logger
	recorder  *trace.FlightRecorder
	directory string
	minAge    time.Duration
	maxBytes  uint64
	cooldown  time.Duration
	now       func() time.Time
	// lastCapture is the Unix time of the last capture attempt.
	lastCapture atomic.Int64
}

// Config configures a [Recorder]. Zero values use the defaults.
type Config struct {
	Logger          *slog.Logger
	MinAge          time.Duration
	MaxBytes        uint64
	Cooldown        time.Duration
	TracesDirectory string
	Now             func() time.Time
}

// New creates a recorder writing to cfg.TracesDirectory, which is created if missing.
func New(cfg Config) (*Recorder, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.TracesDirectory == "" {
		return nil, errors.New("traces directory is required")
	}

	stat, err := os.Stat(cfg.TracesDirectory)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err = os.MkdirAll(cfg.TracesDirectory, 0o750); err != nil {
			return nil, fmt.Errorf("create traces directory: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat traces directory: %w", err)
	case !stat.IsDir():
		return nil, fmt.Errorf("traces path is not a directory: %s", cfg.TracesDirectory)
	}

	r := &Recorder{
		logger:      cfg.Logger,
		recorder:    nil,
		directory:   cfg.TracesDirectory,
		minAge:      cfg.MinAge,
		maxBytes:    cfg.MaxBytes,
		cooldown:    cfg.Cooldown,
		now:         cfg.Now,
		lastCapture: atomic.Int64{},
	}
	if r.minAge <= 0 {
		r.minAge = defaultMinAge
	}
	if r.maxBytes == 0 {
		r.maxBytes = defaultMaxBytes
	}
	if r.cooldown <= 0 {
		r.cooldown = defaultCooldown
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.recorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{
		MinAge:   r.minAge,
		MaxBytes: r.maxBytes,
	})
	return r, nil
}

// Start begins recording.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.recorder.Start(); err != nil {
		return fmt.Errorf("start flight recorder: %w", err)
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.Duration("min_age", r.minAge),
		slog.Uint64("max_bytes", r.maxBytes),
		slog.Duration("cooldown", r.cooldown))
	return nil
}

// Stop ends recording.
func (r *Recorder) Stop(ctx context.Context) {
	r.recorder.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// Run records until ctx is done.
func (r *Recorder) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	r.Stop(context.WithoutCancel(ctx))
	return nil
}

// CaptureGenerationTimeout writes the recorded trace to a file unless a trace was captured within the cooldown.
// It matches the OnTimeout hook of the plan generator.
func (r *Recorder) CaptureGenerationTimeout(ctx context.Context) {
	now := r.now()
	last := r.lastCapture.Load()
	if last > 0 {
		if since := now.Sub(time.Unix(last, 0)); since < r.cooldown {
			r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
				slog.Duration("remaining_cooldown", r.cooldown-since))
			return
		}
	}
	if !r.lastCapture.CompareAndSwap(last, now.Unix()) {
		return
	}
	if !r.recorder.Enabled() {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "flight recorder not running, no trace captured")
		return
	}

	path := filepath.Join(r.directory, fmt.Sprintf("generation-timeout-%s.trace", now.UTC().Format("20060102-150405")))
	n, err := r.writeTrace(path)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to capture trace",
			slog.String("file", path),
			slog.Any("error", err))
		return
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured generation timeout trace",
		slog.String("file", path),
		slog.Int64("bytes", n))
}

func (r *Recorder) writeTrace(path string) (_ int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create trace file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close trace file: %w", closeErr))
		}
	}()
	n, err := r.recorder.WriteTo(f)
	if err != nil {
		return n, fmt.Errorf("write trace: %w", err)
	}
	return n, nil
}
