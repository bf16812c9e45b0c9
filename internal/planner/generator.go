package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/goal"
)

// Request is what a [Transport] sends to the plan generator.
type Request struct {
	RequestID uuid.UUID
	// UserGoals is the consolidated goal description the plan is generated for.
	UserGoals string
	// Prompt is the full prompt from [BuildPrompt].
	Prompt string
	// SystemPrompt frames the generator's role for transports that support it.
	SystemPrompt string
}

// Transport performs a single request to the plan generator and returns the raw reply envelope.
//
// Implementations classify their failures as [*NetworkError], [*ServiceError] or [*RateLimitError] and must honor
// ctx cancellation.
type Transport interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// TransportFunc adapts a function to [Transport].
type TransportFunc func(ctx context.Context, req Request) ([]byte, error)

func (f TransportFunc) Generate(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

const defaultTimeout = 60 * time.Second

// Options configure a [Generator].
type Options struct {
	// Timeout bounds a single generation. Zero means 60 seconds.
	Timeout time.Duration
	// Strict additionally requires two valid selections before generating.
	Strict bool
	// Now defaults to time.Now.
	Now func() time.Time
	// OnTimeout is called when a generation times out.
	OnTimeout func(ctx context.Context)
}

// Generator runs plan generations with at most one generation in flight per session. Starting a generation for a
// session cancels the previous one, which then fails with [ErrSuperseded] and discards its result.
type Generator struct {
	transport Transport
	logger    *slog.Logger
	timeout   time.Duration
	strict    bool
	now       func() time.Time
	onTimeout func(ctx context.Context)

	mu       sync.Mutex
	inflight map[string]*generation
}

type generation struct {
	id     uuid.UUID
	cancel context.CancelCauseFunc
}

// NewGenerator creates a generator that talks to the plan generator through transport.
func NewGenerator(transport Transport, logger *slog.Logger, opts Options) *Generator {
	g := &Generator{
		transport: transport,
		logger:    logger,
		timeout:   opts.Timeout,
		strict:    opts.Strict,
		now:       opts.Now,
		onTimeout: opts.OnTimeout,
		mu:        sync.Mutex{},
		inflight:  make(map[string]*generation),
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.onTimeout == nil {
		g.onTimeout = func(context.Context) {}
	}
	return g
}

// CheckInput returns an [*InputError] when d is not sufficient for generation.
func (g *Generator) CheckInput(d goal.Data) error {
	if !d.IsSufficientForGeneration() {
		return &InputError{Issues: d.ValidationIssues()}
	}
	if g.strict && !d.MeetsStrictThreshold() {
		issues := append(d.ValidationIssues(), "Answer at least two of the profile questions.")
		return &InputError{Issues: issues}
	}
	return nil
}

// Generate creates a suggested plan for session from d with day 1 on start.
func (g *Generator) Generate(ctx context.Context, session string, d goal.Data, start time.Time) (Result, error) {
	if err := g.CheckInput(d); err != nil {
		return Result{}, err
	}

	req := Request{
		RequestID:    uuid.New(),
		UserGoals:    d.ConsolidatedDescription(),
		Prompt:       BuildPrompt(d),
		SystemPrompt: SystemPrompt,
	}
	ctx, done := g.begin(ctx, session, req.RequestID)
	defer done()

	logger := g.logger.With(slog.String("request_id", req.RequestID.String()), slog.String("session", session))
	logger.LogAttrs(ctx, slog.LevelInfo, "generating plan", slog.Int("prompt_length", len(req.Prompt)))
	begin := time.Now()

	timeoutCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	raw, err := g.transport.Generate(timeoutCtx, req)
	if errors.Is(context.Cause(ctx), ErrSuperseded) {
		logger.LogAttrs(ctx, slog.LevelInfo, "discarding superseded generation",
			slog.Duration("duration", time.Since(begin)))
		return Result{}, ErrSuperseded
	}
	if err != nil {
		if ctx.Err() == nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			g.onTimeout(ctx)
			var networkErr *NetworkError
			if !errors.As(err, &networkErr) || !networkErr.Timeout {
				err = &NetworkError{Timeout: true, Err: err}
			}
		}
		return Result{}, fmt.Errorf("generate plan: %w", err)
	}

	result, err := ParseResponse(raw, req.UserGoals, start, g.now())
	if err != nil {
		return Result{}, fmt.Errorf("parse generator reply: %w", err)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "generated plan",
		slog.Duration("duration", time.Since(begin)),
		slog.Int("decoded_days", result.Report.DecodedDays),
		slog.Int("padded_days", result.Report.PaddedDays),
		slog.Int("truncated_days", result.Report.TruncatedDays),
		slog.Int("rejected_exercises", len(result.Rejected)))
	for _, rejected := range result.Rejected {
		logger.LogAttrs(ctx, slog.LevelWarn, "rejected exercise", slog.String("reason", rejected.Error()))
	}
	return result, nil
}

// begin registers a generation for session and supersedes the previous one. The returned function unregisters it.
func (g *Generator) begin(ctx context.Context, session string, id uuid.UUID) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	current := &generation{id: id, cancel: cancel}

	g.mu.Lock()
	if previous, ok := g.inflight[session]; ok {
		previous.cancel(ErrSuperseded)
	}
	g.inflight[session] = current
	g.mu.Unlock()

	return ctx, func() {
		g.mu.Lock()
		if g.inflight[session] == current {
			delete(g.inflight, session)
		}
		g.mu.Unlock()
		cancel(nil)
	}
}

// InFlight reports whether a generation is running for session.
func (g *Generator) InFlight(session string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[session]
	return ok
}
