package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the coordinator for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay the workflow.
type Observer interface {
	// OnRunStart is called once when a run is accepted, before the Planner
	// is invoked.
	OnRunStart(ctx context.Context, status RunStatus)

	// OnPhase is called on every phase transition, including the terminal ones.
	OnPhase(ctx context.Context, status RunStatus, from Phase)

	// OnAgentCallStart is called before an agent invocation.
	OnAgentCallStart(ctx context.Context, status RunStatus, role Role)

	// OnAgentCallCompleted is called after an agent invocation returns, for
	// both successes and failures (err != nil). Discarded late results of a
	// cancelled run do not produce a callback.
	OnAgentCallCompleted(ctx context.Context, status RunStatus, role Role, err error, duration time.Duration)

	// OnRunCompleted is called when a run reaches Published.
	OnRunCompleted(ctx context.Context, status RunStatus)

	// OnRunFailed is called when a run transitions to Failed.
	OnRunFailed(ctx context.Context, status RunStatus, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, status RunStatus)                 {}
func (NoopObserver) OnPhase(ctx context.Context, status RunStatus, from Phase)        {}
func (NoopObserver) OnAgentCallStart(ctx context.Context, status RunStatus, r Role)   {}
func (NoopObserver) OnRunCompleted(ctx context.Context, status RunStatus)             {}
func (NoopObserver) OnRunFailed(ctx context.Context, status RunStatus, err error)     {}
func (NoopObserver) OnAgentCallCompleted(ctx context.Context, status RunStatus, r Role, err error, d time.Duration) {
}

// CompositeObserver fans out callbacks to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards callbacks to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, status RunStatus) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, status)
	}
}

func (c *CompositeObserver) OnPhase(ctx context.Context, status RunStatus, from Phase) {
	for _, o := range c.observers {
		o.OnPhase(ctx, status, from)
	}
}

func (c *CompositeObserver) OnAgentCallStart(ctx context.Context, status RunStatus, role Role) {
	for _, o := range c.observers {
		o.OnAgentCallStart(ctx, status, role)
	}
}

func (c *CompositeObserver) OnAgentCallCompleted(ctx context.Context, status RunStatus, role Role, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnAgentCallCompleted(ctx, status, role, err, d)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, status RunStatus) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, status)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, status RunStatus, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, status, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run and agent-call
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, status RunStatus) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("run_id", status.ID),
		slog.Int("loop_limit", status.Request.LoopLimit),
	)
}

func (o *LoggingObserver) OnPhase(ctx context.Context, status RunStatus, from Phase) {
	o.Logger.InfoContext(ctx, "run_phase",
		slog.String("run_id", status.ID),
		slog.String("from", string(from)),
		slog.String("phase", string(status.Phase)),
	)
}

func (o *LoggingObserver) OnAgentCallStart(ctx context.Context, status RunStatus, role Role) {
	o.Logger.DebugContext(ctx, "agent_call_start",
		slog.String("run_id", status.ID),
		slog.String("agent", string(role)),
		slog.Int("iteration", status.Iterations),
	)
}

func (o *LoggingObserver) OnAgentCallCompleted(ctx context.Context, status RunStatus, role Role, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "agent_call_completed",
		slog.String("run_id", status.ID),
		slog.String("agent", string(role)),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, status RunStatus) {
	o.Logger.InfoContext(ctx, "run_published",
		slog.String("run_id", status.ID),
		slog.Int("iterations", status.Iterations),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, status RunStatus, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("run_id", status.ID),
		slog.String("phase", string(status.Phase)),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate agent-call durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted       atomic.Int64
	runsPublished     atomic.Int64
	runsFailed        atomic.Int64
	agentCalls        atomic.Int64
	totalCallDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsPublished int64
	RunsFailed    int64
	ActiveRuns    int64

	AgentCalls      int64
	AvgCallDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, status RunStatus) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, status RunStatus) {
	m.runsPublished.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, status RunStatus, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnAgentCallCompleted(ctx context.Context, status RunStatus, role Role, err error, d time.Duration) {
	// Only count successful calls for the average duration.
	if err == nil {
		m.agentCalls.Add(1)
		m.totalCallDuration.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
//
// ActiveRuns counts runs that are neither published nor failed; it includes
// cancelled runs, which terminate without either callback.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	published := m.runsPublished.Load()
	failed := m.runsFailed.Load()
	calls := m.agentCalls.Load()
	totalNs := m.totalCallDuration.Load()

	var avg time.Duration
	if calls > 0 {
		avg = time.Duration(totalNs / calls)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsPublished:   published,
		RunsFailed:      failed,
		ActiveRuns:      started - published - failed,
		AgentCalls:      calls,
		AvgCallDuration: avg,
	}
}
