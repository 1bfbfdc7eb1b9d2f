// Package coordinator implements the campaign workflow state machine:
// Planner, bounded Writer/Reviewer refinement, Publisher, and the human
// approval gate, with cancellation safe at every suspension point.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/campflow/campflow/internal/agents"
	"github.com/campflow/campflow/internal/history"
	"github.com/campflow/campflow/internal/loop"
	"github.com/campflow/campflow/pkg/api"
)

// Config describes how to construct a Coordinator.
type Config struct {
	// Port invokes the agent backends. Required.
	Port api.AgentPort

	// Sink receives the ordered event stream. Defaults to a discard sink.
	Sink api.EventSink

	// History retains published packages. Defaults to an in-memory store.
	History api.HistoryStore

	// Observer receives lifecycle callbacks. Defaults to NoopObserver.
	Observer api.Observer
}

// Coordinator owns at most one active Run at a time and mutates it
// exclusively; concurrent triggers are serialized against its state.
type Coordinator struct {
	port     api.AgentPort
	sink     api.EventSink
	history  api.HistoryStore
	observer api.Observer

	mu     sync.Mutex
	run    *run
	nextID int64

	emitMu sync.Mutex
	seq    int64
}

type run struct {
	id         string
	req        api.CampaignRequest
	phase      api.Phase
	plan       string
	draft      string
	feedback   string
	iterations int
	decision   *api.ReviewDecision
	pkg        *api.PublishedPackage

	// committing is set once an approval has been consumed; from that point
	// the publication commit wins against any concurrent Cancel.
	committing bool

	cancel     context.CancelFunc
	feedbackCh chan string
	approvalCh chan approval
	done       chan struct{}
}

type approval struct {
	approved bool
	note     string
}

var _ api.Coordinator = (*Coordinator)(nil)

// New validates cfg and returns a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Port == nil {
		return nil, errors.New("agent port is required")
	}
	sink := cfg.Sink
	if sink == nil {
		sink = api.SinkFunc(func(api.Event) {})
	}
	hist := cfg.History
	if hist == nil {
		hist = history.NewMemoryStore()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &Coordinator{
		port:     cfg.Port,
		sink:     sink,
		history:  hist,
		observer: obs,
	}, nil
}

// History exposes the coordinator's history store for read-side queries.
func (c *Coordinator) History() api.HistoryStore { return c.history }

// Start validates the request and launches a new run. The run executes on
// its own goroutine; progress is reported through the sink. The passed ctx
// only scopes validation: the run itself outlives the caller and stops via
// Cancel or a terminal transition.
func (c *Coordinator) Start(ctx context.Context, req api.CampaignRequest) (string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.run != nil && !c.run.phase.Terminal() {
		c.mu.Unlock()
		return "", api.ErrRunActive
	}
	c.nextID++
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		id:         fmt.Sprintf("run-%d", c.nextID),
		req:        req,
		phase:      api.PhasePlanning,
		cancel:     cancel,
		feedbackCh: make(chan string, 1),
		approvalCh: make(chan approval, 1),
		done:       make(chan struct{}),
	}
	c.run = r
	status := snapshotLocked(r)
	c.mu.Unlock()

	c.observer.OnRunStart(runCtx, status)
	c.emit(r, api.KindStatus, api.StatusPayload{
		Phase:   api.PhasePlanning,
		Code:    api.CodeStarted,
		Message: "Planning campaign strategy.",
	})

	go c.execute(runCtx, r)
	return r.id, nil
}

// HumanFeedback resumes a run parked at the human-feedback suspension point.
func (c *Coordinator) HumanFeedback(message string) error {
	c.mu.Lock()
	r := c.run
	if r == nil {
		c.mu.Unlock()
		return api.ErrNoActiveRun
	}
	if r.phase != api.PhaseAwaitingHumanFeedback {
		c.mu.Unlock()
		return api.ErrInvalidTransition
	}
	c.mu.Unlock()

	select {
	case r.feedbackCh <- message:
		return nil
	default:
		// Feedback already pending; the run has not consumed it yet.
		return api.ErrInvalidTransition
	}
}

// Approve resolves the approval gate. approved publishes the run; !approved
// holds it in AwaitingApproval until a later decision or cancellation.
func (c *Coordinator) Approve(approved bool, note string) error {
	c.mu.Lock()
	r := c.run
	if r == nil {
		c.mu.Unlock()
		return api.ErrNoActiveRun
	}
	if r.phase != api.PhaseAwaitingApproval || r.committing {
		c.mu.Unlock()
		return api.ErrInvalidTransition
	}
	c.mu.Unlock()

	select {
	case r.approvalCh <- approval{approved: approved, note: note}:
		return nil
	default:
		return api.ErrInvalidTransition
	}
}

// Cancel moves the active run to Cancelled. Any in-flight agent call's
// eventual result is discarded; the run emits nothing further.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	r := c.run
	if r == nil {
		c.mu.Unlock()
		return api.ErrNoActiveRun
	}
	if r.phase.Terminal() || r.committing {
		c.mu.Unlock()
		return api.ErrInvalidTransition
	}
	from := r.phase
	r.phase = api.PhaseCancelled
	status := snapshotLocked(r)
	c.mu.Unlock()

	c.emit(r, api.KindStatus, api.StatusPayload{
		Phase:   from,
		Code:    api.CodeCancelled,
		Message: "Workflow cancelled.",
	})
	r.cancel()
	c.observer.OnPhase(context.Background(), status, from)
	return nil
}

// Snapshot returns the current run's status, if a run exists.
func (c *Coordinator) Snapshot() (api.RunStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return api.RunStatus{}, false
	}
	return snapshotLocked(c.run), true
}

// Done returns a channel closed when the current run's goroutine exits.
// It is primarily useful to tests and graceful shutdown.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.run.done
}

// execute drives one run from Planning to a terminal phase.
func (c *Coordinator) execute(ctx context.Context, r *run) {
	defer close(r.done)
	defer r.cancel()

	plan, err := c.invoke(ctx, r, api.RolePlanner, agents.PlannerPrompt(r.req))
	if err != nil {
		c.fail(ctx, r, err)
		return
	}
	c.mu.Lock()
	r.plan = plan
	c.mu.Unlock()
	c.emitLive(r, api.KindAgentMessage, api.AgentMessagePayload{Agent: api.RolePlanner, Content: plan})

	if !c.setPhase(ctx, r, api.PhaseReviewing) {
		return
	}

	ctl := loop.New(
		func(ctx context.Context, role api.Role, prompt api.Prompt) (string, error) {
			return c.invoke(ctx, r, role, prompt)
		},
		func(kind api.Kind, payload any) {
			c.emitLive(r, kind, payload)
		},
	)

	out, err := ctl.Converge(ctx, plan, 1, r.req.LoopLimit, "", "")
	if err != nil {
		c.fail(ctx, r, err)
		return
	}
	c.record(r, out)

	// Forced exit: park for human feedback, then grant one additional
	// bounded iteration per escalation. A rejected extra pass re-escalates.
	for !out.Converged {
		if !c.setPhase(ctx, r, api.PhaseAwaitingHumanFeedback) {
			return
		}
		c.emitLive(r, api.KindNeedsHuman, api.NeedsHumanPayload{
			Message:  "Writer and Reviewer could not align. Human input required.",
			Draft:    out.Draft,
			Feedback: out.Feedback,
		})

		var note string
		select {
		case <-ctx.Done():
			return
		case note = <-r.feedbackCh:
		}

		if !c.setPhase(ctx, r, api.PhaseReviewing) {
			return
		}
		c.emitLive(r, api.KindStatus, api.StatusPayload{
			Phase:   api.PhaseReviewing,
			Code:    api.CodeResumed,
			Message: "Human feedback received.",
		})

		next := out.Iterations + 1
		out, err = ctl.Converge(ctx, plan, next, next, out.Feedback, note)
		if err != nil {
			c.fail(ctx, r, err)
			return
		}
		c.record(r, out)
	}

	if !c.setPhase(ctx, r, api.PhasePublishing) {
		return
	}
	c.emitLive(r, api.KindStatus, api.StatusPayload{
		Phase:   api.PhasePublishing,
		Code:    api.CodeStarted,
		Message: "Publisher preparing release.",
	})

	pkgText, err := c.invoke(ctx, r, api.RolePublisher, agents.PublisherPrompt(out.Draft))
	if err != nil {
		c.fail(ctx, r, err)
		return
	}
	c.emitLive(r, api.KindAgentMessage, api.AgentMessagePayload{Agent: api.RolePublisher, Content: pkgText})

	if !c.setPhase(ctx, r, api.PhaseAwaitingApproval) {
		return
	}
	c.emitLive(r, api.KindNeedsApproval, api.NeedsApprovalPayload{
		Message: "Review the final package and approve to publish.",
		Draft:   out.Draft,
		Package: pkgText,
	})

	for {
		select {
		case <-ctx.Done():
			return
		case a := <-r.approvalCh:
			if !a.approved {
				c.emitLive(r, api.KindWorkflowEvent, api.WorkflowEventPayload{
					Phase:   "approval",
					Event:   api.CodeHeld,
					Details: a.note,
				})
				continue
			}
			if !c.beginCommit(r) {
				return
			}
			c.finalize(ctx, r, out.Draft, pkgText, a.note)
			return
		}
	}
}

// invoke runs one agent call on its own goroutine so that a cancelled run
// abandons the call at the suspension point. A result arriving after
// cancellation is discarded and never applied to the run.
func (c *Coordinator) invoke(ctx context.Context, r *run, role api.Role, prompt api.Prompt) (string, error) {
	status := c.status(r)
	c.observer.OnAgentCallStart(ctx, status, role)
	start := time.Now()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := c.port.Invoke(ctx, role, prompt)
		ch <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if ctx.Err() != nil {
			// Cancelled while the result was in flight; drop it.
			return "", ctx.Err()
		}
		c.observer.OnAgentCallCompleted(ctx, status, role, res.err, time.Since(start))
		if res.err != nil {
			var ae *api.AgentError
			if errors.As(res.err, &ae) {
				return "", res.err
			}
			return "", api.NewAgentError(role, res.err)
		}
		return res.text, nil
	}
}

// beginCommit marks the approval as consumed. From here on Cancel and further
// approvals are rejected; the publication either completes or fails the run.
func (c *Coordinator) beginCommit(r *run) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.phase.Terminal() {
		return false
	}
	r.committing = true
	return true
}

func (c *Coordinator) finalize(ctx context.Context, r *run, draft, pkgText, note string) {
	now := time.Now().UTC()
	pkg := api.PublishedPackage{
		// The run id suffix keeps ids unique even when two runs publish
		// within the clock's resolution.
		ID:        strings.ReplaceAll(now.Format("20060102150405.000000000"), ".", "") + "-" + r.id,
		Name:      "Campaign " + now.Format("2006-01-02 15:04:05"),
		CreatedAt: now,
		Content:   pkgText,
		Note:      note,
	}

	if err := c.history.Append(ctx, pkg); err != nil {
		c.fail(ctx, r, fmt.Errorf("record published package: %w", err))
		return
	}

	c.mu.Lock()
	r.pkg = &pkg
	c.mu.Unlock()

	c.emitLive(r, api.KindFinalOutput, api.FinalOutputPayload{
		ID:      pkg.ID,
		Name:    pkg.Name,
		Time:    pkg.CreatedAt,
		Draft:   draft,
		Package: pkgText,
	})
	if !c.setPhase(ctx, r, api.PhasePublished) {
		return
	}
	c.emitLive(r, api.KindPublished, api.PublishedPayload{Message: "Publish package ready."})
	c.observer.OnRunCompleted(ctx, c.status(r))
}

// fail moves the run to Failed and emits its single error event. A run that
// is already terminal (for example cancelled during the failing call) is
// left untouched.
func (c *Coordinator) fail(ctx context.Context, r *run, err error) {
	c.mu.Lock()
	if r.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	from := r.phase
	r.phase = api.PhaseFailed
	status := snapshotLocked(r)
	c.mu.Unlock()

	msg := "Workflow failed."
	var ae *api.AgentError
	if errors.As(err, &ae) {
		msg = fmt.Sprintf("Agent %s invocation failed.", ae.Role)
	}
	c.emit(r, api.KindError, api.ErrorPayload{Message: msg, Details: err.Error()})
	c.observer.OnPhase(ctx, status, from)
	c.observer.OnRunFailed(ctx, status, err)
}

// setPhase advances the run unless it already reached a terminal phase,
// which keeps a concurrent cancellation absorbing.
func (c *Coordinator) setPhase(ctx context.Context, r *run, phase api.Phase) bool {
	c.mu.Lock()
	if r.phase.Terminal() {
		c.mu.Unlock()
		return false
	}
	from := r.phase
	r.phase = phase
	status := snapshotLocked(r)
	c.mu.Unlock()

	c.observer.OnPhase(ctx, status, from)
	return true
}

func (c *Coordinator) record(r *run, out loop.Outcome) {
	c.mu.Lock()
	r.draft = out.Draft
	r.feedback = out.Feedback
	r.iterations = out.Iterations
	decision := out.Decision
	r.decision = &decision
	c.mu.Unlock()
}

func (c *Coordinator) status(r *run) api.RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshotLocked(r)
}

// emitLive emits unless the run was cancelled or failed, so a cancelled run's
// trailing activity never reaches observers. The phase is rechecked under the
// emit lock: Cancel sets the phase before emitting its status event, so any
// emission serialized after it observes the terminal phase and is dropped.
func (c *Coordinator) emitLive(r *run, kind api.Kind, payload any) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	live := !r.phase.Terminal() || r.phase == api.PhasePublished
	c.mu.Unlock()
	if !live {
		return
	}
	c.emitLocked(r, kind, payload)
}

func (c *Coordinator) emit(r *run, kind api.Kind, payload any) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.emitLocked(r, kind, payload)
}

// emitLocked requires emitMu. Holding the lock across sequence assignment and
// delivery keeps observed order equal to sequence order; sinks are
// non-blocking by contract, so this never stalls a run.
func (c *Coordinator) emitLocked(r *run, kind api.Kind, payload any) {
	c.seq++
	c.sink.Emit(api.Event{
		Seq:     c.seq,
		At:      time.Now(),
		RunID:   r.id,
		Kind:    kind,
		Payload: payload,
	})
}

func snapshotLocked(r *run) api.RunStatus {
	status := api.RunStatus{
		ID:         r.id,
		Phase:      r.phase,
		Request:    r.req,
		Draft:      r.draft,
		Iterations: r.iterations,
	}
	if r.decision != nil {
		d := *r.decision
		status.Decision = &d
	}
	return status
}
