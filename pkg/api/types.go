package api

import (
	"context"
	"strings"
	"time"
)

// Role identifies one of the four agent bindings in the pipeline.
type Role string

const (
	RolePlanner   Role = "Planner"
	RoleWriter    Role = "Writer"
	RoleReviewer  Role = "Reviewer"
	RolePublisher Role = "Publisher"
)

// Prompt is the structured context handed to an agent invocation.
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Message is one prior exchange carried into a prompt.
type Message struct {
	Role    string
	Content string
}

// AgentPort is the capability boundary for agent backends: given a role and
// an assembled prompt, produce a text response or fail.
//
// Implementations must assume multi-second latency is normal and must honor
// ctx cancellation. The coordinator never issues concurrent calls to the
// same role.
type AgentPort interface {
	Invoke(ctx context.Context, role Role, prompt Prompt) (string, error)
}

// PortFunc adapts a function to the AgentPort interface.
type PortFunc func(ctx context.Context, role Role, prompt Prompt) (string, error)

func (f PortFunc) Invoke(ctx context.Context, role Role, prompt Prompt) (string, error) {
	return f(ctx, role, prompt)
}

// Phase is a Run's position in the workflow state machine.
type Phase string

const (
	PhasePlanning              Phase = "Planning"
	PhaseReviewing             Phase = "Reviewing"
	PhaseAwaitingHumanFeedback Phase = "AwaitingHumanFeedback"
	PhasePublishing            Phase = "Publishing"
	PhaseAwaitingApproval      Phase = "AwaitingApproval"
	PhasePublished             Phase = "Published"
	PhaseCancelled             Phase = "Cancelled"
	PhaseFailed                Phase = "Failed"
)

// Terminal reports whether a phase is absorbing: once entered, the Run
// accepts no further triggers and emits no further phase-advancing events.
func (p Phase) Terminal() bool {
	switch p {
	case PhasePublished, PhaseCancelled, PhaseFailed:
		return true
	}
	return false
}

// DefaultLoopLimit is the writer/reviewer iteration bound applied when a
// CampaignRequest does not set one.
const DefaultLoopLimit = 2

// CampaignRequest describes one campaign run. It is immutable once the
// run starts.
type CampaignRequest struct {
	Brief            string   `json:"brief" yaml:"brief"`
	Goal             string   `json:"goal" yaml:"goal"`
	Audience         string   `json:"audience" yaml:"audience"`
	Channels         []string `json:"channels" yaml:"channels"`
	Tone             string   `json:"tone" yaml:"tone"`
	BrandConstraints string   `json:"brand_constraints" yaml:"brandConstraints"`

	// LoopLimit bounds writer/reviewer iterations before human escalation.
	// Zero means DefaultLoopLimit.
	LoopLimit int `json:"loop_limit" yaml:"loopLimit"`
}

// Normalize fills defaulted fields in place.
func (r *CampaignRequest) Normalize() {
	if r.Goal == "" {
		r.Goal = "Increase awareness"
	}
	if r.Audience == "" {
		r.Audience = "General audience"
	}
	if len(r.Channels) == 0 {
		r.Channels = []string{"Email", "LinkedIn", "Web"}
	}
	if r.Tone == "" {
		r.Tone = "Confident, helpful"
	}
	if r.LoopLimit == 0 {
		r.LoopLimit = DefaultLoopLimit
	}
}

// Validate reports a ConfigurationError describing the first invalid field,
// or nil. Callers normalize first; validation is on the normalized request.
func (r CampaignRequest) Validate() error {
	if strings.TrimSpace(r.Brief) == "" {
		return &ConfigurationError{Field: "brief", Reason: "must not be empty"}
	}
	if len(r.Channels) == 0 {
		return &ConfigurationError{Field: "channels", Reason: "must list at least one channel"}
	}
	for _, ch := range r.Channels {
		if strings.TrimSpace(ch) == "" {
			return &ConfigurationError{Field: "channels", Reason: "must not contain empty entries"}
		}
	}
	if r.LoopLimit < 1 {
		return &ConfigurationError{Field: "loop_limit", Reason: "must be a positive integer"}
	}
	return nil
}

// ReviewDecision is the outcome of a single writer/reviewer iteration.
type ReviewDecision struct {
	Approved  bool   `json:"approved"`
	Feedback  string `json:"feedback,omitempty"`
	RiskNotes string `json:"risk_notes,omitempty"`

	// Iteration is the 1-based loop index that produced this decision.
	Iteration int `json:"loop"`

	// Forced is true when the loop limit was reached without approval and
	// the run escalated to a human instead of iterating further.
	Forced bool `json:"forced"`
}

// RunStatus is an immutable snapshot of the active Run.
type RunStatus struct {
	ID         string          `json:"id"`
	Phase      Phase           `json:"phase"`
	Request    CampaignRequest `json:"request"`
	Draft      string          `json:"draft,omitempty"`
	Iterations int             `json:"iterations"`
	Decision   *ReviewDecision `json:"decision,omitempty"`
}

// PublishedPackage is the immutable artifact recorded when a run is approved.
type PublishedPackage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"time"`
	Content   string    `json:"publish_package"`
	Note      string    `json:"note,omitempty"`
}

// HistoryStore retains published packages for later listing and retrieval.
//
// Implementations must tolerate concurrent reads while a finishing run
// appends its own record.
type HistoryStore interface {
	// Append records a package. IDs are unique per package.
	Append(ctx context.Context, pkg PublishedPackage) error

	// List returns up to limit packages, most recent first.
	// limit <= 0 applies the store default.
	List(ctx context.Context, limit int) ([]PublishedPackage, error)

	// Get returns the package with the given id, or ErrPackageNotFound.
	Get(ctx context.Context, id string) (PublishedPackage, error)
}

// Coordinator drives a single campaign run at a time through the workflow
// state machine, reporting every transition through its EventSink.
type Coordinator interface {
	// Start validates the request and launches a new run, returning its id.
	// It returns ErrRunActive while a non-terminal run exists.
	Start(ctx context.Context, req CampaignRequest) (string, error)

	// HumanFeedback resumes a run parked in AwaitingHumanFeedback.
	HumanFeedback(message string) error

	// Approve resolves the approval gate: approved publishes the run,
	// !approved holds it in AwaitingApproval.
	Approve(approved bool, note string) error

	// Cancel moves the active run to Cancelled from any non-terminal phase.
	// Late results from in-flight agent calls are discarded.
	Cancel() error

	// Snapshot returns the current run's status, if any run exists.
	Snapshot() (RunStatus, bool)
}
