package api

import "time"

// Kind identifies a workflow event delivered to observers.
type Kind string

const (
	KindSystem           Kind = "system"
	KindStatus           Kind = "status"
	KindAgentMessage     Kind = "agent_message"
	KindReviewDecision   Kind = "review_decision"
	KindNeedsHuman       Kind = "needs_human"
	KindNeedsApproval    Kind = "needs_approval"
	KindFinalOutput      Kind = "final_output"
	KindPublished        Kind = "published"
	KindPublishedHistory Kind = "published_history"
	KindWorkflowEvent    Kind = "workflow_event"
	KindError            Kind = "error"
)

// StatusCode is the enumerated state carried by status events. The
// coordinator and sinks share these codes; consumers must not inspect
// free-text messages to detect state.
type StatusCode string

const (
	CodeStarted   StatusCode = "started"
	CodeCompleted StatusCode = "completed"
	CodeResumed   StatusCode = "resumed"
	CodeHeld      StatusCode = "held"
	CodeCancelled StatusCode = "cancelled"
	CodeFailed    StatusCode = "failed"
)

// Event is one ordered unit of workflow output. Seq is assigned at emission
// and total order equals emission order for a given run. Events are never
// mutated after creation.
type Event struct {
	Seq     int64     `json:"seq"`
	At      time.Time `json:"at"`
	RunID   string    `json:"run_id,omitempty"`
	Kind    Kind      `json:"type"`
	Payload any       `json:"payload"`
}

// SystemPayload carries startup and connection information.
type SystemPayload struct {
	Message string `json:"message"`
}

// StatusPayload reports a phase transition or progress note.
type StatusPayload struct {
	Phase   Phase      `json:"phase"`
	Code    StatusCode `json:"code"`
	Message string     `json:"message"`
}

// AgentMessagePayload carries one agent's full text response.
type AgentMessagePayload struct {
	Agent   Role   `json:"agent"`
	Content string `json:"content"`
}

// NeedsHumanPayload announces the human-feedback suspension point.
type NeedsHumanPayload struct {
	Message  string `json:"message"`
	Draft    string `json:"draft"`
	Feedback string `json:"feedback,omitempty"`
}

// NeedsApprovalPayload announces the approval gate.
type NeedsApprovalPayload struct {
	Message string `json:"message"`
	Draft   string `json:"draft"`
	Package string `json:"publish_package"`
}

// FinalOutputPayload carries the recorded package at publication.
type FinalOutputPayload struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Time    time.Time `json:"time"`
	Draft   string    `json:"draft"`
	Package string    `json:"publish_package"`
}

// PublishedPayload is the terminal publication notice.
type PublishedPayload struct {
	Message string `json:"message"`
}

// PublishedHistoryPayload lists previously published packages.
type PublishedHistoryPayload struct {
	Items []PublishedPackage `json:"items"`
}

// WorkflowEventPayload reports sub-workflow activity such as a held approval.
type WorkflowEventPayload struct {
	Phase   string     `json:"phase"`
	Event   StatusCode `json:"event"`
	Details string     `json:"details,omitempty"`
}

// ErrorPayload is the single terminal failure report for a run.
type ErrorPayload struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// EventSink is the append-only channel through which the coordinator reports
// workflow progress.
//
// Emit must never block workflow progress: implementations that buffer for a
// slow consumer drop rather than stall.
type EventSink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }
