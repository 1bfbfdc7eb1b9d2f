package api

import (
	"errors"
	"fmt"
)

var (
	// ErrRunActive is returned by Start while a non-terminal run exists.
	ErrRunActive = errors.New("a workflow run is already active")

	// ErrInvalidTransition is returned when an inbound trigger does not
	// match the run's current suspension. The run state is unchanged.
	ErrInvalidTransition = errors.New("trigger does not match current workflow phase")

	// ErrNoActiveRun is returned by triggers when no run exists at all.
	ErrNoActiveRun = errors.New("no active workflow run")

	// ErrPackageNotFound is returned by HistoryStore.Get for unknown ids.
	ErrPackageNotFound = errors.New("published package not found")
)

// AgentError reports a failed agent invocation: transport or process
// failure, authentication failure, or a malformed response. Agent failures
// are terminal for the run; the coordinator never retries them.
type AgentError struct {
	Role Role
	Err  error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Role, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// NewAgentError wraps err as an invocation failure for the given role.
func NewAgentError(role Role, err error) error {
	return &AgentError{Role: role, Err: err}
}

// ConfigurationError reports an invalid CampaignRequest field. Start rejects
// the request before creating any run.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid campaign request: %s %s", e.Field, e.Reason)
}
