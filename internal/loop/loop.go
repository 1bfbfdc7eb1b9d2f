// Package loop drives the bounded Writer/Reviewer refinement exchange.
//
// The controller produces drafts and review decisions and reports whether
// the loop converged; phase transitions remain the coordinator's job.
package loop

import (
	"context"

	"github.com/campflow/campflow/internal/agents"
	"github.com/campflow/campflow/pkg/api"
)

// EmitFunc publishes one workflow event on behalf of the controller. The
// coordinator supplies it so that sequence numbers and run ids stay in one
// place.
type EmitFunc func(kind api.Kind, payload any)

// Invoker runs one agent call. The coordinator supplies its own wrapper so
// cancellation and observer callbacks apply to loop-issued calls too.
type Invoker func(ctx context.Context, role api.Role, prompt api.Prompt) (string, error)

// Controller runs writer/reviewer iterations against an agent port.
type Controller struct {
	invoke Invoker
	emit   EmitFunc
}

// New creates a Controller.
func New(invoke Invoker, emit EmitFunc) *Controller {
	return &Controller{invoke: invoke, emit: emit}
}

// Outcome summarizes a convergence attempt.
type Outcome struct {
	// Draft is the last writer draft, converged or not.
	Draft string

	// Feedback is the reviewer feedback on the last iteration.
	Feedback string

	// Iterations is the total number of iterations run so far, counting
	// from the start of the run (not of this attempt).
	Iterations int

	// Decision is the last review decision.
	Decision api.ReviewDecision

	// Converged is true when the reviewer approved within the budget.
	Converged bool
}

// Converge runs Writer then Reviewer iterations from iteration start up to
// and including iteration limit, feeding each rejection's feedback into the
// next writer prompt. The limit is inclusive: approval on the final allowed
// iteration converges. When the budget is spent without approval, the last
// decision is marked Forced and the outcome is not converged.
//
// humanNote, when non-empty, is threaded into the first writer prompt of
// this attempt (the post-escalation pass).
func (c *Controller) Converge(ctx context.Context, plan string, start, limit int, priorFeedback, humanNote string) (Outcome, error) {
	out := Outcome{Feedback: priorFeedback, Iterations: start - 1}

	for iter := start; iter <= limit; iter++ {
		note := ""
		if iter == start {
			note = humanNote
		}

		draft, err := c.invoke(ctx, api.RoleWriter, agents.WriterPrompt(plan, out.Feedback, note))
		if err != nil {
			return out, err
		}
		out.Draft = draft
		out.Iterations = iter
		c.emit(api.KindAgentMessage, api.AgentMessagePayload{Agent: api.RoleWriter, Content: draft})

		review, err := c.invoke(ctx, api.RoleReviewer, agents.ReviewerPrompt(draft))
		if err != nil {
			return out, err
		}
		c.emit(api.KindAgentMessage, api.AgentMessagePayload{Agent: api.RoleReviewer, Content: review})

		decision := agents.ParseVerdict(review)
		decision.Iteration = iter
		if !decision.Approved && iter == limit {
			decision.Forced = true
		}
		out.Decision = decision
		out.Feedback = decision.Feedback
		c.emit(api.KindReviewDecision, decision)

		if decision.Approved {
			out.Converged = true
			return out, nil
		}
	}

	return out, nil
}
