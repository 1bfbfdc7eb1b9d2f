// Package campflow coordinates a fixed pipeline of content-generation
// agents into a reviewable, human-gated publishing workflow.
//
// A run moves a campaign brief through Planner, a bounded Writer/Reviewer
// refinement loop, Publisher, and a human approval gate before anything is
// considered published. The coordinator gives deterministic, cancellable
// control over the slow, fallible agent calls behind that pipeline.
//
// # Core Concepts
//
// The campflow programming model is intentionally small:
//
//  1. Coordinator
//  2. AgentPort
//  3. EventSink
//  4. HistoryStore
//  5. Observer
//
// # Coordinator
//
// The Coordinator owns at most one active run and sequences its phases:
//
//	Planning -> Reviewing -> (AwaitingHumanFeedback) -> Publishing ->
//	AwaitingApproval -> Published
//
// with Cancelled and Failed reachable from any non-terminal phase. Inbound
// triggers (start, human feedback, approval, cancel) are validated against
// the run's current suspension; mismatched triggers leave the run unchanged.
// The writer/reviewer loop is bounded: reaching the loop limit without
// reviewer approval escalates to a human instead of iterating further.
//
// # AgentPort
//
// An AgentPort invokes one of the four role bindings with an assembled
// prompt and returns text. The OpenAI-backed port talks to any
// chat-completions-compatible endpoint; the scripted port replays canned
// responses for tests and offline demos.
//
// # EventSink
//
// Every transition is reported as an ordered Event. Sinks never block
// workflow progress: the channel sink buffers for a streaming consumer and
// drops on overflow, the collector sink records everything for assertions.
//
// # HistoryStore
//
// Approved runs commit exactly one PublishedPackage. Memory and SQLite
// stores are provided; both support concurrent reads while the next run
// writes its own record.
//
// # Observer
//
// Observers receive run and agent-call lifecycle callbacks for logging
// (log/slog) and metrics, composable via NewCompositeObserver.
//
// For a runnable end-to-end walkthrough, see examples/demo.
package campflow
