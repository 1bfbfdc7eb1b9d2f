package campflow

import (
	"database/sql"

	"github.com/campflow/campflow/internal/agents"
	"github.com/campflow/campflow/internal/coordinator"
	"github.com/campflow/campflow/internal/history"
	"github.com/campflow/campflow/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Coordinator          = api.Coordinator
	CoordinatorConfig    = coordinator.Config
	CampaignRequest      = api.CampaignRequest
	RunStatus            = api.RunStatus
	ReviewDecision       = api.ReviewDecision
	PublishedPackage     = api.PublishedPackage
	Phase                = api.Phase
	Role                 = api.Role
	Prompt               = api.Prompt
	Message              = api.Message
	AgentPort            = api.AgentPort
	AgentSettings        = agents.Settings
	ScriptedPort         = agents.ScriptedPort
	Event                = api.Event
	Kind                 = api.Kind
	StatusCode           = api.StatusCode
	EventSink            = api.EventSink
	SinkFunc             = api.SinkFunc
	ChannelSink          = api.ChannelSink
	CollectorSink        = api.CollectorSink
	HistoryStore         = api.HistoryStore
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
	AgentError           = api.AgentError
	ConfigurationError   = api.ConfigurationError
)

// Re-export common observer and sink helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	NewChannelSink       = api.NewChannelSink
	NewCollectorSink     = api.NewCollectorSink
)

// Re-export phase values for convenience.

const (
	PhasePlanning              = api.PhasePlanning
	PhaseReviewing             = api.PhaseReviewing
	PhaseAwaitingHumanFeedback = api.PhaseAwaitingHumanFeedback
	PhasePublishing            = api.PhasePublishing
	PhaseAwaitingApproval      = api.PhaseAwaitingApproval
	PhasePublished             = api.PhasePublished
	PhaseCancelled             = api.PhaseCancelled
	PhaseFailed                = api.PhaseFailed
)

// Re-export roles and event kinds.

const (
	RolePlanner   = api.RolePlanner
	RoleWriter    = api.RoleWriter
	RoleReviewer  = api.RoleReviewer
	RolePublisher = api.RolePublisher

	KindSystem           = api.KindSystem
	KindStatus           = api.KindStatus
	KindAgentMessage     = api.KindAgentMessage
	KindReviewDecision   = api.KindReviewDecision
	KindNeedsHuman       = api.KindNeedsHuman
	KindNeedsApproval    = api.KindNeedsApproval
	KindFinalOutput      = api.KindFinalOutput
	KindPublished        = api.KindPublished
	KindPublishedHistory = api.KindPublishedHistory
	KindWorkflowEvent    = api.KindWorkflowEvent
	KindError            = api.KindError
)

// Re-export common errors.

var (
	ErrRunActive         = api.ErrRunActive
	ErrInvalidTransition = api.ErrInvalidTransition
	ErrNoActiveRun       = api.ErrNoActiveRun
	ErrPackageNotFound   = api.ErrPackageNotFound
)

// Constructors
// These wrap the internal packages so external callers never need to
// import them directly.

// NewCoordinator builds a workflow coordinator from the given config.
func NewCoordinator(cfg CoordinatorConfig) (Coordinator, error) {
	return coordinator.New(cfg)
}

// NewMemoryHistory returns a process-scoped HistoryStore.
func NewMemoryHistory() HistoryStore {
	return history.NewMemoryStore()
}

// NewSQLiteHistory returns a HistoryStore that persists published packages
// in a SQLite database. The caller imports the driver, e.g.
// "modernc.org/sqlite".
func NewSQLiteHistory(db *sql.DB) (HistoryStore, error) {
	return history.NewSQLiteStore(db)
}

// NewOpenAIPort returns an AgentPort backed by an OpenAI-compatible
// chat-completions endpoint.
func NewOpenAIPort(settings AgentSettings) (AgentPort, error) {
	return agents.NewOpenAIPort(settings)
}

// NewScriptedPort returns an AgentPort that replays canned responses, for
// tests and offline demos.
func NewScriptedPort() *ScriptedPort {
	return agents.NewScriptedPort()
}
