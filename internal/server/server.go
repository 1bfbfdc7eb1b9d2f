// Package server exposes the workflow coordinator over HTTP: JSON triggers
// for the workflow lifecycle, a read API for published history, and a
// server-sent-events stream that drains the live event sink.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/campflow/campflow/internal/render"
	"github.com/campflow/campflow/pkg/api"
)

// Server wires the coordinator, history store, and event stream to HTTP.
type Server struct {
	coord            api.Coordinator
	history          api.HistoryStore
	events           *api.ChannelSink
	log              *slog.Logger
	defaultLoopLimit int
}

// Config describes a Server.
type Config struct {
	Coordinator api.Coordinator
	History     api.HistoryStore
	Events      *api.ChannelSink
	Logger      *slog.Logger

	// DefaultLoopLimit applies to start requests that omit loop_limit.
	DefaultLoopLimit int
}

// New validates cfg and builds a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Coordinator == nil {
		return nil, errors.New("coordinator required")
	}
	if cfg.History == nil {
		return nil, errors.New("history store required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		coord:            cfg.Coordinator,
		history:          cfg.History,
		events:           cfg.Events,
		log:              logger,
		defaultLoopLimit: cfg.DefaultLoopLimit,
	}, nil
}

// Routes returns the HTTP handler for all endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/workflow", s.handleStart)
	mux.HandleFunc("GET /api/workflow", s.handleSnapshot)
	mux.HandleFunc("POST /api/workflow/feedback", s.handleFeedback)
	mux.HandleFunc("POST /api/workflow/approve", s.handleApprove)
	mux.HandleFunc("POST /api/workflow/cancel", s.handleCancel)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/history", s.handleHistoryList)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryGet)
	mux.HandleFunc("GET /api/history/{id}/html", s.handleHistoryHTML)
	return s.logMiddleware(mux)
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startResp struct {
	RunID string `json:"run_id"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req api.CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.LoopLimit == 0 {
		req.LoopLimit = s.defaultLoopLimit
	}

	id, err := s.coord.Start(r.Context(), req)
	if err != nil {
		var cfgErr *api.ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, api.ErrRunActive):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, startResp{RunID: id})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	status, ok := s.coord.Snapshot()
	if !ok {
		http.Error(w, "no workflow run", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type feedbackReq struct {
	Message string `json:"message"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.resolveTrigger(w, r, s.coord.HumanFeedback(req.Message))
}

type approveReq struct {
	Approved bool   `json:"approved"`
	Note     string `json:"note"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.resolveTrigger(w, r, s.coord.Approve(req.Approved, req.Note))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.resolveTrigger(w, r, s.coord.Cancel())
}

// resolveTrigger maps trigger outcomes onto HTTP statuses. A mismatched
// trigger is logged and reported but leaves the run untouched.
func (s *Server) resolveTrigger(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, api.ErrNoActiveRun):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, api.ErrInvalidTransition):
		s.log.Warn("trigger ignored", "path", r.URL.Path, "error", err)
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		http.Error(w, "event stream not configured", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Connection-scoped greeting and history push, mirroring what the
	// coordinator would not know to re-send.
	s.writeEvent(w, api.Event{
		At:      time.Now(),
		Kind:    api.KindSystem,
		Payload: api.SystemPayload{Message: "Connected to campaign workflow event stream."},
	})
	if items, err := s.history.List(r.Context(), 0); err == nil {
		s.writeEvent(w, api.Event{
			At:      time.Now(),
			Kind:    api.KindPublishedHistory,
			Payload: api.PublishedHistoryPayload{Items: items},
		})
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-s.events.Events():
			if !ok {
				return
			}
			s.writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

func (s *Server) writeEvent(w http.ResponseWriter, ev api.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("marshal event", "error", err)
		return
	}
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n\n"))
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	items, err := s.history.List(r.Context(), 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, api.PublishedHistoryPayload{Items: items})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	pkg, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, api.ErrPackageNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (s *Server) handleHistoryHTML(w http.ResponseWriter, r *http.Request) {
	pkg, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, api.ErrPackageNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	html, err := render.HTML(pkg.Content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
