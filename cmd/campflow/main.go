package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/campflow/campflow"
	"github.com/campflow/campflow/internal/config"
	"github.com/campflow/campflow/internal/server"
	"github.com/campflow/campflow/pkg/api"
)

func main() {
	addr := flag.String("addr", "", "http listen address (overrides config server.addr)")
	flag.Parse()

	cfg := config.Load()
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if err := run(cfg, *addr, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config, addrOverride string, logger *slog.Logger) error {
	port, err := buildPort(cfg.LLM)
	if err != nil {
		return err
	}

	hist, closeDB, err := buildHistory(cfg.History)
	if err != nil {
		return err
	}
	if closeDB != nil {
		defer closeDB()
	}

	events := campflow.NewChannelSink(cfg.Workflow.EventBuffer)
	metrics := &campflow.BasicMetrics{}

	coord, err := campflow.NewCoordinator(campflow.CoordinatorConfig{
		Port:     port,
		Sink:     events,
		History:  hist,
		Observer: campflow.NewCompositeObserver(campflow.NewLoggingObserver(logger), metrics),
	})
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Coordinator:      coord,
		History:          hist,
		Events:           events,
		Logger:           logger,
		DefaultLoopLimit: cfg.Workflow.DefaultLoopLimit,
	})
	if err != nil {
		return err
	}

	listen := cfg.Server.Addr
	if addrOverride != "" {
		listen = addrOverride
	}
	logger.Info("starting campflow server", "addr", listen, "history", cfg.History.Backend, "llm", cfg.LLM.Provider)
	return http.ListenAndServe(listen, srv.Routes())
}

func buildPort(cfg config.LLMConfig) (campflow.AgentPort, error) {
	switch cfg.Provider {
	case "", "openai":
		return campflow.NewOpenAIPort(campflow.AgentSettings{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			RoleModels: map[api.Role]string{
				api.RolePlanner:   cfg.Roles.Planner,
				api.RoleWriter:    cfg.Roles.Writer,
				api.RoleReviewer:  cfg.Roles.Reviewer,
				api.RolePublisher: cfg.Roles.Publisher,
			},
		})
	case "offline":
		// Every role answers with a fixed notice. Useful for exercising
		// the UI without credentials.
		return offlinePort(), nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}

func offlinePort() campflow.AgentPort {
	return api.PortFunc(func(ctx context.Context, role api.Role, prompt api.Prompt) (string, error) {
		if role == api.RoleReviewer {
			return `{"approved": true, "feedback": "", "risk_notes": "offline mode"}`, nil
		}
		return fmt.Sprintf("[offline %s] no model configured; prompt was %d chars", role, len(prompt.User)), nil
	})
}

func buildHistory(cfg config.HistoryConfig) (campflow.HistoryStore, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return campflow.NewMemoryHistory(), nil, nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "campaign_flow.db"
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, nil, err
		}
		hist, err := campflow.NewSQLiteHistory(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return hist, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("history backend %s not supported", cfg.Backend)
	}
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromString(level),
	}))
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
