package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/agentdesk/internal/api"
	"github.com/user/agentdesk/internal/config"
	"github.com/user/agentdesk/internal/db"
	"github.com/user/agentdesk/internal/hub"
	"github.com/user/agentdesk/internal/mcp"
	"github.com/user/agentdesk/internal/server"
	"github.com/user/agentdesk/internal/term"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.PrintToken {
		fmt.Println(cfg.Token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath())
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	manager := term.NewManager(logger, term.WithShell(cfg.Shell))
	supervisor := mcp.NewSupervisor(logger, mcp.WithExecutable(cfg.ServerPath))

	h := hub.New(cfg.Token, logger)
	h.SetOnInput(func(sessionID, data string) {
		if err := manager.Write(sessionID, []byte(data)); err != nil {
			logger.Warn("websocket input rejected", "session_id", sessionID, "error", err)
		}
	})
	h.SetOnResize(func(sessionID string, rows, cols int) {
		if err := manager.Resize(sessionID, rows, cols); err != nil {
			logger.Warn("websocket resize rejected", "session_id", sessionID, "error", err)
		}
	})
	go h.Run(ctx)

	// Bridge session events onto the websocket hub.
	go func() {
		for ev := range manager.Events() {
			switch ev.Type {
			case term.EventOutput:
				h.BroadcastOutput(ev.ID, ev.Data)
			case term.EventExit:
				h.BroadcastExit(ev.ID)
				h.BroadcastSessions(manager.List())
			case term.EventClosed:
				logger.Debug("session output stream closed", "session_id", ev.ID, "reason", ev.Reason)
			}
		}
	}()

	apiHandler := api.NewRouter(database.SQL(), manager, supervisor, h, logger, cfg.Token)
	srv := server.New(cfg, h, apiHandler)

	fmt.Printf("\nagentdesk running at http://localhost:%d?token=%s\n\n", cfg.Port, cfg.Token)

	err = srv.Start(ctx)

	manager.Close()
	if _, stopErr := supervisor.Stop(); stopErr != nil {
		slog.Error("failed to stop server process", "error", stopErr)
	}

	if err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
