// Package api exposes the workbench over HTTP: terminal sessions, the
// context server, project settings, the drawer and file browsing.
package api

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/agentdesk/internal/db"
	"github.com/user/agentdesk/internal/hub"
	"github.com/user/agentdesk/internal/mcp"
	"github.com/user/agentdesk/internal/term"
)

// sessionManager is the slice of the terminal manager the handlers use.
type sessionManager interface {
	Create(req term.CreateRequest) (string, error)
	Write(id string, data []byte) error
	Resize(id string, rows, cols int) error
	Kill(id string) error
	List() []string
}

// serverSupervisor is the slice of the context server supervisor the
// handlers use.
type serverSupervisor interface {
	Start() (mcp.Status, error)
	Stop() (mcp.Status, error)
	Status() mcp.Status
	ExecutablePath() (string, error)
}

type handler struct {
	log        *slog.Logger
	manager    sessionManager
	supervisor serverSupervisor
	hub        *hub.Hub

	taskRepo     *db.TaskRepo
	documentRepo *db.DocumentRepo
}

func NewRouter(conn *sql.DB, manager sessionManager, supervisor serverSupervisor, hubInst *hub.Hub, logger *slog.Logger, token string) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	handler := &handler{
		log:          logger,
		manager:      manager,
		supervisor:   supervisor,
		hub:          hubInst,
		taskRepo:     db.NewTaskRepo(conn),
		documentRepo: db.NewDocumentRepo(conn),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/terminals", handler.createTerminal)
	mux.HandleFunc("GET /api/terminals", handler.listTerminals)
	mux.HandleFunc("POST /api/terminals/{id}/input", handler.terminalInput)
	mux.HandleFunc("POST /api/terminals/{id}/resize", handler.terminalResize)
	mux.HandleFunc("DELETE /api/terminals/{id}", handler.deleteTerminal)

	mux.HandleFunc("POST /api/server/start", handler.startServer)
	mux.HandleFunc("POST /api/server/stop", handler.stopServer)
	mux.HandleFunc("GET /api/server/status", handler.serverStatus)

	mux.HandleFunc("GET /api/fs", handler.browseDirectory)
	mux.HandleFunc("GET /api/fs/file", handler.readFile)
	mux.HandleFunc("GET /api/fs/home", handler.homeDirectory)

	mux.HandleFunc("GET /api/projects/settings", handler.getProjectSettings)
	mux.HandleFunc("PUT /api/projects/settings", handler.putProjectSettings)
	mux.HandleFunc("POST /api/projects/claude/init", handler.initProjectClaude)
	mux.HandleFunc("GET /api/claude/status", handler.claudeStatus)

	mux.HandleFunc("GET /api/drawer/tasks", handler.listDrawerTasks)
	mux.HandleFunc("PATCH /api/drawer/tasks/{id}", handler.updateDrawerTask)
	mux.HandleFunc("GET /api/drawer/documents", handler.listDrawerDocuments)

	mux.HandleFunc("GET /api/health", handler.health)

	return authMiddleware(token)(jsonMiddleware(corsMiddleware(mux)))
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			// Liveness stays reachable without credentials.
			if r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				if strings.TrimSpace(authHeader[7:]) == token {
					next.ServeHTTP(w, r)
					return
				}
			}

			if r.URL.Query().Get("token") == token {
				next.ServeHTTP(w, r)
				return
			}

			jsonError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// announceSessions pushes the current session list to connected
// websocket clients after a create or kill.
func (h *handler) announceSessions() {
	if h.hub == nil || h.manager == nil {
		return
	}
	h.hub.BroadcastSessions(h.manager.List())
}
