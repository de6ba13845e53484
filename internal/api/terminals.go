package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/user/agentdesk/internal/mcp"
	"github.com/user/agentdesk/internal/term"
)

type createTerminalRequest struct {
	Cwd            string `json:"cwd,omitempty"`
	StartupCommand string `json:"startup_command,omitempty"`
	Command        string `json:"command,omitempty"`
	Rows           int    `json:"rows,omitempty"`
	Cols           int    `json:"cols,omitempty"`
}

type terminalCreatedResponse struct {
	ID string `json:"id"`
}

type terminalListResponse struct {
	IDs []string `json:"ids"`
}

type terminalInputRequest struct {
	Data string `json:"data"`
}

type terminalResizeRequest struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func (h *handler) createTerminal(w http.ResponseWriter, r *http.Request) {
	// All fields are optional, so a bodyless POST is fine.
	var req createTerminalRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := h.manager.Create(term.CreateRequest{
		Command:        req.Command,
		Cwd:            req.Cwd,
		StartupCommand: req.StartupCommand,
		Rows:           req.Rows,
		Cols:           req.Cols,
	})
	if err != nil {
		status, msg := mapTermError(err)
		jsonError(w, status, msg)
		return
	}

	h.announceSessions()
	jsonResponse(w, http.StatusCreated, terminalCreatedResponse{ID: id})
}

func (h *handler) listTerminals(w http.ResponseWriter, r *http.Request) {
	ids := h.manager.List()
	if ids == nil {
		ids = []string{}
	}
	jsonResponse(w, http.StatusOK, terminalListResponse{IDs: ids})
}

func (h *handler) terminalInput(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req terminalInputRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Data == "" {
		jsonError(w, http.StatusBadRequest, "data is required")
		return
	}

	if err := h.manager.Write(id, []byte(req.Data)); err != nil {
		status, msg := mapTermError(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *handler) terminalResize(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req terminalResizeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.manager.Resize(id, req.Rows, req.Cols); err != nil {
		status, msg := mapTermError(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *handler) deleteTerminal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.manager.Kill(id); err != nil {
		status, msg := mapTermError(err)
		jsonError(w, status, msg)
		return
	}

	h.announceSessions()
	jsonResponse(w, http.StatusNoContent, nil)
}

// mapTermError translates manager and supervisor failures into HTTP
// statuses: unknown id 404, bad arguments 400, no server executable
// 503, anything touching the PTY or child process 502.
func mapTermError(err error) (int, string) {
	switch {
	case errors.Is(err, term.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, term.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, mcp.ErrServerUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusBadGateway, err.Error()
	}
}
