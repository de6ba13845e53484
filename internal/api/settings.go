package api

import (
	"net/http"
	"os"

	"github.com/user/agentdesk/internal/claude"
)

// The claude CLI calls go through these hooks so tests can stub them.
var (
	claudeInstalled        = claude.Installed
	claudeServerRegistered = claude.ServerRegistered
	claudeRegisterServer   = claude.RegisterServer
)

type claudeStatusResponse struct {
	Installed  bool `json:"installed"`
	Registered bool `json:"registered"`
}

type claudeInitRequest struct {
	Project string `json:"project"`
}

type claudeInitResponse struct {
	Registered bool   `json:"registered"`
	ServerPath string `json:"server_path"`
}

// projectFromQuery resolves the ?project= parameter to an existing
// directory.
func projectFromQuery(r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("project")
	if raw == "" {
		return "", false
	}
	path, err := normalizeBrowsePath(raw)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return path, true
}

func (h *handler) getProjectSettings(w http.ResponseWriter, r *http.Request) {
	project, ok := projectFromQuery(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "project must be an existing directory")
		return
	}

	settings, err := claude.Load(project)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, settings)
}

func (h *handler) putProjectSettings(w http.ResponseWriter, r *http.Request) {
	project, ok := projectFromQuery(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "project must be an existing directory")
		return
	}

	var settings claude.ProjectSettings
	if err := decodeJSON(r, &settings); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := claude.Save(project, settings); err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, settings)
}

func (h *handler) initProjectClaude(w http.ResponseWriter, r *http.Request) {
	var req claudeInitRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Project == "" {
		jsonError(w, http.StatusBadRequest, "project is required")
		return
	}
	project, err := normalizeBrowsePath(req.Project)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid project path")
		return
	}
	if info, err := os.Stat(project); err != nil || !info.IsDir() {
		jsonError(w, http.StatusBadRequest, "project must be an existing directory")
		return
	}

	serverPath, err := h.supervisor.ExecutablePath()
	if err != nil {
		code, msg := mapTermError(err)
		jsonError(w, code, msg)
		return
	}

	if err := claudeRegisterServer(project, serverPath); err != nil {
		jsonError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.log.Info("registered context server with claude", "project", project, "server", serverPath)
	jsonResponse(w, http.StatusOK, claudeInitResponse{Registered: true, ServerPath: serverPath})
}

func (h *handler) claudeStatus(w http.ResponseWriter, r *http.Request) {
	resp := claudeStatusResponse{Installed: claudeInstalled()}

	if resp.Installed {
		if project, ok := projectFromQuery(r); ok {
			registered, err := claudeServerRegistered(project, claude.ServerName)
			if err != nil {
				h.log.Warn("claude mcp list failed", "error", err)
			}
			resp.Registered = registered
		}
	}

	jsonResponse(w, http.StatusOK, resp)
}
