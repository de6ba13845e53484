package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/agentdesk/internal/files"
)

type fsDirectoryResponse struct {
	Path    string        `json:"path"`
	Parent  string        `json:"parent,omitempty"`
	Entries []files.Entry `json:"entries"`
}

type fsFileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type fsHomeResponse struct {
	Path string `json:"path"`
}

func (h *handler) browseDirectory(w http.ResponseWriter, r *http.Request) {
	targetPath, err := normalizeBrowsePath(r.URL.Query().Get("path"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid path")
		return
	}

	entries, err := files.List(targetPath)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	parent := filepath.Dir(targetPath)
	if parent == targetPath {
		parent = ""
	}

	jsonResponse(w, http.StatusOK, fsDirectoryResponse{
		Path:    targetPath,
		Parent:  parent,
		Entries: entries,
	})
}

func (h *handler) readFile(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	if strings.TrimSpace(raw) == "" {
		jsonError(w, http.StatusBadRequest, "path is required")
		return
	}
	targetPath, err := normalizeBrowsePath(raw)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid path")
		return
	}

	content, err := files.Read(targetPath)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, fsFileResponse{Path: targetPath, Content: content})
}

func (h *handler) homeDirectory(w http.ResponseWriter, r *http.Request) {
	home, err := files.Home()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, fsHomeResponse{Path: home})
}

// normalizeBrowsePath turns user input into a cleaned absolute path,
// expanding ~ and defaulting to the home directory.
func normalizeBrowsePath(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Clean(home), nil
	}

	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if trimmed == "~" {
			trimmed = home
		} else {
			trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~/"))
		}
	}

	if !filepath.IsAbs(trimmed) {
		abs, err := filepath.Abs(trimmed)
		if err != nil {
			return "", err
		}
		trimmed = abs
	}

	return filepath.Clean(trimmed), nil
}
