package api

import (
	"errors"
	"net/http"

	"github.com/user/agentdesk/internal/db"
)

type updateDrawerTaskRequest struct {
	Status string `json:"status"`
}

func (h *handler) listDrawerTasks(w http.ResponseWriter, r *http.Request) {
	filter := db.TaskFilter{
		ProjectPath: r.URL.Query().Get("project"),
		Status:      r.URL.Query().Get("status"),
	}

	tasks, err := h.taskRepo.List(r.Context(), filter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, tasks)
}

func (h *handler) updateDrawerTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateDrawerTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Status == "" {
		jsonError(w, http.StatusBadRequest, "status is required")
		return
	}

	if err := h.taskRepo.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "task not found")
			return
		}
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	task, err := h.taskRepo.Get(r.Context(), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, task)
}

func (h *handler) listDrawerDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documentRepo.List(r.Context(), db.DocumentFilter{
		ProjectPath: r.URL.Query().Get("project"),
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, docs)
}
