package api

import "net/http"

func (h *handler) startServer(w http.ResponseWriter, r *http.Request) {
	status, err := h.supervisor.Start()
	if err != nil {
		code, msg := mapTermError(err)
		jsonError(w, code, msg)
		return
	}
	jsonResponse(w, http.StatusOK, status)
}

func (h *handler) stopServer(w http.ResponseWriter, r *http.Request) {
	status, err := h.supervisor.Stop()
	if err != nil {
		code, msg := mapTermError(err)
		jsonError(w, code, msg)
		return
	}
	jsonResponse(w, http.StatusOK, status)
}

func (h *handler) serverStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.supervisor.Status())
}
