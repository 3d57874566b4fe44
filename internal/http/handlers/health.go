package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Database string `json:"database,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Health — GET /api/health. Не трогает хранилище.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "UP",
		Message: "Expense tracker API is running",
	})
}

// HealthDB — GET /api/health/db. 503, если хранилище не отвечает.
func (h *Handlers) HealthDB(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:   "DOWN",
			Database: h.dbDriver,
			Error:    "database is unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "UP",
		Database: h.dbDriver,
	})
}
