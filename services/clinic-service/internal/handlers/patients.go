package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/storage"
)

type PatientHandler struct {
	patients *storage.PatientRepository
	logger   *slog.Logger
}

func NewPatientHandler(patients *storage.PatientRepository, logger *slog.Logger) *PatientHandler {
	return &PatientHandler{patients: patients, logger: logger}
}

func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	patients, err := h.patients.List(r.Context())
	if err != nil {
		h.logger.Error("list patients failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": patients})
}
