package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/storage"
)

// PaymentHandler serves the financial bookkeeping views. The whole handler is
// mounted behind the admin gate.
type PaymentHandler struct {
	payments *storage.PaymentRepository
	logger   *slog.Logger
}

func NewPaymentHandler(payments *storage.PaymentRepository, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

type createPaymentRequest struct {
	PatientID string  `json:"patientId"`
	Amount    float64 `json:"amount"`
	Balance   float64 `json:"balance"`
	Note      string  `json:"note"`
	PaidAt    string  `json:"paidAt"`
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	if req.PatientID == "" {
		http.Error(w, "patientId required", http.StatusBadRequest)
		return
	}
	if req.Amount < 0 || req.Balance < 0 {
		http.Error(w, "amount and balance must not be negative", http.StatusBadRequest)
		return
	}

	paidAt := time.Now().UTC()
	if req.PaidAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			http.Error(w, "invalid paidAt", http.StatusBadRequest)
			return
		}
		paidAt = parsed
	}

	payment := model.Payment{
		PatientID: req.PatientID,
		Amount:    req.Amount,
		Balance:   req.Balance,
		Note:      strings.TrimSpace(req.Note),
		PaidAt:    paidAt,
	}
	id, err := h.payments.Create(r.Context(), payment)
	if err != nil {
		h.logger.Error("create payment failed", "patient_id", req.PatientID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	payment.ID = id
	writeJSON(w, http.StatusCreated, payment)
}

func (h *PaymentHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	patientID := strings.TrimSpace(r.URL.Query().Get("patientId"))
	if patientID == "" {
		http.Error(w, "patientId required", http.StatusBadRequest)
		return
	}

	payments, err := h.payments.ListByPatient(r.Context(), patientID)
	if err != nil {
		h.logger.Error("list payments failed", "patient_id", patientID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": payments})
}
