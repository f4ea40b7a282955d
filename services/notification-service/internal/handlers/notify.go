package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Noah202226/dental-clinic-v3-arctech/services/notification-service/internal/email"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/notification-service/internal/storage"
)

// Recorder appends to the notification log.
type Recorder interface {
	Insert(ctx context.Context, n storage.Notification) error
}

// NotifyHandler receives status-change notifications from the clinic service
// and turns them into patient-facing emails. Every request is recorded in the
// notification log, including ones the SMTP relay rejected.
type NotifyHandler struct {
	sender email.Sender
	repo   Recorder
	logger *slog.Logger
}

func NewNotifyHandler(sender email.Sender, repo Recorder, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{sender: sender, repo: repo, logger: logger}
}

type notifyRequest struct {
	Email       string `json:"email"`
	Status      string `json:"status"`
	PatientName string `json:"patientName"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Notes       string `json:"notes"`
}

func (h *NotifyHandler) Notify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Status = strings.TrimSpace(req.Status)
	if req.Email == "" || req.Status == "" {
		http.Error(w, "email and status required", http.StatusBadRequest)
		return
	}
	if req.PatientName == "" {
		req.PatientName = "Patient"
	}

	subject, body := renderEmail(req)

	outcome := "sent"
	reason := ""
	if err := h.sender.Send(req.Email, subject, body); err != nil {
		outcome = "failed"
		reason = err.Error()
		h.logger.Error("email send failed", "err", err, "recipient", req.Email)
	}

	if err := h.repo.Insert(r.Context(), storage.Notification{
		Recipient:   req.Email,
		Status:      req.Status,
		PatientName: req.PatientName,
		ApptDate:    req.Date,
		ApptTime:    req.Time,
		Notes:       req.Notes,
		Outcome:     outcome,
		Reason:      reason,
	}); err != nil {
		h.logger.Error("failed to persist notification", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("notification processed", "recipient", req.Email, "status", req.Status, "outcome", outcome)

	w.Header().Set("Content-Type", "application/json")
	if outcome == "failed" {
		w.WriteHeader(http.StatusBadGateway)
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"outcome": outcome})
}

// renderEmail picks the subject and plain-text body for a status. Unknown
// statuses get a generic update so new labels never drop mail on the floor.
func renderEmail(req notifyRequest) (subject string, body string) {
	when := req.Date
	if req.Time != "" {
		when = fmt.Sprintf("%s at %s", req.Date, req.Time)
	}

	switch strings.ToLower(req.Status) {
	case "confirmed":
		subject = "Your appointment is confirmed"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour appointment on %s has been confirmed.\n\nNotes: %s\n\nSee you at the clinic!",
			req.PatientName, when, req.Notes,
		)
	case "cancelled", "declined":
		subject = "Your appointment request was declined"
		body = fmt.Sprintf(
			"Hi %s,\n\nUnfortunately your appointment request for %s could not be accommodated.\n\nNotes: %s\n\nPlease book another slot or contact the clinic directly.",
			req.PatientName, when, req.Notes,
		)
	case "pending":
		subject = "We received your appointment request"
		body = fmt.Sprintf(
			"Hi %s,\n\nWe received your appointment request for %s. The clinic will review it shortly.\n\nNotes: %s",
			req.PatientName, when, req.Notes,
		)
	default:
		if strings.HasPrefix(strings.ToLower(req.Status), "rescheduled") {
			subject = "Your appointment was rescheduled"
			body = fmt.Sprintf(
				"Hi %s,\n\nYour appointment has been moved to %s and is pending review by the clinic.\n\nNotes: %s",
				req.PatientName, when, req.Notes,
			)
			return subject, body
		}
		subject = "Appointment update"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour appointment on %s has a new status: %s.\n\nNotes: %s",
			req.PatientName, when, req.Status, req.Notes,
		)
	}
	return subject, body
}
