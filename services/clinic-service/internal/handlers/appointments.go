package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/calendar"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/lifecycle"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/storage"
)

type AppointmentHandler struct {
	engine *lifecycle.Engine
	logger *slog.Logger
	loc    *time.Location
}

func NewAppointmentHandler(engine *lifecycle.Engine, logger *slog.Logger, loc *time.Location) *AppointmentHandler {
	return &AppointmentHandler{engine: engine, logger: logger, loc: loc}
}

type createAppointmentRequest struct {
	Title  string `json:"title"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Date   string `json:"date"`
	Notes  string `json:"notes"`
	Status string `json:"status"`
}

type transitionRequest struct {
	ID string `json:"id"`
}

type rescheduleRequest struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

type listResponse struct {
	Items  []storage.AppointmentDoc `json:"items"`
	Counts countsPayload            `json:"counts"`
}

type countsPayload struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	All       int `json:"all"`
}

// List serves the tabbed appointment views. Counts always reflect the live
// in-memory list, whatever tab is selected.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, ok := statusFilter(r.URL.Query().Get("status"))
	if !ok {
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}

	appts := h.engine.List(filter)
	counts := h.engine.Counts()

	items := make([]storage.AppointmentDoc, 0, len(appts))
	for _, a := range appts {
		items = append(items, storage.DocFromAppointment(a, h.loc))
	}
	writeJSON(w, http.StatusOK, listResponse{
		Items: items,
		Counts: countsPayload{
			Pending:   counts.Pending,
			Confirmed: counts.Confirmed,
			Cancelled: counts.Cancelled,
			All:       counts.All,
		},
	})
}

// Create is the staff manual-entry path.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "Clinic Entry", false)
}

// PublicBook is the external booking channel; bookings always start pending.
func (h *AppointmentHandler) PublicBook(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "Online Booking", true)
}

func (h *AppointmentHandler) create(w http.ResponseWriter, r *http.Request, referralSource string, forcePending bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	candidate := lifecycle.Candidate{
		Title:          strings.TrimSpace(req.Title),
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		Notes:          strings.TrimSpace(req.Notes),
		Status:         model.Status(strings.TrimSpace(req.Status)),
		ReferralSource: referralSource,
	}
	if forcePending {
		candidate.Status = model.StatusPending
	}
	if req.Date != "" {
		date, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		candidate.Date = date
	}

	stored, err := h.engine.Create(r.Context(), candidate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, storage.DocFromAppointment(stored, h.loc))
}

func (h *AppointmentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Approve)
}

func (h *AppointmentHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Decline)
}

func (h *AppointmentHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id string) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	if err := apply(r.Context(), req.ID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": "applied"})
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	var newDate time.Time
	if req.Date != "" {
		parsed, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		newDate = parsed
	}

	if err := h.engine.Reschedule(r.Context(), req.ID, newDate); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": string(model.StatusPending)})
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	if err := h.engine.Remove(r.Context(), req.ID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": "removed"})
}

type calendarDay struct {
	Date         string                   `json:"date"`
	DateKey      string                   `json:"dateKey"`
	InMonth      bool                     `json:"inMonth"`
	Appointments []storage.AppointmentDoc `json:"appointments"`
}

type calendarResponse struct {
	Month     string           `json:"month"`
	PrevMonth string           `json:"prevMonth"`
	NextMonth string           `json:"nextMonth"`
	Weeks     [][7]calendarDay `json:"weeks"`
}

// Calendar serves the month grid, or a single day's appointments when ?day=
// is given. It projects the already-loaded list; navigation costs no fetch.
func (h *AppointmentHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, ok := statusFilter(r.URL.Query().Get("status"))
	if !ok {
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}
	appts := h.engine.List(filter)

	if dayStr := strings.TrimSpace(r.URL.Query().Get("day")); dayStr != "" {
		day, err := time.ParseInLocation("2006-01-02", dayStr, h.loc)
		if err != nil {
			http.Error(w, "invalid day", http.StatusBadRequest)
			return
		}
		daily := calendar.DayAppointments(appts, day, h.loc)
		items := make([]storage.AppointmentDoc, 0, len(daily))
		for _, a := range daily {
			items = append(items, storage.DocFromAppointment(a, h.loc))
		}
		writeJSON(w, http.StatusOK, map[string]any{"day": dayStr, "appointments": items})
		return
	}

	ref := time.Now().In(h.loc)
	if monthStr := strings.TrimSpace(r.URL.Query().Get("month")); monthStr != "" {
		parsed, err := time.ParseInLocation("2006-01", monthStr, h.loc)
		if err != nil {
			http.Error(w, "invalid month", http.StatusBadRequest)
			return
		}
		ref = parsed
	}

	weeks := calendar.MonthGrid(ref, appts, h.loc)
	resp := calendarResponse{
		Month:     ref.Format("2006-01"),
		PrevMonth: calendar.PrevMonth(ref).Format("2006-01"),
		NextMonth: calendar.NextMonth(ref).Format("2006-01"),
	}
	for _, week := range weeks {
		var row [7]calendarDay
		for i, day := range week {
			docs := make([]storage.AppointmentDoc, 0, len(day.Appointments))
			for _, a := range day.Appointments {
				docs = append(docs, storage.DocFromAppointment(a, h.loc))
			}
			row[i] = calendarDay{
				Date:         day.Date.Format("2006-01-02"),
				DateKey:      day.DateKey,
				InMonth:      day.InMonth,
				Appointments: docs,
			}
		}
		resp.Weeks = append(resp.Weeks, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AppointmentHandler) writeDomainError(w http.ResponseWriter, err error) {
	var vErr *lifecycle.ValidationError
	var nfErr *lifecycle.NotFoundError
	var trErr *lifecycle.TransitionError
	switch {
	case errors.As(err, &vErr):
		http.Error(w, vErr.Error(), http.StatusBadRequest)
	case errors.As(err, &nfErr):
		http.Error(w, nfErr.Error(), http.StatusNotFound)
	case errors.As(err, &trErr):
		if trErr.Err == nil {
			http.Error(w, trErr.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("transition failed", "op", trErr.Op, "appointment_id", trErr.ID, "err", trErr.Err)
		http.Error(w, "the change could not be saved, please retry", http.StatusInternalServerError)
	default:
		h.logger.Error("unexpected error", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func statusFilter(raw string) (model.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return "", true
	case string(model.StatusPending):
		return model.StatusPending, true
	case string(model.StatusConfirmed):
		return model.StatusConfirmed, true
	case string(model.StatusCancelled), "declined":
		return model.StatusCancelled, true
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
