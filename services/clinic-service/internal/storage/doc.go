package storage

import (
	"fmt"
	"time"

	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
)

// AppointmentDoc is the wire shape of an appointment: the API responses, the
// public booking payload, and the change-feed events all carry this document.
// It holds only domain fields; store internals never leave the repository.
type AppointmentDoc struct {
	ID             string   `json:"id,omitempty"`
	Title          string   `json:"title"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Date           string   `json:"date"`
	DateKey        string   `json:"dateKey"`
	Time           string   `json:"time"`
	Status         string   `json:"status"`
	Notes          string   `json:"notes,omitempty"`
	ReferralSource string   `json:"referralSource,omitempty"`
	MedicalHistory []string `json:"medicalHistory,omitempty"`
	PhotoFileID    string   `json:"photoFileId,omitempty"`
	PatientID      string   `json:"patientId,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
}

// DocFromAppointment serializes the slot time as ISO-8601 and attaches the
// derived dateKey/time so out-of-band readers of the document stay consistent
// with the timestamp.
func DocFromAppointment(a model.Appointment, loc *time.Location) AppointmentDoc {
	doc := AppointmentDoc{
		ID:             a.ID,
		Title:          a.Title,
		Email:          a.Email,
		Phone:          a.Phone,
		Date:           a.Date.In(loc).Format(time.RFC3339),
		DateKey:        model.DateKey(a.Date, loc),
		Time:           model.ClockTime(a.Date, loc),
		Status:         string(a.Status),
		Notes:          a.Notes,
		ReferralSource: a.ReferralSource,
		MedicalHistory: a.MedicalHistory,
		PhotoFileID:    a.PhotoFileID,
		PatientID:      a.PatientID,
	}
	if !a.CreatedAt.IsZero() {
		doc.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	return doc
}

// Appointment materializes the document's timestamp and recomputes the derived
// fields from it, ignoring whatever dateKey/time the document carried.
func (d AppointmentDoc) Appointment(loc *time.Location) (model.Appointment, error) {
	date, err := time.Parse(time.RFC3339, d.Date)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("invalid date %q: %w", d.Date, err)
	}
	a := model.Appointment{
		ID:             d.ID,
		Title:          d.Title,
		Email:          d.Email,
		Phone:          d.Phone,
		Status:         model.Status(d.Status),
		Notes:          d.Notes,
		ReferralSource: d.ReferralSource,
		MedicalHistory: d.MedicalHistory,
		PhotoFileID:    d.PhotoFileID,
		PatientID:      d.PatientID,
	}
	a = a.WithDate(date, loc)
	if d.CreatedAt != "" {
		if createdAt, err := time.Parse(time.RFC3339, d.CreatedAt); err == nil {
			a.CreatedAt = createdAt
		}
	}
	return a, nil
}
