package storage

import (
	"context"

	"github.com/Noah202226/dental-clinic-v3-arctech/libs/db"
)

// Notification is one dispatched status email, recorded whether or not the
// SMTP relay accepted it.
type Notification struct {
	Recipient   string
	Status      string
	PatientName string
	ApptDate    string
	ApptTime    string
	Notes       string
	Outcome     string
	Reason      string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (recipient, status, patient_name, appt_date, appt_time, notes, outcome, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.Recipient, n.Status, n.PatientName, n.ApptDate, n.ApptTime, n.Notes, n.Outcome, n.Reason)
	return err
}
