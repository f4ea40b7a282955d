package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Noah202226/dental-clinic-v3-arctech/libs/db"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/outbox"
)

// AppointmentRepository is the boundary to the appointment collection. Every
// mutation recomputes the derived date_key/time_of_day columns alongside the
// timestamp and records a change event in the outbox within the same
// transaction, so out-of-band writers and other dashboard sessions stay
// consistent.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	loc    *time.Location
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository, loc *time.Location) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo, loc: loc}
}

const appointmentColumns = `
	id::text, title, COALESCE(email, ''), COALESCE(phone, ''), date,
	date_key, time_of_day, status, COALESCE(notes, ''),
	COALESCE(referral_source, ''), COALESCE(medical_history, '{}'),
	COALESCE(photo_file_id, ''), COALESCE(patient_id::text, ''), created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Email,
		&a.Phone,
		&a.Date,
		&a.DateKey,
		&a.TimeOfDay,
		&a.Status,
		&a.Notes,
		&a.ReferralSource,
		&a.MedicalHistory,
		&a.PhotoFileID,
		&a.PatientID,
		&a.CreatedAt,
	)
	return a, err
}

// List returns every appointment, ascending by slot time.
func (r *AppointmentRepository) List(ctx context.Context) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	a = a.WithDate(a.Date, r.loc)
	stored, err := scanAppointment(tx.QueryRow(ctx, `
		INSERT INTO appointments
			(title, email, phone, date, date_key, time_of_day, status, notes, referral_source, medical_history, photo_file_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
		RETURNING `+appointmentColumns,
		a.Title, a.Email, a.Phone, a.Date, a.DateKey, a.TimeOfDay,
		a.Status, a.Notes, a.ReferralSource, a.MedicalHistory, a.PhotoFileID))
	if err != nil {
		return model.Appointment{}, err
	}

	if err := r.recordChange(ctx, tx, "create", stored); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return stored, nil
}

// SetStatus updates the lifecycle state. The derived columns are refreshed from
// the stored timestamp in the same statement.
func (r *AppointmentRepository) SetStatus(ctx context.Context, id string, status model.Status) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
			date_key = to_char(date AT TIME ZONE $3, 'YYYY-MM-DD'),
			time_of_day = to_char(date AT TIME ZONE $3, 'HH24:MI')
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, status, r.loc.String()))
	if err != nil {
		return err
	}

	if err := r.recordChange(ctx, tx, "update", updated); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Reschedule moves the slot time, recomputes date_key/time_of_day from the new
// timestamp, and resets the lifecycle state in one write.
func (r *AppointmentRepository) Reschedule(ctx context.Context, id string, date time.Time, status model.Status) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2,
			date_key = $3,
			time_of_day = $4,
			status = $5
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, date, model.DateKey(date, r.loc), model.ClockTime(date, r.loc), status))
	if err != nil {
		return err
	}

	if err := r.recordChange(ctx, tx, "update", updated); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetPatientID links the registry record created on confirmation back onto the
// appointment, making the at-most-one-patient guard survive reloads.
func (r *AppointmentRepository) SetPatientID(ctx context.Context, id string, patientID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, patientID))
	if err != nil {
		return err
	}

	if err := r.recordChange(ctx, tx, "update", updated); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	payload, err := json.Marshal(map[string]any{"op": "delete", "id": id})
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   id,
		EventType:     outbox.TopicAppointmentChanged,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) recordChange(ctx context.Context, tx pgx.Tx, op string, a model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"op":          op,
		"appointment": DocFromAppointment(a, r.loc),
	})
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     outbox.TopicAppointmentChanged,
		Payload:       payload,
	})
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
