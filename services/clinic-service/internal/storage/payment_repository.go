package storage

import (
	"context"

	"github.com/Noah202226/dental-clinic-v3-arctech/libs/db"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
)

// PaymentRepository holds the per-patient financial bookkeeping rows shown in
// the protected payments section.
type PaymentRepository struct {
	pool *db.Pool
}

func NewPaymentRepository(pool *db.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Create(ctx context.Context, p model.Payment) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payments (patient_id, amount, balance, note, paid_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`, p.PatientID, p.Amount, p.Balance, p.Note, p.PaidAt).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PaymentRepository) ListByPatient(ctx context.Context, patientID string) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, patient_id::text, amount, balance, COALESCE(note, ''), paid_at
		FROM payments
		WHERE patient_id = $1
		ORDER BY paid_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.PatientID, &p.Amount, &p.Balance, &p.Note, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return payments, nil
}
