package storage

import (
	"context"

	"github.com/Noah202226/dental-clinic-v3-arctech/libs/db"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
)

type PatientRepository struct {
	pool *db.Pool
}

func NewPatientRepository(pool *db.Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

func (r *PatientRepository) Create(ctx context.Context, p model.Patient) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patients
			(patient_name, first_name, last_name, middle_name, email, contact,
			 birthdate, gender, civil_status, occupation, address,
			 emergency_to_contact, emergency_to_contact_number, note,
			 photo_file_id, medical_history, referral_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULLIF($15, ''), $16, $17)
		RETURNING id::text
	`, p.PatientName, p.FirstName, p.LastName, p.MiddleName, p.Email, p.Contact,
		p.Birthdate, p.Gender, p.CivilStatus, p.Occupation, p.Address,
		p.EmergencyToContact, p.EmergencyToContactNumber, p.Note,
		p.PhotoFileID, p.MedicalHistory, p.ReferralSource).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// List returns the registry sorted by display name, the order the patients
// section renders in.
func (r *PatientRepository) List(ctx context.Context) ([]model.Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, patient_name, COALESCE(first_name, ''), COALESCE(last_name, ''),
			COALESCE(middle_name, ''), COALESCE(email, ''), COALESCE(contact, ''),
			COALESCE(birthdate, ''), COALESCE(gender, ''), COALESCE(civil_status, ''),
			COALESCE(occupation, ''), COALESCE(address, ''),
			COALESCE(emergency_to_contact, ''), COALESCE(emergency_to_contact_number, ''),
			COALESCE(note, ''), COALESCE(photo_file_id, ''),
			COALESCE(medical_history, '{}'), COALESCE(referral_source, ''), created_at
		FROM patients
		ORDER BY patient_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(
			&p.ID, &p.PatientName, &p.FirstName, &p.LastName, &p.MiddleName,
			&p.Email, &p.Contact, &p.Birthdate, &p.Gender, &p.CivilStatus,
			&p.Occupation, &p.Address, &p.EmergencyToContact, &p.EmergencyToContactNumber,
			&p.Note, &p.PhotoFileID, &p.MedicalHistory, &p.ReferralSource, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return patients, nil
}
