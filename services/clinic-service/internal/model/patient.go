package model

import "time"

// Patient is the registry record created when an appointment is confirmed.
// It lives independently of the appointment afterward.
type Patient struct {
	ID                       string    `json:"id"`
	PatientName              string    `json:"patientName"`
	FirstName                string    `json:"firstName,omitempty"`
	LastName                 string    `json:"lastName,omitempty"`
	MiddleName               string    `json:"middleName,omitempty"`
	Email                    string    `json:"email,omitempty"`
	Contact                  string    `json:"contact,omitempty"`
	Birthdate                string    `json:"birthdate,omitempty"`
	Gender                   string    `json:"gender,omitempty"`
	CivilStatus              string    `json:"civilStatus,omitempty"`
	Occupation               string    `json:"occupation,omitempty"`
	Address                  string    `json:"address,omitempty"`
	EmergencyToContact       string    `json:"emergencyToContact,omitempty"`
	EmergencyToContactNumber string    `json:"emergencyToContactNumber,omitempty"`
	Note                     string    `json:"note,omitempty"`
	PhotoFileID              string    `json:"photoFileId,omitempty"`
	MedicalHistory           []string  `json:"medicalHistory,omitempty"`
	ReferralSource           string    `json:"referralSource,omitempty"`
	CreatedAt                time.Time `json:"createdAt"`
}

// PatientFromAppointment copies the demographic fields of a confirmed
// appointment into a new registry record.
func PatientFromAppointment(a Appointment) Patient {
	name := a.Title
	if name == "" {
		name = "Unknown Patient"
	}
	note := a.Notes
	if note == "" {
		note = "Initial record from booking."
	}
	return Patient{
		PatientName:    name,
		Email:          a.Email,
		Contact:        a.Phone,
		Note:           note,
		PhotoFileID:    a.PhotoFileID,
		MedicalHistory: append([]string(nil), a.MedicalHistory...),
		ReferralSource: a.ReferralSource,
	}
}

// Payment is a bookkeeping row in a patient's financial history. Access is
// behind the admin gate.
type Payment struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	Amount    float64   `json:"amount"`
	Balance   float64   `json:"balance"`
	Note      string    `json:"note,omitempty"`
	PaidAt    time.Time `json:"paidAt"`
}
