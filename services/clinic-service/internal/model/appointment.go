package model

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Appointment is a scheduled patient visit request. Date holds the absolute
// slot time; DateKey and TimeOfDay are derived from it in the clinic's local
// timezone and must never be written independently of Date.
type Appointment struct {
	ID             string
	Title          string
	Email          string
	Phone          string
	Date           time.Time
	DateKey        string
	TimeOfDay      string
	Status         Status
	Notes          string
	ReferralSource string
	MedicalHistory []string
	PhotoFileID    string
	PatientID      string
	CreatedAt      time.Time
}

// DateKey is the calendar-day bucket ("YYYY-MM-DD") of t in the clinic timezone.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// ClockTime is the 24-hour display time ("HH:MM") of t in the clinic timezone.
func ClockTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// WithDate returns a copy of a with Date replaced and both derived fields
// recomputed together.
func (a Appointment) WithDate(t time.Time, loc *time.Location) Appointment {
	a.Date = t
	a.DateKey = DateKey(t, loc)
	a.TimeOfDay = ClockTime(t, loc)
	return a
}

// Clone returns a deep copy, so cached appointments can be handed to readers
// without sharing the medical history slice.
func (a Appointment) Clone() Appointment {
	if a.MedicalHistory != nil {
		a.MedicalHistory = append([]string(nil), a.MedicalHistory...)
	}
	return a
}
