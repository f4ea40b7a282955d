package storage

import (
	"testing"
	"time"

	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
)

var manila = time.FixedZone("PHT", 8*3600)

func TestDocDerivedFieldsFollowTimezone(t *testing.T) {
	// 01:30 UTC is 09:30 the same day in Manila; the document must carry the
	// clinic-local bucket and display time.
	a := model.Appointment{
		ID:     "a1",
		Title:  "Juan Dela Cruz",
		Status: model.StatusPending,
	}.WithDate(time.Date(2024, 3, 15, 1, 30, 0, 0, time.UTC), manila)

	doc := DocFromAppointment(a, manila)
	if doc.DateKey != "2024-03-15" {
		t.Errorf("dateKey = %q, want 2024-03-15", doc.DateKey)
	}
	if doc.Time != "09:30" {
		t.Errorf("time = %q, want 09:30", doc.Time)
	}
	if doc.Date != "2024-03-15T09:30:00+08:00" {
		t.Errorf("date = %q", doc.Date)
	}
}

func TestDocLateEveningCrossesUTCMidnight(t *testing.T) {
	// 23:00 Manila is 15:00 UTC; the bucket must stay on the local day even
	// though the UTC day differs.
	local := time.Date(2024, 3, 15, 23, 0, 0, 0, manila)
	doc := DocFromAppointment(model.Appointment{Title: "x", Status: model.StatusPending}.WithDate(local.UTC(), manila), manila)
	if doc.DateKey != "2024-03-15" {
		t.Errorf("dateKey = %q, want 2024-03-15", doc.DateKey)
	}
	if doc.Time != "23:00" {
		t.Errorf("time = %q, want 23:00", doc.Time)
	}
}

func TestDocAppointmentRecomputesDerivedFields(t *testing.T) {
	// Stale dateKey/time in the document are ignored in favor of the
	// timestamp.
	doc := AppointmentDoc{
		ID:      "a1",
		Title:   "Juan Dela Cruz",
		Date:    "2024-03-15T09:30:00+08:00",
		DateKey: "1999-01-01",
		Time:    "00:00",
		Status:  "pending",
	}
	a, err := doc.Appointment(manila)
	if err != nil {
		t.Fatalf("appointment: %v", err)
	}
	if a.DateKey != "2024-03-15" || a.TimeOfDay != "09:30" {
		t.Errorf("derived = %q %q, want 2024-03-15 09:30", a.DateKey, a.TimeOfDay)
	}
	if !a.Date.Equal(time.Date(2024, 3, 15, 9, 30, 0, 0, manila)) {
		t.Errorf("date = %v", a.Date)
	}
}

func TestDocAppointmentRejectsBadDate(t *testing.T) {
	doc := AppointmentDoc{Title: "x", Date: "tomorrow-ish", Status: "pending"}
	if _, err := doc.Appointment(manila); err == nil {
		t.Fatal("expected error for unparseable date")
	}
}
