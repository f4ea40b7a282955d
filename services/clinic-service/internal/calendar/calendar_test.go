package calendar

import (
	"testing"
	"time"

	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
)

var manila = time.FixedZone("PHT", 8*3600)

func appt(id string, date time.Time) model.Appointment {
	return model.Appointment{ID: id, Title: id, Status: model.StatusPending}.WithDate(date, manila)
}

func TestMonthGridCoversFullWeeks(t *testing.T) {
	// May 2024 starts on a Wednesday and ends on a Friday, so the grid must
	// reach back to Sunday April 28 and forward to Saturday June 1.
	ref := time.Date(2024, 5, 15, 0, 0, 0, 0, manila)
	weeks := MonthGrid(ref, nil, manila)

	if len(weeks) != 5 {
		t.Fatalf("weeks = %d, want 5", len(weeks))
	}
	first := weeks[0][0]
	if first.DateKey != "2024-04-28" {
		t.Errorf("grid start = %s, want 2024-04-28", first.DateKey)
	}
	if first.Date.Weekday() != time.Sunday {
		t.Errorf("grid start weekday = %s, want Sunday", first.Date.Weekday())
	}
	if first.InMonth {
		t.Error("leading day marked in-month")
	}
	last := weeks[len(weeks)-1][6]
	if last.DateKey != "2024-06-01" {
		t.Errorf("grid end = %s, want 2024-06-01", last.DateKey)
	}
	if last.InMonth {
		t.Error("trailing day marked in-month")
	}

	inMonth := 0
	for _, week := range weeks {
		for _, day := range week {
			if day.InMonth {
				inMonth++
			}
		}
	}
	if inMonth != 31 {
		t.Errorf("in-month days = %d, want 31", inMonth)
	}
}

func TestMonthGridBucketsAppointments(t *testing.T) {
	ref := time.Date(2024, 3, 1, 0, 0, 0, 0, manila)
	appts := []model.Appointment{
		appt("a", time.Date(2024, 3, 15, 9, 30, 0, 0, manila)),
		appt("b", time.Date(2024, 3, 15, 14, 0, 0, 0, manila)),
		appt("c", time.Date(2024, 3, 16, 10, 0, 0, 0, manila)),
		// Outside the month but inside the leading week.
		appt("d", time.Date(2024, 2, 26, 8, 0, 0, 0, manila)),
	}
	weeks := MonthGrid(ref, appts, manila)

	found := make(map[string]int)
	for _, week := range weeks {
		for _, day := range week {
			if len(day.Appointments) > 0 {
				found[day.DateKey] = len(day.Appointments)
			}
		}
	}
	if found["2024-03-15"] != 2 {
		t.Errorf("2024-03-15 has %d appointments, want 2", found["2024-03-15"])
	}
	if found["2024-03-16"] != 1 {
		t.Errorf("2024-03-16 has %d appointments, want 1", found["2024-03-16"])
	}
	// The leading Monday belongs to February but is still a grid cell.
	if found["2024-02-26"] != 1 {
		t.Errorf("2024-02-26 has %d appointments, want 1", found["2024-02-26"])
	}
}

func TestDayAppointments(t *testing.T) {
	appts := []model.Appointment{
		appt("a", time.Date(2024, 3, 15, 9, 30, 0, 0, manila)),
		appt("b", time.Date(2024, 3, 15, 14, 0, 0, 0, manila)),
		appt("c", time.Date(2024, 3, 16, 10, 0, 0, 0, manila)),
	}
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, manila)
	got := DayAppointments(appts, day, manila)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("order = %s, %s; input order must be preserved", got[0].ID, got[1].ID)
	}
}

func TestMonthNavigationAnchorsAtFirst(t *testing.T) {
	// From Jan 31 the next month must be February, not March.
	ref := time.Date(2024, 1, 31, 0, 0, 0, 0, manila)
	if next := NextMonth(ref); next.Month() != time.February || next.Day() != 1 {
		t.Errorf("next = %s", next.Format("2006-01-02"))
	}
	if prev := PrevMonth(ref); prev.Month() != time.December || prev.Year() != 2023 {
		t.Errorf("prev = %s", prev.Format("2006-01-02"))
	}
}
