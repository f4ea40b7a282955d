package calendar

import (
	"time"

	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
)

// Day is one grid cell: a calendar day, whether it belongs to the reference
// month, and that day's appointments in the order they were given (ascending
// slot time, inherited from the engine's list).
type Day struct {
	Date         time.Time
	DateKey      string
	InMonth      bool
	Appointments []model.Appointment
}

// Week is one Sunday-to-Saturday grid row.
type Week [7]Day

// MonthGrid projects already-loaded appointments onto a 7-column grid of full
// weeks covering the month of ref: the grid starts on the Sunday of the week
// containing the 1st and ends on the Saturday of the week containing the last
// day. Purely local; month navigation never refetches.
func MonthGrid(ref time.Time, appts []model.Appointment, loc *time.Location) []Week {
	ref = ref.In(loc)
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
	monthEnd := monthStart.AddDate(0, 1, -1)

	gridStart := startOfWeek(monthStart)
	gridEnd := startOfWeek(monthEnd).AddDate(0, 0, 6)

	byDay := bucketByDay(appts, loc)

	var weeks []Week
	for cursor := gridStart; !cursor.After(gridEnd); {
		var week Week
		for i := 0; i < 7; i++ {
			key := cursor.Format("2006-01-02")
			week[i] = Day{
				Date:         cursor,
				DateKey:      key,
				InMonth:      cursor.Month() == monthStart.Month() && cursor.Year() == monthStart.Year(),
				Appointments: byDay[key],
			}
			cursor = cursor.AddDate(0, 0, 1)
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// DayAppointments returns the subset of appts falling on the given day,
// preserving order.
func DayAppointments(appts []model.Appointment, day time.Time, loc *time.Location) []model.Appointment {
	key := day.In(loc).Format("2006-01-02")
	var out []model.Appointment
	for _, a := range appts {
		if model.DateKey(a.Date, loc) == key {
			out = append(out, a)
		}
	}
	return out
}

// NextMonth and PrevMonth navigate from the first of ref's month, so a ref on
// the 31st cannot skip a short month.
func NextMonth(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, 1, 0)
}

func PrevMonth(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, -1, 0)
}

func bucketByDay(appts []model.Appointment, loc *time.Location) map[string][]model.Appointment {
	byDay := make(map[string][]model.Appointment)
	for _, a := range appts {
		key := model.DateKey(a.Date, loc)
		byDay[key] = append(byDay[key], a)
	}
	return byDay
}

func startOfWeek(t time.Time) time.Time {
	return t.AddDate(0, 0, -int(t.Weekday()))
}
