package fixturesite

import (
	"fmt"
	"strconv"
	"time"
)

// Day is one cell of the date picker grid.
type Day struct {
	Label string
	Class string
}

// Calendar is the month the date picker opens on.
type Calendar struct {
	Month time.Month
	Year  int
	Weeks [][]Day
}

const (
	classDay  = "datepicker-day"
	classPrev = "datepicker-day old"
	classNext = "datepicker-day new"
)

// NewCalendar lays out the month containing t in Monday-first weeks padded
// with days of the neighbouring months. Padding cells carry an extra class.
func NewCalendar(t time.Time) Calendar {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) + 6) % 7
	start := first.AddDate(0, 0, -offset)

	cal := Calendar{Month: first.Month(), Year: first.Year()}
	for d := start; ; {
		week := make([]Day, 0, 7)
		for i := 0; i < 7; i++ {
			class := classDay
			switch {
			case d.Before(first):
				class = classPrev
			case d.Month() != first.Month():
				class = classNext
			}
			week = append(week, Day{Label: strconv.Itoa(d.Day()), Class: class})
			d = d.AddDate(0, 0, 1)
		}
		cal.Weeks = append(cal.Weeks, week)
		if d.Month() != first.Month() {
			break
		}
	}
	return cal
}

// MonthNumber is the two-digit month used when a day is picked.
func (c Calendar) MonthNumber() string {
	return fmt.Sprintf("%02d", int(c.Month))
}
