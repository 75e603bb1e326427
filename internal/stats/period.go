package stats

import (
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
)

// Period is a trailing reporting window.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// ParsePeriod validates a period name. An empty name means week.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return p, nil
	case "":
		return PeriodWeek, nil
	}
	return "", fmt.Errorf("period %q (want week, month, year or all): %w", s, models.ErrInvalid)
}

// Days returns the window length, or 0 for all.
func (p Period) Days() int {
	switch p {
	case PeriodWeek:
		return 7
	case PeriodMonth:
		return 30
	case PeriodYear:
		return 365
	}
	return 0
}

// Cutoff returns the earliest instant inside the window ending at now.
// For all it returns the zero time.
func (p Period) Cutoff(now time.Time) time.Time {
	d := p.Days()
	if d == 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -d)
}

// Label formats t for chart axes: weekday for week, day and month for
// month, month for year, month and year for all.
func (p Period) Label(t time.Time) string {
	switch p {
	case PeriodWeek:
		return t.Format("Mon")
	case PeriodMonth:
		return t.Format("2 Jan")
	case PeriodYear:
		return t.Format("Jan")
	}
	return t.Format("Jan 2006")
}

// monthly reports whether workout counts bucket by month rather than day.
func (p Period) monthly() bool {
	return p == PeriodYear || p == PeriodAll
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
