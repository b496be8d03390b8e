// Package recurrence expands recurrence patterns into concrete target dates.
// A pattern is a pure specification: it is consumed once, and each produced
// date becomes an independent reservation candidate.
package recurrence

import (
	"time"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// DefaultHardCap bounds expansion when a pattern carries neither an occurrence
// count nor an end date.
const DefaultHardCap = 52

type Pattern struct {
	Frequency Frequency
	// Interval is the step multiplier: every N days/weeks/months.
	Interval int
	// Count is the total number of occurrences including the start date.
	// Zero means unbounded (EndDate or the hard cap applies instead).
	Count int
	// EndDate, when non-zero, is the last date (inclusive) an occurrence may
	// fall on.
	EndDate time.Time
}

func (p Pattern) Validate() error {
	switch p.Frequency {
	case Daily, Weekly, Monthly:
	default:
		return &model.ValidationError{Field: "frequency", Reason: "must be daily, weekly, or monthly"}
	}
	if p.Interval < 1 {
		return &model.ValidationError{Field: "interval", Reason: "must be at least 1"}
	}
	if p.Count < 0 {
		return &model.ValidationError{Field: "occurrence_count", Reason: "must not be negative"}
	}
	return nil
}

// Expand produces the ordered sequence of dates for a pattern starting at
// start. The start date is always the first occurrence. Expansion stops at
// the occurrence count or the first date past EndDate; hardCap bounds only
// the open-ended patterns that carry neither, so an explicit Count above the
// cap is honored rather than silently truncated. Dates are strictly
// increasing, so the result holds no duplicates and nothing before start.
//
// Monthly stepping uses calendar-month arithmetic: a start on the 31st rolls
// over short months (Jan 31 + 1 month lands in early March).
func Expand(start time.Time, p Pattern, hardCap int) ([]time.Time, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start = truncate(start)
	end := truncate(p.EndDate)
	if !p.EndDate.IsZero() && end.Before(start) {
		return nil, &model.ValidationError{Field: "end_date", Reason: "before start date"}
	}
	if hardCap <= 0 {
		hardCap = DefaultHardCap
	}

	bounded := p.Count > 0 || !p.EndDate.IsZero()

	var dates []time.Time
	for i := 0; ; i++ {
		if p.Count > 0 && len(dates) == p.Count {
			break
		}
		if !bounded && len(dates) == hardCap {
			break
		}

		var d time.Time
		switch p.Frequency {
		case Daily:
			d = start.AddDate(0, 0, i*p.Interval)
		case Weekly:
			d = start.AddDate(0, 0, 7*i*p.Interval)
		case Monthly:
			d = start.AddDate(0, i*p.Interval, 0)
		}

		if !p.EndDate.IsZero() && d.After(end) {
			break
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// ExpandDates is Expand over wire-format date strings.
func ExpandDates(startDate string, p Pattern, hardCap int) ([]string, error) {
	start, err := time.Parse(model.DateFormat, startDate)
	if err != nil {
		return nil, &model.ValidationError{Field: "start_date", Reason: "expected YYYY-MM-DD"}
	}
	dates, err := Expand(start, p, hardCap)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(model.DateFormat)
	}
	return out, nil
}

func truncate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
