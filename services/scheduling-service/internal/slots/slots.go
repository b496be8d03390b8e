package slots

import (
	"fmt"
	"strconv"
	"strings"
)

// Booking granularity. The day runs from OpenHour to CloseHour in StepMinutes
// increments; every reservation starts on one of these boundaries.
const (
	OpenHour    = 8
	CloseHour   = 24
	StepMinutes = 15
)

// Slot is one discrete bookable time unit.
type Slot struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (s Slot) MinuteOfDay() int {
	return s.Hour*60 + s.Minute
}

// Label renders the slot as "HH:MM".
func (s Slot) Label() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

var day = generate()

// All returns the canonical ordered slot set for one business day. The slice
// is shared by reference and must not be mutated by callers.
func All() []Slot {
	return day
}

// Count is the number of slots in a business day.
func Count() int {
	return len(day)
}

func generate() []Slot {
	out := make([]Slot, 0, (CloseHour-OpenHour)*60/StepMinutes)
	for m := OpenHour * 60; m < CloseHour*60; m += StepMinutes {
		out = append(out, Slot{Hour: m / 60, Minute: m % 60})
	}
	return out
}

// FromMinuteOfDay converts minutes-from-midnight into a Slot. It does not
// snap; use Floor for positions that may fall between boundaries.
func FromMinuteOfDay(m int) Slot {
	return Slot{Hour: m / 60, Minute: m % 60}
}

// Floor snaps minutes-from-midnight down to the nearest slot boundary and
// clamps the result into the bookable day.
func Floor(m int) Slot {
	m -= m % StepMinutes
	if m < OpenHour*60 {
		m = OpenHour * 60
	}
	if m > CloseHour*60-StepMinutes {
		m = CloseHour*60 - StepMinutes
	}
	return FromMinuteOfDay(m)
}

// ParseLabel parses "HH:MM" into minutes-from-midnight. The whole input must
// be two digit groups around a single colon; trailing text is rejected.
func ParseLabel(label string) (int, error) {
	hh, mm, ok := strings.Cut(label, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", label)
	}
	h, err := parseDigits(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", label)
	}
	m, err := parseDigits(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", label)
	}
	if h > 24 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q: out of range", label)
	}
	return h*60 + m, nil
}

func parseDigits(s string) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, strconv.ErrSyntax
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// Aligned reports whether a minute offset sits on a slot boundary inside the
// bookable day.
func Aligned(m int) bool {
	return m%StepMinutes == 0 && m >= OpenHour*60 && m < CloseHour*60
}
