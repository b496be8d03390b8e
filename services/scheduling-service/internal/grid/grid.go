// Package grid projects store state into the staff-by-time schedule grid and
// translates drag-drop gestures back into slot-aligned reservation patches.
// It holds no business rules: a drop becomes a candidate patch for the
// booking coordinator, which alone decides conflicts.
package grid

import (
	"math"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/booking"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/slots"
)

// Projector maps between slot times and rendered pixel space. PixelsPerMinute
// is the vertical scale of the rendering surface.
type Projector struct {
	PixelsPerMinute float64
}

func NewProjector(pixelsPerMinute float64) Projector {
	if pixelsPerMinute <= 0 {
		pixelsPerMinute = 1
	}
	return Projector{PixelsPerMinute: pixelsPerMinute}
}

// RowOffset returns the slot's row index counted from the opening hour.
func (p Projector) RowOffset(s slots.Slot) int {
	return (s.MinuteOfDay() - slots.OpenHour*60) / slots.StepMinutes
}

// PixelOffset returns the slot's vertical pixel position on the grid surface.
func (p Projector) PixelOffset(s slots.Slot) float64 {
	return float64(s.MinuteOfDay()-slots.OpenHour*60) * p.PixelsPerMinute
}

// SlotFromDropPosition converts a continuous drop position back into a slot.
// The position is floored to the slot granularity, never rounded up: a drop
// at 10:07 lands on 10:00. This snapping guarantees every rescheduled
// reservation sits on a boundary the slot generator produced.
func (p Projector) SlotFromDropPosition(pixelY float64) slots.Slot {
	minutes := slots.OpenHour*60 + int(math.Floor(pixelY/p.PixelsPerMinute))
	return slots.Floor(minutes)
}

// DropPatch turns a completed drop gesture into the reservation patch
// forwarded to the coordinator's reschedule operation.
func (p Projector) DropPatch(targetStaffID string, targetDate string, pixelY float64) booking.Patch {
	slot := p.SlotFromDropPosition(pixelY)
	start := slot.MinuteOfDay()
	return booking.Patch{
		StaffID:     &targetStaffID,
		Date:        &targetDate,
		StartMinute: &start,
	}
}

// Cell is one slot on one staff member's column. SpanSlots > 1 means the
// reservation covers following cells, which carry Continuation.
type Cell struct {
	Slot          slots.Slot
	ReservationID string
	Kind          model.ReservationKind
	Status        model.ReservationStatus
	SpanSlots     int
	Continuation  bool
	// Bookable is true when the slot sits inside the staff member's working
	// window and no occupying reservation covers it.
	Bookable bool
}

type Column struct {
	Staff model.StaffMember
	Cells []Cell
}

type Grid struct {
	Date    string
	Slots   []slots.Slot
	Columns []Column
}

// Project renders one day of store state as a staff-by-time matrix. windows
// and reservations are keyed by staff id; missing window entries render the
// whole column unbookable (closed world).
func Project(date string, staff []model.StaffMember, windows map[string]model.WorkingWindow, reservations map[string][]model.Reservation) Grid {
	day := slots.All()
	g := Grid{
		Date:    date,
		Slots:   day,
		Columns: make([]Column, 0, len(staff)),
	}

	for _, member := range staff {
		col := Column{Staff: member, Cells: make([]Cell, len(day))}
		w, hasWindow := windows[member.ID]

		for i, s := range day {
			cell := Cell{Slot: s}
			if hasWindow && w.Contains(s.MinuteOfDay(), slots.StepMinutes) {
				cell.Bookable = true
			}
			col.Cells[i] = cell
		}

		for _, r := range reservations[member.ID] {
			if r.Status == model.StatusCancelled {
				continue
			}
			paint(col.Cells, r)
		}
		g.Columns = append(g.Columns, col)
	}
	return g
}

func paint(cells []Cell, r model.Reservation) {
	startRow := (r.StartMinute - slots.OpenHour*60) / slots.StepMinutes
	span := (r.DurationMinutes + slots.StepMinutes - 1) / slots.StepMinutes
	if startRow < 0 {
		span += startRow
		startRow = 0
	}
	for i := 0; i < span && startRow+i < len(cells); i++ {
		cell := &cells[startRow+i]
		// Holds are advisory: they annotate a cell but never claim it from
		// an occupying reservation already painted there.
		if r.Kind == model.KindWaitlistHold && cell.ReservationID != "" {
			continue
		}
		cell.ReservationID = r.ID
		cell.Kind = r.Kind
		cell.Status = r.Status
		cell.Continuation = i > 0
		if i == 0 {
			cell.SpanSlots = span
		}
		if r.Occupies() {
			cell.Bookable = false
		}
	}
}
