package grid

import (
	"testing"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/slots"
)

func TestRowOffset_LinearFromOpening(t *testing.T) {
	p := NewProjector(2)

	tests := []struct {
		slot slots.Slot
		want int
	}{
		{slots.Slot{Hour: 8, Minute: 0}, 0},
		{slots.Slot{Hour: 8, Minute: 15}, 1},
		{slots.Slot{Hour: 10, Minute: 0}, 8},
		{slots.Slot{Hour: 23, Minute: 45}, 63},
	}
	for _, tt := range tests {
		if got := p.RowOffset(tt.slot); got != tt.want {
			t.Errorf("RowOffset(%s) = %d, want %d", tt.slot.Label(), got, tt.want)
		}
	}
}

func TestSlotFromDropPosition_FloorsToSlot(t *testing.T) {
	// 2 pixels per minute: 10:07 is (2h07m after opening) = 254px.
	p := NewProjector(2)

	got := p.SlotFromDropPosition(254)
	if got.Label() != "10:00" {
		t.Fatalf("drop at 10:07 should snap to 10:00, got %s", got.Label())
	}

	// Exactly on a boundary stays put.
	got = p.SlotFromDropPosition(240) // 10:00
	if got.Label() != "10:00" {
		t.Fatalf("drop at 10:00 should stay at 10:00, got %s", got.Label())
	}

	// One pixel before the next boundary still floors down.
	got = p.SlotFromDropPosition(269) // 10:14.5
	if got.Label() != "10:00" {
		t.Fatalf("drop at 10:14 should snap to 10:00, got %s", got.Label())
	}

	// Negative positions clamp to the first slot, far drops to the last.
	if got := p.SlotFromDropPosition(-50); got.Label() != "08:00" {
		t.Fatalf("expected clamp to 08:00, got %s", got.Label())
	}
	if got := p.SlotFromDropPosition(1e6); got.Label() != "23:45" {
		t.Fatalf("expected clamp to 23:45, got %s", got.Label())
	}
}

func TestDropPatch(t *testing.T) {
	p := NewProjector(2)

	patch := p.DropPatch("st-2", "2030-05-01", 254)
	if patch.StaffID == nil || *patch.StaffID != "st-2" {
		t.Fatalf("patch staff = %v", patch.StaffID)
	}
	if patch.Date == nil || *patch.Date != "2030-05-01" {
		t.Fatalf("patch date = %v", patch.Date)
	}
	if patch.StartMinute == nil || *patch.StartMinute != 10*60 {
		t.Fatalf("patch start = %v, want 600", patch.StartMinute)
	}
	if patch.DurationMinutes != nil {
		t.Fatal("drop must not change duration")
	}
}

func TestProject(t *testing.T) {
	staff := []model.StaffMember{{ID: "st-1", Name: "Dana"}, {ID: "st-2", Name: "Ira"}}
	windows := map[string]model.WorkingWindow{
		"st-1": {StaffID: "st-1", Date: "2030-05-01", StartMinute: 9 * 60, EndMinute: 17 * 60, Available: true},
		// st-2 has no window: whole column unbookable.
	}
	reservations := map[string][]model.Reservation{
		"st-1": {
			{ID: "r1", StaffID: "st-1", Date: "2030-05-01", StartMinute: 10 * 60, DurationMinutes: 45,
				Kind: model.KindClientAppointment, Status: model.StatusConfirmed},
			{ID: "r2", StaffID: "st-1", Date: "2030-05-01", StartMinute: 11 * 60, DurationMinutes: 30,
				Kind: model.KindClientAppointment, Status: model.StatusCancelled},
		},
	}

	g := Project("2030-05-01", staff, windows, reservations)
	if len(g.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(g.Columns))
	}
	if len(g.Columns[0].Cells) != slots.Count() {
		t.Fatalf("expected %d cells, got %d", slots.Count(), len(g.Columns[0].Cells))
	}

	col := g.Columns[0]
	row := func(h, m int) Cell {
		return col.Cells[((h*60+m)-slots.OpenHour*60)/slots.StepMinutes]
	}

	// The 45-minute reservation spans three cells.
	head := row(10, 0)
	if head.ReservationID != "r1" || head.SpanSlots != 3 || head.Continuation {
		t.Fatalf("unexpected head cell: %+v", head)
	}
	tail := row(10, 30)
	if tail.ReservationID != "r1" || !tail.Continuation {
		t.Fatalf("unexpected tail cell: %+v", tail)
	}
	if head.Bookable || tail.Bookable {
		t.Fatal("occupied cells must not be bookable")
	}

	// Cancelled reservations are invisible; their slot is open again.
	free := row(11, 0)
	if free.ReservationID != "" || !free.Bookable {
		t.Fatalf("cancelled reservation should not paint the grid: %+v", free)
	}

	// Outside the working window: not bookable.
	if row(8, 0).Bookable {
		t.Fatal("08:00 is before the working window")
	}

	// Column without a window is fully unbookable.
	for _, cell := range g.Columns[1].Cells {
		if cell.Bookable {
			t.Fatalf("staff without a window must be unbookable, cell %s", cell.Slot.Label())
		}
	}
}
