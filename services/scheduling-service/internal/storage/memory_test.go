package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/booking"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

func reservation(id, staffID, date string, startMinute, duration int) model.Reservation {
	return model.Reservation{
		ID:              id,
		StaffID:         staffID,
		Date:            date,
		StartMinute:     startMinute,
		DurationMinutes: duration,
		Kind:            model.KindClientAppointment,
		Status:          model.StatusConfirmed,
		CustomerRef:     "cust-1",
	}
}

func TestMemoryStore_PutRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.PutReservation(ctx, reservation("a", "st-1", "2030-05-01", 600, 60)); err != nil {
		t.Fatalf("first put: %v", err)
	}

	_, err := s.PutReservation(ctx, reservation("b", "st-1", "2030-05-01", 630, 30))
	var ce *model.ConflictError
	if !model.IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if ce, _ = err.(*model.ConflictError); ce.StartMinute != 600 {
		t.Fatalf("conflict should name the existing interval, got %+v", ce)
	}

	// Back-to-back is fine: half-open intervals.
	if _, err := s.PutReservation(ctx, reservation("c", "st-1", "2030-05-01", 660, 30)); err != nil {
		t.Fatalf("adjacent put: %v", err)
	}
	// Different staff, same time: fine.
	if _, err := s.PutReservation(ctx, reservation("d", "st-2", "2030-05-01", 600, 60)); err != nil {
		t.Fatalf("other staff put: %v", err)
	}
}

func TestMemoryStore_WaitlistHoldCoexists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.PutReservation(ctx, reservation("a", "st-1", "2030-05-01", 600, 60)); err != nil {
		t.Fatalf("put: %v", err)
	}

	hold := reservation("h", "st-1", "2030-05-01", 600, 60)
	hold.Kind = model.KindWaitlistHold
	if _, err := s.PutReservation(ctx, hold); err != nil {
		t.Fatalf("hold should coexist with an occupying reservation: %v", err)
	}

	all, err := s.Reservations(ctx, "st-1", "2030-05-01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(all))
	}
}

func TestMemoryStore_CancelledFreesSlot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.PutReservation(ctx, reservation("a", "st-1", "2030-05-01", 600, 60)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.CancelReservation(ctx, "a"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// Idempotent.
	if err := s.CancelReservation(ctx, "a"); err != nil {
		t.Fatalf("second cancel should be a no-op: %v", err)
	}
	if err := s.CancelReservation(ctx, "nope"); !model.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	if _, err := s.PutReservation(ctx, reservation("b", "st-1", "2030-05-01", 600, 60)); err != nil {
		t.Fatalf("slot should be free after cancel: %v", err)
	}

	got, err := s.Reservation(ctx, "a")
	if err != nil {
		t.Fatalf("cancelled reservation must remain readable: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", got.Status)
	}
}

func TestMemoryStore_UpdateMovesPartition(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.PutReservation(ctx, reservation("a", "st-1", "2030-05-01", 600, 60)); err != nil {
		t.Fatalf("put: %v", err)
	}

	staff := "st-2"
	date := "2030-05-02"
	updated, err := s.UpdateReservation(ctx, "a", booking.Patch{StaffID: &staff, Date: &date})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StaffID != "st-2" || updated.Date != "2030-05-02" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	old, _ := s.Reservations(ctx, "st-1", "2030-05-01")
	if len(old) != 0 {
		t.Fatalf("old partition should be empty, got %d", len(old))
	}
	moved, _ := s.Reservations(ctx, "st-2", "2030-05-02")
	if len(moved) != 1 {
		t.Fatalf("new partition should hold the reservation, got %d", len(moved))
	}
}

func TestMemoryStore_UpdateExcludesSelf(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.PutReservation(ctx, reservation("a", "st-1", "2030-05-01", 600, 60)); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Re-committing the unchanged time must not self-conflict.
	start := 600
	if _, err := s.UpdateReservation(ctx, "a", booking.Patch{StartMinute: &start}); err != nil {
		t.Fatalf("no-op move should succeed: %v", err)
	}
}

func TestMemoryStore_ConcurrentPutsOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := reservation("", "st-1", "2030-05-01", 600, 30)
			r.ID = string(rune('a' + i))
			_, errs[i] = s.PutReservation(ctx, r)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case model.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if conflicts != writers-1 {
		t.Fatalf("expected %d conflicts, got %d", writers-1, conflicts)
	}
}
