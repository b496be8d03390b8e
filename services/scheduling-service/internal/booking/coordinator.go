package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/directory"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/slots"
	"github.com/google/uuid"
)

// Coordinator orchestrates reservation creation, reschedule, and
// cancellation. It is the only component that decides on retries or rollback;
// the store surfaces conflicts, the coordinator turns them into answers.
type Coordinator struct {
	store    Store
	detector *Detector
	dir      directory.Resolver
	notifier Notifier
	logger   *slog.Logger

	now       func() time.Time
	allowPast bool
}

type Config struct {
	// AllowPastDates permits reservations on dates before today. Off in
	// production; tests and backfill tooling turn it on.
	AllowPastDates bool
	// Now overrides the clock.
	Now func() time.Time
}

func NewCoordinator(store Store, dir directory.Resolver, notifier Notifier, logger *slog.Logger, cfg Config) *Coordinator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Coordinator{
		store:     store,
		detector:  NewDetector(store),
		dir:       dir,
		notifier:  notifier,
		logger:    logger,
		now:       now,
		allowPast: cfg.AllowPastDates,
	}
}

// Book validates and commits a single reservation. On success the committed
// reservation is confirmed; a conflicting candidate is rejected with a
// *model.ConflictError naming the colliding interval.
func (c *Coordinator) Book(ctx context.Context, cand Candidate) (model.Reservation, error) {
	r, err := c.prepare(ctx, cand)
	if err != nil {
		return model.Reservation{}, err
	}
	committed, err := c.commit(ctx, r)
	if err != nil {
		return model.Reservation{}, err
	}
	c.notify(ctx, EventReservationConfirmed, committed)
	return committed, nil
}

// BookBatch commits an ordered group of candidates with all-or-nothing
// semantics. Candidates are validated and committed in caller-supplied order;
// on the first conflict every reservation already committed in this batch is
// cancelled and a *model.BatchConflictError names the offending candidate.
// Confirmation events are published only after the whole batch commits, so a
// rolled-back batch announces nothing.
func (c *Coordinator) BookBatch(ctx context.Context, cands []Candidate) ([]model.Reservation, error) {
	if len(cands) == 0 {
		return nil, &model.ValidationError{Field: "candidates", Reason: "batch is empty"}
	}

	prepared := make([]model.Reservation, len(cands))
	for i, cand := range cands {
		r, err := c.prepare(ctx, cand)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		prepared[i] = r
	}

	committed := make([]model.Reservation, 0, len(prepared))
	for i, r := range prepared {
		res, err := c.commit(ctx, r)
		if err != nil {
			c.rollback(ctx, committed)
			var ce *model.ConflictError
			if errors.As(err, &ce) {
				return nil, &model.BatchConflictError{
					Index:    i,
					Date:     r.Date,
					Minute:   r.StartMinute,
					Conflict: ce,
				}
			}
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		committed = append(committed, res)
	}

	for _, r := range committed {
		c.notify(ctx, EventReservationConfirmed, r)
	}
	return committed, nil
}

// Reschedule moves a reservation to a new time and/or staff member. The new
// interval is re-validated excluding the reservation itself; on conflict the
// stored reservation is left untouched so the caller can revert any
// speculative UI state.
func (c *Coordinator) Reschedule(ctx context.Context, id string, patch Patch) (model.Reservation, error) {
	existing, err := c.store.Reservation(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if existing.Status == model.StatusCancelled {
		return model.Reservation{}, &model.ValidationError{Field: "status", Reason: "cannot reschedule a cancelled reservation"}
	}

	target := patch.ApplyTo(existing)
	if err := c.validateInterval(target.StartMinute, target.DurationMinutes); err != nil {
		return model.Reservation{}, err
	}
	if patch.Date != nil {
		if err := c.validateDate(target.Date); err != nil {
			return model.Reservation{}, err
		}
	}
	if patch.StaffID != nil {
		if _, err := c.dir.Staff(ctx, target.StaffID); err != nil {
			return model.Reservation{}, err
		}
	}
	if err := c.checkWindow(ctx, target); err != nil {
		return model.Reservation{}, err
	}

	if target.Occupies() {
		conflict, err := c.detector.Find(ctx, target.StaffID, target.Date, target.StartMinute, target.DurationMinutes, id)
		if err != nil {
			return model.Reservation{}, err
		}
		if conflict != nil {
			return model.Reservation{}, conflict
		}
	}

	updated, err := c.store.UpdateReservation(ctx, id, patch)
	if err != nil {
		return model.Reservation{}, err
	}
	c.notify(ctx, EventReservationRescheduled, updated)
	return updated, nil
}

// Cancel soft-deletes a reservation. Cancelling twice is a no-op; the second
// call returns success without publishing another event.
func (c *Coordinator) Cancel(ctx context.Context, id string) error {
	existing, err := c.store.Reservation(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status == model.StatusCancelled {
		return nil
	}
	if err := c.store.CancelReservation(ctx, id); err != nil {
		return err
	}
	existing.Status = model.StatusCancelled
	c.notify(ctx, EventReservationCancelled, existing)
	return nil
}

// prepare validates a candidate and shapes it into a pending reservation.
func (c *Coordinator) prepare(ctx context.Context, cand Candidate) (model.Reservation, error) {
	kind := cand.Kind
	if kind == "" {
		kind = model.KindClientAppointment
	}
	if !kind.Valid() {
		return model.Reservation{}, &model.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown reservation kind %q", cand.Kind)}
	}
	if err := c.validateInterval(cand.StartMinute, cand.DurationMinutes); err != nil {
		return model.Reservation{}, err
	}
	if err := c.validateDate(cand.Date); err != nil {
		return model.Reservation{}, err
	}

	if _, err := c.dir.Staff(ctx, cand.StaffID); err != nil {
		return model.Reservation{}, err
	}
	if cand.CustomerRef != "" {
		ok, err := c.dir.CustomerExists(ctx, cand.CustomerRef)
		if err != nil {
			return model.Reservation{}, err
		}
		if !ok {
			return model.Reservation{}, &model.NotFoundError{Resource: "customer", Ref: cand.CustomerRef}
		}
	}
	if cand.ServiceRef != "" {
		ok, err := c.dir.ServiceExists(ctx, cand.ServiceRef)
		if err != nil {
			return model.Reservation{}, err
		}
		if !ok {
			return model.Reservation{}, &model.NotFoundError{Resource: "service", Ref: cand.ServiceRef}
		}
	}
	if kind == model.KindClientAppointment && cand.CustomerRef == "" {
		return model.Reservation{}, &model.ValidationError{Field: "customer_ref", Reason: "required for client appointments"}
	}

	r := model.Reservation{
		ID:              uuid.NewString(),
		StaffID:         cand.StaffID,
		Date:            cand.Date,
		StartMinute:     cand.StartMinute,
		DurationMinutes: cand.DurationMinutes,
		Kind:            kind,
		Status:          model.StatusPending,
		CustomerRef:     cand.CustomerRef,
		ServiceRef:      cand.ServiceRef,
		Notes:           cand.Notes,
	}
	if err := c.checkWindow(ctx, r); err != nil {
		return model.Reservation{}, err
	}
	return r, nil
}

// commit runs the conflict check and persists. The store repeats the check
// atomically under its partition lock, so a concurrent writer that slips past
// the detector still loses cleanly at the store.
func (c *Coordinator) commit(ctx context.Context, r model.Reservation) (model.Reservation, error) {
	if r.Kind != model.KindWaitlistHold {
		conflict, err := c.detector.Find(ctx, r.StaffID, r.Date, r.StartMinute, r.DurationMinutes, "")
		if err != nil {
			return model.Reservation{}, err
		}
		if conflict != nil {
			return model.Reservation{}, conflict
		}
	}
	r.Status = model.StatusConfirmed
	return c.store.PutReservation(ctx, r)
}

// rollback reverses the committed prefix of a failed batch, newest first.
// Failures here are logged and skipped: the reservations were never announced,
// and a stuck cancel is an infrastructure problem, not a caller one.
func (c *Coordinator) rollback(ctx context.Context, committed []model.Reservation) {
	for i := len(committed) - 1; i >= 0; i-- {
		if err := c.store.CancelReservation(ctx, committed[i].ID); err != nil {
			c.logger.Error("batch rollback cancel failed",
				"reservation_id", committed[i].ID,
				"err", err,
			)
		}
	}
}

func (c *Coordinator) validateInterval(startMinute, durationMinutes int) error {
	if durationMinutes <= 0 {
		return &model.ValidationError{Field: "duration_minutes", Reason: "must be positive"}
	}
	if !slots.Aligned(startMinute) {
		return &model.ValidationError{Field: "time", Reason: "must start on a slot boundary within business hours"}
	}
	if startMinute+durationMinutes > slots.CloseHour*60 {
		return &model.ValidationError{Field: "duration_minutes", Reason: "extends past closing"}
	}
	return nil
}

func (c *Coordinator) validateDate(date string) error {
	d, err := time.Parse(model.DateFormat, date)
	if err != nil {
		return &model.ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	if c.allowPast {
		return nil
	}
	now := c.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.Location())
	if d.Before(today) {
		return &model.ValidationError{Field: "date", Reason: "is in the past"}
	}
	return nil
}

// checkWindow enforces the working-window envelope for client appointments.
// Personal tasks and waitlist holds are internal and may sit outside the
// bookable envelope.
func (c *Coordinator) checkWindow(ctx context.Context, r model.Reservation) error {
	if r.Kind != model.KindClientAppointment {
		return nil
	}
	w, ok, err := c.store.Window(ctx, r.StaffID, r.Date)
	if err != nil {
		return err
	}
	if !ok || !w.Contains(r.StartMinute, r.DurationMinutes) {
		return &model.ValidationError{Field: "time", Reason: "outside the staff member's working window"}
	}
	return nil
}

func (c *Coordinator) notify(ctx context.Context, eventType string, r model.Reservation) {
	if err := c.notifier.Notify(ctx, eventType, r); err != nil {
		c.logger.Warn("notification dispatch failed",
			"event_type", eventType,
			"reservation_id", r.ID,
			"err", err,
		)
	}
}

// ApplyTo returns a copy of r with the patch's non-nil fields applied.
func (p Patch) ApplyTo(r model.Reservation) model.Reservation {
	if p.StaffID != nil {
		r.StaffID = *p.StaffID
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.StartMinute != nil {
		r.StartMinute = *p.StartMinute
	}
	if p.DurationMinutes != nil {
		r.DurationMinutes = *p.DurationMinutes
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}
