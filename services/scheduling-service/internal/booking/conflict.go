package booking

import (
	"context"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

// Overlaps tests two half-open minute intervals [aStart, aStart+aDur) and
// [bStart, bStart+bDur). Back-to-back reservations (one ending exactly where
// the next begins) do not overlap.
func Overlaps(aStart, aDur, bStart, bDur int) bool {
	return aStart < bStart+bDur && bStart < aStart+aDur
}

// Detector decides whether a candidate interval may be reserved. It is an
// advisory pre-check: the store repeats the same test atomically at commit
// time, so a clean answer here can still lose to a concurrent writer.
type Detector struct {
	store Store
}

func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// Find returns the first occupying reservation colliding with the candidate
// interval, or nil when the interval is free. excludeID supports "move this
// reservation" checks without self-conflicting. Waitlist holds never
// contribute to a conflict.
func (d *Detector) Find(ctx context.Context, staffID, date string, startMinute, durationMinutes int, excludeID string) (*model.ConflictError, error) {
	existing, err := d.store.Reservations(ctx, staffID, date)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.ID == excludeID || !r.Occupies() {
			continue
		}
		if Overlaps(startMinute, durationMinutes, r.StartMinute, r.DurationMinutes) {
			return &model.ConflictError{
				StaffID:         r.StaffID,
				Date:            r.Date,
				StartMinute:     r.StartMinute,
				DurationMinutes: r.DurationMinutes,
			}, nil
		}
	}
	return nil, nil
}

// HasConflict is Find reduced to a boolean.
func (d *Detector) HasConflict(ctx context.Context, staffID, date string, startMinute, durationMinutes int, excludeID string) (bool, error) {
	c, err := d.Find(ctx, staffID, date, startMinute, durationMinutes, excludeID)
	if err != nil {
		return false, err
	}
	return c != nil, nil
}
