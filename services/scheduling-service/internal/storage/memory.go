package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/booking"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

// MemoryStore is the DB-less booking.Store. It backs tests and local dev.
// A single store-wide mutex serializes writers, which is strictly stronger
// than the per-partition atomicity the Postgres store provides; reads take
// the shared lock only.
type MemoryStore struct {
	mu         sync.RWMutex
	windows    map[partitionKey]model.WorkingWindow
	partitions map[partitionKey][]string // reservation ids ordered by start
	byID       map[string]model.Reservation
	now        func() time.Time
}

type partitionKey struct {
	staffID string
	date    string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows:    make(map[partitionKey]model.WorkingWindow),
		partitions: make(map[partitionKey][]string),
		byID:       make(map[string]model.Reservation),
		now:        time.Now,
	}
}

var _ booking.Store = (*MemoryStore)(nil)

func (s *MemoryStore) Window(_ context.Context, staffID, date string) (model.WorkingWindow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[partitionKey{staffID, date}]
	return w, ok, nil
}

func (s *MemoryStore) PutWindow(_ context.Context, w model.WorkingWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[partitionKey{w.StaffID, w.Date}] = w
	return nil
}

func (s *MemoryStore) Reservations(_ context.Context, staffID, date string) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.partitions[partitionKey{staffID, date}]
	out := make([]model.Reservation, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *MemoryStore) Reservation(_ context.Context, id string) (model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return model.Reservation{}, &model.NotFoundError{Resource: "reservation", Ref: id}
	}
	return r, nil
}

func (s *MemoryStore) PutReservation(_ context.Context, r model.Reservation) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := partitionKey{r.StaffID, r.Date}
	if r.Occupies() {
		if conflict := s.findConflictLocked(key, r.StartMinute, r.DurationMinutes, ""); conflict != nil {
			return model.Reservation{}, conflict
		}
	}

	now := s.now()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.byID[r.ID] = r
	s.partitions[key] = append(s.partitions[key], r.ID)
	s.sortPartitionLocked(key)
	return r, nil
}

func (s *MemoryStore) UpdateReservation(_ context.Context, id string, patch booking.Patch) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[id]
	if !ok {
		return model.Reservation{}, &model.NotFoundError{Resource: "reservation", Ref: id}
	}

	target := patch.ApplyTo(existing)
	newKey := partitionKey{target.StaffID, target.Date}
	if target.Occupies() {
		if conflict := s.findConflictLocked(newKey, target.StartMinute, target.DurationMinutes, id); conflict != nil {
			return model.Reservation{}, conflict
		}
	}

	oldKey := partitionKey{existing.StaffID, existing.Date}
	if oldKey != newKey {
		s.partitions[oldKey] = removeID(s.partitions[oldKey], id)
		s.partitions[newKey] = append(s.partitions[newKey], id)
	}
	target.UpdatedAt = s.now()
	s.byID[id] = target
	s.sortPartitionLocked(newKey)
	return target, nil
}

func (s *MemoryStore) CancelReservation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[id]
	if !ok {
		return &model.NotFoundError{Resource: "reservation", Ref: id}
	}
	if existing.Status == model.StatusCancelled {
		return nil
	}
	existing.Status = model.StatusCancelled
	existing.UpdatedAt = s.now()
	s.byID[id] = existing
	return nil
}

func (s *MemoryStore) findConflictLocked(key partitionKey, startMinute, durationMinutes int, excludeID string) *model.ConflictError {
	for _, id := range s.partitions[key] {
		r := s.byID[id]
		if r.ID == excludeID || !r.Occupies() {
			continue
		}
		if booking.Overlaps(startMinute, durationMinutes, r.StartMinute, r.DurationMinutes) {
			return &model.ConflictError{
				StaffID:         r.StaffID,
				Date:            r.Date,
				StartMinute:     r.StartMinute,
				DurationMinutes: r.DurationMinutes,
			}
		}
	}
	return nil
}

func (s *MemoryStore) sortPartitionLocked(key partitionKey) {
	ids := s.partitions[key]
	sort.SliceStable(ids, func(i, j int) bool {
		return s.byID[ids[i]].StartMinute < s.byID[ids[j]].StartMinute
	})
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
