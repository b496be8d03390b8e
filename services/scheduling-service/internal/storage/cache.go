package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/booking"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"github.com/redis/go-redis/v9"
)

// DayViewCache serves partition reads (the grid's hot path) from Redis with
// bounded staleness. Writes pass straight through to the inner store, which
// stays authoritative, and then drop the affected day keys. Redis failures
// never fail a request; the cache degrades to plain reads.
type DayViewCache struct {
	booking.Store
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewDayViewCache(inner booking.Store, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *DayViewCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &DayViewCache{Store: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *DayViewCache) Reservations(ctx context.Context, staffID, date string) ([]model.Reservation, error) {
	key := dayKey(staffID, date)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cached []model.Reservation
		if json.Unmarshal(data, &cached) == nil {
			return cached, nil
		}
	} else if err != redis.Nil {
		c.logger.Debug("day view cache read failed", "key", key, "err", err)
	}

	out, err := c.Store.Reservations(ctx, staffID, date)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Debug("day view cache write failed", "key", key, "err", err)
		}
	}
	return out, nil
}

func (c *DayViewCache) PutWindow(ctx context.Context, w model.WorkingWindow) error {
	err := c.Store.PutWindow(ctx, w)
	if err == nil {
		c.invalidate(ctx, w.StaffID, w.Date)
	}
	return err
}

func (c *DayViewCache) PutReservation(ctx context.Context, r model.Reservation) (model.Reservation, error) {
	committed, err := c.Store.PutReservation(ctx, r)
	if err == nil {
		c.invalidate(ctx, committed.StaffID, committed.Date)
	}
	return committed, err
}

func (c *DayViewCache) UpdateReservation(ctx context.Context, id string, patch booking.Patch) (model.Reservation, error) {
	prev, prevErr := c.Store.Reservation(ctx, id)
	updated, err := c.Store.UpdateReservation(ctx, id, patch)
	if err != nil {
		return updated, err
	}
	if prevErr == nil {
		c.invalidate(ctx, prev.StaffID, prev.Date)
	}
	c.invalidate(ctx, updated.StaffID, updated.Date)
	return updated, nil
}

func (c *DayViewCache) CancelReservation(ctx context.Context, id string) error {
	prev, prevErr := c.Store.Reservation(ctx, id)
	if err := c.Store.CancelReservation(ctx, id); err != nil {
		return err
	}
	if prevErr == nil {
		c.invalidate(ctx, prev.StaffID, prev.Date)
	}
	return nil
}

func (c *DayViewCache) invalidate(ctx context.Context, staffID, date string) {
	key := dayKey(staffID, date)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Debug("day view cache invalidation failed", "key", key, "err", err)
	}
}

func dayKey(staffID, date string) string {
	return "sched:day:" + staffID + ":" + date
}

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
