package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookwell/bookwell/libs/db"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/booking"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore is the authoritative booking.Store. Each write runs as one
// transaction holding a per-partition advisory lock, so the conflict check
// and the insert/update are indivisible for concurrent writers on the same
// (staff_id, date). The reservations_no_overlap exclusion constraint is the
// storage-level backstop (SQLSTATE 23P01).
type PostgresStore struct {
	pool *db.Pool
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ booking.Store = (*PostgresStore)(nil)

const reservationColumns = `
	id::text, staff_id, date, start_minute, duration_minutes,
	kind, status, COALESCE(customer_ref, ''), COALESCE(service_ref, ''),
	COALESCE(notes, ''), created_at, updated_at`

func (s *PostgresStore) Window(ctx context.Context, staffID, date string) (model.WorkingWindow, bool, error) {
	var w model.WorkingWindow
	var d time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT staff_id, date, start_minute, end_minute, is_available
		FROM working_windows
		WHERE staff_id = $1 AND date = $2
	`, staffID, date).Scan(&w.StaffID, &d, &w.StartMinute, &w.EndMinute, &w.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.WorkingWindow{}, false, nil
	}
	if err != nil {
		return model.WorkingWindow{}, false, storageErr("get window", err)
	}
	w.Date = d.Format(model.DateFormat)
	return w, true, nil
}

func (s *PostgresStore) PutWindow(ctx context.Context, w model.WorkingWindow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO working_windows (staff_id, date, start_minute, end_minute, is_available)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (staff_id, date) DO UPDATE
		SET start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			is_available = EXCLUDED.is_available,
			updated_at = now()
	`, w.StaffID, w.Date, w.StartMinute, w.EndMinute, w.Available)
	if err != nil {
		return storageErr("put window", err)
	}
	return nil
}

func (s *PostgresStore) Reservations(ctx context.Context, staffID, date string) ([]model.Reservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE staff_id = $1 AND date = $2
		ORDER BY start_minute ASC
	`, staffID, date)
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, storageErr("list reservations", rows.Err())
	}
	return out, nil
}

func (s *PostgresStore) Reservation(ctx context.Context, id string) (model.Reservation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
	`, id)
	r, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Reservation{}, &model.NotFoundError{Resource: "reservation", Ref: id}
		}
		return model.Reservation{}, err
	}
	return r, nil
}

func (s *PostgresStore) PutReservation(ctx context.Context, r model.Reservation) (model.Reservation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Reservation{}, storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockPartition(ctx, tx, r.StaffID, r.Date); err != nil {
		return model.Reservation{}, err
	}
	if r.Occupies() {
		conflict, err := findConflict(ctx, tx, r.StaffID, r.Date, r.StartMinute, r.DurationMinutes, "")
		if err != nil {
			return model.Reservation{}, err
		}
		if conflict != nil {
			return model.Reservation{}, conflict
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO reservations
			(id, staff_id, date, start_minute, duration_minutes, kind, status, customer_ref, service_ref, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''))
		RETURNING created_at, updated_at
	`, r.ID, r.StaffID, r.Date, r.StartMinute, r.DurationMinutes, r.Kind, r.Status,
		r.CustomerRef, r.ServiceRef, r.Notes,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return model.Reservation{}, &model.ConflictError{
				StaffID:         r.StaffID,
				Date:            r.Date,
				StartMinute:     r.StartMinute,
				DurationMinutes: r.DurationMinutes,
			}
		}
		return model.Reservation{}, storageErr("insert reservation", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Reservation{}, storageErr("commit", err)
	}
	return r, nil
}

func (s *PostgresStore) UpdateReservation(ctx context.Context, id string, patch booking.Patch) (model.Reservation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Reservation{}, storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`, id)
	existing, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Reservation{}, &model.NotFoundError{Resource: "reservation", Ref: id}
		}
		return model.Reservation{}, err
	}

	target := patch.ApplyTo(existing)
	if err := lockPartition(ctx, tx, target.StaffID, target.Date); err != nil {
		return model.Reservation{}, err
	}
	if target.Occupies() {
		conflict, err := findConflict(ctx, tx, target.StaffID, target.Date, target.StartMinute, target.DurationMinutes, id)
		if err != nil {
			return model.Reservation{}, err
		}
		if conflict != nil {
			return model.Reservation{}, conflict
		}
	}

	err = tx.QueryRow(ctx, `
		UPDATE reservations
		SET staff_id = $2,
			date = $3,
			start_minute = $4,
			duration_minutes = $5,
			notes = NULLIF($6, ''),
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, id, target.StaffID, target.Date, target.StartMinute, target.DurationMinutes, target.Notes,
	).Scan(&target.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return model.Reservation{}, &model.ConflictError{
				StaffID:         target.StaffID,
				Date:            target.Date,
				StartMinute:     target.StartMinute,
				DurationMinutes: target.DurationMinutes,
			}
		}
		return model.Reservation{}, storageErr("update reservation", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Reservation{}, storageErr("commit", err)
	}
	return target, nil
}

func (s *PostgresStore) CancelReservation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reservations
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status <> $2
	`, id, model.StatusCancelled)
	if err != nil {
		return storageErr("cancel reservation", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Either already cancelled (no-op) or unknown.
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return storageErr("cancel reservation", err)
	}
	if !exists {
		return &model.NotFoundError{Resource: "reservation", Ref: id}
	}
	return nil
}

// lockPartition serializes writers on one (staff_id, date) partition for the
// rest of the transaction. Callers must not take a second partition lock in
// the same transaction unless it is for the row they already hold FOR UPDATE;
// nested cross-partition locking is how deadlocks happen.
func lockPartition(ctx context.Context, tx pgx.Tx, staffID, date string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, staffID+"@"+date)
	if err != nil {
		return storageErr("lock partition", err)
	}
	return nil
}

func findConflict(ctx context.Context, tx pgx.Tx, staffID, date string, startMinute, durationMinutes int, excludeID string) (*model.ConflictError, error) {
	var conflict model.ConflictError
	var d time.Time
	err := tx.QueryRow(ctx, `
		SELECT staff_id, date, start_minute, duration_minutes
		FROM reservations
		WHERE staff_id = $1
			AND date = $2
			AND kind <> $3
			AND status IN ($4, $5)
			AND ($6 = '' OR id::text <> $6)
			AND start_minute < $7
			AND start_minute + duration_minutes > $8
		ORDER BY start_minute
		LIMIT 1
	`, staffID, date, model.KindWaitlistHold, model.StatusPending, model.StatusConfirmed,
		excludeID, startMinute+durationMinutes, startMinute,
	).Scan(&conflict.StaffID, &d, &conflict.StartMinute, &conflict.DurationMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("conflict check", err)
	}
	conflict.Date = d.Format(model.DateFormat)
	return &conflict, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (model.Reservation, error) {
	var r model.Reservation
	var d time.Time
	err := row.Scan(
		&r.ID,
		&r.StaffID,
		&d,
		&r.StartMinute,
		&r.DurationMinutes,
		&r.Kind,
		&r.Status,
		&r.CustomerRef,
		&r.ServiceRef,
		&r.Notes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Reservation{}, err
		}
		return model.Reservation{}, storageErr("scan reservation", err)
	}
	r.Date = d.Format(model.DateFormat)
	return r, nil
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

// storageErr classifies failures: SQL-level errors pass through with context,
// anything else (network, pool exhaustion, timeouts) is tagged retryable.
func storageErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w (%v)", op, model.ErrStorageUnavailable, err)
}
