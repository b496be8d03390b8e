package storage

import (
	"context"

	"github.com/bookwell/bookwell/libs/db"
)

// Migrate creates the scheduling tables if they do not exist. The exclusion
// constraint is the storage-level guarantee that two active occupying
// reservations on one (staff_id, date) can never both commit, whatever path
// wrote them.
func Migrate(ctx context.Context, pool *db.Pool) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,

		`CREATE TABLE IF NOT EXISTS working_windows (
			staff_id text NOT NULL,
			date date NOT NULL,
			start_minute int NOT NULL,
			end_minute int NOT NULL CHECK (end_minute > start_minute),
			is_available boolean NOT NULL DEFAULT true,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (staff_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS reservations (
			id uuid PRIMARY KEY,
			staff_id text NOT NULL,
			date date NOT NULL,
			start_minute int NOT NULL,
			duration_minutes int NOT NULL CHECK (duration_minutes > 0),
			kind text NOT NULL,
			status text NOT NULL,
			customer_ref text,
			service_ref text,
			notes text,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now(),
			CONSTRAINT reservations_no_overlap EXCLUDE USING gist (
				staff_id WITH =,
				date WITH =,
				int4range(start_minute, start_minute + duration_minutes) WITH &&
			) WHERE (kind <> 'WAITLIST_HOLD' AND status IN ('pending', 'confirmed'))
		)`,

		`CREATE INDEX IF NOT EXISTS reservations_partition_idx
			ON reservations (staff_id, date, start_minute)`,

		`CREATE TABLE IF NOT EXISTS outbox_events (
			id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			event_id uuid NOT NULL DEFAULT gen_random_uuid(),
			aggregate_type text NOT NULL,
			aggregate_id text NOT NULL,
			event_type text NOT NULL,
			payload jsonb NOT NULL,
			traceparent text,
			tracestate text,
			created_at timestamptz NOT NULL DEFAULT now(),
			published_at timestamptz
		)`,

		`CREATE INDEX IF NOT EXISTS outbox_events_unpublished_idx
			ON outbox_events (id) WHERE published_at IS NULL`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return storageErr("migrate", err)
		}
	}
	return nil
}
