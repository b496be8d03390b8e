package outbox

import (
	"context"

	"github.com/bookwell/bookwell/libs/db"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

// Notifier writes reservation lifecycle events to the outbox table. The
// publisher loop picks them up asynchronously, so confirming a booking never
// waits on the broker.
type Notifier struct {
	pool *db.Pool
	repo *Repository
}

func NewNotifier(pool *db.Pool, repo *Repository) *Notifier {
	return &Notifier{pool: pool, repo: repo}
}

func (n *Notifier) Notify(ctx context.Context, eventType string, r model.Reservation) error {
	evt, err := ReservationEvent(eventType, r)
	if err != nil {
		return err
	}
	tx, err := n.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := n.repo.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
