// Package outbox keeps cancellation notifications that could not be published
// directly and replays them until the broker takes them.
package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Record struct {
	ID        int64
	OrderID   string
	Attempts  int
	LastError string
	CreatedAt time.Time
	SentAt    *time.Time
}

// Queue is the pending-notification store. FetchPending returns the least
// attempted records first so a few failing ones cannot starve the rest.
type Queue interface {
	Enqueue(ctx context.Context, orderID string) error
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// PgQueue stores notifications in notification_outbox. Records that failed
// maxAttempts times are no longer fetched and stay for manual inspection.
type PgQueue struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

func NewPgQueue(pool *pgxpool.Pool, maxAttempts int) *PgQueue {
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	return &PgQueue{pool: pool, maxAttempts: maxAttempts}
}

func (q *PgQueue) Enqueue(ctx context.Context, orderID string) error {
	_, err := q.pool.Exec(ctx, `INSERT INTO notification_outbox (order_id) VALUES ($1)`, orderID)
	return err
}

func (q *PgQueue) MarkSent(ctx context.Context, id int64) error {
	_, err := q.pool.Exec(ctx, `UPDATE notification_outbox SET sent_at = now() WHERE id = $1`, id)
	return err
}

func (q *PgQueue) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := q.pool.Exec(ctx, `UPDATE notification_outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason)
	return err
}

func (q *PgQueue) FetchPending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := q.pool.Query(ctx, `SELECT id, order_id, attempts, last_error, created_at, sent_at
FROM notification_outbox
WHERE sent_at IS NULL AND attempts < $2
ORDER BY attempts, id
LIMIT $1`, limit, q.maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.Attempts, &rec.LastError, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
