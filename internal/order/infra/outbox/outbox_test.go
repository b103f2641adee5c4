package outbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	pg "github.com/dwikikusuma/cartflow/pkg/postgres"
	"github.com/stretchr/testify/require"
)

// Needs a scratch database: CARTFLOW_TEST_POSTGRES_DSN.
func newPgQueue(t *testing.T, maxAttempts int) *PgQueue {
	t.Helper()
	dsn := os.Getenv("CARTFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CARTFLOW_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pg.OpenPool(ctx, pg.Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "migrations", "0004_notification_outbox.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE notification_outbox`)
	require.NoError(t, err)

	return NewPgQueue(pool, maxAttempts)
}

func TestPgQueue_FailingRecordsDoNotStarveNewOnes(t *testing.T) {
	q := newPgQueue(t, 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "o-1"))
	require.NoError(t, q.Enqueue(ctx, "o-2"))
	require.NoError(t, q.Enqueue(ctx, "o-3"))

	first, err := q.FetchPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	for _, rec := range first {
		require.NoError(t, q.MarkFailed(ctx, rec.ID, "broker down"))
	}

	next, err := q.FetchPending(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "o-3", next[0].OrderID)
}

func TestPgQueue_StopsFetchingAfterMaxAttempts(t *testing.T) {
	q := newPgQueue(t, 2)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "o-1"))

	for i := 0; i < 2; i++ {
		recs, err := q.FetchPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		require.NoError(t, q.MarkFailed(ctx, recs[0].ID, "broker down"))
	}

	recs, err := q.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestPgQueue_MarkSent(t *testing.T) {
	q := newPgQueue(t, 3)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "o-1"))

	recs, err := q.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, q.MarkSent(ctx, recs[0].ID))

	recs, err = q.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, recs)
}
