package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

func TestTakeSnapshotAndHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	snaps := NewSnapshotService(env.store, env.collections, nil)

	day := time.Date(2026, 5, 10, 22, 30, 0, 0, time.UTC)
	snaps.now = func() time.Time { return day }

	_, err := env.collections.AddCard(ctx, models.AddCardRequest{Code: "OP01-003", Qty: 1})
	require.NoError(t, err)
	first, err := snaps.TakeSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), first.SnapshotDate)
	assert.InDelta(t, 4.0, first.EstimatedValue, 1e-9)

	// a second snapshot the same day replaces the first
	_, err = env.collections.AddCard(ctx, models.AddCardRequest{Code: "OP01-003", Qty: 1})
	require.NoError(t, err)
	_, err = snaps.TakeSnapshot(ctx)
	require.NoError(t, err)

	snaps.now = func() time.Time { return day.AddDate(0, 0, 20) }
	_, err = snaps.TakeSnapshot(ctx)
	require.NoError(t, err)

	history, err := snaps.GetHistory(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, "all", history.Period)
	require.Len(t, history.Snapshots, 2)
	assert.Equal(t, 2, history.Snapshots[0].TotalCards)
	assert.InDelta(t, 8.0, history.Snapshots[0].EstimatedValue, 1e-9)

	week, err := snaps.GetHistory(ctx, "week")
	require.NoError(t, err)
	assert.Len(t, week.Snapshots, 1)

	unknown, err := snaps.GetHistory(ctx, "decade")
	require.NoError(t, err)
	assert.Equal(t, "month", unknown.Period)
	assert.Len(t, unknown.Snapshots, 2)
}
