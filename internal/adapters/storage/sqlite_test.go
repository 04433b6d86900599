package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/proprun/internal/adapters/storage"
	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRun(id, location string, startedAt time.Time) domain.Run {
	return domain.Run{
		ID:         id,
		Location:   location,
		Requested:  5,
		Fetched:    5,
		Evaluated:  4,
		Failed:     1,
		Profitable: 2,
		StartedAt:  startedAt,
		Duration:   1500 * time.Millisecond,
	}
}

func makeEvaluated(address string, price float64, adjusted *float64) domain.EvaluatedListing {
	return domain.EvaluatedListing{
		Address:            address,
		ListPrice:          price,
		Mortgage:           1438.92,
		TotalOperatingCost: 1800,
		RentalValue:        2000,
		RentalPrice:        2300,
		Differential:       300,
		IsProfitable:       true,
		AdjustedProfit:     adjusted,
		RentLow:            1800,
		RentHigh:           2200,
		PropertyTax:        275,
		Insurance:          86.08,
	}
}

func TestSQLiteStorage_RentCacheRoundTrip(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, _, ok, err := db.GetRent(ctx, "1 Main St")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.PutRent(ctx, "1 Main St", domain.RentEstimate{Value: 1850, Low: 1600, High: 2100}))

	est, fetchedAt, ok, err := db.GetRent(ctx, "1 Main St")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.RentEstimate{Value: 1850, Low: 1600, High: 2100}, est)
	assert.WithinDuration(t, time.Now(), fetchedAt, time.Minute)

	// upsert reemplaza
	require.NoError(t, db.PutRent(ctx, "1 Main St", domain.RentEstimate{Value: 1900, Low: 1700, High: 2100}))
	est, _, _, err = db.GetRent(ctx, "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, 1900.0, est.Value)
}

func TestSQLiteStorage_SaveAndGetRuns(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.SaveRun(ctx, makeRun("run-old", "Austin, TX", now.Add(-2*time.Minute)), nil))
	require.NoError(t, db.SaveRun(ctx, makeRun("run-new", "Dallas, TX", now), nil))

	runs, err := db.GetRuns(ctx, now.Add(-time.Hour), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// más recientes primero
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "Dallas, TX", runs[0].Location)
	assert.Equal(t, 4, runs[0].Evaluated)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Duration)
	assert.Equal(t, "run-old", runs[1].ID)
}

func TestSQLiteStorage_GetRuns_EmptyRange(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	runs, err := db.GetRuns(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSQLiteStorage_RunListingsPreserveOrderAndNulls(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	adjusted := -120.5
	listings := []domain.EvaluatedListing{
		makeEvaluated("B St", 250_000, nil),
		makeEvaluated("A St", 300_000, &adjusted),
	}
	require.NoError(t, db.SaveRun(ctx, makeRun("run-1", "Austin, TX", time.Now().UTC()), listings))

	got, err := db.GetRunListings(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "B St", got[0].Address)
	assert.Nil(t, got[0].AdjustedProfit)
	assert.Equal(t, "A St", got[1].Address)
	require.NotNil(t, got[1].AdjustedProfit)
	assert.InDelta(t, -120.5, *got[1].AdjustedProfit, 0.001)
	assert.Equal(t, listings[0], got[0])
}

func TestSQLiteStorage_DuplicateRunIDFails(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	run := makeRun("dup", "Austin, TX", time.Now().UTC())
	require.NoError(t, db.SaveRun(ctx, run, nil))
	assert.Error(t, db.SaveRun(ctx, run, nil))
}
