package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/alejandrodnm/proprun/internal/pipeline"
	"github.com/alejandrodnm/proprun/internal/ports"
	"github.com/alejandrodnm/proprun/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSource struct {
	listings  []domain.RawListing
	err       error
	calls     int
	lastLimit int
}

func (m *mockSource) Search(_ context.Context, _ string, limit int) ([]domain.RawListing, error) {
	m.calls++
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.listings) {
		return m.listings[:limit], nil
	}
	return m.listings, nil
}

type mockEstimator struct {
	failFor map[string]bool
	delay   time.Duration
	calls   atomic.Int32
}

func (m *mockEstimator) Estimate(ctx context.Context, l domain.RawListing) (domain.RentEstimate, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.RentEstimate{}, ctx.Err()
		}
	}
	if m.failFor[l.Address] {
		return domain.RentEstimate{}, fmt.Errorf("%w: no data", domain.ErrRentLookup)
	}
	return domain.RentEstimate{Value: 2400, Low: 2100, High: 2700}, nil
}

type mockStorage struct {
	runs     []domain.Run
	listings [][]domain.EvaluatedListing
	err      error
}

func (m *mockStorage) SaveRun(_ context.Context, run domain.Run, listings []domain.EvaluatedListing) error {
	m.runs = append(m.runs, run)
	m.listings = append(m.listings, listings)
	return m.err
}

func (m *mockStorage) GetRuns(_ context.Context, _, _ time.Time) ([]domain.Run, error) {
	return m.runs, nil
}

func (m *mockStorage) GetRunListings(_ context.Context, _ string) ([]domain.EvaluatedListing, error) {
	return nil, nil
}

func (m *mockStorage) Close() error { return nil }

type mockNotifier struct {
	notified []domain.EvaluatedListing
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, listings []domain.EvaluatedListing) error {
	m.notified = listings
	return m.err
}

// --- helpers ---

func makeRaw(n int) []domain.RawListing {
	out := make([]domain.RawListing, n)
	for i := range out {
		out[i] = domain.RawListing{
			Address:   fmt.Sprintf("%d Congress Ave, Austin, TX 7870%d", 100*(n-i), i%2),
			ListPrice: 200_000 + float64(i)*25_000,
			ZipCode:   fmt.Sprintf("7870%d", i%2),
		}
	}
	return out
}

func makeQuery(n int) domain.ListingQuery {
	return domain.ListingQuery{
		Location:    "Austin, TX",
		NumListings: n,
		Assumptions: domain.DefaultAssumptions(),
	}
}

func newTestPipeline(src *mockSource, est *mockEstimator, st ports.Storage, n ports.Notifier) *pipeline.Pipeline {
	cfg := pipeline.DefaultConfig()
	cfg.Evaluator.Workers = 1
	cfg.Evaluator.Timeout = 2 * time.Second
	return pipeline.New(cfg, src, est, st, n)
}

// --- tests ---

func TestPipeline_Run_Success(t *testing.T) {
	src := &mockSource{listings: makeRaw(5)}
	est := &mockEstimator{}
	st := &mockStorage{}
	n := &mockNotifier{}

	res, err := newTestPipeline(src, est, st, n).Run(context.Background(), makeQuery(5), ranking.View{})
	require.NoError(t, err)

	require.Len(t, res.Listings, 5)
	assert.Equal(t, 5, res.Run.Evaluated)
	assert.Equal(t, 5, res.Run.Fetched)
	assert.NotEmpty(t, res.Run.ID)
	assert.Equal(t, src.listings[0].Address, res.Listings[0].Address, "sin orden activo se conserva el del source")

	require.Len(t, st.runs, 1)
	assert.Equal(t, res.Run.ID, st.runs[0].ID)
	assert.Len(t, st.listings[0], 5)
	assert.Equal(t, res.Listings, n.notified)
}

func TestPipeline_Run_OneLookupFailureYieldsFour(t *testing.T) {
	src := &mockSource{listings: makeRaw(5)}
	est := &mockEstimator{failFor: map[string]bool{src.listings[1].Address: true}}

	res, err := newTestPipeline(src, est, nil, nil).Run(context.Background(), makeQuery(5), ranking.View{})
	require.NoError(t, err)
	assert.Len(t, res.Listings, 4)
	assert.Equal(t, 1, res.Run.Failed)
}

func TestPipeline_Run_InvalidAssumptionsNoExternalCalls(t *testing.T) {
	src := &mockSource{listings: makeRaw(3)}
	est := &mockEstimator{}

	q := makeQuery(3)
	q.Assumptions.DownPaymentPct = 150

	res, err := newTestPipeline(src, est, nil, nil).Run(context.Background(), q, ranking.View{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidAssumptions)

	var ae *domain.AssumptionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "down_payment_pct", ae.Field)
	assert.Empty(t, res.Listings)
	assert.Zero(t, src.calls)
	assert.Zero(t, est.calls.Load())
}

func TestPipeline_Run_ListingSourceError(t *testing.T) {
	src := &mockSource{err: fmt.Errorf("%w: export missing", domain.ErrListingSource)}
	st := &mockStorage{}

	res, err := newTestPipeline(src, &mockEstimator{}, st, nil).Run(context.Background(), makeQuery(3), ranking.View{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrListingSource)
	assert.Empty(t, res.Listings)
	assert.Empty(t, st.runs, "sin candidatos no hay ejecución que guardar")
}

func TestPipeline_Run_OverFetchCapsToRequested(t *testing.T) {
	src := &mockSource{listings: makeRaw(10)}
	est := &mockEstimator{failFor: map[string]bool{}}
	for _, l := range src.listings[:2] {
		est.failFor[l.Address] = true
	}

	cfg := pipeline.DefaultConfig()
	cfg.OverFetchFactor = 1.5
	cfg.Evaluator.Workers = 1
	p := pipeline.New(cfg, src, est, nil, nil)

	res, err := p.Run(context.Background(), makeQuery(4), ranking.View{})
	require.NoError(t, err)

	assert.Equal(t, 6, src.lastLimit) // ceil(4 × 1.5)
	require.Len(t, res.Listings, 4)
	assert.Equal(t, src.listings[2].Address, res.Listings[0].Address)
	assert.Equal(t, src.listings[5].Address, res.Listings[3].Address)
}

func TestPipeline_Run_ZipCodeNarrowsCandidates(t *testing.T) {
	src := &mockSource{listings: makeRaw(6)}

	q := makeQuery(6)
	q.ZipCode = "78701"

	res, err := newTestPipeline(src, &mockEstimator{}, nil, nil).Run(context.Background(), q, ranking.View{})
	require.NoError(t, err)
	require.Len(t, res.Listings, 3)
	for _, l := range res.Listings {
		assert.Contains(t, l.Address, "78701")
	}
}

func TestPipeline_Run_AppliesView(t *testing.T) {
	src := &mockSource{listings: makeRaw(5)}
	maxPrice := 275_000.0
	view := ranking.View{
		Sort:     ranking.SortState{Key: ranking.SortAddress, Direction: ranking.Ascending},
		Criteria: ranking.Criteria{PriceMax: &maxPrice},
	}

	res, err := newTestPipeline(src, &mockEstimator{}, nil, nil).Run(context.Background(), makeQuery(5), view)
	require.NoError(t, err)

	// 200k, 225k, 250k, 275k pasan; ordenados por dirección
	require.Len(t, res.Listings, 4)
	assert.Equal(t, 5, res.Run.Evaluated, "el filtro de vista no cambia lo evaluado")
	for i := 1; i < len(res.Listings); i++ {
		assert.LessOrEqual(t, res.Listings[i-1].Address, res.Listings[i].Address)
	}
}

func TestPipeline_Run_TimeoutWithNothingEvaluated(t *testing.T) {
	src := &mockSource{listings: makeRaw(2)}
	est := &mockEstimator{delay: time.Minute}

	cfg := pipeline.DefaultConfig()
	cfg.Evaluator.Timeout = 50 * time.Millisecond
	st := &mockStorage{}
	p := pipeline.New(cfg, src, est, st, nil)

	res, err := p.Run(context.Background(), makeQuery(2), ranking.View{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Empty(t, res.Listings)
	require.Len(t, st.runs, 1)
	assert.True(t, st.runs[0].TimedOut)
}

func TestPipeline_Run_StorageErrorDoesNotFail(t *testing.T) {
	src := &mockSource{listings: makeRaw(2)}
	st := &mockStorage{err: errors.New("disk full")}

	res, err := newTestPipeline(src, &mockEstimator{}, st, nil).Run(context.Background(), makeQuery(2), ranking.View{})
	require.NoError(t, err)
	assert.Len(t, res.Listings, 2)
}

func TestPipeline_Run_RejectsTooManyListings(t *testing.T) {
	src := &mockSource{listings: makeRaw(1)}
	cfg := pipeline.DefaultConfig()
	cfg.MaxListings = 10

	_, err := pipeline.New(cfg, src, &mockEstimator{}, nil, nil).Run(context.Background(), makeQuery(11), ranking.View{})
	assert.ErrorIs(t, err, domain.ErrInvalidAssumptions)
	assert.Zero(t, src.calls)
}
