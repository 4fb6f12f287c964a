package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceSource replays a scripted sequence of results, then repeats the
// final entry forever.
type sequenceSource struct {
	results []func() (map[string]float64, error)
	calls   int
}

func (s *sequenceSource) GetIndexPrices(ctx context.Context, keys []string) (map[string]float64, error) {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx]()
}

func good(prices map[string]float64) func() (map[string]float64, error) {
	return func() (map[string]float64, error) { return prices, nil }
}

func bad(err error) func() (map[string]float64, error) {
	return func() (map[string]float64, error) { return nil, err }
}

func newTestCachedRouter(source Source, ttl time.Duration, retries int) *CachedRouter {
	c := NewCachedRouter(source, ttl, retries, time.Millisecond, testLogger())
	c.sleep = func(time.Duration) {}
	return c
}

func TestCachedRouterSingleFetchWithinTTL(t *testing.T) {
	source := &sequenceSource{results: []func() (map[string]float64, error){
		good(map[string]float64{"hyper::ETH": 3000}),
	}}
	router := newTestCachedRouter(source, time.Hour, 0)

	for i := 0; i < 3; i++ {
		prices, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH"})
		require.NoError(t, err)
		assert.Equal(t, 3000.0, prices["hyper::ETH"])
	}
	assert.Equal(t, 1, source.calls)
}

func TestCachedRouterKeyOrderInsensitive(t *testing.T) {
	source := &sequenceSource{results: []func() (map[string]float64, error){
		good(map[string]float64{"hyper::BTC": 60000, "hyper::ETH": 3000}),
	}}
	router := newTestCachedRouter(source, time.Hour, 0)

	_, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH", "hyper::BTC"})
	require.NoError(t, err)
	// Reordered and duplicated keys hit the same cache entry.
	_, err = router.GetIndexPrices(context.Background(), []string{"hyper::BTC", "hyper::ETH", "hyper::BTC"})
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
}

func TestCachedRouterRetriesTransientFailure(t *testing.T) {
	source := &sequenceSource{results: []func() (map[string]float64, error){
		bad(errors.New("timeout")),
		good(map[string]float64{"hyper::ETH": 3000}),
	}}
	router := newTestCachedRouter(source, time.Hour, 2)

	prices, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH"})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, prices["hyper::ETH"])
	assert.Equal(t, 2, source.calls)
}

func TestCachedRouterEmptyResultCountsAsFailure(t *testing.T) {
	source := &sequenceSource{results: []func() (map[string]float64, error){
		good(map[string]float64{}),
		good(map[string]float64{"hyper::ETH": 3000}),
	}}
	router := newTestCachedRouter(source, time.Hour, 1)

	prices, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH"})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, prices["hyper::ETH"])
	assert.Equal(t, 2, source.calls)
}

func TestCachedRouterServesLastGoodOnOutage(t *testing.T) {
	source := &sequenceSource{results: []func() (map[string]float64, error){
		good(map[string]float64{"hyper::ETH": 3000}),
		bad(errors.New("venue down")),
	}}
	router := newTestCachedRouter(source, time.Hour, 1)

	_, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH"})
	require.NoError(t, err)

	// Expire the TTL entry; last-good must survive.
	router.Clear()

	prices, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH"})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, prices["hyper::ETH"])
	// First success plus both attempts of the failed refresh.
	assert.Equal(t, 3, source.calls)
}

func TestCachedRouterErrorsWithoutLastGood(t *testing.T) {
	source := &sequenceSource{results: []func() (map[string]float64, error){
		bad(errors.New("venue down")),
	}}
	router := newTestCachedRouter(source, time.Hour, 1)

	_, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH"})
	require.Error(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestCachedRouterUnsupportedVenueNotRetried(t *testing.T) {
	source := &sequenceSource{results: []func() (map[string]float64, error){
		bad(&UnsupportedVenueError{Venue: "nope"}),
	}}
	router := newTestCachedRouter(source, time.Hour, 5)

	_, err := router.GetIndexPrices(context.Background(), []string{"nope::ETH"})
	var unsupported *UnsupportedVenueError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, 1, source.calls)
}

func TestCachedRouterEmptyKeyList(t *testing.T) {
	source := &sequenceSource{results: []func() (map[string]float64, error){
		good(nil),
	}}
	router := newTestCachedRouter(source, time.Hour, 0)

	prices, err := router.GetIndexPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
	assert.Zero(t, source.calls)
}
