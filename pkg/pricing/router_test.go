package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	prices map[string]float64
	err    error
	calls  int
	asked  [][]string
}

func (s *stubProvider) GetIndexPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	s.calls++
	s.asked = append(s.asked, symbols)
	if s.err != nil {
		return nil, s.err
	}
	return s.prices, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestRouterMockGoldFixedPrice(t *testing.T) {
	router := NewRouter(nil, &stubProvider{}, 2400, testLogger())

	prices, err := router.GetIndexPrices(context.Background(), []string{"mock_gold::XAU", "mock_gold::ETH"})
	require.NoError(t, err)
	assert.Equal(t, 2400.0, prices["mock_gold::XAU"])
	assert.Equal(t, 2400.0, prices["mock_gold::ETH"])
}

func TestRouterUnsupportedVenue(t *testing.T) {
	router := NewRouter(nil, &stubProvider{}, 2400, testLogger())

	_, err := router.GetIndexPrices(context.Background(), []string{"nope::ETH"})
	var unsupported *UnsupportedVenueError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "nope", unsupported.Venue)
}

func TestRouterHyperExpandsCompoundKeys(t *testing.T) {
	rest := &stubProvider{prices: map[string]float64{"ETH": 3000, "BTC": 60000}}
	router := NewRouter(nil, rest, 2400, testLogger())

	prices, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH", "hyper::BTC", "hyper::DOGE"})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, prices["hyper::ETH"])
	assert.Equal(t, 60000.0, prices["hyper::BTC"])
	// Unquoted symbols are absent, not zero.
	_, ok := prices["hyper::DOGE"]
	assert.False(t, ok)
}

func TestRouterPrefersPrimarySource(t *testing.T) {
	primary := &stubProvider{prices: map[string]float64{"ETH": 3100}}
	rest := &stubProvider{prices: map[string]float64{"ETH": 3000}}
	router := NewRouter(primary, rest, 2400, testLogger())

	prices, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH"})
	require.NoError(t, err)
	assert.Equal(t, 3100.0, prices["hyper::ETH"])
	assert.Zero(t, rest.calls)
}

func TestRouterFallsBackToRESTWhenPrimaryFails(t *testing.T) {
	primary := &stubProvider{err: errors.New("stream down")}
	rest := &stubProvider{prices: map[string]float64{"ETH": 3000}}
	router := NewRouter(primary, rest, 2400, testLogger())

	prices, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH"})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, prices["hyper::ETH"])
	assert.Equal(t, 1, rest.calls)
}

func TestRouterErrorsWhenAllHyperSourcesFail(t *testing.T) {
	primary := &stubProvider{err: errors.New("stream down")}
	rest := &stubProvider{err: errors.New("rest down")}
	router := NewRouter(primary, rest, 2400, testLogger())

	_, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH"})
	assert.Error(t, err)
}

func TestRouterMixedVenues(t *testing.T) {
	rest := &stubProvider{prices: map[string]float64{"ETH": 3000}}
	router := NewRouter(nil, rest, 2400, testLogger())

	prices, err := router.GetIndexPrices(context.Background(), []string{"hyper::ETH", "mock_gold::XAU"})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, prices["hyper::ETH"])
	assert.Equal(t, 2400.0, prices["mock_gold::XAU"])
}
