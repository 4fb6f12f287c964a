package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompoundKey(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		venue  string
		want   string
	}{
		{"canonical", "ETH", "hyper", "hyper::ETH"},
		{"mixed case", "eth", "HYPER", "hyper::ETH"},
		{"empty venue defaults", "btc", "", "hyper::BTC"},
		{"mock venue", "XAU", "Mock_Gold", "mock_gold::XAU"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompoundKey(tt.symbol, tt.venue))
		})
	}
}

func TestSplitCompoundKey(t *testing.T) {
	venue, symbol := SplitCompoundKey("mock_gold::XAU")
	assert.Equal(t, "mock_gold", venue)
	assert.Equal(t, "XAU", symbol)

	venue, symbol = SplitCompoundKey("HYPER::eth")
	assert.Equal(t, "hyper", venue)
	assert.Equal(t, "ETH", symbol)

	// Bare symbols belong to the default venue.
	venue, symbol = SplitCompoundKey("btc")
	assert.Equal(t, DefaultVenue, venue)
	assert.Equal(t, "BTC", symbol)
}

func TestNewPositionProfileDerivesViews(t *testing.T) {
	flat := map[string]float64{
		"hyper::ETH":     2.0,
		"mock_gold::ETH": 1.5,
		"HYPER::btc":     -0.5,
	}
	prof := NewPositionProfile(1000, 0, flat)

	assert.Equal(t, 1000.0, prof.Cash)
	assert.Equal(t, 1000.0, prof.Denom)

	// Aggregated view sums across venues.
	assert.InDelta(t, 3.5, prof.Positions["ETH"], 1e-9)
	assert.InDelta(t, -0.5, prof.Positions["BTC"], 1e-9)

	// Flat keys are re-canonicalized.
	assert.InDelta(t, -0.5, prof.PositionsFlat["hyper::BTC"], 1e-9)

	assert.InDelta(t, 2.0, prof.PositionsByVenue["hyper"]["ETH"], 1e-9)
	assert.InDelta(t, 1.5, prof.PositionsByVenue["mock_gold"]["ETH"], 1e-9)
}

func TestNewPositionProfileDenomFloor(t *testing.T) {
	prof := NewPositionProfile(0, 0, nil)
	assert.Equal(t, 1.0, prof.Denom)

	prof = NewPositionProfile(500, 250, nil)
	assert.Equal(t, 250.0, prof.Denom)
}

func TestVenueExposure(t *testing.T) {
	prof := NewPositionProfile(0, 1, map[string]float64{
		"hyper::ETH":     2.0,
		"mock_gold::ETH": 1.5,
	})
	assert.InDelta(t, 2.0, prof.VenueExposure("eth", "HYPER"), 1e-9)
	assert.InDelta(t, 1.5, prof.VenueExposure("ETH", "mock_gold"), 1e-9)
	assert.Zero(t, prof.VenueExposure("BTC", "hyper"))
	// Empty venue resolves to the default.
	assert.InDelta(t, 2.0, prof.VenueExposure("ETH", ""), 1e-9)
}

func TestOrderSideOpposite(t *testing.T) {
	assert.Equal(t, OrderSideSell, OrderSideBuy.Opposite())
	assert.Equal(t, OrderSideBuy, OrderSideSell.Opposite())
}
