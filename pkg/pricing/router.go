package pricing

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vaultcraft/execd/pkg/models"
)

const (
	// VenueHyper is the primary trading venue.
	VenueHyper = "hyper"
	// VenueMockGold is the deterministic testing venue quoting a fixed
	// gold price for whatever symbol is requested.
	VenueMockGold = "mock_gold"
)

// UnsupportedVenueError marks a price request for a venue the router has no
// source for. This is a configuration error, surfaced immediately.
type UnsupportedVenueError struct {
	Venue string
}

func (e *UnsupportedVenueError) Error() string {
	return fmt.Sprintf("unsupported venue %q", e.Venue)
}

// Provider resolves index prices for plain (venue-free) symbols.
type Provider interface {
	GetIndexPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Router resolves index prices for compound keys, venue by venue. Returned
// entries are always genuine prices; symbols without a quote are absent.
type Router struct {
	primary       Provider // live stream, may be nil
	rest          Provider
	mockGoldPrice float64
	logger        *logrus.Logger
}

func NewRouter(primary, rest Provider, mockGoldPrice float64, logger *logrus.Logger) *Router {
	return &Router{
		primary:       primary,
		rest:          rest,
		mockGoldPrice: mockGoldPrice,
		logger:        logger,
	}
}

// GetIndexPrices groups the requested compound keys by venue, queries each
// venue's source, and re-expands the results back onto the original keys.
func (r *Router) GetIndexPrices(ctx context.Context, keys []string) (map[string]float64, error) {
	out := make(map[string]float64, len(keys))
	byVenue := make(map[string][]string)
	for _, key := range keys {
		if key == "" {
			continue
		}
		venue, _ := models.SplitCompoundKey(key)
		byVenue[venue] = append(byVenue[venue], key)
	}

	for venue, venueKeys := range byVenue {
		switch venue {
		case VenueHyper:
			prices, err := r.hyperPrices(ctx, venueKeys)
			if err != nil {
				return nil, err
			}
			for key, price := range prices {
				out[key] = price
			}
		case VenueMockGold:
			for _, key := range venueKeys {
				out[key] = r.mockGoldPrice
			}
		default:
			return nil, &UnsupportedVenueError{Venue: venue}
		}
	}
	return out, nil
}

func (r *Router) hyperPrices(ctx context.Context, keys []string) (map[string]float64, error) {
	// Dedupe the underlying symbols; several compound keys can share one.
	symbols := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		_, sym := models.SplitCompoundKey(key)
		if !seen[sym] {
			seen[sym] = true
			symbols = append(symbols, sym)
		}
	}

	prices := r.fetchHyper(ctx, symbols)
	if prices == nil {
		return nil, fmt.Errorf("hyper price fetch failed for %d symbols", len(symbols))
	}

	out := make(map[string]float64, len(keys))
	for _, key := range keys {
		_, sym := models.SplitCompoundKey(key)
		if price, ok := prices[sym]; ok && price > 0 {
			out[key] = price
		}
	}
	return out, nil
}

// fetchHyper prefers the live stream and silently falls back to REST when
// the stream is disabled, errors, or has no data yet.
func (r *Router) fetchHyper(ctx context.Context, symbols []string) map[string]float64 {
	if r.primary != nil {
		prices, err := r.primary.GetIndexPrices(ctx, symbols)
		if err == nil && len(prices) > 0 {
			return prices
		}
		if err != nil {
			r.logger.WithError(err).Debug("primary price source failed, falling back to REST")
		}
	}
	prices, err := r.rest.GetIndexPrices(ctx, symbols)
	if err != nil {
		r.logger.WithError(err).Warn("REST price source failed")
		return nil
	}
	return prices
}
