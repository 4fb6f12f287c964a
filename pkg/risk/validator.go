package risk

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vaultcraft/execd/pkg/models"
)

// Limits is the pre-trade risk configuration the gate enforces.
// PrimaryVenue is what an empty order venue resolves to; it must match the
// dispatcher's primary so validation and routing agree.
type Limits struct {
	AllowedSymbols []string
	AllowedVenues  []string
	PrimaryVenue   string
	MinLeverage    float64
	MaxLeverage    float64
	MinNotionalUSD float64
	MaxNotionalUSD float64
}

// PriceSource supplies the single price lookup the notional check needs.
type PriceSource interface {
	GetIndexPrices(ctx context.Context, keys []string) (map[string]float64, error)
}

// Validator is the order risk gate: pure apart from one price lookup, and
// the first failing check wins.
type Validator struct {
	limits  Limits
	symbols map[string]bool
	venues  map[string]bool
	primary string
	prices  PriceSource
	logger  *logrus.Logger
}

func NewValidator(limits Limits, prices PriceSource, logger *logrus.Logger) *Validator {
	symbols := make(map[string]bool, len(limits.AllowedSymbols))
	for _, s := range limits.AllowedSymbols {
		if s = strings.TrimSpace(s); s != "" {
			symbols[strings.ToUpper(s)] = true
		}
	}
	venues := make(map[string]bool, len(limits.AllowedVenues))
	for _, v := range limits.AllowedVenues {
		if v = strings.TrimSpace(v); v != "" {
			venues[strings.ToLower(v)] = true
		}
	}
	primary := strings.ToLower(strings.TrimSpace(limits.PrimaryVenue))
	if primary == "" {
		primary = models.DefaultVenue
	}
	return &Validator{
		limits:  limits,
		symbols: symbols,
		venues:  venues,
		primary: primary,
		prices:  prices,
		logger:  logger,
	}
}

// Validate returns nil for an acceptable order or a human-readable reject
// reason. It mutates nothing.
func (v *Validator) Validate(ctx context.Context, order models.Order) error {
	venue := strings.ToLower(order.Venue)
	if venue == "" {
		venue = v.primary
	}
	if !v.venues[venue] {
		return fmt.Errorf("venue not allowed: %s", venue)
	}
	symbol := strings.ToUpper(order.Symbol)
	if !v.symbols[symbol] {
		return fmt.Errorf("symbol not allowed: %s", symbol)
	}
	if order.Size <= 0 {
		return fmt.Errorf("size must be > 0")
	}
	leverage := order.Leverage
	if leverage == 0 {
		leverage = v.limits.MinLeverage
	}
	if leverage < v.limits.MinLeverage || leverage > v.limits.MaxLeverage {
		return fmt.Errorf("leverage out of range")
	}
	switch order.OrderType {
	case "", models.OrderTypeMarket:
	case models.OrderTypeLimit:
		if order.LimitPrice <= 0 {
			return fmt.Errorf("limit orders require a positive limit price")
		}
	default:
		return fmt.Errorf("invalid order type: %s", order.OrderType)
	}
	if order.StopLoss < 0 {
		return fmt.Errorf("stop loss must be > 0")
	}
	if order.TakeProfit < 0 {
		return fmt.Errorf("take profit must be > 0")
	}
	return v.checkNotional(ctx, symbol, venue, order.Size)
}

// checkNotional fails open: when no price is available the check is skipped
// rather than blocking trading on a degraded feed.
func (v *Validator) checkNotional(ctx context.Context, symbol, venue string, size float64) error {
	key := models.CompoundKey(symbol, venue)
	prices, err := v.prices.GetIndexPrices(ctx, []string{key})
	if err != nil {
		v.logger.WithError(err).WithField("key", key).Debug("price unavailable, skipping notional check")
		return nil
	}
	price := prices[key]
	if price <= 0 {
		return nil
	}
	notional := math.Abs(size) * price
	if notional < v.limits.MinNotionalUSD {
		return fmt.Errorf("notional below minimum")
	}
	if v.limits.MaxNotionalUSD > 0 && notional > v.limits.MaxNotionalUSD {
		return fmt.Errorf("notional exceeds limit")
	}
	return nil
}
