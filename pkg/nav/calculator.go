package nav

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vaultcraft/execd/pkg/ledger"
)

// PriceSource resolves compound-key index prices.
type PriceSource interface {
	GetIndexPrices(ctx context.Context, keys []string) (map[string]float64, error)
}

// SnapshotSink receives unit-NAV points. The time-series store itself is an
// external collaborator.
type SnapshotSink interface {
	Add(vault string, unit float64, at time.Time)
}

// Calculator derives a vault's normalized unit value from cash, ledger
// exposure and index prices.
type Calculator struct {
	ledger    *ledger.Ledger
	prices    PriceSource
	snapshots SnapshotSink // may be nil
	logger    *logrus.Logger
}

func NewCalculator(l *ledger.Ledger, prices PriceSource, snapshots SnapshotSink, logger *logrus.Logger) *Calculator {
	return &Calculator{
		ledger:    l,
		prices:    prices,
		snapshots: snapshots,
		logger:    logger,
	}
}

// ComputeUnitNav values cash plus every priced position and divides by the
// vault's denominator, rounded to 6 decimals. Positions without a price are
// excluded from valuation rather than treated as zero.
func (c *Calculator) ComputeUnitNav(ctx context.Context, vaultID string) float64 {
	profile := c.ledger.GetProfile(vaultID)
	keys := make([]string, 0, len(profile.PositionsFlat))
	for key := range profile.PositionsFlat {
		keys = append(keys, key)
	}

	prices := map[string]float64{}
	if len(keys) > 0 {
		fetched, err := c.prices.GetIndexPrices(ctx, keys)
		if err != nil {
			c.logger.WithError(err).WithField("vault", vaultID).Warn("price fetch failed, valuing cash only")
		} else {
			prices = fetched
		}
	}

	nav := profile.Cash
	for key, delta := range profile.PositionsFlat {
		price, ok := prices[key]
		if !ok || price <= 0 {
			continue
		}
		nav += delta * price
	}
	return math.Round(nav/profile.Denom*1e6) / 1e6
}

// SnapshotNow computes the unit NAV and forwards it to the snapshot sink.
// Called after every settled fill.
func (c *Calculator) SnapshotNow(ctx context.Context, vaultID string) float64 {
	unit := c.ComputeUnitNav(ctx, vaultID)
	if c.snapshots != nil {
		c.snapshots.Add(vaultID, unit, time.Now().UTC())
	}
	return unit
}

// Point is one retained unit-NAV observation.
type Point struct {
	Unit float64   `json:"unit"`
	At   time.Time `json:"at"`
}

// MemorySnapshots retains recent points per vault for the metrics feed.
type MemorySnapshots struct {
	mu     sync.RWMutex
	limit  int
	points map[string][]Point
}

func NewMemorySnapshots(limit int) *MemorySnapshots {
	if limit <= 0 {
		limit = 1000
	}
	return &MemorySnapshots{
		limit:  limit,
		points: make(map[string][]Point),
	}
}

func (m *MemorySnapshots) Add(vault string, unit float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.points[vault], Point{Unit: unit, At: at})
	if len(list) > m.limit {
		list = list[len(list)-m.limit:]
	}
	m.points[vault] = list
}

// List returns a copy of the retained points for a vault, oldest first.
func (m *MemorySnapshots) List(vault string) []Point {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Point, len(m.points[vault]))
	copy(out, m.points[vault])
	return out
}
