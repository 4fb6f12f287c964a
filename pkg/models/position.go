package models

// DefaultCash is the starting cash balance for a vault that has never been
// written (demo bookkeeping semantics, matching the persisted ledger layout).
const DefaultCash = 1_000_000.0

// PositionProfile is a vault's exposure snapshot. PositionsFlat is the
// source of truth keyed by compound key; Positions and PositionsByVenue are
// derived views rebuilt on every read.
type PositionProfile struct {
	Cash             float64                       `json:"cash"`
	Denom            float64                       `json:"denom"`
	Positions        map[string]float64            `json:"positions"`
	PositionsByVenue map[string]map[string]float64 `json:"positionsByVenue"`
	PositionsFlat    map[string]float64            `json:"positionsFlat"`
}

// NewPositionProfile derives the aggregated and per-venue views from a flat
// compound-key exposure map. A denom of zero defaults to max(cash, 1).
func NewPositionProfile(cash, denom float64, flat map[string]float64) PositionProfile {
	if denom <= 0 {
		denom = cash
		if denom < 1 {
			denom = 1
		}
	}
	aggregated := make(map[string]float64, len(flat))
	byVenue := make(map[string]map[string]float64)
	cleaned := make(map[string]float64, len(flat))
	for key, delta := range flat {
		venue, symbol := SplitCompoundKey(key)
		cleaned[CompoundKey(symbol, venue)] = delta
		aggregated[symbol] += delta
		bucket := byVenue[venue]
		if bucket == nil {
			bucket = make(map[string]float64)
			byVenue[venue] = bucket
		}
		bucket[symbol] += delta
	}
	return PositionProfile{
		Cash:             cash,
		Denom:            denom,
		Positions:        aggregated,
		PositionsByVenue: byVenue,
		PositionsFlat:    cleaned,
	}
}

// VenueExposure returns the summed exposure for a symbol on one venue.
func (p PositionProfile) VenueExposure(symbol, venue string) float64 {
	v, sym := SplitCompoundKey(CompoundKey(symbol, venue))
	if bucket, ok := p.PositionsByVenue[v]; ok {
		return bucket[sym]
	}
	return 0
}
