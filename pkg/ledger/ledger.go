package ledger

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vaultcraft/execd/pkg/models"
)

// Ledger is the persisted per-vault exposure book. Every mutation is a full
// read-modify-write of the store, and the store holds all vaults in one
// shared document, so mutations are serialized behind a single lock.
// Concurrent fills for any pair of vaults would otherwise both read the
// same snapshot and the second write would erase the first.
type Ledger struct {
	store  Store
	logger *logrus.Logger
	mu     sync.Mutex
}

func New(store Store, logger *logrus.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
	}
}

// GetProfile never errors: an absent vault yields the default profile and a
// broken store yields the default profile plus a logged warning.
func (l *Ledger) GetProfile(vaultID string) models.PositionProfile {
	data, err := l.store.ReadAll()
	if err != nil {
		l.logger.WithError(err).WithField("vault", vaultID).Warn("ledger read failed, serving default profile")
		return models.NewPositionProfile(models.DefaultCash, 0, nil)
	}
	prof, ok := data[vaultID]
	if !ok {
		return models.NewPositionProfile(models.DefaultCash, 0, nil)
	}
	return models.NewPositionProfile(prof.Cash, prof.Denom, prof.Positions)
}

// SetProfile replaces a vault's document wholesale. Administrative callers
// only; fills go through ApplyFill/ApplyClose.
func (l *Ledger) SetProfile(vaultID string, profile models.PositionProfile) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	flat := make(map[string]float64, len(profile.PositionsFlat))
	for key, delta := range profile.PositionsFlat {
		venue, sym := models.SplitCompoundKey(key)
		flat[models.CompoundKey(sym, venue)] = delta
	}
	denom := profile.Denom
	if denom <= 0 {
		denom = profile.Cash
		if denom < 1 {
			denom = 1
		}
	}
	return l.update(vaultID, func(prof *StoredProfile) {
		prof.Cash = profile.Cash
		prof.Denom = denom
		prof.Positions = flat
	})
}

// ApplyFill adds a signed delta (+size buy, -size sell) at the order's
// compound key and returns the freshly re-read profile.
func (l *Ledger) ApplyFill(vaultID, symbol string, size float64, side models.OrderSide, venue string) (models.PositionProfile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delta := size
	if side == models.OrderSideSell {
		delta = -size
	}
	key := models.CompoundKey(symbol, venue)
	err := l.update(vaultID, func(prof *StoredProfile) {
		prof.Positions[key] += delta
	})
	if err != nil {
		return models.PositionProfile{}, err
	}
	return l.GetProfile(vaultID), nil
}

// ApplyClose reduces exposure at the compound key. A nil size zeroes the
// leg; an explicit size shrinks the magnitude toward zero and floors there,
// never flipping the sign.
func (l *Ledger) ApplyClose(vaultID, symbol string, size *float64, venue string) (models.PositionProfile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := models.CompoundKey(symbol, venue)
	err := l.update(vaultID, func(prof *StoredProfile) {
		cur := prof.Positions[key]
		switch {
		case size == nil:
			prof.Positions[key] = 0
		case cur > 0:
			next := cur - *size
			if next < 0 {
				next = 0
			}
			prof.Positions[key] = next
		case cur < 0:
			next := cur + *size
			if next > 0 {
				next = 0
			}
			prof.Positions[key] = next
		default:
			prof.Positions[key] = 0
		}
	})
	if err != nil {
		return models.PositionProfile{}, err
	}
	return l.GetProfile(vaultID), nil
}

// Close releases the underlying store.
func (l *Ledger) Close() error { return l.store.Close() }

// update performs one read-modify-write cycle for a vault. Callers must
// hold the ledger lock.
func (l *Ledger) update(vaultID string, mutate func(*StoredProfile)) error {
	data, err := l.store.ReadAll()
	if err != nil {
		return fmt.Errorf("ledger read failed: %w", err)
	}
	prof, ok := data[vaultID]
	if !ok {
		prof = StoredProfile{Cash: models.DefaultCash}
	}
	if prof.Positions == nil {
		prof.Positions = make(map[string]float64)
	}
	if prof.Denom <= 0 {
		prof.Denom = prof.Cash
		if prof.Denom < 1 {
			prof.Denom = 1
		}
	}
	mutate(&prof)
	data[vaultID] = prof
	if err := l.store.WriteAll(data); err != nil {
		return fmt.Errorf("ledger write failed: %w", err)
	}
	return nil
}
