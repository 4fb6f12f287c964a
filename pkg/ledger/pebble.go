package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// keys: p:<vault-id>
var profilePrefix = []byte("p:")

func profileKey(vaultID string) []byte {
	return append(append([]byte{}, profilePrefix...), vaultID...)
}

// PebbleStore keeps one JSON-marshalled profile per vault. It trades the
// single-document layout of FileStore for per-vault records; WriteAll still
// rewrites every vault so the two backends stay interchangeable.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble ledger: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) ReadAll() (map[string]StoredProfile, error) {
	upper := append(append([]byte{}, profilePrefix...), 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: profilePrefix,
		UpperBound: upper,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate pebble ledger: %w", err)
	}
	defer iter.Close()

	data := make(map[string]StoredProfile)
	for iter.First(); iter.Valid(); iter.Next() {
		vaultID := string(iter.Key()[len(profilePrefix):])
		var prof StoredProfile
		if err := json.Unmarshal(iter.Value(), &prof); err != nil {
			continue // skip invalid entries
		}
		data[vaultID] = prof
	}
	return data, nil
}

func (s *PebbleStore) WriteAll(data map[string]StoredProfile) error {
	batch := s.db.NewBatch()
	defer batch.Close()
	for vaultID, prof := range data {
		raw, err := json.Marshal(prof)
		if err != nil {
			return fmt.Errorf("failed to marshal profile for %s: %w", vaultID, err)
		}
		if err := batch.Set(profileKey(vaultID), raw, nil); err != nil {
			return err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit ledger batch: %w", err)
	}
	return nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

var _ Store = (*PebbleStore)(nil)
