package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StoredProfile is the persisted per-vault document. Positions are keyed by
// compound key ("venue::SYMBOL").
type StoredProfile struct {
	Cash      float64            `json:"cash"`
	Denom     float64            `json:"denom"`
	Positions map[string]float64 `json:"positions"`
}

// Store persists the vault-keyed ledger document. Implementations must make
// WriteAll atomic; serializing concurrent callers is the Ledger's job.
type Store interface {
	ReadAll() (map[string]StoredProfile, error)
	WriteAll(data map[string]StoredProfile) error
	Close() error
}

// FileStore keeps the whole ledger in one JSON document, replaced
// atomically via a temp file + rename.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) ReadAll() (map[string]StoredProfile, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]StoredProfile{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}
	if len(raw) == 0 {
		return map[string]StoredProfile{}, nil
	}
	var data map[string]StoredProfile
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode ledger file: %w", err)
	}
	if data == nil {
		data = map[string]StoredProfile{}
	}
	return data, nil
}

func (s *FileStore) WriteAll(data map[string]StoredProfile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
