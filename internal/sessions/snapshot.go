package sessions

import (
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a snapshot key has never been written.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore persists whole-collection JSON snapshots in a badger
// database. The controller's mutation rate is low and collections are
// small, so full-value writes keep recovery trivial: one key per
// collection, last write wins.
type SnapshotStore struct {
	db *badger.DB
}

// OpenSnapshotStore opens (or creates) the badger database at dir.
func OpenSnapshotStore(dir string) (*SnapshotStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Save serializes v and writes it under key.
func (s *SnapshotStore) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Load reads the snapshot under key into v. Returns ErrNotFound when the
// key has never been written.
func (s *SnapshotStore) Load(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, v)
	})
}

// Close releases the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
