package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketRecords = []byte("provision_records")

// BoltStore implements RecordStore using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) <dataDir>/burrow.db
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "burrow.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketRecords, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveRecord upserts a record. A record without an ID gets a new one and a
// zero CreatedAt is set to now.
func (s *BoltStore) SaveRecord(record *types.ProvisionRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.ID), data)
	})
}

func (s *BoltStore) GetRecord(id string) (*types.ProvisionRecord, error) {
	var record types.ProvisionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecords returns every record, oldest first
func (s *BoltStore) ListRecords() ([]*types.ProvisionRecord, error) {
	return s.list(func(*types.ProvisionRecord) bool { return true })
}

// ListRecordsByWorkspace returns the records of one workspace, oldest first
func (s *BoltStore) ListRecordsByWorkspace(workspaceID string) ([]*types.ProvisionRecord, error) {
	return s.list(func(r *types.ProvisionRecord) bool { return r.WorkspaceID == workspaceID })
}

func (s *BoltStore) list(match func(*types.ProvisionRecord) bool) ([]*types.ProvisionRecord, error) {
	var records []*types.ProvisionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var record types.ProvisionRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to decode record %s: %w", k, err)
			}
			if match(&record) {
				records = append(records, &record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortByCreation(records)
	return records, nil
}

func (s *BoltStore) DeleteRecord(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).Delete([]byte(id))
	})
}

func (s *BoltStore) PruneWorkspace(workspaceID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)

		var records []*types.ProvisionRecord
		err := b.ForEach(func(_, v []byte) error {
			var record types.ProvisionRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			if record.WorkspaceID == workspaceID {
				records = append(records, &record)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(records) <= keep {
			return nil
		}

		sortByCreation(records)
		for _, r := range records[:len(records)-keep] {
			if err := b.Delete([]byte(r.ID)); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func sortByCreation(records []*types.ProvisionRecord) {
	slices.SortStableFunc(records, func(a, b *types.ProvisionRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
