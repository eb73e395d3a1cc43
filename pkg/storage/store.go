package storage

import (
	"errors"

	"github.com/cuemby/burrow/pkg/types"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// RecordStore persists the outcome of provisioning runs
type RecordStore interface {
	SaveRecord(record *types.ProvisionRecord) error
	GetRecord(id string) (*types.ProvisionRecord, error)
	ListRecords() ([]*types.ProvisionRecord, error)
	ListRecordsByWorkspace(workspaceID string) ([]*types.ProvisionRecord, error)
	DeleteRecord(id string) error

	// PruneWorkspace keeps the newest keep records of a workspace and
	// returns how many were removed.
	PruneWorkspace(workspaceID string, keep int) (int, error)

	Close() error
}
