package backend

import (
	"context"

	"github.com/autom8ter/gamedb/model"
)

// Backend is a physical persistence engine. A Backend is owned by exactly one store, which serializes every call,
// so implementations need no write locking of their own.
//
// Writes may be staged until CommitRecords is called. Faults are returned as errors.Storage errors.
type Backend interface {
	// Kind returns the connection string keyword of the backend (JSON, Bolt, Mongo...)
	Kind() string
	// GetRecord returns the stored document or an empty document if the record doesn't exist
	GetRecord(ctx context.Context, collection string, id model.ID) (model.Document, error)
	// InsertRecord stores a new record. The document must not be empty and the record must not exist.
	InsertRecord(ctx context.Context, collection string, id model.ID, doc model.Document) error
	// UpdateRecord merges the given fields into an existing record
	UpdateRecord(ctx context.Context, collection string, id model.ID, fields model.Document) error
	// DeleteRecord removes an existing record
	DeleteRecord(ctx context.Context, collection string, id model.ID) error
	// CommitRecords makes every staged write durable
	CommitRecords(ctx context.Context) error
	// GetAllIDs returns every stored id of the collection in ascending order
	GetAllIDs(ctx context.Context, collection string) ([]model.ID, error)
	// Close releases the backend's resources. Staged but uncommitted writes are discarded.
	Close(ctx context.Context) error
}
