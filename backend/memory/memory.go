package memory

import (
	"context"
	"sync"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/codec"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/samber/lo"
)

// Kind is the connection string keyword of the memory backend
const Kind = "Memory"

func init() {
	registry.Register(Kind, nil, func(params map[string]any) (backend.Backend, error) {
		return New(), nil
	})
}

// Memory is a volatile backend. Records are lost when the process exits.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[model.ID]model.Document
}

var _ backend.Backend = (*Memory)(nil)

// New returns an empty memory backend
func New() *Memory {
	return &Memory{records: map[string]map[model.ID]model.Document{}}
}

func (m *Memory) Kind() string {
	return Kind
}

func (m *Memory) GetRecord(ctx context.Context, collection string, id model.ID) (model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.records[collection][id]
	if !ok {
		return model.Document{}, nil
	}
	return doc.Clone(), nil
}

func (m *Memory) InsertRecord(ctx context.Context, collection string, id model.ID, doc model.Document) error {
	if doc.Empty() {
		return errors.StorageFault(errors.New(errors.Validation, "empty document"), collection, uint64(id), "")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[collection][id]; ok {
		return errors.StorageFault(errors.New(errors.AlreadyExists, "record already exists"), collection, uint64(id), "")
	}
	if m.records[collection] == nil {
		m.records[collection] = map[model.ID]model.Document{}
	}
	m.records[collection][id] = doc.Clone()
	return nil
}

func (m *Memory) UpdateRecord(ctx context.Context, collection string, id model.ID, fields model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.records[collection][id]
	if !ok {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	doc.Merge(fields)
	return nil
}

func (m *Memory) DeleteRecord(ctx context.Context, collection string, id model.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[collection][id]; !ok {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	delete(m.records[collection], id)
	return nil
}

func (m *Memory) CommitRecords(ctx context.Context) error {
	return nil
}

func (m *Memory) GetAllIDs(ctx context.Context, collection string) ([]model.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := lo.Keys(m.records[collection])
	for _, id := range ids {
		if err := codec.CheckStoredID(collection, id); err != nil {
			return nil, err
		}
	}
	model.SortIDs(ids)
	return ids, nil
}

func (m *Memory) Close(ctx context.Context) error {
	return nil
}
