package gamedb

import (
	"context"
	"sync"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"golang.org/x/sync/errgroup"
)

// Store overlays uncommitted writes on top of a backend and applies committed writes to the backend from a single
// background worker. Reads always observe the caller's own writes, committed or not.
//
// A Store is safe for concurrent use. It owns its backend: no two stores may share one.
type Store struct {
	cfg     Config
	kind    string
	backend backend.Backend
	logger  Logger

	mu        sync.Mutex
	cond      *sync.Cond
	pending   *changeSet
	queue     []*job
	running   bool
	submitted uint64
	applied   uint64
	fault     error
	closed    bool

	// ioMu serializes backend access between the commit worker and reads. It's taken before mu, never while mu is held.
	ioMu  sync.Mutex
	group errgroup.Group
}

// Open opens the backend named by cfg.Connection and returns a Store over it.
// An unknown backend, unreachable database or unwritable directory is reported here.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b, err := registry.OpenConnection(cfg.Connection)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, b, cfg)
	if err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	return s, nil
}

// New returns a Store over an already opened backend and starts its commit worker
func New(ctx context.Context, b backend.Backend, cfg Config) (*Store, error) {
	if cfg.Connection == "" {
		cfg.Connection = b.Kind()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		var err error
		logger, err = NewLogger(cfg.LogLevel, map[string]any{"backend": b.Kind()})
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to create logger")
		}
	}
	s := &Store{
		cfg:     cfg,
		kind:    b.Kind(),
		backend: b,
		logger:  logger,
		pending: newChangeSet(),
	}
	s.cond = sync.NewCond(&s.mu)
	workerCtx := WithLogTags(context.Background(), map[string]any{"backend": s.kind})
	s.group.Go(func() error {
		return s.work(workerCtx)
	})
	recordQueueDepth(s.kind, 0)
	s.logger.Info(ctx, "store opened", map[string]any{
		"backend":          s.kind,
		"max_pending_jobs": cfg.MaxPendingJobs,
	})
	return s, nil
}

// Kind returns the kind of the store's backend
func (s *Store) Kind() string {
	return s.kind
}

// Get returns a record with its pending changes applied, or an empty document if the record doesn't exist or is
// pending deletion. Records pending insertion are served from memory. Otherwise Get waits for the commit worker to
// apply every submitted job before reading the backend.
func (s *Store) Get(ctx context.Context, collection string, id model.ID) (model.Document, error) {
	s.mu.Lock()
	if !s.lockBackend(func() bool {
		return s.closed || s.fault != nil || s.pending.isDeleted(collection, id) || s.pending.isInserted(collection, id)
	}) {
		defer s.mu.Unlock()
		switch {
		case s.closed:
			return nil, errors.New(errors.Closed, "store is closed")
		case s.pending.isDeleted(collection, id):
			return model.Document{}, nil
		case s.pending.isInserted(collection, id):
			doc, _ := s.pending.fields(collection, id)
			return doc.Clone(), nil
		default:
			return nil, s.fault
		}
	}
	fields, _ := s.pending.fields(collection, id)
	fields = fields.Clone()
	s.mu.Unlock()
	doc, err := s.backend.GetRecord(ctx, collection, id)
	s.ioMu.Unlock()
	if err != nil {
		return nil, errors.StorageFault(err, collection, uint64(id), "failed to get record")
	}
	doc.Merge(fields)
	return doc, nil
}

// lockBackend waits until every submitted job has been applied and then acquires ioMu. s.mu must be held on entry
// and is held on return; it is never held while blocking on ioMu. done is checked with s.mu held on every pass: once it
// returns true lockBackend gives up and returns false without ioMu. Otherwise it returns true holding ioMu.
func (s *Store) lockBackend(done func() bool) bool {
	for {
		if done() {
			return false
		}
		if s.applied < s.submitted {
			s.cond.Wait()
			continue
		}
		s.mu.Unlock()
		s.ioMu.Lock()
		s.mu.Lock()
		if !done() && s.applied >= s.submitted {
			return true
		}
		s.ioMu.Unlock()
	}
}

// Insert stages a new record. It fails if the record is already pending insertion or deletion.
func (s *Store) Insert(collection string, id model.ID, doc model.Document) error {
	if doc.Empty() {
		return errors.New(errors.Validation, "cannot insert an empty document into %s/%d", collection, id)
	}
	if err := doc.Valid(); err != nil {
		return errors.Wrap(err, errors.Validation, "cannot insert into %s/%d", collection, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.Closed, "store is closed")
	}
	if s.pending.isInserted(collection, id) || s.pending.isDeleted(collection, id) {
		return errors.New(errors.AlreadyExists, "%s/%d is already pending insertion or deletion", collection, id)
	}
	s.pending.insert(collection, id, doc)
	return nil
}

// Update stages a change to one field of a record. The record doesn't need to exist yet: updating a record pending
// insertion refines the document that will be inserted.
func (s *Store) Update(collection string, id model.ID, field string, value model.Value) error {
	if field == "" {
		return errors.New(errors.Validation, "cannot update %s/%d: empty field name", collection, id)
	}
	if !value.Valid() {
		return errors.New(errors.Validation, "cannot update %s/%d: invalid value for field %s", collection, id, field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.Closed, "store is closed")
	}
	if s.pending.isDeleted(collection, id) {
		return errors.New(errors.Deleted, "%s/%d is pending deletion", collection, id)
	}
	s.pending.update(collection, id, field, value)
	return nil
}

// Delete stages the deletion of a record. Deleting a record pending insertion cancels the insert.
func (s *Store) Delete(collection string, id model.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.Closed, "store is closed")
	}
	if s.pending.isDeleted(collection, id) {
		return errors.New(errors.AlreadyDeleted, "%s/%d is already pending deletion", collection, id)
	}
	s.pending.delete(collection, id)
	return nil
}

// CommitChanges hands every pending change to the commit worker as one job. If MaxPendingJobs jobs are already
// outstanding it first waits for the worker to drain. If wait is true it blocks until the job, and every job before
// it, has been applied. Committing with nothing pending is a no-op.
//
// Once a backend fault has stopped the commit pipeline, CommitChanges returns that fault.
func (s *Store) CommitChanges(ctx context.Context, wait bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.Closed, "store is closed")
	}
	if s.fault != nil {
		return s.fault
	}
	if s.outstanding() >= s.cfg.MaxPendingJobs && !s.pending.empty() {
		recordBackpressure(s.kind)
		s.logger.Warn(ctx, "commit queue is full, waiting for it to drain", map[string]any{
			"outstanding":      s.outstanding(),
			"max_pending_jobs": s.cfg.MaxPendingJobs,
		})
		if err := s.waitFor(s.submitted); err != nil {
			return err
		}
		if s.closed {
			return errors.New(errors.Closed, "store is closed")
		}
	}
	if s.pending.empty() {
		if wait {
			return s.waitFor(s.submitted)
		}
		return nil
	}
	j := newJob(s.pending)
	s.pending = newChangeSet()
	s.queue = append(s.queue, j)
	s.submitted++
	target := s.submitted
	recordQueueDepth(s.kind, s.outstanding())
	s.logger.Debug(ctx, "submitted commit job", map[string]any{
		"job_id":  j.id,
		"records": j.changes.touched(),
		"wait":    wait,
	})
	s.cond.Broadcast()
	if wait {
		return s.waitFor(target)
	}
	return nil
}

// ClearChanges discards every pending change without committing it
func (s *Store) ClearChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = newChangeSet()
}

// GetAllIDs returns the ids of every record in a collection in ascending order: the backend's ids plus records
// pending insertion, minus records pending deletion. Like Get, it waits for submitted jobs to be applied first.
func (s *Store) GetAllIDs(ctx context.Context, collection string) ([]model.ID, error) {
	s.mu.Lock()
	if !s.lockBackend(func() bool { return s.closed || s.fault != nil }) {
		defer s.mu.Unlock()
		if s.closed {
			return nil, errors.New(errors.Closed, "store is closed")
		}
		return nil, s.fault
	}
	inserted := sortedIDs(s.pending.inserted[collection])
	deleted := idSet{}
	for id := range s.pending.deleted[collection] {
		deleted[id] = struct{}{}
	}
	s.mu.Unlock()
	stored, err := s.backend.GetAllIDs(ctx, collection)
	s.ioMu.Unlock()
	if err != nil {
		return nil, errors.StorageFault(err, collection, 0, "failed to list records")
	}
	seen := idSet{}
	ids := make([]model.ID, 0, len(stored)+len(inserted))
	for _, id := range append(stored, inserted...) {
		if _, ok := deleted[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	model.SortIDs(ids)
	return ids, nil
}

// Pending returns the number of records with uncommitted changes
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.touched()
}

// Stats is a snapshot of a Store's commit pipeline
type Stats struct {
	// Pending is the number of records with uncommitted changes
	Pending int `json:"pending"`
	// Outstanding is the number of submitted jobs not yet applied, including the running one
	Outstanding int `json:"outstanding"`
	// Running is true while the worker is applying a job
	Running bool `json:"running"`
	// Submitted is the number of jobs submitted since the store was opened
	Submitted uint64 `json:"submitted"`
	// Applied is the number of submitted jobs the worker is done with (applied or dropped after a fault)
	Applied uint64 `json:"applied"`
}

// Stats returns a snapshot of the commit pipeline
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Pending:     s.pending.touched(),
		Outstanding: s.outstanding(),
		Running:     s.running,
		Submitted:   s.submitted,
		Applied:     s.applied,
	}
}

// Err returns the backend fault that stopped the commit pipeline, if any
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// Close discards pending changes, waits for the commit worker to apply every submitted job and closes the backend.
// Callers that need their pending changes persisted call CommitChanges first. Close returns the pipeline fault if
// there was one. Once the pipeline has faulted Close doesn't wait for the worker, so it may be called from OnFault.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if n := s.pending.touched(); n > 0 {
		s.logger.Warn(ctx, "discarding uncommitted changes", map[string]any{"records": n})
	}
	s.pending = newChangeSet()
	fault := s.fault
	s.cond.Broadcast()
	s.mu.Unlock()

	// a faulted worker is done with the backend and only reports the fault before exiting
	if fault == nil {
		fault = s.group.Wait()
	}

	s.ioMu.Lock()
	closeErr := s.backend.Close(ctx)
	s.ioMu.Unlock()
	s.logger.Info(ctx, "store closed", map[string]any{"backend": s.kind})
	if fault != nil {
		return fault
	}
	return closeErr
}
