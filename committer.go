package gamedb

import (
	"context"
	"time"

	"github.com/autom8ter/gamedb/errors"
	"github.com/segmentio/ksuid"
)

// job is a moved out changeSet waiting to be applied by the commit worker
type job struct {
	id      string
	changes *changeSet
}

func newJob(changes *changeSet) *job {
	return &job{
		id:      ksuid.New().String(),
		changes: changes,
	}
}

// work applies queued jobs one at a time in submission order until the store is closed and the queue is empty,
// or until a backend fault. A fault drops every queued job and stops the pipeline for good.
func (s *Store) work(ctx context.Context) error {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return nil
		}
		j := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.running = true
		s.mu.Unlock()

		err := s.apply(ctx, j)

		s.mu.Lock()
		s.running = false
		s.applied++
		var dropped []*job
		if err != nil {
			s.fault = err
			dropped = s.queue
			s.queue = nil
			s.applied += uint64(len(dropped))
		}
		recordQueueDepth(s.kind, s.outstanding())
		s.cond.Broadcast()
		s.mu.Unlock()

		if err != nil {
			s.fail(ctx, j, dropped, err)
			return err
		}
	}
}

func (s *Store) fail(ctx context.Context, j *job, dropped []*job, err error) {
	recordJob(s.kind, "failed")
	recordFault(s.kind)
	s.logger.Error(ctx, "commit job failed, stopping the commit pipeline", err, map[string]any{
		"job_id": j.id,
	})
	for _, d := range dropped {
		recordJob(s.kind, "dropped")
		s.logger.Error(ctx, "dropped queued commit job", err, map[string]any{
			"job_id":  d.id,
			"records": d.changes.touched(),
		})
	}
	if s.cfg.OnFault != nil {
		s.cfg.OnFault(err)
	}
}

// apply writes a job to the backend: inserts and updates of every collection, then deletes, then a single commit.
// Collections and ids are visited in sorted order.
func (s *Store) apply(ctx context.Context, j *job) error {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	ctx = WithLogTags(ctx, map[string]any{"job_id": j.id})
	start := time.Now()
	var inserts, updates, deletes int
	collections := j.changes.collections()
	for _, c := range collections {
		records := j.changes.records[c]
		for _, id := range sortedIDs(records) {
			if j.changes.isInserted(c, id) {
				if err := s.backend.InsertRecord(ctx, c, id, records[id]); err != nil {
					return errors.StorageFault(err, c, uint64(id), "failed to insert record")
				}
				inserts++
				continue
			}
			if err := s.backend.UpdateRecord(ctx, c, id, records[id]); err != nil {
				return errors.StorageFault(err, c, uint64(id), "failed to update record")
			}
			updates++
		}
	}
	for _, c := range collections {
		for _, id := range sortedIDs(j.changes.deleted[c]) {
			if err := s.backend.DeleteRecord(ctx, c, id); err != nil {
				return errors.StorageFault(err, c, uint64(id), "failed to delete record")
			}
			deletes++
		}
	}
	if err := s.backend.CommitRecords(ctx); err != nil {
		return errors.StorageFault(err, "", 0, "failed to commit records")
	}
	elapsed := time.Since(start)
	recordJob(s.kind, "applied")
	recordOperations(s.kind, "insert", inserts)
	recordOperations(s.kind, "update", updates)
	recordOperations(s.kind, "delete", deletes)
	recordCommitDuration(s.kind, elapsed)
	s.logger.Debug(ctx, "applied commit job", map[string]any{
		"inserts":  inserts,
		"updates":  updates,
		"deletes":  deletes,
		"duration": elapsed.String(),
	})
	return nil
}

// waitFor blocks until the first target submitted jobs have been applied or dropped. s.mu must be held.
func (s *Store) waitFor(target uint64) error {
	for s.applied < target {
		s.cond.Wait()
	}
	return s.fault
}

// outstanding returns the number of submitted jobs not yet applied. s.mu must be held.
func (s *Store) outstanding() int {
	return int(s.submitted - s.applied)
}
