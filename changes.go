package gamedb

import (
	"sort"

	"github.com/autom8ter/gamedb/model"
	"github.com/samber/lo"
)

type idSet map[model.ID]struct{}

// changeSet holds the writes made since the last commit. For a given collection an id is never both inserted and
// deleted, and a deleted id has no pending fields. Empty inner maps are removed so an empty changeSet has no entries.
type changeSet struct {
	// records holds the changed fields of updated records and every field of inserted records
	records  map[string]map[model.ID]model.Document
	inserted map[string]idSet
	deleted  map[string]idSet
}

func newChangeSet() *changeSet {
	return &changeSet{
		records:  map[string]map[model.ID]model.Document{},
		inserted: map[string]idSet{},
		deleted:  map[string]idSet{},
	}
}

func (c *changeSet) empty() bool {
	return len(c.records) == 0 && len(c.inserted) == 0 && len(c.deleted) == 0
}

func (c *changeSet) isInserted(collection string, id model.ID) bool {
	_, ok := c.inserted[collection][id]
	return ok
}

func (c *changeSet) isDeleted(collection string, id model.ID) bool {
	_, ok := c.deleted[collection][id]
	return ok
}

// fields returns the pending fields of a record. The document is owned by the changeSet.
func (c *changeSet) fields(collection string, id model.ID) (model.Document, bool) {
	doc, ok := c.records[collection][id]
	return doc, ok
}

func (c *changeSet) insert(collection string, id model.ID, doc model.Document) {
	if c.records[collection] == nil {
		c.records[collection] = map[model.ID]model.Document{}
	}
	c.records[collection][id] = doc.Clone()
	if c.inserted[collection] == nil {
		c.inserted[collection] = idSet{}
	}
	c.inserted[collection][id] = struct{}{}
}

func (c *changeSet) update(collection string, id model.ID, field string, value model.Value) {
	if c.records[collection] == nil {
		c.records[collection] = map[model.ID]model.Document{}
	}
	doc, ok := c.records[collection][id]
	if !ok {
		doc = model.Document{}
		c.records[collection][id] = doc
	}
	doc[field] = value.Clone()
}

// delete cancels a pending insert, or marks the record deleted. Either way its pending fields are dropped.
func (c *changeSet) delete(collection string, id model.ID) {
	if c.isInserted(collection, id) {
		delete(c.inserted[collection], id)
		if len(c.inserted[collection]) == 0 {
			delete(c.inserted, collection)
		}
	} else {
		if c.deleted[collection] == nil {
			c.deleted[collection] = idSet{}
		}
		c.deleted[collection][id] = struct{}{}
	}
	if recs, ok := c.records[collection]; ok {
		delete(recs, id)
		if len(recs) == 0 {
			delete(c.records, collection)
		}
	}
}

// touched returns the number of records with a pending insert, update or delete
func (c *changeSet) touched() int {
	n := 0
	for _, recs := range c.records {
		n += len(recs)
	}
	for _, ids := range c.deleted {
		n += len(ids)
	}
	return n
}

// collections returns every collection with pending changes in sorted order
func (c *changeSet) collections() []string {
	names := lo.Uniq(append(lo.Keys(c.records), lo.Keys(c.deleted)...))
	sort.Strings(names)
	return names
}

func sortedIDs[T any](m map[model.ID]T) []model.ID {
	ids := lo.Keys(m)
	model.SortIDs(ids)
	return ids
}
