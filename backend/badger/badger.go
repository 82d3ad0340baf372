package badger

import (
	"context"
	stderrors "errors"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/codec"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/dgraph-io/badger/v3"
	"github.com/spf13/cast"
)

// Kind is the connection string keyword of the badger backend
const Kind = "Badger"

func init() {
	registry.Register(Kind, []string{"storage_dir"}, func(params map[string]any) (backend.Backend, error) {
		return Open(cast.ToString(params["storage_dir"]))
	})
}

// Badger stores every collection in one badger keyspace, keys prefixed by collection name.
// Writes are staged in a single transaction until CommitRecords.
type Badger struct {
	db  *badger.DB
	txn *badger.Txn
}

var _ backend.Backend = (*Badger)(nil)

// Open opens a badger database in the storage directory. An empty directory opens an in-memory database.
func Open(storagePath string) (*Badger, error) {
	opts := badger.DefaultOptions(storagePath)
	if storagePath == "" {
		opts.InMemory = true
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts = opts.WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.UnsupportedBackend, "Badger: failed to open %s", storagePath)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Kind() string {
	return Kind
}

func (b *Badger) writeTxn() *badger.Txn {
	if b.txn == nil {
		b.txn = b.db.NewTransaction(true)
	}
	return b.txn
}

// view runs fn in the staged transaction if there is one, otherwise in a read only transaction
func (b *Badger) view(fn func(txn *badger.Txn) error) error {
	if b.txn != nil {
		return fn(b.txn)
	}
	return b.db.View(fn)
}

func (b *Badger) get(txn *badger.Txn, collection string, id model.ID) (model.Document, bool, error) {
	item, err := txn.Get(codec.RecordKey(collection, id))
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return model.Document{}, false, nil
		}
		return nil, false, errors.StorageFault(err, collection, uint64(id), "failed to read record")
	}
	bits, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, errors.StorageFault(err, collection, uint64(id), "failed to read record")
	}
	doc, err := codec.Unmarshal(bits)
	if err != nil {
		return nil, false, errors.StorageFault(err, collection, uint64(id), "failed to decode record")
	}
	return doc, true, nil
}

// set stages a write, committing the staged transaction and starting a new one if it grew too big
func (b *Badger) set(collection string, id model.ID, doc model.Document) error {
	bits, err := codec.Marshal(doc)
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to encode record")
	}
	key := codec.RecordKey(collection, id)
	err = b.writeTxn().Set(key, bits)
	if stderrors.Is(err, badger.ErrTxnTooBig) {
		if err := b.CommitRecords(context.Background()); err != nil {
			return err
		}
		err = b.writeTxn().Set(key, bits)
	}
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to write record")
	}
	return nil
}

func (b *Badger) GetRecord(ctx context.Context, collection string, id model.ID) (model.Document, error) {
	var doc model.Document
	err := b.view(func(txn *badger.Txn) error {
		var err error
		doc, _, err = b.get(txn, collection, id)
		return err
	})
	return doc, err
}

func (b *Badger) InsertRecord(ctx context.Context, collection string, id model.ID, doc model.Document) error {
	if doc.Empty() {
		return errors.StorageFault(errors.New(errors.Validation, "empty document"), collection, uint64(id), "")
	}
	_, ok, err := b.get(b.writeTxn(), collection, id)
	if err != nil {
		return err
	}
	if ok {
		return errors.StorageFault(errors.New(errors.AlreadyExists, "record already exists"), collection, uint64(id), "")
	}
	return b.set(collection, id, doc)
}

func (b *Badger) UpdateRecord(ctx context.Context, collection string, id model.ID, fields model.Document) error {
	doc, ok, err := b.get(b.writeTxn(), collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	doc.Merge(fields)
	return b.set(collection, id, doc)
}

func (b *Badger) DeleteRecord(ctx context.Context, collection string, id model.ID) error {
	_, ok, err := b.get(b.writeTxn(), collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	key := codec.RecordKey(collection, id)
	err = b.writeTxn().Delete(key)
	if stderrors.Is(err, badger.ErrTxnTooBig) {
		if err := b.CommitRecords(ctx); err != nil {
			return err
		}
		err = b.writeTxn().Delete(key)
	}
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to delete record")
	}
	return nil
}

func (b *Badger) CommitRecords(ctx context.Context) error {
	if b.txn == nil {
		return nil
	}
	txn := b.txn
	b.txn = nil
	if err := txn.Commit(); err != nil {
		return errors.StorageFault(err, "", 0, "failed to commit transaction")
	}
	return nil
}

func (b *Badger) GetAllIDs(ctx context.Context, collection string) ([]model.ID, error) {
	ids := []model.ID{}
	prefix := codec.CollectionPrefix(collection)
	err := b.view(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: false,
			Prefix:         prefix,
		})
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			id, err := codec.IDFromKey(collection, iter.Item().KeyCopy(nil))
			if err != nil {
				return err
			}
			if err := codec.CheckStoredID(collection, id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, errors.StorageFault(err, collection, 0, "failed to list records")
	}
	return ids, nil
}

// Close discards staged writes and closes the database
func (b *Badger) Close(ctx context.Context) error {
	if b.txn != nil {
		b.txn.Discard()
		b.txn = nil
	}
	if !b.db.Opts().InMemory {
		if err := b.db.Sync(); err != nil {
			return errors.StorageFault(err, "", 0, "failed to sync")
		}
	}
	if err := b.db.Close(); err != nil {
		return errors.StorageFault(err, "", 0, "failed to close")
	}
	return nil
}
