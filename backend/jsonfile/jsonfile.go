// Package jsonfile stores every record as a pretty printed canonical extended json file:
// <storage_dir>/<collection>/<id>.json
package jsonfile

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/codec"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/spf13/cast"
)

// Kind is the connection string keyword of the json file backend
const Kind = "JSON"

const ext = ".json"

func init() {
	registry.Register(Kind, []string{"storage_dir"}, func(params map[string]any) (backend.Backend, error) {
		return Open(cast.ToString(params["storage_dir"]))
	})
}

// Files is a backend writing one json file per record
type Files struct {
	dir string
}

var _ backend.Backend = (*Files)(nil)

// Open creates the storage directory if needed and returns a backend writing into it
func Open(dir string) (*Files, error) {
	if dir == "" {
		return nil, errors.New(errors.UnsupportedBackend, "JSON: empty storage directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.UnsupportedBackend, "JSON: failed to create storage directory %s", dir)
	}
	return &Files{dir: dir}, nil
}

func (f *Files) Kind() string {
	return Kind
}

func (f *Files) path(collection string, id model.ID) string {
	return filepath.Join(f.dir, collection, id.String()+ext)
}

func (f *Files) read(collection string, id model.ID) (model.Document, bool, error) {
	bits, err := os.ReadFile(f.path(collection, id))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return model.Document{}, false, nil
		}
		return nil, false, errors.StorageFault(err, collection, uint64(id), "failed to read record")
	}
	doc, err := codec.UnmarshalExtJSON(bits)
	if err != nil {
		return nil, false, errors.StorageFault(err, collection, uint64(id), "failed to parse record")
	}
	return doc, true, nil
}

func (f *Files) write(collection string, id model.ID, doc model.Document) error {
	bits, err := codec.MarshalExtJSON(doc)
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to encode record")
	}
	dir := filepath.Join(f.dir, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to create collection directory")
	}
	tmp, err := os.CreateTemp(dir, id.String()+".*.tmp")
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(bits); err != nil {
		tmp.Close()
		return errors.StorageFault(err, collection, uint64(id), "failed to write record")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.StorageFault(err, collection, uint64(id), "failed to sync record")
	}
	if err := tmp.Close(); err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to close record")
	}
	if err := os.Rename(tmp.Name(), f.path(collection, id)); err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to replace record")
	}
	return nil
}

func (f *Files) GetRecord(ctx context.Context, collection string, id model.ID) (model.Document, error) {
	doc, _, err := f.read(collection, id)
	return doc, err
}

func (f *Files) InsertRecord(ctx context.Context, collection string, id model.ID, doc model.Document) error {
	if doc.Empty() {
		return errors.StorageFault(errors.New(errors.Validation, "empty document"), collection, uint64(id), "")
	}
	if _, err := os.Stat(f.path(collection, id)); err == nil {
		return errors.StorageFault(errors.New(errors.AlreadyExists, "record file already exists"), collection, uint64(id), "")
	}
	return f.write(collection, id, doc)
}

func (f *Files) UpdateRecord(ctx context.Context, collection string, id model.ID, fields model.Document) error {
	doc, ok, err := f.read(collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.StorageFault(errors.New(errors.NotFound, "record file does not exist"), collection, uint64(id), "")
	}
	doc.Merge(fields)
	return f.write(collection, id, doc)
}

func (f *Files) DeleteRecord(ctx context.Context, collection string, id model.ID) error {
	if err := os.Remove(f.path(collection, id)); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.StorageFault(errors.New(errors.NotFound, "record file does not exist"), collection, uint64(id), "")
		}
		return errors.StorageFault(err, collection, uint64(id), "failed to remove record")
	}
	return nil
}

// CommitRecords is a no-op: every write is durable once it returns
func (f *Files) CommitRecords(ctx context.Context) error {
	return nil
}

// GetAllIDs lists the record files of a collection. A file named after id 0 is reported as corrupt state.
func (f *Files) GetAllIDs(ctx context.Context, collection string) ([]model.ID, error) {
	entries, err := os.ReadDir(filepath.Join(f.dir, collection))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return []model.ID{}, nil
		}
		return nil, errors.StorageFault(err, collection, 0, "failed to list records")
	}
	ids := make([]model.ID, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		id, err := model.ParseID(strings.TrimSuffix(e.Name(), ext))
		if err != nil {
			return nil, errors.StorageFault(err, collection, 0, "unexpected file %s", e.Name())
		}
		if err := codec.CheckStoredID(collection, id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	model.SortIDs(ids)
	return ids, nil
}

func (f *Files) Close(ctx context.Context) error {
	return nil
}
