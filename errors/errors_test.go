package errors_test

import (
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/autom8ter/gamedb/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	t.Run("wrap nil error", func(t *testing.T) {
		var err error
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Nil(t, err)
	})
	t.Run("wrap error", func(t *testing.T) {
		var err = fmt.Errorf("not found")
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error", func(t *testing.T) {
		err := errors.New(errors.AlreadyExists, "record %d already exists", 7)
		assert.Equal(t, errors.AlreadyExists, errors.Extract(err).Code)
		assert.True(t, errors.Is(err, errors.AlreadyExists))
		assert.False(t, errors.Is(err, errors.Deleted))
	})
	t.Run("new error then wrap", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
	})
	t.Run("new error then wrap then remove", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		e := errors.Extract(err).RemoveError()
		assert.Empty(t, e.Err)
	})
	t.Run("error json string", func(t *testing.T) {
		err := errors.New(0, "not found")
		err = errors.Wrap(err, errors.NotFound, "")
		e := errors.Extract(err).RemoveError()
		assert.JSONEq(t, `{ "code":"not_found", "messages": ["not found"]}`, e.Error())
	})
	t.Run("storage fault", func(t *testing.T) {
		cause := fmt.Errorf("disk full")
		err := errors.StorageFault(cause, "Players", 7, "failed to insert record")
		e := errors.Extract(err)
		assert.Equal(t, errors.Storage, e.Code)
		assert.Equal(t, "Players", e.Collection)
		assert.EqualValues(t, 7, e.ID)
		assert.True(t, stderrors.Is(err, cause))
		assert.JSONEq(t, `{"code":"storage","messages":["failed to insert record"],"err":"disk full","collection":"Players","id":7}`, err.Error())
	})
	t.Run("storage fault keeps inner scope", func(t *testing.T) {
		inner := errors.StorageFault(fmt.Errorf("boom"), "Items", 3, "")
		err := errors.StorageFault(inner, "Players", 9, "commit failed")
		e := errors.Extract(err)
		assert.Equal(t, "Items", e.Collection)
		assert.EqualValues(t, 3, e.ID)
	})
	t.Run("wrapping leaves the original untouched", func(t *testing.T) {
		shared := errors.StorageFault(fmt.Errorf("disk full"), "Players", 7, "failed to insert record")
		wrapped := errors.Wrap(shared, errors.Internal, "while saving")
		faulted := errors.StorageFault(shared, "Items", 1, "commit failed")
		assert.Equal(t, []string{"failed to insert record"}, errors.Extract(shared).Messages)
		assert.Equal(t, errors.Storage, errors.Extract(shared).Code)
		assert.Equal(t, []string{"failed to insert record", "while saving"}, errors.Extract(wrapped).Messages)
		assert.Equal(t, errors.Internal, errors.Extract(wrapped).Code)
		assert.Equal(t, []string{"failed to insert record", "commit failed"}, errors.Extract(faulted).Messages)
		assert.Equal(t, "Players", errors.Extract(faulted).Collection)
	})
	t.Run("concurrent wraps of a shared error", func(t *testing.T) {
		shared := errors.New(errors.Storage, "disk full")
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := errors.Wrap(shared, 0, "caller %d", i)
				assert.Equal(t, []string{"disk full", fmt.Sprintf("caller %d", i)}, errors.Extract(err).Messages)
			}(i)
		}
		wg.Wait()
		assert.Equal(t, []string{"disk full"}, errors.Extract(shared).Messages)
	})
	t.Run("extract wrapped", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", errors.New(errors.Closed, "store is closed"))
		assert.True(t, errors.Is(err, errors.Closed))
	})
}
