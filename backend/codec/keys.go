package codec

import (
	"bytes"
	"fmt"

	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
)

const keySeparator = byte(0)

// CollectionPrefix returns the key prefix shared by every record of a collection in a single keyspace
func CollectionPrefix(collection string) []byte {
	prefix := make([]byte, 0, len(collection)+1)
	prefix = append(prefix, collection...)
	return append(prefix, keySeparator)
}

// RecordKey returns the key of a record in a single keyspace: the collection prefix followed by the 8 byte big-endian id,
// so keys of one collection iterate in numeric id order
func RecordKey(collection string, id model.ID) []byte {
	return append(CollectionPrefix(collection), id.Bytes()...)
}

// IDFromKey returns the id of a record key built by RecordKey
func IDFromKey(collection string, key []byte) (model.ID, error) {
	prefix := CollectionPrefix(collection)
	if !bytes.HasPrefix(key, prefix) {
		return 0, fmt.Errorf("key %x doesn't belong to collection %s", key, collection)
	}
	return model.IDFromBytes(key[len(prefix):])
}

// PrefixEnd returns the smallest key greater than every key with the given prefix
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// CheckStoredID reports a record persisted under id 0 as corrupt state. Ids are assigned by callers and start at 1.
func CheckStoredID(collection string, id model.ID) error {
	if id == 0 {
		return errors.StorageFault(errors.New(errors.Internal, "record stored under id 0"), collection, 0, "")
	}
	return nil
}
