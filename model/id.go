package model

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
)

// ID identifies a record within a collection. IDs are assigned by the caller, never by the store.
type ID uint64

// String returns the decimal form of the id
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Bytes returns the 8 byte big-endian form of the id, which sorts in numeric order
func (id ID) Bytes() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// ParseID parses the decimal form of an id
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return ID(n), nil
}

// IDFromBytes decodes the 8 byte big-endian form of an id
func IDFromBytes(b []byte) (ID, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid id length %d", len(b))
	}
	return ID(binary.BigEndian.Uint64(b)), nil
}

// SortIDs sorts ids in ascending order
func SortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
