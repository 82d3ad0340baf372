package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// Code classifies an Error
type Code int

const (
	// Internal is an unexpected failure
	Internal Code = iota + 1
	// NotFound is returned when a named thing (backend kind, collection, record) doesn't exist
	NotFound
	// Validation is returned when an argument is malformed (empty document, invalid value)
	Validation
	// AlreadyExists is returned when a record is inserted twice before a commit
	AlreadyExists
	// Deleted is returned when a record that is pending deletion is updated
	Deleted
	// AlreadyDeleted is returned when a record that is pending deletion is deleted again
	AlreadyDeleted
	// UnsupportedBackend is returned when a connection string names an unknown backend or has malformed parameters
	UnsupportedBackend
	// Storage is a fault raised by a physical backend
	Storage
	// Closed is returned when the store has been closed
	Closed
)

var codeNames = map[Code]string{
	Internal:           "internal",
	NotFound:           "not_found",
	Validation:         "validation",
	AlreadyExists:      "already_exists",
	Deleted:            "deleted",
	AlreadyDeleted:     "already_deleted",
	UnsupportedBackend: "unsupported_backend",
	Storage:            "storage",
	Closed:             "closed",
}

// String returns the name of the code
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is a custom error
type Error struct {
	Code       Code     `json:"code"`
	Messages   []string `json:"messages"`
	Err        error    `json:"-"`
	Collection string   `json:"collection,omitempty"`
	ID         uint64   `json:"id,omitempty"`
}

// Error returns the Error as a json string
func (e *Error) Error() string {
	type alias struct {
		Code       string   `json:"code"`
		Messages   []string `json:"messages"`
		Err        string   `json:"err,omitempty"`
		Collection string   `json:"collection,omitempty"`
		ID         uint64   `json:"id,omitempty"`
	}
	a := alias{
		Code:       e.Code.String(),
		Messages:   e.Messages,
		Collection: e.Collection,
		ID:         e.ID,
	}
	if e.Err != nil {
		a.Err = e.Err.Error()
	}
	bits, _ := json.Marshal(a)
	return string(bits)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// clone returns a copy of e that shares no mutable state with it
func (e *Error) clone() *Error {
	cp := *e
	cp.Messages = append([]string(nil), e.Messages...)
	return &cp
}

// RemoveError removes the error from the Error and leaves it's messages and code
func (e *Error) RemoveError() *Error {
	return &Error{
		Code:       e.Code,
		Messages:   e.Messages,
		Collection: e.Collection,
		ID:         e.ID,
	}
}

// New creates a new error with the given code
func New(code Code, msg string, args ...any) error {
	return &Error{
		Code:     code,
		Messages: []string{fmt.Sprintf(msg, args...)},
	}
}

// Extract extracts the custom Error from the given error
func Extract(err error) *Error {
	var e *Error
	if !stderrors.As(err, &e) {
		return &Error{
			Code:     0,
			Messages: nil,
			Err:      err,
		}
	}
	return e
}

// Is reports whether err carries the given code
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return Extract(err).Code == code
}

// Wrap wraps the given error and returns a new one. Wrapping a nil error returns nil.
func Wrap(err error, code Code, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	if inner, ok := err.(*Error); ok {
		e := inner.clone()
		if msg != "" {
			e.Messages = append(e.Messages, fmt.Sprintf(msg, args...))
		}
		if code > 0 {
			e.Code = code
		}
		return e
	}
	e := &Error{
		Code: code,
		Err:  err,
	}
	if msg != "" {
		e.Messages = append(e.Messages, fmt.Sprintf(msg, args...))
	}
	return e
}

// StorageFault wraps a backend fault with the collection and record it occurred on
func StorageFault(err error, collection string, id uint64, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	var inner *Error
	var e *Error
	if stderrors.As(err, &inner) {
		e = inner.clone()
	} else {
		e = &Error{Err: err}
	}
	e.Code = Storage
	if e.Collection == "" {
		e.Collection = collection
	}
	if e.ID == 0 {
		e.ID = id
	}
	if msg != "" {
		e.Messages = append(e.Messages, fmt.Sprintf(msg, args...))
	}
	return e
}
