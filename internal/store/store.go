// Package store defines the shared document store the game protocol
// coordinates through. Paths follow the collection/document convention:
// an even number of "/" segments names a document ("rooms/ABC123"), an odd
// number names a collection ("rooms/ABC123/players").
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by Update when the document does not exist.
	ErrNotFound = errors.New("store: document not found")
	// ErrPreconditionFailed is returned by Apply when a batch guard does not
	// hold. Callers racing for the same transition treat it as "lost the
	// race", not as a failure.
	ErrPreconditionFailed = errors.New("store: precondition failed")
)

// Fields holds a document's field values. Values must be JSON-encodable;
// numbers read back from a snapshot may come back as float64.
type Fields map[string]any

// Increment marks a field value as a server-side atomic add, so concurrent
// writers cannot lose updates to counters like totalScore.
type Increment int64

// Snapshot is a point-in-time view of one document.
type Snapshot struct {
	Path   string
	Fields Fields
}

// Decode unmarshals the snapshot fields into dest via JSON.
func (s Snapshot) Decode(dest any) error {
	data, err := json.Marshal(s.Fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Write is one document mutation inside a batch. Fields merge into the
// existing document; Replace drops fields not present instead.
type Write struct {
	Path    string
	Fields  Fields
	Replace bool
}

// Guard is a field-equality precondition checked atomically with the
// writes of its batch (compare-and-swap on the guarded field).
type Guard struct {
	Path  string
	Field string
	Want  any
}

// Batch is an all-or-nothing set of writes, gated on its guards.
type Batch struct {
	Guards []Guard
	Writes []Write
}

// Store is the coordination medium shared by all clients of a room.
//
// Implementations must guarantee: batches are atomic across documents;
// watch callbacks are delivered in commit order per watcher; and a
// client's own writes are visible in its own subsequent callbacks before
// later cross-client writes are (the controller depends on this to avoid
// re-running a transition it just committed).
type Store interface {
	// Get reads one document. The second result is false if it is absent.
	Get(ctx context.Context, path string) (Snapshot, bool, error)
	// Set writes one document, merging into an existing one when merge is true.
	Set(ctx context.Context, path string, fields Fields, merge bool) error
	// Update merges fields into an existing document.
	Update(ctx context.Context, path string, fields Fields) error
	// Apply commits a batch atomically, checking its guards first.
	Apply(ctx context.Context, batch Batch) error
	// List reads every document in a collection.
	List(ctx context.Context, collection string) ([]Snapshot, error)
	// Watch subscribes to a document or collection. The callback receives
	// the current state immediately and again after every change; for a
	// document target the slice has at most one element. The returned
	// function cancels the subscription.
	Watch(ctx context.Context, target string, fn func([]Snapshot)) (func(), error)
}

// FieldsOf converts a struct into Fields via JSON, for writes that mirror
// a whole model.
func FieldsOf(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// IsCollection reports whether a path names a collection rather than a
// document.
func IsCollection(path string) bool {
	return strings.Count(path, "/")%2 == 0
}

// Parent returns the collection a document belongs to.
func Parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// ValuesEqual compares two field values by their canonical JSON encoding,
// so an int written by one client matches the float64 another reads back.
func ValuesEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
