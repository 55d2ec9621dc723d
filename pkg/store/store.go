// Package store abstracts a remote, multi-writer, real-time document
// collection into subscribe-with-snapshot, point write, point delete and
// append primitives. Subscribers receive the full current contents of a
// collection every time any member changes; the client is expected to
// replace its local mirror wholesale on every delivery.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Document is one member of a collection snapshot: the store-assigned key
// plus the raw document body for the caller to decode.
type Document struct {
	ID   string
	Data bson.Raw
}

// SnapshotFunc receives the full collection contents on every change.
type SnapshotFunc func(docs []Document)

// ErrorFunc receives transport failures. The store does not retry
// internally; recovery policy belongs to the caller.
type ErrorFunc func(err error)

// Unsubscribe tears down a live subscription. It must be invoked exactly
// once; further calls are no-ops.
type Unsubscribe func()

// Store is the remote document collection interface.
type Store interface {
	// SubscribeCollection registers a live subscription on a collection.
	SubscribeCollection(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error)

	// SubscribeOrderedLimited is SubscribeCollection restricted to query
	// semantics: sorted by orderKey, capped at limit entries, newest
	// first when descending.
	SubscribeOrderedLimited(ctx context.Context, collection, orderKey string, descending bool, limit int64, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error)

	// Upsert replaces the document addressed by collection and id
	// wholesale. There is no field-level merge.
	Upsert(ctx context.Context, collection, id string, doc interface{}) error

	// Delete removes a document. Deleting a nonexistent id is not an
	// error.
	Delete(ctx context.Context, collection, id string) error

	// Append inserts a document with a store-assigned id and returns
	// that id. Used for event logs where entries are never addressed
	// individually afterwards.
	Append(ctx context.Context, collection string, doc interface{}) (string, error)
}

// ErrNotConnected is returned by the client-side write guard when a mutating
// command is attempted without an established connection.
var ErrNotConnected = errors.New("store: connection not established")

// WriteError wraps a rejected upsert, delete or append.
type WriteError struct {
	Collection string
	Op         string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: %s on %s failed: %v", e.Op, e.Collection, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// SubscriptionError wraps a broken push channel.
type SubscriptionError struct {
	Collection string
	Err        error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("store: subscription on %s failed: %v", e.Collection, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
