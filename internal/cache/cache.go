// Package cache is the key-value adapter the hand-raise subsystem keeps all
// of its state in. It exposes the four shapes the subsystem needs: scalar
// records, field maps (hashes), capped ordered lists, and an expiring field
// map, each with the atomic mutation primitives the callers rely on.
//
// The production implementation is backed by NATS JetStream key-value
// buckets. When the store cannot be reached at startup, OpenOrDisabled
// returns a Disabled cache whose every call fails with ErrDisabled, so the
// rest of the subsystem degrades to no-ops instead of failing the process.
package cache

import (
	"context"
	"errors"
)

var (
	// ErrDisabled is returned by every operation on a Disabled cache.
	ErrDisabled = errors.New("cache: disabled")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("cache: not found")
	// ErrConflict is returned when an optimistic update kept losing races.
	ErrConflict = errors.New("cache: too many concurrent updates")
)

// Cache is the primitive surface of the shared store.
//
// Hash fields and list values are opaque strings; records and field values
// are opaque bytes. Callers own serialization.
type Cache interface {
	// Enabled reports whether the cache is backed by a live store.
	Enabled() bool
	// Healthy reports whether the store connection is currently up.
	Healthy() bool

	GetRecord(ctx context.Context, key string) ([]byte, error)
	PutRecord(ctx context.Context, key string, value []byte) error
	// UpdateRecord applies fn to the current value and writes the result
	// only if nobody else wrote the record in between. It returns
	// ErrNotFound if the record does not exist.
	UpdateRecord(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
	DeleteRecord(ctx context.Context, key string) error

	// HashSetNX writes field only if it is absent. It reports whether the
	// write happened.
	HashSetNX(ctx context.Context, hash, field string, value []byte) (bool, error)
	HashSet(ctx context.Context, hash, field string, value []byte) error
	HashGet(ctx context.Context, hash, field string) ([]byte, error)
	// HashDelete removes field and reports whether it existed.
	HashDelete(ctx context.Context, hash, field string) (bool, error)
	HashLen(ctx context.Context, hash string) (int, error)
	HashGetAll(ctx context.Context, hash string) (map[string][]byte, error)
	// HashDeleteAll removes every field of hash in one operation and returns
	// how many fields it saw beforehand.
	HashDeleteAll(ctx context.Context, hash string) (int, error)

	// ListPushTrim appends value to the tail of the list and trims the head
	// so at most max values remain. It returns the values trimmed off.
	// A value already in the list is moved to the tail, never duplicated.
	ListPushTrim(ctx context.Context, key, value string, max int) ([]string, error)
	// ListRemove removes every occurrence of value and returns the count.
	ListRemove(ctx context.Context, key, value string) (int, error)
	ListRange(ctx context.Context, key string) ([]string, error)
	ListDelete(ctx context.Context, key string) error

	Close() error
}
