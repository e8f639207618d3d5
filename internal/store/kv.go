package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by KV and blob reads for absent keys.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an optimistic update keeps losing races.
	ErrConflict = errors.New("concurrent update conflict")
)

// KV is the key-value service used for small structured records.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value; a zero ttl keeps the key forever.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// List returns every key starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Update runs fn over the current value (nil when absent) and stores the
	// result atomically with respect to other Update calls on the same key.
	// A nil result leaves the key untouched.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}
