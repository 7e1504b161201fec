package cache

import (
	"context"
	"errors"
)

// ErrWrongType indicates a cached value of an unexpected type for its key.
var ErrWrongType = errors.New("cached value has unexpected type")

// ValueOf returns the cached value for a key when it exists and holds a T.
// The staleness flag is passed through from the entry.
func ValueOf[T any](c *Cache, key Key) (T, bool, bool) {
	entry, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false, false
	}

	value, ok := entry.Value.(T)
	if !ok {
		var zero T
		return zero, false, false
	}
	return value, entry.Stale, true
}

// PatchIfPresent applies a typed conditional patch to a key. fn returns the
// replacement value and whether anything changed; untouched entries keep
// their staleness and version. Reports whether a store happened.
func PatchIfPresent[T any](c *Cache, key Key, fn func(current T) (T, bool)) bool {
	return c.UpdateIfPresent(key, func(current any) (any, bool) {
		value, ok := current.(T)
		if !ok {
			return current, false
		}

		replacement, changed := fn(value)
		return replacement, changed
	})
}

// ResolveAs resolves a key through the cache and asserts the result type.
func ResolveAs[T any](ctx context.Context, c *Cache, key Key) (T, error) {
	var zero T

	value, err := c.Resolve(ctx, key)
	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, ErrWrongType
	}
	return typed, nil
}
