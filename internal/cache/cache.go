package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chirpnet/chirp/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// subscriberBuffer bounds how many undelivered notifications a subscriber
// may lag behind before updates are dropped for it.
const subscriberBuffer = 16

// ErrNoFetcher indicates a resolve against a kind with no registered fetcher.
var ErrNoFetcher = errors.New("no fetcher registered for key kind")

// Fetcher loads the authoritative value for a key from the backend.
type Fetcher func(ctx context.Context, key Key) (any, error)

// Entry is the externally visible state of one cached key.
type Entry struct {
	Value     any
	Stale     bool
	UpdatedAt time.Time
}

// entry is the internal record. The version increments on every write so a
// revalidation result that raced with a local write can be recognized and
// dropped (last local writer wins over an older in-flight response).
type entry struct {
	value      any
	version    uint64
	stale      bool
	refetching bool
	updatedAt  time.Time
}

type subscriber struct {
	key Key
	ch  chan any
}

// Cache is the in-memory entity cache. Reads never block on network
// activity; invalidation marks entries stale and refreshes them in the
// background while readers keep observing the prior value.
//
// A Cache is constructed explicitly and injected into every consumer.
type Cache struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	subs     map[Key]map[uint64]*subscriber
	nextSub  uint64
	fetchers map[Kind]Fetcher
	sf       singleflight.Group
	retry    utils.RetryOptions
	logger   *zap.Logger
}

// New creates an empty Cache.
func New(logger *zap.Logger) *Cache {
	return &Cache{
		entries:  make(map[Key]*entry),
		subs:     make(map[Key]map[uint64]*subscriber),
		fetchers: make(map[Kind]Fetcher),
		retry:    utils.GetRevalidateRetryOptions(),
		logger:   logger.Named("cache"),
	}
}

// SetRetryOptions overrides the revalidation retry bounds.
func (c *Cache) SetRetryOptions(opts utils.RetryOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retry = opts
}

// RegisterFetcher binds the fetcher used to revalidate keys of a kind.
func (c *Cache) RegisterFetcher(kind Kind, fetch Fetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchers[kind] = fetch
}

// Get returns the last known state for a key. It never blocks.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return Entry{Value: e.value, Stale: e.stale, UpdatedAt: e.updatedAt}, true
}

// Set replaces or creates an entry, marks it fresh and notifies
// subscribers before returning.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

// Update reads the current value (or the provided default when absent),
// applies fn and stores the result as a fresh value.
func (c *Cache) Update(key Key, def any, fn func(current any) any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := def
	if e, ok := c.entries[key]; ok {
		current = e.value
	}
	c.setLocked(key, fn(current))
}

// UpdateIfPresent applies fn to the current value only when the key is
// cached. fn returns the replacement value and whether to store it; when it
// reports false the entry is left untouched, keeping its staleness and
// version intact. Reports whether a store happened.
func (c *Cache) UpdateIfPresent(key Key, fn func(current any) (any, bool)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}

	value, changed := fn(e.value)
	if !changed {
		return false
	}

	c.setLocked(key, value)
	return true
}

// setLocked stores a fresh value and notifies subscribers. Callers hold c.mu.
func (c *Cache) setLocked(key Key, value any) {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}

	e.value = value
	e.version++
	e.stale = false
	e.updatedAt = time.Now()

	c.notifyLocked(key, value)
}

// notifyLocked delivers a value to every subscriber of the key without
// blocking; a subscriber that cannot keep up loses intermediate updates.
func (c *Cache) notifyLocked(key Key, value any) {
	for _, sub := range c.subs[key] {
		select {
		case sub.ch <- value:
		default:
			c.logger.Debug("Dropped cache notification for slow subscriber",
				zap.String("key", key.String()))
		}
	}
}

// Invalidate marks a key stale and, when a fetcher is registered and the
// key has active subscribers, triggers one background refetch. Invalidating
// an absent or already-stale key is a no-op.
func (c *Cache) Invalidate(ctx context.Context, key Key) {
	c.mu.Lock()
	target, ok := c.markStaleLocked(key)
	c.mu.Unlock()

	if ok {
		c.revalidate(ctx, target)
	}
}

// InvalidateMany marks all given keys stale in one pass before any refetch
// starts, so a reader observes either none or all of them as stale. The
// refetches themselves remain independent.
func (c *Cache) InvalidateMany(ctx context.Context, keys ...Key) {
	targets := make([]refetchTarget, 0, len(keys))

	c.mu.Lock()
	for _, key := range keys {
		if target, ok := c.markStaleLocked(key); ok {
			targets = append(targets, target)
		}
	}
	c.mu.Unlock()

	for _, target := range targets {
		c.revalidate(ctx, target)
	}
}

// refetchTarget captures everything a background refetch needs from the
// entry state at invalidation time.
type refetchTarget struct {
	key     Key
	version uint64
	fetch   Fetcher
}

// markStaleLocked transitions an entry to stale and reports whether a
// background refetch should run. Callers hold c.mu.
func (c *Cache) markStaleLocked(key Key) (refetchTarget, bool) {
	e, ok := c.entries[key]
	if !ok || e.stale {
		return refetchTarget{}, false
	}

	e.stale = true

	fetch := c.fetchers[key.Kind]
	if fetch == nil || len(c.subs[key]) == 0 || e.refetching {
		return refetchTarget{}, false
	}

	e.refetching = true
	return refetchTarget{key: key, version: e.version, fetch: fetch}, true
}

// revalidate refreshes one stale entry in the background. The refetch
// outlives the caller's context cancellation but stays bounded by the
// retry options.
func (c *Cache) revalidate(ctx context.Context, target refetchTarget) {
	bgCtx := context.WithoutCancel(ctx)

	go func() {
		value, err, _ := c.sf.Do(target.key.String(), func() (any, error) {
			return utils.WithRetry(bgCtx, func() (any, error) {
				return target.fetch(bgCtx, target.key)
			}, c.retry)
		})

		c.mu.Lock()
		defer c.mu.Unlock()

		e, ok := c.entries[target.key]
		if !ok {
			return
		}
		e.refetching = false

		if err != nil {
			c.logger.Warn("Revalidation failed, entry stays stale",
				zap.String("key", target.key.String()),
				zap.Error(err))
			return
		}

		// A local write landed while the fetch was in flight; the fetched
		// value is older than what the cache already holds.
		if e.version != target.version {
			c.logger.Debug("Dropped stale revalidation result",
				zap.String("key", target.key.String()))
			return
		}

		c.setLocked(target.key, value)
	}()
}

// Resolve returns a fresh value for the key, fetching through the
// registered fetcher when the entry is absent or stale. Concurrent
// resolves of the same key share one fetch.
func (c *Cache) Resolve(ctx context.Context, key Key) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !e.stale {
		value := e.value
		c.mu.Unlock()
		return value, nil
	}
	fetch := c.fetchers[key.Kind]
	c.mu.Unlock()

	if fetch == nil {
		return nil, ErrNoFetcher
	}

	value, err, _ := c.sf.Do(key.String(), func() (any, error) {
		return fetch(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	c.Set(key, value)
	return value, nil
}

// Subscribe registers interest in a key. The last known value, if any, is
// delivered immediately; later writes follow on the channel. The returned
// cancel func releases the subscription.
func (c *Cache) Subscribe(key Key) (<-chan any, func()) {
	c.mu.Lock()

	sub := &subscriber{key: key, ch: make(chan any, subscriberBuffer)}
	id := c.nextSub
	c.nextSub++

	if c.subs[key] == nil {
		c.subs[key] = make(map[uint64]*subscriber)
	}
	c.subs[key][id] = sub

	if e, ok := c.entries[key]; ok {
		sub.ch <- e.value
	}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if _, ok := c.subs[key][id]; ok {
			delete(c.subs[key], id)
			close(sub.ch)
		}
	}

	return sub.ch, cancel
}

// KeysOf returns every cached key of the given kind.
func (c *Cache) KeysOf(kind Kind) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []Key
	for key := range c.entries {
		if key.Kind == kind {
			keys = append(keys, key)
		}
	}
	return keys
}

// Clear drops every entry. Subscriptions survive and resume with the next
// write to their key. Used on logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
}
