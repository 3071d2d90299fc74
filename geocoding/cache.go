// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/radex-fr/radex/utils/textutils"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Key identifies a cached lookup. Names are compared accent- and
// case-insensitively so "Châtenay-Malabry" and "CHATENAY-MALABRY" share an
// entry.
type Key struct {
	Name   string
	Region string
}

// NewKey normalizes a name and region into a cache key.
func NewKey(name, region string) Key {
	return Key{
		Name:   textutils.LowerASCIIFolding(name),
		Region: strings.TrimSpace(region),
	}
}

func (k Key) String() string {
	return k.Name + "|" + k.Region
}

// Entry is a remembered lookup outcome: a result, or the error the provider
// returned.
type Entry struct {
	Result *Result
	Err    error
}

// Store persists definitive lookup outcomes across restarts.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Put(ctx context.Context, key Key, entry Entry) error
}

// DefaultBackoff is how long a Cache stops calling a provider that throttled
// it, unless CacheOptions.Backoff says otherwise.
const DefaultBackoff = time.Minute

// CacheOptions configures NewCache.
type CacheOptions struct {
	// Store, when set, backs the in-memory map.
	Store Store

	// Delay is the minimum spacing between upstream requests. Zero disables
	// pacing.
	Delay time.Duration

	// Provider labels metrics; defaults to "upstream".
	Provider string

	// RetryAfter bounds how long a failure other than "not found" is
	// remembered. Zero keeps it for the life of the process.
	RetryAfter time.Duration

	// Backoff is how long upstream requests are refused once the provider
	// answered with a rate limit or quota error. Defaults to DefaultBackoff.
	Backoff time.Duration
}

// Cache is a Geocoder that remembers what its upstream answered. Matches and
// clean misses are kept for the life of the process and written to the Store;
// other failures are kept in memory for CacheOptions.RetryAfter. Upstream
// requests are paced by a rate limiter, and a provider that throttles the
// cache is left alone for CacheOptions.Backoff; throttled lookups are never
// remembered. Cache is safe for concurrent use and concurrent lookups of the
// same key share one upstream request.
type Cache struct {
	upstream   Geocoder
	store      Store
	limiter    *rate.Limiter
	provider   string
	retryAfter time.Duration
	backoff    time.Duration
	group      singleflight.Group
	now        func() time.Time

	mu          sync.Mutex
	entries     map[Key]cached
	lookups     int
	pausedUntil time.Time
	pauseErr    error
}

type cached struct {
	Entry
	at time.Time
}

// NewCache wraps upstream.
func NewCache(upstream Geocoder, opts CacheOptions) *Cache {
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	provider := opts.Provider
	if provider == "" {
		provider = "upstream"
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	return &Cache{
		upstream:   upstream,
		store:      opts.Store,
		limiter:    rate.NewLimiter(limit, 1),
		provider:   provider,
		retryAfter: opts.RetryAfter,
		backoff:    backoff,
		now:        time.Now,
		entries:    make(map[Key]cached),
	}
}

// Geocode implements Geocoder.
func (c *Cache) Geocode(ctx context.Context, name, region string) (*Result, error) {
	key := NewKey(name, region)

	if entry, ok := c.lookup(key); ok {
		CacheTotal.WithLabelValues("hit").Inc()

		return entry.result()
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		// Another caller may have finished while we were queued.
		if entry, ok := c.lookup(key); ok {
			return entry, nil
		}

		if c.store != nil {
			entry, ok, err := c.store.Get(ctx, key)
			if err != nil {
				log.Printf("⚠️ Reading geocode store for %s: %v", key, err)
			} else if ok {
				CacheTotal.WithLabelValues("store").Inc()
				c.remember(key, entry)

				return entry, nil
			}
		}

		CacheTotal.WithLabelValues("miss").Inc()

		if err := c.paused(); err != nil {
			return nil, err
		}

		// Cancellation is not a lookup outcome; don't remember it.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		result, err := c.upstream.Geocode(ctx, name, region)

		UpstreamDurationMs.WithLabelValues(c.provider).Observe(float64(time.Since(start).Milliseconds()))
		RequestsTotal.WithLabelValues(c.provider, outcome(err)).Inc()

		entry := Entry{Result: result, Err: err}

		c.mu.Lock()
		c.lookups++
		c.mu.Unlock()

		if IsThrottled(err) {
			c.pause(err)

			return nil, err
		}

		c.remember(key, entry)

		if c.store != nil && IsDefinitive(err) {
			if perr := c.store.Put(ctx, key, entry); perr != nil {
				log.Printf("⚠️ Saving geocode for %s: %v", key, perr)
			}
		}

		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(Entry).result()
}

// Lookups returns how many requests reached the upstream geocoder.
func (c *Cache) Lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lookups
}

// Len returns the number of remembered outcomes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Peek returns the remembered outcome for a name and region without asking
// the upstream geocoder.
func (c *Cache) Peek(name, region string) (Entry, bool) {
	return c.lookup(NewKey(name, region))
}

func (c *Cache) lookup(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}

	if c.retryAfter > 0 && !IsDefinitive(entry.Err) && c.now().Sub(entry.at) >= c.retryAfter {
		delete(c.entries, key)

		return Entry{}, false
	}

	return entry.Entry, true
}

func (c *Cache) remember(key Key, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cached{Entry: entry, at: c.now()}
}

// pause stops upstream requests for the backoff period after err.
func (c *Cache) pause(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pausedUntil = c.now().Add(c.backoff)
	c.pauseErr = err

	log.Printf("🛑 %s is throttling requests, backing off until %s: %v",
		c.provider, c.pausedUntil.Format("15:04:05"), err)
}

// paused returns an error while the cache is backing off.
func (c *Cache) paused() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pauseErr == nil || !c.now().Before(c.pausedUntil) {
		return nil
	}

	CacheTotal.WithLabelValues("backoff").Inc()

	errType := ErrorTypeQuotaExceeded
	if IsRateLimitError(c.pauseErr) {
		errType = ErrorTypeRateLimit
	}

	return &GeocodingError{
		Type:    errType,
		Message: fmt.Sprintf("%s backing off until %s", c.provider, c.pausedUntil.Format("15:04:05")),
		Err:     c.pauseErr,
	}
}

// result hands out a copy so callers can't alter the remembered value.
func (e Entry) result() (*Result, error) {
	if e.Result == nil {
		return nil, e.Err
	}

	r := *e.Result

	return &r, e.Err
}
