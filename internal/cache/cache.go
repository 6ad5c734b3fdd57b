// Package cache implements the Response Cache (spec §4.6): a durable
// key->JSON store for external-oracle replies, fronted by an in-process hot
// layer so a warm batch performs zero oracle requests for repeated lookups
// (spec §8 invariant 8, "cache idempotence").
package cache

import (
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/store"
)

// Cache is the two-tier response cache: an in-process TTL cache in front of
// the durable store, modeled on the teacher's BirdImageCache (in-memory +
// DB-backed) but using the pack's actual TTL-cache library for the hot
// tier instead of a bespoke sync.Map.
type Cache struct {
	store       *store.Store
	hot         *gocache.Cache
	positiveTTL time.Duration
	negativeTTL time.Duration
}

// New creates a Cache backed by st, with the positive/negative TTLs from
// spec §4.2 ("successful responses >= 30 days; negative responses <= 24
// hours").
func New(st *store.Store, positiveTTL, negativeTTL time.Duration) *Cache {
	return &Cache{
		store:       st,
		hot:         gocache.New(negativeTTL, negativeTTL/2),
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
	}
}

// Key canonicalizes (oracle, method, args) into a single cache key: lower-
// cased, args sorted and joined, per spec §3/§4.3 ("Cache keys canonicalize
// argument order and case").
func Key(oracle, method string, args ...string) string {
	canon := make([]string, len(args))
	for i, a := range args {
		canon[i] = strings.ToLower(strings.TrimSpace(a))
	}
	sort.Strings(canon)
	e := model.CacheEntry{Oracle: strings.ToLower(oracle), Method: strings.ToLower(method), ArgsKey: strings.Join(canon, "\x1f")}
	return e.Key()
}

// Get returns the cached value and whether it is a negative result, or
// ok=false if absent or expired. Cache lookup precedes network (spec §4.3).
func (c *Cache) Get(key string) (value []byte, negative bool, ok bool) {
	if v, found := c.hot.Get(key); found {
		entry := v.(hotEntry)
		return entry.value, entry.negative, true
	}

	raw, negative, capturedAt, found, err := c.store.CacheGet(key)
	if err != nil || !found {
		return nil, false, false
	}
	entry := model.CacheEntry{Value: raw, Negative: negative, CapturedAt: capturedAt}
	if entry.Expired(time.Now(), c.positiveTTL, c.negativeTTL) {
		return nil, false, false
	}
	c.hot.Set(key, hotEntry{value: raw, negative: negative}, ttlFor(negative, c.positiveTTL, c.negativeTTL))
	return raw, negative, true
}

type hotEntry struct {
	value    []byte
	negative bool
}

// Put writes a cache entry on success or on a definitive empty reply
// (negative caching), per spec §4.3.
func (c *Cache) Put(key string, value []byte, negative bool) error {
	if err := c.store.CachePut(key, value, negative); err != nil {
		return err
	}
	c.hot.Set(key, hotEntry{value: value, negative: negative}, ttlFor(negative, c.positiveTTL, c.negativeTTL))
	return nil
}

// EvictExpired purges stale entries from the durable store (spec §4.6).
func (c *Cache) EvictExpired() (int64, error) {
	return c.store.EvictExpired(c.positiveTTL, c.negativeTTL)
}

func ttlFor(negative bool, positiveTTL, negativeTTL time.Duration) time.Duration {
	if negative {
		return negativeTTL
	}
	return positiveTTL
}
