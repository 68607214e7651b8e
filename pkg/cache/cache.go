package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"keyword-go/pkg/keyword"
	"keyword-go/pkg/logger"
)

// Key scopes a cached fetch result. Entries are source-scoped because
// sources have different freshness semantics.
type Key struct {
	OwnerID   string
	TopicID   string
	Signature string // normalized keyword or query signature
	Source    keyword.SourceKind
}

func (k Key) String() string {
	return strings.Join([]string{k.OwnerID, k.TopicID, k.Signature, string(k.Source)}, "\x00")
}

// Entry wraps a source's records for one query, or a negative result when
// the source was unavailable. Callers must check IsError before using
// Records.
type Entry struct {
	Records   []keyword.Record
	IsError   bool
	ErrorKind string
	FetchedAt time.Time
	ExpiresAt time.Time // zero means never expires
}

func (e Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// TTLPolicy holds per-source freshness rules. Zero spreadsheet TTL is
// intentional: user-supplied data only leaves the cache on explicit
// invalidation.
type TTLPolicy struct {
	ExternalTrend  time.Duration `mapstructure:"external_trend"`
	ExternalMetric time.Duration `mapstructure:"external_metric"`
	SeedExpansion  time.Duration `mapstructure:"seed_expansion"`
	Negative       time.Duration `mapstructure:"negative"`
}

func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		ExternalTrend:  24 * time.Hour,
		ExternalMetric: 6 * time.Hour,
		SeedExpansion:  time.Hour,
		Negative:       5 * time.Minute,
	}
}

// ForSource returns the positive-entry TTL for a source. Keyword-metric
// rows from the external API use the shorter metric TTL; trend-style data
// uses ExternalTrend via ForTrendData.
func (p TTLPolicy) ForSource(s keyword.SourceKind) time.Duration {
	switch s {
	case keyword.SourceExternalAPI:
		return p.ExternalMetric
	case keyword.SourceSpreadsheet:
		return 0
	case keyword.SourceSeedExpansion:
		return p.SeedExpansion
	default:
		return p.ExternalMetric
	}
}

// ForTrendData returns the TTL for trend-style external data.
func (p TTLPolicy) ForTrendData() time.Duration {
	return p.ExternalTrend
}

type item struct {
	key     string
	entry   Entry
	element *list.Element
}

// Cache is an in-process LRU store with per-entry expiry. Expired entries
// are treated as misses on Get (lazy eviction) and reclaimed by a
// background sweep.
type Cache struct {
	maxSize int
	policy  TTLPolicy
	items   map[string]*item
	lruList *list.List
	mu      sync.Mutex
	log     *logger.Logger

	stopSweep chan struct{}
	stopOnce  sync.Once

	hits   uint64
	misses uint64

	// now is swappable in tests.
	now func() time.Time
}

func New(maxSize int, policy TTLPolicy) *Cache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	c := &Cache{
		maxSize:   maxSize,
		policy:    policy,
		items:     make(map[string]*item),
		lruList:   list.New(),
		log:       logger.GetLogger().WithField("component", "cache"),
		stopSweep: make(chan struct{}),
		now:       time.Now,
	}
	go c.sweepRoutine(10 * time.Minute)
	return c
}

// Get returns the entry for key if present and fresh. Past-expiry entries
// are removed and reported as a miss.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, exists := c.items[key.String()]
	if !exists {
		c.misses++
		return Entry{}, false
	}
	if it.entry.expired(c.now()) {
		c.deleteItem(it)
		c.misses++
		return Entry{}, false
	}

	c.lruList.MoveToFront(it.element)
	c.hits++
	return it.entry, true
}

// Put stores records fetched from a source, refreshing the expiry.
// Concurrent writes for the same key are last-write-wins.
func (c *Cache) Put(key Key, records []keyword.Record, fetchedAt time.Time) {
	c.set(key, Entry{
		Records:   records,
		FetchedAt: fetchedAt,
		ExpiresAt: c.expiry(fetchedAt, c.policy.ForSource(key.Source)),
	})
}

// PutNegative records a source failure briefly so a known-down upstream is
// not hammered.
func (c *Cache) PutNegative(key Key, errorKind string) {
	now := c.now()
	c.set(key, Entry{
		IsError:   true,
		ErrorKind: errorKind,
		FetchedAt: now,
		ExpiresAt: c.expiry(now, c.policy.Negative),
	})
}

func (c *Cache) expiry(fetchedAt time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return fetchedAt.Add(ttl)
}

func (c *Cache) set(key Key, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ks := key.String()
	if it, exists := c.items[ks]; exists {
		it.entry = entry
		c.lruList.MoveToFront(it.element)
		return
	}

	it := &item{key: ks, entry: entry}
	it.element = c.lruList.PushFront(it)
	c.items[ks] = it

	if len(c.items) > c.maxSize {
		c.evictOldest()
	}
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, exists := c.items[key.String()]; exists {
		c.deleteItem(it)
	}
}

// InvalidateSource drops every entry for (scope, source). Used when a
// spreadsheet re-upload supersedes previously imported rows.
func (c *Cache) InvalidateSource(scope keyword.Scope, source keyword.SourceKind) int {
	prefix := scope.OwnerID + "\x00" + scope.TopicID + "\x00"
	suffix := "\x00" + string(source)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for ks, it := range c.items {
		if strings.HasPrefix(ks, prefix) && strings.HasSuffix(ks, suffix) {
			c.deleteItem(it)
			removed++
		}
	}
	return removed
}

// Stats returns counters for the diagnostics endpoint.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:    len(c.items),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

// Close stops the background sweep.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stopSweep) })
}

func (c *Cache) evictOldest() {
	if element := c.lruList.Back(); element != nil {
		c.deleteItem(element.Value.(*item))
	}
}

func (c *Cache) deleteItem(it *item) {
	delete(c.items, it.key)
	c.lruList.Remove(it.element)
}

func (c *Cache) sweepRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopSweep:
			return
		case <-ticker.C:
			if n := c.sweepExpired(); n > 0 {
				c.log.WithField("reclaimed", n).Debug("Swept expired cache entries")
			}
		}
	}
}

func (c *Cache) sweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []*item
	for _, it := range c.items {
		if it.entry.expired(now) {
			expired = append(expired, it)
		}
	}
	for _, it := range expired {
		c.deleteItem(it)
	}
	return len(expired)
}

type Stats struct {
	Size    int    `json:"size"`
	MaxSize int    `json:"max_size"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}
