package chaptercache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"biblestudy/internal/bible"
	"biblestudy/internal/kvstore"
	"biblestudy/internal/logging"
	"biblestudy/internal/services"
)

const (
	DefaultCapacity = 50
	DefaultTTL      = 7 * 24 * time.Hour
)

// Source resolves a chapter from an expensive backing tier.
type Source interface {
	FetchChapter(ctx context.Context, book string, chapter int, translation string) (bible.Chapter, error)
}

// OfflineSource is a Source limited to an allow-list of translations.
type OfflineSource interface {
	Source
	IsAvailable(translation string) bool
}

// Tier identifies where a chapter was resolved.
type Tier int

const (
	TierMemory Tier = iota + 1
	TierPersistent
	TierOffline
	TierRemote
)

func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierPersistent:
		return "persistent"
	case TierOffline:
		return "offline"
	case TierRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Stats counts resolutions per tier.
type Stats struct {
	MemoryHits      int64 `json:"memory_hits"`
	PersistentHits  int64 `json:"persistent_hits"`
	OfflineHits     int64 `json:"offline_hits"`
	RemoteHits      int64 `json:"remote_hits"`
	OfflineFailures int64 `json:"offline_failures"`
	Failures        int64 `json:"failures"`
	Expired         int64 `json:"expired"`
	Evictions       int64 `json:"evictions"`
	Shared          int64 `json:"shared"`
	MemorySize      int   `json:"memory_size"`
	Capacity        int   `json:"capacity"`
}

type counters struct {
	memoryHits, persistentHits, offlineHits, remoteHits atomic.Int64
	offlineFailures, failures, expired, evictions       atomic.Int64
	shared                                              atomic.Int64
}

// Cache resolves chapters through an in-process FIFO tier, the persistent
// key-value tier, the offline dataset and finally the remote service. Tiers
// are tried strictly in order and every successful miss is written back into
// the cheaper tiers.
type Cache struct {
	memory  *memoryTier
	store   kvstore.Store
	offline OfflineSource
	remote  Source
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	singleFlight bool
	flights      singleflight.Group
	stats        counters
}

// Option customizes the cache.
type Option func(*Cache)

// WithClock overrides the time source used for entry timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCapacity sets the in-process tier capacity.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.memory = newMemoryTier(n)
		}
	}
}

// WithTTL sets the retention window for both cache tiers.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logging.NewComponentLogger(logger, "chaptercache")
	}
}

// WithSingleFlight collapses concurrent fetches of the same key into one
// resolution. Disabled by default.
func WithSingleFlight(enabled bool) Option {
	return func(c *Cache) {
		c.singleFlight = enabled
	}
}

// New constructs a cache. Any of store, offline or remote may be nil, in
// which case that tier is skipped.
func New(store kvstore.Store, offline OfflineSource, remote Source, opts ...Option) *Cache {
	c := &Cache{
		memory:  newMemoryTier(DefaultCapacity),
		store:   store,
		offline: offline,
		remote:  remote,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  logging.NewComponentLogger(nil, "chaptercache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the chapter for (book, chapter, translation). It fails only
// when every tier fails, in which case the last tier's error is returned.
func (c *Cache) Fetch(ctx context.Context, book string, chapter int, translation string) (bible.Chapter, error) {
	ch, _, err := c.FetchWithTier(ctx, book, chapter, translation)
	return ch, err
}

// FetchWithTier is Fetch that also reports the tier that produced the chapter.
func (c *Cache) FetchWithTier(ctx context.Context, book string, chapter int, translation string) (bible.Chapter, Tier, error) {
	book = strings.TrimSpace(book)
	if book == "" {
		return bible.Chapter{}, 0, services.Wrap(services.ErrValidation, "chaptercache", "fetch", "book is required", nil)
	}
	if chapter < 1 {
		return bible.Chapter{}, 0, services.Wrap(services.ErrValidation, "chaptercache", "fetch",
			fmt.Sprintf("chapter must be positive, got %d", chapter), nil)
	}
	translation = strings.ToLower(strings.TrimSpace(translation))
	if translation == "" {
		translation = bible.DefaultTranslation
	}
	key := Key(book, chapter, translation)

	if ch, ok := c.fromMemory(key); ok {
		return ch, TierMemory, nil
	}

	if !c.singleFlight {
		return c.resolve(ctx, key, book, chapter, translation)
	}
	// Only the caller whose closure runs resolved the chapter; the others
	// receive a copy of its result.
	var leader bool
	v, err, _ := c.flights.Do(key, func() (any, error) {
		leader = true
		ch, tier, err := c.resolve(ctx, key, book, chapter, translation)
		return flightResult{chapter: ch, tier: tier}, err
	})
	res, _ := v.(flightResult)
	if !leader {
		c.stats.shared.Add(1)
		return res.chapter.Clone(), res.tier, err
	}
	return res.chapter, res.tier, err
}

type flightResult struct {
	chapter bible.Chapter
	tier    Tier
}

func (c *Cache) resolve(ctx context.Context, key, book string, chapter int, translation string) (bible.Chapter, Tier, error) {
	ctx = services.WithTranslation(ctx, translation)
	logger := logging.WithContext(ctx, c.logger)

	if ch, ok := c.fromPersistent(ctx, logger, key); ok {
		return ch, TierPersistent, nil
	}

	if c.offline != nil && c.offline.IsAvailable(translation) {
		ch, err := c.offline.FetchChapter(ctx, book, chapter, translation)
		if err == nil {
			c.stats.offlineHits.Add(1)
			c.backfill(ctx, logger, key, ch)
			logger.Debug("chapter resolved", logging.ChapterKey(key), logging.Tier(TierOffline.String()))
			return ch, TierOffline, nil
		}
		c.stats.offlineFailures.Add(1)
		logging.WarnWithContext(logger, "offline chapter lookup failed; trying remote service", "offline_fallback",
			logging.ChapterKey(key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'biblestudy dataset fetch' or check paths.dataset_dir"),
			logging.String(logging.FieldImpact, "chapter is fetched over the network"),
		)
	}

	if c.remote == nil {
		c.stats.failures.Add(1)
		return bible.Chapter{}, 0, services.Wrap(services.ErrNotFound, "chaptercache", "fetch",
			fmt.Sprintf("%s %d (%s) is not available offline and no remote service is configured", book, chapter, translation), nil)
	}
	ch, err := c.remote.FetchChapter(ctx, book, chapter, translation)
	if err != nil {
		c.stats.failures.Add(1)
		return bible.Chapter{}, 0, err
	}
	c.stats.remoteHits.Add(1)
	c.backfill(ctx, logger, key, ch)
	logger.Debug("chapter resolved", logging.ChapterKey(key), logging.Tier(TierRemote.String()))
	return ch, TierRemote, nil
}

func (c *Cache) fromMemory(key string) (bible.Chapter, bool) {
	entry, ok := c.memory.get(key)
	if !ok {
		return bible.Chapter{}, false
	}
	if entry.Expired(c.now(), c.ttl) {
		c.memory.remove(key)
		c.stats.expired.Add(1)
		return bible.Chapter{}, false
	}
	c.stats.memoryHits.Add(1)
	return entry.Data.Clone(), true
}

func (c *Cache) fromPersistent(ctx context.Context, logger *slog.Logger, key string) (bible.Chapter, bool) {
	if c.store == nil {
		return bible.Chapter{}, false
	}
	storeKey := PersistentKey(key)
	raw, ok, err := c.store.Get(ctx, storeKey)
	if err != nil {
		logging.WarnWithContext(logger, "persistent cache read failed", "cache_read_failed",
			logging.ChapterKey(storeKey),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_path is writable"),
			logging.String(logging.FieldImpact, "chapter is resolved from a slower tier"),
		)
		return bible.Chapter{}, false
	}
	if !ok {
		return bible.Chapter{}, false
	}
	entry, err := decodeEntry(raw)
	if err != nil || entry.Expired(c.now(), c.ttl) {
		if err == nil {
			c.stats.expired.Add(1)
		}
		if delErr := c.store.Delete(ctx, storeKey); delErr != nil {
			logger.Debug("prune cache entry failed", logging.ChapterKey(storeKey), logging.Error(delErr))
		}
		return bible.Chapter{}, false
	}
	c.stats.persistentHits.Add(1)
	c.putMemory(key, entry)
	return entry.Data.Clone(), true
}

func (c *Cache) putMemory(key string, entry Entry) {
	if c.memory.put(key, entry) {
		c.stats.evictions.Add(1)
	}
}

func (c *Cache) backfill(ctx context.Context, logger *slog.Logger, key string, ch bible.Chapter) {
	entry := newEntry(ch, c.now())
	c.putMemory(key, entry)
	if c.store == nil {
		return
	}
	raw, err := encodeEntry(entry)
	if err == nil {
		err = c.store.Set(ctx, PersistentKey(key), raw)
	}
	if err != nil {
		logging.WarnWithContext(logger, "persistent cache write failed", "cache_write_failed",
			logging.ChapterKey(key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_path is writable"),
			logging.String(logging.FieldImpact, "chapter will be fetched again after restart"),
		)
	}
}

// Clear empties the in-process tier and removes every persistent key under
// the cache prefix. It returns the number of persistent entries removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	c.memory.clear()
	if c.store == nil {
		return 0, nil
	}
	removed, err := c.store.DeletePrefix(ctx, Prefix)
	if err != nil {
		return 0, services.Wrap(services.ErrTransport, "chaptercache", "clear", "delete persistent entries", err)
	}
	c.logger.Info("chapter cache cleared",
		logging.Int("persistent_removed", removed),
		logging.String(logging.FieldEventType, "cache_cleared"),
	)
	return removed, nil
}

// Stats returns a snapshot of the tier counters.
func (c *Cache) Stats() Stats {
	return Stats{
		MemoryHits:      c.stats.memoryHits.Load(),
		PersistentHits:  c.stats.persistentHits.Load(),
		OfflineHits:     c.stats.offlineHits.Load(),
		RemoteHits:      c.stats.remoteHits.Load(),
		OfflineFailures: c.stats.offlineFailures.Load(),
		Failures:        c.stats.failures.Load(),
		Expired:         c.stats.expired.Load(),
		Evictions:       c.stats.evictions.Load(),
		Shared:          c.stats.shared.Load(),
		MemorySize:      c.memory.len(),
		Capacity:        c.memory.capacity,
	}
}

// MemoryKeys lists in-process keys oldest first.
func (c *Cache) MemoryKeys() []string {
	items := c.memory.snapshot()
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.key
	}
	return keys
}

// EntryInfo describes a cached chapter for listings.
type EntryInfo struct {
	Key         string    `json:"key"`
	Reference   string    `json:"reference"`
	Translation string    `json:"translation"`
	Verses      int       `json:"verses"`
	Created     time.Time `json:"created"`
	Expired     bool      `json:"expired"`
	InMemory    bool      `json:"in_memory"`
	Persistent  bool      `json:"persistent"`
}

// Entries lists every cached chapter across both cache tiers without
// pruning anything.
func (c *Cache) Entries(ctx context.Context) ([]EntryInfo, error) {
	now := c.now()
	byKey := make(map[string]*EntryInfo)
	var order []string
	add := func(key string, e Entry) *EntryInfo {
		if info, ok := byKey[key]; ok {
			return info
		}
		info := &EntryInfo{
			Key:         key,
			Reference:   e.Data.Reference,
			Translation: e.Data.TranslationID,
			Verses:      len(e.Data.Verses),
			Created:     e.Created(),
			Expired:     e.Expired(now, c.ttl),
		}
		byKey[key] = info
		order = append(order, key)
		return info
	}

	for _, item := range c.memory.snapshot() {
		add(item.key, item.entry).InMemory = true
	}
	if c.store != nil {
		keys, err := c.store.Keys(ctx, Prefix)
		if err != nil {
			return nil, services.Wrap(services.ErrTransport, "chaptercache", "entries", "list persistent keys", err)
		}
		for _, storeKey := range keys {
			raw, ok, err := c.store.Get(ctx, storeKey)
			if err != nil || !ok {
				continue
			}
			entry, err := decodeEntry(raw)
			if err != nil {
				continue
			}
			add(strings.TrimPrefix(storeKey, Prefix), entry).Persistent = true
		}
	}

	out := make([]EntryInfo, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, nil
}
