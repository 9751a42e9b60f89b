// Package data provides data access layer implementations.
package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/klauspost/compress/zstd"
)

// Cache key prefixes.
const (
	// CacheKeyResearch is the prefix for research results: research:{technology}
	CacheKeyResearch = "research"
	// CacheKeyArtifact is the namespace prefix for generated artifacts: artifact:{technology}
	CacheKeyArtifact = "artifact"
)

// ErrCacheNotFound is returned when a cache key does not exist or expired.
var ErrCacheNotFound = errors.New("cache: key not found")

// CacheError is returned when a cache write or decode fails.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// BuildCacheKey builds a cache key with the given prefix and parts.
// Example: BuildCacheKey("research", "htmx") returns "research:htmx"
func BuildCacheKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), ":")
}

// CacheClient is the JSON view of the cache used by the business layer.
type CacheClient interface {
	// GetJSON decodes the cached value into dest.
	// Returns ErrCacheNotFound if the key is missing or expired.
	GetJSON(ctx context.Context, key string, dest interface{}) error
	// SetJSON stores value as JSON. ttl == 0 uses the default TTL, ttl < 0 never expires.
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
}

// CacheEntry is the sidecar metadata stored next to every blob.
type CacheEntry struct {
	Key          string     `json:"key"`
	Area         Area       `json:"area"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAccessed time.Time  `json:"last_accessed"`
	AccessCount  int64      `json:"access_count"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Version      string     `json:"version,omitempty"`
	Checksum     string     `json:"checksum"`
	// Size is the stored, compressed size in bytes.
	Size    int64 `json:"size"`
	RawSize int64 `json:"raw_size"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// CacheOptions configure a Store.
type CacheOptions struct {
	DefaultTTL   time.Duration
	MaxSizeBytes int64
	MaxVersions  int
	IndexSize    int
	IndexTTL     time.Duration
}

// CacheStats are cumulative counters since the store was created.
type CacheStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Writes   int64 `json:"writes"`
	Expired  int64 `json:"expired"`
	Evicted  int64 `json:"evicted"`
	Errors   int64 `json:"errors"`
	IndexLen int   `json:"index_len"`
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithCacheClock replaces time.Now, for tests.
func WithCacheClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

type indexed struct {
	payload []byte
	entry   CacheEntry
}

type accessStat struct {
	at    time.Time
	count int64
}

// Store is a persistent TTL cache of compressed, checksummed blobs with
// JSON sidecar metadata. A small in-process index serves repeated reads
// without touching the medium.
type Store struct {
	medium CacheMedium
	opts   CacheOptions
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	index  *expirable.LRU[string, *indexed]
	now    func() time.Time
	log    *log.Helper

	// touched holds access stats of index hits not yet written to sidecars.
	mu      sync.Mutex
	touched map[string]accessStat

	versionMu sync.Mutex
	sweepMu   sync.Mutex
	// writeMu is held shared by writers and exclusively by the sweep while
	// it re-checks and removes an entry.
	writeMu sync.RWMutex

	hits, misses, writes, expired, evicted, errs atomic.Int64
}

// NewStore creates a Store on medium.
func NewStore(medium CacheMedium, opts CacheOptions, logger log.Logger, options ...StoreOption) (*Store, error) {
	if medium == nil {
		return nil, errors.New("cache: medium is nil")
	}
	if opts.MaxVersions <= 0 {
		opts.MaxVersions = 10
	}
	if opts.IndexSize <= 0 {
		opts.IndexSize = 256
	}
	if opts.IndexTTL <= 0 {
		opts.IndexTTL = 5 * time.Minute
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("cache: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("cache: zstd decoder: %w", err)
	}

	s := &Store{
		medium:  medium,
		opts:    opts,
		enc:     enc,
		dec:     dec,
		index:   expirable.NewLRU[string, *indexed](opts.IndexSize, nil, opts.IndexTTL),
		now:     time.Now,
		log:     log.NewHelper(logger),
		touched: make(map[string]accessStat),
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Close releases the codec resources.
func (s *Store) Close() error {
	s.dec.Close()
	return s.enc.Close()
}

// Get returns the payload stored under key.
// Missing, expired and unreadable entries are reported as ErrCacheNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	payload, _, err := s.load(ctx, AreaContent, key)
	return payload, err
}

// Set stores value under key. ttl == 0 uses the default TTL, ttl < 0 never expires.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.put(ctx, AreaContent, key, value, s.expiry(ttl), "")
	return err
}

// Exists reports whether a live entry is stored under key. Expired entries are purged.
func (s *Store) Exists(ctx context.Context, key string) bool {
	_, err := s.peek(ctx, AreaContent, key)
	return err == nil
}

// Delete removes key; a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.remove(ctx, AreaContent, key)
}

// GetJSON decodes the value stored under key into dest.
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) error {
	payload, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return &CacheError{Op: "decode", Key: key, Err: err}
	}
	return nil
}

// SetJSON stores value as JSON under key.
func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return &CacheError{Op: "encode", Key: key, Err: err}
	}
	return s.Set(ctx, key, payload, ttl)
}

// Invalidate removes every entry whose key matches the glob pattern and
// returns the number removed.
func (s *Store) Invalidate(ctx context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, &CacheError{Op: "invalidate", Key: pattern, Err: err}
	}
	entries, err := s.entries(ctx, AreaContent)
	if err != nil {
		return 0, &CacheError{Op: "invalidate", Key: pattern, Err: err}
	}

	removed := 0
	for _, e := range entries {
		if ok, _ := path.Match(pattern, e.Key); !ok {
			continue
		}
		if err := s.remove(ctx, AreaContent, e.Key); err != nil {
			return removed, &CacheError{Op: "invalidate", Key: e.Key, Err: err}
		}
		removed++
	}
	if removed > 0 {
		s.log.Infow("msg", "cache entries invalidated", "pattern", pattern, "count", removed)
	}
	return removed, nil
}

// Stats returns the cumulative counters.
func (s *Store) Stats() CacheStats {
	return CacheStats{
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Writes:   s.writes.Load(),
		Expired:  s.expired.Load(),
		Evicted:  s.evicted.Load(),
		Errors:   s.errs.Load(),
		IndexLen: s.index.Len(),
	}
}

func (s *Store) expiry(ttl time.Duration) *time.Time {
	if ttl == 0 {
		ttl = s.opts.DefaultTTL
	}
	if ttl <= 0 {
		return nil
	}
	t := s.now().Add(ttl)
	return &t
}

func blobName(key string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

func sidecarName(area Area, key string) string {
	return string(area) + "-" + blobName(key)
}

func indexKey(area Area, key string) string {
	return string(area) + "/" + key
}

func checksum(payload []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(payload))
}

// put writes the blob then its sidecar. The sidecar is the commit point:
// a blob without a sidecar is never served.
func (s *Store) put(ctx context.Context, area Area, key string, payload []byte, expiresAt *time.Time, version string) (*CacheEntry, error) {
	compressed := s.enc.EncodeAll(payload, nil)
	now := s.now()
	entry := CacheEntry{
		Key:          key,
		Area:         area,
		CreatedAt:    now,
		LastAccessed: now,
		ExpiresAt:    expiresAt,
		Version:      version,
		Checksum:     checksum(payload),
		Size:         int64(len(compressed)),
		RawSize:      int64(len(payload)),
	}
	meta, err := json.Marshal(entry)
	if err != nil {
		return nil, &CacheError{Op: "write", Key: key, Err: err}
	}

	s.writeMu.RLock()
	defer s.writeMu.RUnlock()

	if err := s.medium.Write(ctx, area, blobName(key), compressed); err != nil {
		s.errs.Add(1)
		return nil, &CacheError{Op: "write", Key: key, Err: err}
	}
	if err := s.medium.Write(ctx, AreaMetadata, sidecarName(area, key), meta); err != nil {
		s.errs.Add(1)
		_ = s.medium.Delete(ctx, area, blobName(key))
		s.index.Remove(indexKey(area, key))
		return nil, &CacheError{Op: "write", Key: key, Err: err}
	}

	s.mu.Lock()
	delete(s.touched, sidecarName(area, key))
	s.mu.Unlock()

	s.index.Add(indexKey(area, key), &indexed{payload: clone(payload), entry: entry})
	s.writes.Add(1)
	return &entry, nil
}

// load returns a live entry. Any read problem is logged and reported as a miss.
func (s *Store) load(ctx context.Context, area Area, key string) ([]byte, *CacheEntry, error) {
	return s.read(ctx, area, key, false)
}

// loadStrict is load for entries other entries depend on, such as version
// manifests: medium and decode failures are returned as *CacheError and
// nothing is dropped. Only a missing entry is ErrCacheNotFound.
func (s *Store) loadStrict(ctx context.Context, area Area, key string) ([]byte, *CacheEntry, error) {
	return s.read(ctx, area, key, true)
}

func (s *Store) read(ctx context.Context, area Area, key string, strict bool) ([]byte, *CacheEntry, error) {
	now := s.now()

	if hit, ok := s.index.Get(indexKey(area, key)); ok {
		if hit.entry.Expired(now) {
			s.purgeExpired(ctx, area, key)
			return nil, nil, ErrCacheNotFound
		}
		s.touch(area, key, now)
		s.hits.Add(1)
		entry := hit.entry
		return clone(hit.payload), &entry, nil
	}

	entry, err := s.readSidecar(ctx, area, key, strict)
	if err != nil {
		s.misses.Add(1)
		if strict && !errors.Is(err, ErrCacheNotFound) {
			return nil, nil, err
		}
		return nil, nil, ErrCacheNotFound
	}
	if entry.Expired(now) {
		s.purgeExpired(ctx, area, key)
		return nil, nil, ErrCacheNotFound
	}

	compressed, err := s.medium.Read(ctx, area, blobName(key))
	if err != nil {
		return nil, nil, s.readFailed(ctx, area, key, "read blob", err, errors.Is(err, ErrMediumNotFound), strict)
	}
	payload, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, nil, s.readFailed(ctx, area, key, "decompress", err, true, strict)
	}
	if sum := checksum(payload); sum != entry.Checksum {
		return nil, nil, s.readFailed(ctx, area, key, "checksum", fmt.Errorf("got %s, want %s", sum, entry.Checksum), true, strict)
	}

	s.mu.Lock()
	pending := s.touched[sidecarName(area, key)]
	delete(s.touched, sidecarName(area, key))
	s.mu.Unlock()
	entry.AccessCount += pending.count + 1
	entry.LastAccessed = now
	if err := s.writeSidecar(ctx, entry); err != nil {
		s.log.Warnw("msg", "failed to update cache access time", "key", key, "error", err)
	}

	s.index.Add(indexKey(area, key), &indexed{payload: payload, entry: *entry})
	s.hits.Add(1)
	return clone(payload), entry, nil
}

// peek checks liveness from metadata only.
func (s *Store) peek(ctx context.Context, area Area, key string) (*CacheEntry, error) {
	now := s.now()
	if hit, ok := s.index.Get(indexKey(area, key)); ok {
		if hit.entry.Expired(now) {
			s.purgeExpired(ctx, area, key)
			return nil, ErrCacheNotFound
		}
		entry := hit.entry
		return &entry, nil
	}
	entry, err := s.readSidecar(ctx, area, key, false)
	if err != nil {
		return nil, ErrCacheNotFound
	}
	if entry.Expired(now) {
		s.purgeExpired(ctx, area, key)
		return nil, ErrCacheNotFound
	}
	return entry, nil
}

// readSidecar returns ErrCacheNotFound when no metadata exists and a
// *CacheError when it cannot be read or decoded. Corrupt metadata is
// dropped unless keep is set.
func (s *Store) readSidecar(ctx context.Context, area Area, key string, keep bool) (*CacheEntry, error) {
	raw, err := s.medium.Read(ctx, AreaMetadata, sidecarName(area, key))
	if err != nil {
		if errors.Is(err, ErrMediumNotFound) {
			return nil, ErrCacheNotFound
		}
		s.errs.Add(1)
		s.log.Warnw("msg", "cache metadata read failed", "key", key, "error", err)
		return nil, &CacheError{Op: "read metadata", Key: key, Err: err}
	}
	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.errs.Add(1)
		s.log.Warnw("msg", "corrupt cache metadata", "key", key, "dropped", !keep, "error", err)
		if !keep {
			_ = s.remove(ctx, area, key)
		}
		return nil, &CacheError{Op: "decode metadata", Key: key, Err: err}
	}
	if entry.Key != key {
		return nil, ErrCacheNotFound
	}
	return &entry, nil
}

func (s *Store) writeSidecar(ctx context.Context, entry *CacheEntry) error {
	meta, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.medium.Write(ctx, AreaMetadata, sidecarName(entry.Area, entry.Key), meta)
}

// readFailed records a failed read. In strict mode nothing is dropped and
// the failure is returned; otherwise it becomes a miss.
func (s *Store) readFailed(ctx context.Context, area Area, key, stage string, err error, drop, strict bool) error {
	s.errs.Add(1)
	s.misses.Add(1)
	if strict {
		s.log.Warnw("msg", "cache read failed", "key", key, "area", area, "stage", stage, "error", err)
		return &CacheError{Op: stage, Key: key, Err: err}
	}
	s.log.Warnw("msg", "cache read failed, treating as miss", "key", key, "area", area, "stage", stage, "error", err)
	if drop {
		_ = s.remove(ctx, area, key)
	}
	return ErrCacheNotFound
}

func (s *Store) purgeExpired(ctx context.Context, area Area, key string) {
	s.expired.Add(1)
	s.misses.Add(1)
	if err := s.remove(ctx, area, key); err != nil {
		s.log.Warnw("msg", "failed to purge expired cache entry", "key", key, "error", err)
	}
}

func (s *Store) touch(area Area, key string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := sidecarName(area, key)
	st := s.touched[name]
	st.at = at
	st.count++
	s.touched[name] = st
}

func (s *Store) remove(ctx context.Context, area Area, key string) error {
	s.index.Remove(indexKey(area, key))
	s.mu.Lock()
	delete(s.touched, sidecarName(area, key))
	s.mu.Unlock()

	if err := s.medium.Delete(ctx, AreaMetadata, sidecarName(area, key)); err != nil {
		return err
	}
	return s.medium.Delete(ctx, area, blobName(key))
}

// entries lists the sidecars of area. Unreadable sidecars are skipped.
func (s *Store) entries(ctx context.Context, area Area) ([]*CacheEntry, error) {
	names, err := s.medium.List(ctx, AreaMetadata)
	if err != nil {
		return nil, err
	}
	prefix := string(area) + "-"
	out := make([]*CacheEntry, 0, len(names))
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		raw, err := s.medium.Read(ctx, AreaMetadata, name)
		if err != nil {
			continue
		}
		var entry CacheEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			s.log.Warnw("msg", "skipping corrupt cache metadata", "name", name, "error", err)
			continue
		}
		out = append(out, &entry)
	}
	return out, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
