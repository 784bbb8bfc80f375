package cache

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Defaults for the memory tier when Options leaves them unset.
const (
	DefaultCapacity = 256
	DefaultTTL      = time.Hour
)

// Options configures a Store.
type Options struct {
	// Dir is the disk-tier root; one JSON file per entry lives directly in it.
	Dir string
	// Capacity bounds the memory tier's item count (DefaultCapacity when <= 0).
	Capacity int
	// TTL expires memory-tier items (DefaultTTL when <= 0). The disk tier
	// never expires.
	TTL      time.Duration
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Stats describes both tiers at a point in time.
type Stats struct {
	MemoryItems int   `json:"memoryItemCount"`
	DiskItems   int   `json:"diskItemCount"`
	TotalBytes  int64 `json:"totalBytes"`
}

// Store is the two-tier build cache. Every entry reachable in memory is
// re-derivable from disk, except entries whose best-effort disk write failed
// within the current process lifetime. There is no store-wide lock: the
// memory tier serializes its own O(1) bookkeeping and disk I/O happens
// outside it, so lookups on distinct keys never block each other. Same-key
// races are safe (atomic entry-file replacement); duplicate recomputation is
// wasteful but not incorrect.
type Store struct {
	memory   *memoryTier
	disk     *diskTier
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New creates a Store rooted at opts.Dir and warms the memory tier from the
// entries already on disk.
func New(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("cache directory must not be empty")
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}

	disk, err := newDiskTier(opts.Dir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		disk:     disk,
		logger:   opts.Logger,
		recorder: opts.Recorder,
	}
	s.memory = newMemoryTier(opts.Capacity, opts.TTL, func(reason string) {
		s.recorder.IncCacheEviction(reason)
	})
	s.loadCache()
	return s, nil
}

// Get returns the entry for key if one exists and the validator accepts it.
// Memory is consulted first, then disk; disk hits are promoted into memory.
// A hit from either tier is trusted only after validation; a stale entry is
// deleted from both tiers and reported as a miss.
func (s *Store) Get(key string, kind Kind, validate Validator) (*Entry, bool) {
	if !validKey(key) {
		s.logger.Warn("rejecting malformed cache key", logfields.Key(key))
		return nil, false
	}

	if e, ok := s.memory.get(key); ok {
		if e.Kind == kind && (validate == nil || validate(e)) {
			s.recorder.IncCacheHit(string(kind), "memory")
			return e, true
		}
		s.invalidate(e)
		s.recorder.IncCacheMiss(string(kind))
		return nil, false
	}

	e, err := s.disk.read(key)
	if err != nil {
		if !os.IsNotExist(err) {
			// Corruption or I/O trouble degrades to a miss; the build still
			// produces correct output, just unaccelerated.
			s.logger.Warn("cache disk read failed", logfields.Key(key), logfields.Error(err))
		}
		s.recorder.IncCacheMiss(string(kind))
		return nil, false
	}

	if e.Kind != kind || (validate != nil && !validate(e)) {
		s.invalidate(e)
		s.recorder.IncCacheMiss(string(kind))
		return nil, false
	}

	s.memory.set(key, e)
	s.recorder.IncCacheHit(string(kind), "disk")
	return e, true
}

// Set stores the entry in memory unconditionally and best-effort on disk. A
// disk-write failure is logged and never surfaced: the in-memory copy stays
// authoritative for the rest of the process.
func (s *Store) Set(e *Entry) {
	if e == nil || !validKey(e.Key) {
		s.logger.Warn("rejecting malformed cache entry")
		return
	}
	s.memory.set(e.Key, e)
	if err := s.disk.write(e); err != nil {
		s.logger.Warn("cache disk write failed",
			logfields.Key(e.Key), logfields.Kind(string(e.Kind)), logfields.Error(err))
	}
}

// Delete removes the entry for key from both tiers.
func (s *Store) Delete(key string) error {
	if !validKey(key) {
		return fmt.Errorf("malformed cache key %q", key)
	}
	s.memory.delete(key)
	if err := s.disk.remove(key); err != nil {
		return fmt.Errorf("delete cache entry %s: %w", key, err)
	}
	return nil
}

// Clear removes every entry from both tiers.
func (s *Store) Clear() error {
	s.memory.clear()
	if err := s.disk.removeAll(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Stats reports the memory item count plus the disk tier's entry count and
// total byte size.
func (s *Store) Stats() (Stats, error) {
	items, bytes, err := s.disk.stats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		MemoryItems: s.memory.len(),
		DiskItems:   items,
		TotalBytes:  bytes,
	}, nil
}

// loadCache repopulates the memory tier from the disk directory, stopping at
// capacity. Corrupt entry files are skipped and logged.
func (s *Store) loadCache() {
	loaded := 0
	err := s.disk.scan(
		func(e *Entry) bool {
			if s.memory.len() >= s.memory.capacity {
				return false
			}
			s.memory.set(e.Key, e)
			loaded++
			return true
		},
		func(file string, err error) {
			s.logger.Warn("skipping corrupt cache entry", logfields.Path(file), logfields.Error(err))
		},
	)
	if err != nil {
		s.logger.Warn("cache warm-up scan failed", logfields.Error(err))
		return
	}
	if loaded > 0 {
		s.logger.Debug("cache warmed from disk", logfields.Count(loaded))
	}
}

// invalidate drops a stale entry from both tiers.
func (s *Store) invalidate(e *Entry) {
	s.logger.Debug("cache entry invalidated",
		logfields.Key(e.Key), logfields.Kind(string(e.Kind)))
	s.recorder.IncCacheEviction("invalid")
	s.memory.delete(e.Key)
	if err := s.disk.remove(e.Key); err != nil {
		s.logger.Warn("failed to remove stale cache entry",
			logfields.Key(e.Key), logfields.Error(err))
	}
}

// validKey rejects anything that could name a file outside the cache
// directory. Real keys are fingerprint digests and always pass.
func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "..")
}
