// Package cache implements the C14 result cache: a content-addressed store
// keyed by hash(audio bytes) xor hash(pipeline config), with TTL eviction
// on read and size-bounded LRU eviction on write. Entries are persisted as
// one file per key under a configured directory; an in-memory map guards
// single-writer-per-key semantics and avoids a filesystem round-trip on
// every read.
package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

// Key is the content-addressed cache key: hash(audio) XOR hash(config).
type Key [8]byte

// NewKey derives a Key from the raw audio samples and the pipeline
// configuration identifiers (target text + language stand in for "config
// hash" at the call sites that have no richer config fingerprint).
func NewKey(buf model.AudioBuffer, targetText, language string) Key {
	h := fnv.New64a()
	binary.Write(h, binary.LittleEndian, int32(buf.SampleRate))
	binary.Write(h, binary.LittleEndian, int32(buf.Channels))
	for _, s := range buf.Samples {
		binary.Write(h, binary.LittleEndian, s)
	}
	audioHash := h.Sum64()

	h2 := fnv.New64a()
	h2.Write([]byte(targetText))
	h2.Write([]byte(language))
	configHash := h2.Sum64()

	var k Key
	binary.LittleEndian.PutUint64(k[:], audioHash^configHash)
	return k
}

func (k Key) String() string { return hex.EncodeToString(k[:]) }

type entry struct {
	result    model.PipelineResult
	createdAt time.Time
	ttl       time.Duration
	lastUsed  time.Time
}

// Cache is a content-addressed, TTL-evicting, size-bounded LRU store.
type Cache struct {
	mu      sync.RWMutex
	dir     string // empty disables file persistence; memory-only
	entries map[Key]*entry
	maxSize int
}

// New creates a Cache. If dir is non-empty, entries are also persisted as
// one gob-encoded file per key under dir. maxSize bounds the in-memory
// entry count (default 1000 if <= 0).
func New(dir string, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	return &Cache{dir: dir, entries: make(map[Key]*entry), maxSize: maxSize}
}

// Get returns the cached result for key, or (zero, false) on miss or if the
// entry has exceeded its TTL. There is no negative caching.
func (c *Cache) Get(key Key) (model.PipelineResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e, ok = c.loadFromDisk(key)
		if !ok {
			return model.PipelineResult{}, false
		}
		c.entries[key] = e
	}
	if time.Since(e.createdAt) > e.ttl {
		delete(c.entries, key)
		c.removeFromDisk(key)
		return model.PipelineResult{}, false
	}
	e.lastUsed = time.Now()
	return e.result, true
}

// Put atomically stores result under key with the given ttl, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *Cache) Put(key Key, result model.PipelineResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRU()
	}
	e := &entry{result: result, createdAt: time.Now(), ttl: ttl, lastUsed: time.Now()}
	c.entries[key] = e
	c.saveToDisk(key, e)
}

func (c *Cache) evictLRU() {
	var oldestKey Key
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.lastUsed.Before(oldestTime) {
			oldestKey, oldestTime, first = k, e.lastUsed, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
		c.removeFromDisk(oldestKey)
	}
}

func (c *Cache) path(key Key) string {
	return filepath.Join(c.dir, key.String())
}

func (c *Cache) saveToDisk(key Key, e *entry) {
	if c.dir == "" {
		return
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(diskEntry{
		Result: e.result, CreatedAt: e.createdAt, TTL: e.ttl,
	}); err != nil {
		return
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, c.path(key))
}

func (c *Cache) loadFromDisk(key Key) (*entry, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var de diskEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&de); err != nil {
		return nil, false
	}
	return &entry{result: de.Result, createdAt: de.CreatedAt, ttl: de.TTL, lastUsed: time.Now()}, true
}

func (c *Cache) removeFromDisk(key Key) {
	if c.dir == "" {
		return
	}
	_ = os.Remove(c.path(key))
}

type diskEntry struct {
	Result    model.PipelineResult
	CreatedAt time.Time
	TTL       time.Duration
}

var _ = fmt.Sprintf // keep fmt import available for future error formatting
