// Package modcache persists per-module check verdicts keyed by content
// hash. It is purely an optimization for check-modules on unchanged
// inputs: a hit replays the cached verdict, a miss falls through to full
// analysis. The cache never changes output, only time, and any read
// failure degrades silently to a miss.
package modcache

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Schema version; bump when Payload changes shape.
const schemaVersion uint16 = 1

// Payload is the cached verdict for one module content hash.
type Payload struct {
	Schema uint16
	Path   string

	// Verdict
	Broken         bool
	ErrorCount     int
	WarningCount   int
	FirstDiagnostic string
}

// Cache is a disk-backed verdict store. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes the cache directory (`.kooix-cache/mods` under
// root).
func Open(root string) (*Cache, error) {
	dir := filepath.Join(root, ".kooix-cache", "mods")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key [32]byte) string {
	return filepath.Join(c.dir, hex.EncodeToString(key[:])+".mp")
}

// Get returns the cached payload for a content hash, or false on any
// miss, decode failure, or schema mismatch.
func (c *Cache) Get(key [32]byte) (*Payload, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		return nil, false
	}

	var payload Payload
	if err := msgpack.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	if payload.Schema != schemaVersion {
		return nil, false
	}
	return &payload, true
}

// Put writes a payload under the content hash. Write errors are returned
// but callers are free to ignore them; the cache is best-effort.
func (c *Cache) Put(key [32]byte, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload.Schema = schemaVersion
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return err
	}

	tmp := c.pathFor(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.pathFor(key))
}
