package data

import (
	"os"
	"sync"
	"time"

	"factor-backtest/internal/model"
)

type cacheEntry struct {
	frame   *model.Frame
	modTime time.Time
	size    int64
}

// FrameCache keeps parsed csv tables in memory. An entry is reread when
// the file's modification time or size changes. Cached frames are shared
// and must not be modified by callers.
//
// A nil *FrameCache reads through on every call.
type FrameCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
}

func NewFrameCache() *FrameCache {
	return &FrameCache{store: make(map[string]*cacheEntry)}
}

// Get returns the table stored at path.
func (c *FrameCache) Get(path string) (*model.Frame, error) {
	if c == nil {
		return ReadFrameCSV(path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	entry, ok := c.store[path]
	c.mu.RUnlock()
	if ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.frame, nil
	}

	f, err := ReadFrameCSV(path)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.store[path] = &cacheEntry{frame: f, modTime: info.ModTime(), size: info.Size()}
	c.mu.Unlock()
	log.WithField("file", path).Debug("table cached")
	return f, nil
}

// Len is the number of cached tables.
func (c *FrameCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries from the cache
func (c *FrameCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*cacheEntry)
}
