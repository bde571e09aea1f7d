package downloader

import (
	"context"
	"sync"
	"time"
)

// Memory caches fetched bodies in memory, keyed by URL. Used by the
// serve loops, where the realtime TTL keeps back-to-back refreshes
// from hammering the provider.
type Memory struct {
	// TimeNow is swappable for expiry tests.
	TimeNow func() time.Time

	mutex   sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	body      []byte
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		TimeNow: time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (m *Memory) Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	if !options.Cache {
		return fetch(ctx, url, headers, options)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if entry, ok := m.entries[url]; ok && m.TimeNow().Before(entry.expiresAt) {
		return entry.body, nil
	}

	body, err := fetch(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	m.entries[url] = memoryEntry{
		body:      body,
		expiresAt: m.TimeNow().Add(options.CacheTTL),
	}
	return body, nil
}
