package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Filesystem caches fetched bodies in a single JSON file, so the
// one-shot CLI commands don't re-download a full schedule zip on every
// invocation.
type Filesystem struct {
	path  string
	mutex sync.Mutex
	cache map[string]fileEntry
}

type fileEntry struct {
	Body        []byte    `json:"body"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

func NewFilesystem(path string) (*Filesystem, error) {
	f := &Filesystem{
		path:  path,
		cache: make(map[string]fileEntry),
	}

	buf, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	if err := json.Unmarshal(buf, &f.cache); err != nil {
		return nil, fmt.Errorf("decoding cache: %w", err)
	}

	return f, nil
}

func (f *Filesystem) Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	if !options.Cache {
		return fetch(ctx, url, headers, options)
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if entry, ok := f.cache[url]; ok && time.Now().Before(entry.RetrievedAt.Add(options.CacheTTL)) {
		return entry.Body, nil
	}

	body, err := fetch(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	f.cache[url] = fileEntry{
		Body:        body,
		RetrievedAt: time.Now().UTC(),
	}
	if err := f.flush(); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Filesystem) flush() error {
	buf, err := json.Marshal(f.cache)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := os.WriteFile(f.path, buf, 0644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}
