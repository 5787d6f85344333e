// Package assets deduplicates and downloads non-HTML resources, mapping
// each distinct URL to a local file exactly once per crawl.
package assets

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BenjaminSRussell/sitemirror/internal/fetch"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
)

// Store receives successful fetches so the cache survives a restart.
// The ledger's resources table implements it.
type Store interface {
	SaveResource(url string, kind types.ResourceKind, localPath string) error
}

// Cache resolves resource URLs to local paths, fetching each at most once
type Cache struct {
	mu        sync.Mutex
	client    *fetch.Client
	outputDir string
	timeout   time.Duration
	store     Store
	log       *logrus.Entry

	entries map[string]string
	counter map[types.ResourceKind]int
	fetched map[types.ResourceKind]int
}

// New creates a resource cache rooted at outputDir. store may be nil for
// a purely in-memory cache.
func New(client *fetch.Client, outputDir string, timeout time.Duration, store Store) *Cache {
	return &Cache{
		client:    client,
		outputDir: outputDir,
		timeout:   timeout,
		store:     store,
		log:       logrus.WithField("component", "assets"),
		entries:   make(map[string]string),
		counter:   make(map[types.ResourceKind]int),
		fetched:   make(map[types.ResourceKind]int),
	}
}

// EnsureDirs creates the per-kind output subdirectories
func EnsureDirs(outputDir string) error {
	for _, kind := range types.Kinds {
		if err := os.MkdirAll(filepath.Join(outputDir, kind.Subdir()), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", kind.Subdir(), err)
		}
	}
	return nil
}

// Seed preloads entries fetched by a previous run so they are not
// downloaded again.
func (c *Cache) Seed(entries []types.ResourceEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		if _, ok := c.entries[entry.URL]; ok {
			continue
		}
		c.entries[entry.URL] = entry.LocalPath
		c.counter[entry.Kind]++
	}
}

// Resolve returns a local reference for a resource URL, fetching and
// storing the bytes on first sight. data: URIs pass through untouched.
// Any fetch failure degrades to the original remote URL: the mirrored
// page then references the live resource instead of a local copy.
func (c *Cache) Resolve(rawURL string, kind types.ResourceKind) string {
	if strings.HasPrefix(rawURL, "data:") {
		return rawURL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if local, ok := c.entries[rawURL]; ok {
		return local
	}

	log := c.log.WithFields(logrus.Fields{"kind": kind, "url": rawURL})
	log.Info("downloading resource")

	body, status, err := c.client.Get(context.Background(), rawURL, c.timeout)
	if err != nil {
		log.WithError(err).Warn("resource fetch failed, keeping remote reference")
		return rawURL
	}
	if status < 200 || status >= 300 {
		log.WithField("status", status).Warn("resource fetch non-2xx, keeping remote reference")
		return rawURL
	}

	filename := c.filenameFor(rawURL, kind)
	localPath := path.Join(kind.Subdir(), filename)

	if err := os.WriteFile(filepath.Join(c.outputDir, kind.Subdir(), filename), body, 0644); err != nil {
		log.WithError(err).Warn("resource write failed, keeping remote reference")
		return rawURL
	}

	c.entries[rawURL] = localPath
	c.counter[kind]++
	c.fetched[kind]++

	if c.store != nil {
		if err := c.store.SaveResource(rawURL, kind, localPath); err != nil {
			log.WithError(err).Warn("failed to persist resource entry")
		}
	}

	return localPath
}

// filenameFor derives a filename from the URL basename, generating
// resource_<N> with the kind's default extension when the basename is
// missing or extensionless. Caller holds the lock.
func (c *Cache) filenameFor(rawURL string, kind types.ResourceKind) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Sprintf("resource_%d%s", c.counter[kind], kind.DefaultExt())
	}

	filename := path.Base(parsed.Path)
	if filename == "." || filename == "/" || !strings.Contains(filename, ".") {
		return fmt.Sprintf("resource_%d%s", c.counter[kind], kind.DefaultExt())
	}

	return filename
}

// Counts returns how many resources were fetched this run, by kind
func (c *Cache) Counts() map[types.ResourceKind]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[types.ResourceKind]int, len(c.fetched))
	for kind, n := range c.fetched {
		counts[kind] = n
	}
	return counts
}
