// Package crawler drives the two-phase mirror: a discovery pass that
// enumerates reachable same-origin pages, and a download pass that
// renders, rewrites, and persists each queued page.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/BenjaminSRussell/sitemirror/internal/assets"
	"github.com/BenjaminSRussell/sitemirror/internal/fetch"
	"github.com/BenjaminSRussell/sitemirror/internal/ledger"
	"github.com/BenjaminSRussell/sitemirror/internal/rewrite"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/BenjaminSRussell/sitemirror/internal/urlutil"
)

// consecutiveFailureWarn is the soft threshold after which repeated page
// failures escalate from warnings to a louder diagnostic. The crawl
// itself never aborts on page failures.
const consecutiveFailureWarn = 5

// Renderer is the browser collaborator: it turns a URL into rendered HTML
type Renderer interface {
	Render(url string, timeout time.Duration) (string, error)
}

// Mirror is the crawl scheduler. One page render is in flight at a time;
// the renderer holds shared session state that concurrent tabs would
// trample.
type Mirror struct {
	config   types.Config
	base     *url.URL
	ledger   *ledger.Ledger
	renderer Renderer
	cache    *assets.Cache
	robots   *robotsGate
	log      *logrus.Entry

	downloaded int
	failed     int
}

// New creates a mirror scheduler. client is only used for the robots.txt
// gate and may be nil when robots checking is disabled.
func New(config types.Config, led *ledger.Ledger, r Renderer, cache *assets.Cache, client *fetch.Client) (*Mirror, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	config.BaseURL = urlutil.NormalizeBase(config.BaseURL)
	config.ApplyDefaults()

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base URL has no host: %s", config.BaseURL)
	}

	m := &Mirror{
		config:   config,
		base:     base,
		ledger:   led,
		renderer: r,
		cache:    cache,
		log:      logrus.WithField("component", "crawler"),
	}

	if !config.IgnoreRobots && client != nil {
		m.robots = newRobotsGate(client, config.FetchTimeout)
	}

	return m, nil
}

// Run executes the crawl. With no page limit it first discovers the full
// reachable page set, then downloads everything queued. Cancellation
// stops between pages; the ledger stays consistent because every
// mutation is a single atomic row transition.
func (m *Mirror) Run(ctx context.Context) (*types.Summary, error) {
	if m.config.MaxPages == 0 {
		if err := m.discover(ctx); err != nil {
			return nil, err
		}
	}

	if err := m.download(ctx); err != nil {
		return nil, err
	}

	counts, err := m.ledger.Counts()
	if err != nil {
		return nil, err
	}

	return &types.Summary{
		PagesDownloaded: m.downloaded,
		PagesFailed:     m.failed,
		PagesQueued:     counts[types.StatusQueued],
		Resources:       m.cache.Counts(),
	}, nil
}

// discover walks the site breadth-first from the base URL and persists
// every reachable same-origin page URL as queued. Render failures skip
// the page for traversal purposes only; the URL is still recorded and
// the download phase will retry it.
func (m *Mirror) discover(ctx context.Context) error {
	m.log.Info("discovery phase started")

	seen := make(map[string]bool)
	var order []string
	queue := []string{m.base.String()}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			m.log.Warn("discovery canceled, persisting partial result")
			break
		}

		current := queue[0]
		queue = queue[1:]

		if seen[current] {
			continue
		}
		seen[current] = true

		if m.robots != nil && !m.robots.Allowed(current) {
			m.log.WithField("url", current).Debug("blocked by robots.txt")
			continue
		}

		order = append(order, current)

		markup, err := m.renderer.Render(current, m.config.PageTimeout)
		if err != nil {
			m.log.WithField("url", current).WithError(err).Warn("discovery render failed, skipping")
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err != nil {
			m.log.WithField("url", current).WithError(err).Warn("discovery parse failed, skipping")
			continue
		}

		pageURL, err := url.Parse(current)
		if err != nil {
			continue
		}

		result := rewrite.Links(doc, pageURL, m.base, m.config.IgnoreLinks)
		for _, u := range result.Discovered {
			if !seen[u] {
				queue = append(queue, u)
			}
		}
	}

	for _, u := range order {
		if err := m.ledger.MarkQueued(u); err != nil {
			return err
		}
	}

	m.log.WithField("pages", len(order)).Info("discovery phase complete")
	return nil
}

// download drains the ledger queue in FIFO order until it is empty or
// the page limit is reached. Failed attempts count against the limit,
// as does any page claimed for processing.
func (m *Mirror) download(ctx context.Context) error {
	queue, err := m.ledger.ListQueued()
	if err != nil {
		return err
	}

	if len(queue) == 0 {
		if err := m.ledger.MarkQueued(m.base.String()); err != nil {
			return err
		}
		if queue, err = m.ledger.ListQueued(); err != nil {
			return err
		}
	}

	visited := make(map[string]bool)
	consecutive := 0
	attempts := 0

	for len(queue) > 0 && (m.config.MaxPages == 0 || attempts < m.config.MaxPages) {
		if ctx.Err() != nil {
			m.log.Warn("download canceled, queued pages remain for a future run")
			break
		}

		pageURL := queue[0]
		queue = queue[1:]

		if visited[pageURL] {
			continue
		}
		visited[pageURL] = true

		claimed, err := m.ledger.Claim(pageURL)
		if err != nil {
			return err
		}
		if !claimed {
			// Already downloaded, terminally errored, or claimed by a
			// concurrent worker.
			continue
		}
		attempts++

		log := m.log.WithFields(logrus.Fields{"n": attempts, "url": pageURL})
		log.Info("downloading page")

		localPath, err := m.processPage(pageURL, &queue)
		if err != nil {
			if errors.Is(err, ledger.ErrUnknownURL) {
				return err
			}

			m.failed++
			consecutive++

			terminal, ferr := m.ledger.MarkFailed(pageURL, m.config.MaxAttempts)
			if ferr != nil {
				return ferr
			}

			entry := log.WithError(err).WithFields(logrus.Fields{
				"timeout":  errors.Is(err, context.DeadlineExceeded),
				"terminal": terminal,
			})
			entry.Warn("page download failed")

			if consecutive > consecutiveFailureWarn {
				m.log.WithField("consecutive_failures", consecutive).
					Error("repeated page failures, crawl continuing")
			}
			continue
		}

		consecutive = 0
		m.downloaded++
		log.WithField("path", localPath).Info("page saved")
	}

	return nil
}

// processPage renders one page, resolves its assets, rewrites its links,
// writes the result to disk, and marks it downloaded. Newly discovered
// pages are queued both durably and in-memory.
func (m *Mirror) processPage(rawURL string, queue *[]string) (string, error) {
	markup, err := m.renderer.Render(rawURL, m.config.PageTimeout)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}

	rewrite.Assets(doc, pageURL, m.cache)

	result := rewrite.Links(doc, pageURL, m.base, m.config.IgnoreLinks)
	for _, u := range result.Discovered {
		if err := m.ledger.MarkQueued(u); err != nil {
			return "", err
		}
		*queue = append(*queue, u)
	}

	localPath := rewrite.LocalPath(pageURL)
	filePath := filepath.Join(m.config.OutputDir, filepath.FromSlash(localPath))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create page directory: %w", err)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create page file: %w", err)
	}

	if err := html.Render(f, doc.Get(0)); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to serialize page: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	if err := m.ledger.MarkDownloaded(rawURL, localPath); err != nil {
		return "", err
	}

	return localPath, nil
}
