package crawler

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/BenjaminSRussell/sitemirror/internal/fetch"
)

const robotsAgent = "sitemirror"

// robotsGate caches and consults robots.txt per origin. Fetch errors
// fail open: an unreachable robots.txt never blocks the crawl.
type robotsGate struct {
	client  *fetch.Client
	timeout time.Duration

	mu   sync.Mutex
	data map[string]*robotstxt.RobotsData
}

func newRobotsGate(client *fetch.Client, timeout time.Duration) *robotsGate {
	return &robotsGate{
		client:  client,
		timeout: timeout,
		data:    make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the crawl may visit rawURL
func (g *robotsGate) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	origin := u.Scheme + "://" + u.Host

	g.mu.Lock()
	defer g.mu.Unlock()

	data, ok := g.data[origin]
	if !ok {
		data = g.fetchRobots(origin)
		g.data[origin] = data
	}

	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, robotsAgent)
}

// fetchRobots retrieves and parses an origin's robots.txt. A nil return
// means allow everything. Caller holds the lock.
func (g *robotsGate) fetchRobots(origin string) *robotstxt.RobotsData {
	body, status, err := g.client.Get(context.Background(), origin+"/robots.txt", g.timeout)
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return nil
	}
	return data
}
