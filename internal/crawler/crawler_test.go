package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminSRussell/sitemirror/internal/assets"
	"github.com/BenjaminSRussell/sitemirror/internal/fetch"
	"github.com/BenjaminSRussell/sitemirror/internal/ledger"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
)

// fakeRenderer serves canned HTML and records every render call
type fakeRenderer struct {
	pages map[string]string
	fail  map[string]error
	calls []string
}

func (f *fakeRenderer) Render(url string, _ time.Duration) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.fail[url]; ok {
		return "", err
	}
	markup, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("navigation failed: %s", url)
	}
	return markup, nil
}

func newTestMirror(t *testing.T, config types.Config, r Renderer) (*Mirror, *ledger.Ledger, string) {
	t.Helper()

	outputDir := t.TempDir()
	config.OutputDir = outputDir
	config.IgnoreRobots = true
	require.NoError(t, assets.EnsureDirs(outputDir))

	led, err := ledger.Open(filepath.Join(outputDir, "mirror_state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })

	cache := assets.New(fetch.NewClient(), outputDir, time.Second, led)

	m, err := New(config, led, r, cache, nil)
	require.NoError(t, err)

	return m, led, outputDir
}

func threePageSite() *fakeRenderer {
	return &fakeRenderer{pages: map[string]string{
		"https://example.com/": `<html><body>
			<a href="/about">About</a>
			<a href="/contact">Contact</a>
			<a href="https://other.com/">Elsewhere</a>
		</body></html>`,
		"https://example.com/about": `<html><body>
			<a href="/">Home</a>
			<a href="/contact">Contact</a>
		</body></html>`,
		"https://example.com/contact": `<html><body>
			<a href="/">Home</a>
			<a href="/about">About</a>
		</body></html>`,
	}}
}

func TestPageLimitScenario(t *testing.T) {
	renderer := threePageSite()
	m, led, outputDir := newTestMirror(t, types.Config{
		BaseURL:  "https://example.com/",
		MaxPages: 2,
	}, renderer)

	summary, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.PagesDownloaded)
	assert.Equal(t, 1, summary.PagesQueued)
	assert.Zero(t, summary.PagesFailed)

	// Exactly the first two pages in FIFO order were rendered
	assert.Equal(t, []string{"https://example.com/", "https://example.com/about"}, renderer.calls)

	status, err := led.StatusOf("https://example.com/contact")
	require.NoError(t, err)
	assert.Equal(t, types.StatusQueued, status)

	index, err := os.ReadFile(filepath.Join(outputDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `href="about.html"`)
	assert.Contains(t, string(index), `href="contact.html"`)

	about, err := os.ReadFile(filepath.Join(outputDir, "about.html"))
	require.NoError(t, err)
	assert.Contains(t, string(about), `href="index.html"`)
	assert.Contains(t, string(about), `href="contact.html"`)

	// The external link produced no ledger record
	counts, err := led.Counts()
	require.NoError(t, err)
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 3, total)
}

func TestUnlimitedCrawlDiscoversEverything(t *testing.T) {
	renderer := threePageSite()
	m, led, outputDir := newTestMirror(t, types.Config{
		BaseURL: "https://example.com/",
	}, renderer)

	summary, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.PagesDownloaded)
	assert.Zero(t, summary.PagesQueued)

	// Each page rendered twice: once for discovery, once for download
	assert.Len(t, renderer.calls, 6)

	counts, err := led.Counts()
	require.NoError(t, err)
	assert.Equal(t, 3, counts[types.StatusDownloaded])

	for _, name := range []string{"index.html", "about.html", "contact.html"} {
		_, err := os.Stat(filepath.Join(outputDir, name))
		assert.NoError(t, err, name)
	}
}

func TestDownloadFailureLeavesPageQueued(t *testing.T) {
	renderer := &fakeRenderer{
		pages: map[string]string{},
		fail:  map[string]error{"https://example.com/": fmt.Errorf("net::ERR_TIMED_OUT")},
	}
	m, led, _ := newTestMirror(t, types.Config{
		BaseURL:  "https://example.com/",
		MaxPages: 1,
	}, renderer)

	summary, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.PagesDownloaded)
	assert.Equal(t, 1, summary.PagesFailed)
	assert.Equal(t, 1, summary.PagesQueued)

	status, err := led.StatusOf("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, types.StatusQueued, status)
}

func TestDownloadFailureTerminalAfterMaxAttempts(t *testing.T) {
	renderer := &fakeRenderer{
		fail: map[string]error{"https://example.com/": fmt.Errorf("boom")},
	}
	m, led, _ := newTestMirror(t, types.Config{
		BaseURL:     "https://example.com/",
		MaxPages:    1,
		MaxAttempts: 1,
	}, renderer)

	_, err := m.Run(context.Background())
	require.NoError(t, err)

	status, err := led.StatusOf("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, types.StatusErrored, status)
}

func TestDiscoveryFailureSkipsButRecords(t *testing.T) {
	renderer := threePageSite()
	renderer.fail = map[string]error{"https://example.com/about": fmt.Errorf("flaky")}

	m, led, _ := newTestMirror(t, types.Config{
		BaseURL:     "https://example.com/",
		MaxAttempts: 1,
	}, renderer)

	summary, err := m.Run(context.Background())
	require.NoError(t, err)

	// The failing page was skipped during discovery but still recorded,
	// retried during download, and finally parked as errored.
	assert.Equal(t, 2, summary.PagesDownloaded)
	assert.Equal(t, 1, summary.PagesFailed)

	status, err := led.StatusOf("https://example.com/about")
	require.NoError(t, err)
	assert.Equal(t, types.StatusErrored, status)

	downloaded, err := led.IsDownloaded("https://example.com/contact")
	require.NoError(t, err)
	assert.True(t, downloaded)
}

func TestResumeSkipsDownloadedPages(t *testing.T) {
	renderer := threePageSite()

	outputDir := t.TempDir()
	require.NoError(t, assets.EnsureDirs(outputDir))

	led, err := ledger.Open(filepath.Join(outputDir, "mirror_state.db"))
	require.NoError(t, err)
	defer led.Close()

	// A prior run finished the base page and queued the rest
	require.NoError(t, led.MarkQueued("https://example.com/"))
	claimed, err := led.Claim("https://example.com/")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, led.MarkDownloaded("https://example.com/", "index.html"))
	require.NoError(t, led.MarkQueued("https://example.com/about"))
	require.NoError(t, led.MarkQueued("https://example.com/contact"))

	cache := assets.New(fetch.NewClient(), outputDir, time.Second, led)
	m, err := New(types.Config{
		BaseURL:      "https://example.com/",
		OutputDir:    outputDir,
		MaxPages:     10,
		IgnoreRobots: true,
	}, led, renderer, cache, nil)
	require.NoError(t, err)

	summary, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.PagesDownloaded)
	assert.NotContains(t, renderer.calls, "https://example.com/")
}

func TestRunCanceledContext(t *testing.T) {
	renderer := threePageSite()
	m, led, _ := newTestMirror(t, types.Config{
		BaseURL: "https://example.com/",
	}, renderer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := m.Run(ctx)
	require.NoError(t, err)

	assert.Zero(t, summary.PagesDownloaded)
	assert.Empty(t, renderer.calls)

	// The base URL stays queued for the next run
	queued, err := led.ListQueued()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/"}, queued)
}

func TestAssetRewritingEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/static/site.css":
			w.Write([]byte("body{}"))
		case "/img/logo.png":
			w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	renderer := &fakeRenderer{pages: map[string]string{
		"https://example.com/": fmt.Sprintf(`<html><head>
			<link rel="stylesheet" href="%s/static/site.css">
		</head><body>
			<img src="%s/img/logo.png">
			<img src="%s/img/missing.png">
		</body></html>`, server.URL, server.URL, server.URL),
	}}

	m, _, outputDir := newTestMirror(t, types.Config{
		BaseURL:  "https://example.com/",
		MaxPages: 1,
	}, renderer)

	summary, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Resources[types.KindStyle])
	assert.Equal(t, 1, summary.Resources[types.KindImage])

	index, err := os.ReadFile(filepath.Join(outputDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `href="css/site.css"`)
	assert.Contains(t, string(index), `src="images/logo.png"`)
	// The 404 image degrades to its remote URL
	assert.Contains(t, string(index), server.URL+"/img/missing.png")

	_, err = os.Stat(filepath.Join(outputDir, "css", "site.css"))
	assert.NoError(t, err)
}

func TestNewValidation(t *testing.T) {
	_, err := New(types.Config{}, nil, nil, nil, nil)
	assert.Error(t, err)

	_, err = New(types.Config{BaseURL: "not a url at all", OutputDir: "/tmp"}, nil, nil, nil, nil)
	assert.Error(t, err)
}
