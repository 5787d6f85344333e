// Package renderer drives the headless Chrome collaborator that turns a
// URL into fully rendered HTML, JavaScript included.
package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// settleDelay gives in-flight scripts a moment after body readiness
// before the DOM is captured.
const settleDelay = 500 * time.Millisecond

// ChromeRenderer renders pages in one shared browser context, so session
// cookies and navigation state carry across pages. One render is in
// flight at a time.
type ChromeRenderer struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromeRenderer starts a Chrome instance
func NewChromeRenderer(headless bool) (*ChromeRenderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &ChromeRenderer{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// SetCookies injects a pre-obtained session cookie set into the browser
// before any page is rendered.
func (cr *ChromeRenderer) SetCookies(cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, c.param())
	}

	err := chromedp.Run(cr.browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return storage.SetCookies(params).Do(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}

	return nil
}

// Render navigates to a URL in a fresh tab of the shared browser and
// returns the final HTML. A context.DeadlineExceeded in the returned
// error chain means the render timed out.
func (cr *ChromeRenderer) Render(url string, timeout time.Duration) (string, error) {
	tabCtx, cancel := chromedp.NewContext(cr.browserCtx)
	defer cancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	var htmlContent string

	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}

	return htmlContent, nil
}

// Close shuts the browser down
func (cr *ChromeRenderer) Close() {
	if cr.browserCancel != nil {
		cr.browserCancel()
	}
	if cr.allocCancel != nil {
		cr.allocCancel()
	}
}
