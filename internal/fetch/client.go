// Package fetch is the raw HTTP collaborator used for resource download.
// Pages are never fetched here; they go through the browser renderer.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Client downloads raw resource bytes with a consistent browser identity
type Client struct {
	hc      *http.Client
	profile BrowserProfile
	tls     TLSProfile
}

// NewClient creates a resource fetch client. One TLS/header profile pair
// is chosen per client and used for every request it makes.
func NewClient() *Client {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	tlsProfile := randomTLSProfile(rnd)

	return &Client{
		hc: &http.Client{
			Transport: newTransport(),
		},
		profile: headerProfileFor(tlsProfile),
		tls:     tlsProfile,
	}
}

// Get fetches a URL and returns its body and status code. The timeout
// bounds the whole request including body read.
func (c *Client) Get(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("request creation failed: %w", err)
	}

	c.profile.apply(req)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("body read failed: %w", err)
	}

	return body, resp.StatusCode, nil
}
