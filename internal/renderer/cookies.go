package renderer

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
)

// Cookie mirrors the browser-export JSON format for a single cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// LoadCookies reads a cookie-export JSON file (a flat array of cookies)
func LoadCookies(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse cookies file: %w", err)
	}

	return cookies, nil
}

// param converts the cookie to a CDP cookie parameter. Exports sometimes
// carry SameSite values CDP rejects; those are coerced to Lax.
func (c Cookie) param() *network.CookieParam {
	p := &network.CookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: sanitizeSameSite(c.SameSite),
	}

	if c.Expires > 0 {
		expires := cdp.TimeSinceEpoch(timeFromUnixFloat(c.Expires))
		p.Expires = &expires
	}

	return p
}

func timeFromUnixFloat(sec float64) time.Time {
	whole := int64(sec)
	frac := sec - float64(whole)
	return time.Unix(whole, int64(frac*float64(time.Second)))
}

func sanitizeSameSite(s string) network.CookieSameSite {
	switch network.CookieSameSite(s) {
	case network.CookieSameSiteStrict, network.CookieSameSiteLax, network.CookieSameSiteNone:
		return network.CookieSameSite(s)
	}
	return network.CookieSameSiteLax
}
