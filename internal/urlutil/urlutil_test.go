package urlutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNormalizeBase(t *testing.T) {
	assert.Equal(t, "https://example.com/", NormalizeBase("https://example.com"))
	assert.Equal(t, "https://example.com/", NormalizeBase("https://example.com/"))
}

func TestIsIgnored(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		ignore  []string
		ignored bool
	}{
		{"fragment only", "#section", nil, true},
		{"javascript scheme", "javascript:void(0)", nil, true},
		{"mailto scheme", "mailto:hi@example.com", nil, true},
		{"tel scheme", "tel:+123456", nil, true},
		{"empty", "", nil, true},
		{"plain path", "/about", nil, false},
		{"ignore substring", "/account/SignOut", []string{"signout"}, true},
		{"ignore substring case", "/Admin/panel", []string{"ADMIN"}, true},
		{"no ignore match", "/about", []string{"signout"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ignored, IsIgnored(tt.ref, tt.ignore))
		})
	}
}

func TestResolveStripsFragment(t *testing.T) {
	base := mustParse(t, "https://example.com/docs/")

	u1, ok := Resolve(base, "page#top")
	require.True(t, ok)
	u2, ok := Resolve(base, "page#bottom")
	require.True(t, ok)

	// Fragment variants collapse to one identity
	assert.Equal(t, u1.String(), u2.String())
	assert.Equal(t, "https://example.com/docs/page", u1.String())
}

func TestResolveRelative(t *testing.T) {
	base := mustParse(t, "https://example.com/a/b")

	u, ok := Resolve(base, "../c")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/c", u.String())
}

func TestSameOrigin(t *testing.T) {
	origin := mustParse(t, "https://example.com/")

	assert.True(t, SameOrigin(mustParse(t, "https://example.com/about"), origin))
	assert.False(t, SameOrigin(mustParse(t, "https://other.com/about"), origin))
}

func TestKindForPath(t *testing.T) {
	tests := []struct {
		path string
		kind types.ResourceKind
		ok   bool
	}{
		{"/static/site.css", types.KindStyle, true},
		{"/app.js", types.KindScript, true},
		{"/data/config.json", types.KindScript, true},
		{"/img/logo.PNG", types.KindImage, true},
		{"/img/photo.webp", types.KindImage, true},
		{"/fonts/inter.woff2", types.KindFont, true},
		{"/fonts/old.eot", types.KindFont, true},
		{"/about", 0, false},
		{"/download/report.pdf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			kind, ok := KindForPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.kind, kind)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	origin := mustParse(t, "https://example.com/")
	base := mustParse(t, "https://example.com/blog/")

	tests := []struct {
		name  string
		ref   string
		class LinkClass
	}{
		{"internal page", "/about", ClassPage},
		{"relative page", "post-1", ClassPage},
		{"html page", "/a/b.html", ClassPage},
		{"resource", "/static/site.css", ClassResource},
		{"opaque extension", "/download/report.pdf", ClassOpaque},
		{"external", "https://other.com/", ClassExternal},
		{"anchor", "#top", ClassIgnored},
		{"script scheme", "javascript:alert(1)", ClassIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, class := Classify(base, origin, tt.ref, nil)
			assert.Equal(t, tt.class, class)
		})
	}
}

func TestClassifyIgnoreList(t *testing.T) {
	origin := mustParse(t, "https://example.com/")

	_, class := Classify(origin, origin, "/account/signout", []string{"signout"})
	assert.Equal(t, ClassIgnored, class)
}
