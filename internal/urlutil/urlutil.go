// Package urlutil canonicalizes URLs and classifies link references for the
// mirror: same-origin page, downloadable resource, external, or ignored.
package urlutil

import (
	"net/url"
	"path"
	"strings"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
)

// LinkClass is the crawl-relevant category of a reference
type LinkClass int

const (
	ClassIgnored LinkClass = iota
	ClassExternal
	ClassPage
	ClassResource
	// ClassOpaque marks same-origin URLs with an extension that maps to
	// neither a resource kind nor an HTML page. They are left untouched.
	ClassOpaque
)

var kindByExt = map[string]types.ResourceKind{
	".css":   types.KindStyle,
	".js":    types.KindScript,
	".json":  types.KindScript,
	".png":   types.KindImage,
	".jpg":   types.KindImage,
	".jpeg":  types.KindImage,
	".gif":   types.KindImage,
	".svg":   types.KindImage,
	".webp":  types.KindImage,
	".ico":   types.KindImage,
	".woff":  types.KindFont,
	".woff2": types.KindFont,
	".ttf":   types.KindFont,
	".eot":   types.KindFont,
	".otf":   types.KindFont,
}

// NormalizeBase ensures a crawl base URL ends with a trailing slash
func NormalizeBase(raw string) string {
	if strings.HasSuffix(raw, "/") {
		return raw
	}
	return raw + "/"
}

// IsIgnored reports whether a raw reference should be skipped entirely:
// fragment-only anchors, non-navigable schemes, or a configured
// case-insensitive ignore substring.
func IsIgnored(ref string, ignore []string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") ||
		strings.HasPrefix(ref, "javascript:") ||
		strings.HasPrefix(ref, "mailto:") ||
		strings.HasPrefix(ref, "tel:") {
		return true
	}

	lower := strings.ToLower(ref)
	for _, pattern := range ignore {
		if pattern != "" && strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}

	return false
}

// Resolve resolves ref against base and strips the fragment, so URLs that
// differ only by fragment share one identity. Returns false for
// unparseable references.
func Resolve(base *url.URL, ref string) (*url.URL, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, false
	}

	resolved := base.ResolveReference(u)
	resolved.Fragment = ""

	return resolved, true
}

// SameOrigin reports whether u belongs to the crawl origin's host
func SameOrigin(u, origin *url.URL) bool {
	return u.Host == origin.Host
}

// KindForPath maps a URL path to a resource kind by its extension.
// Unmatched extensions are opaque: neither page nor resource rewriting
// applies to them.
func KindForPath(p string) (types.ResourceKind, bool) {
	ext := strings.ToLower(path.Ext(p))
	kind, ok := kindByExt[ext]
	return kind, ok
}

// Classify resolves a raw reference against base and categorizes it
// relative to the crawl origin.
func Classify(base, origin *url.URL, ref string, ignore []string) (*url.URL, LinkClass) {
	if IsIgnored(ref, ignore) {
		return nil, ClassIgnored
	}

	resolved, ok := Resolve(base, ref)
	if !ok {
		return nil, ClassIgnored
	}

	if !SameOrigin(resolved, origin) {
		return resolved, ClassExternal
	}

	if _, ok := KindForPath(resolved.Path); ok {
		return resolved, ClassResource
	}

	ext := strings.ToLower(path.Ext(resolved.Path))
	if ext != "" && ext != ".html" && ext != ".htm" {
		return resolved, ClassOpaque
	}

	return resolved, ClassPage
}
