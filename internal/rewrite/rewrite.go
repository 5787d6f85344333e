// Package rewrite transforms a rendered document's references into
// local-path form and extracts newly discovered same-origin page URLs.
package rewrite

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/BenjaminSRussell/sitemirror/internal/urlutil"
)

// Result reports what a link-rewriting pass did to a document
type Result struct {
	// Modified counts hyperlinks rewritten to local paths
	Modified int
	// Discovered holds same-origin page URLs in document order.
	// Duplicates are allowed; the scheduler and ledger dedup them.
	Discovered []string
}

// AssetResolver maps a resource URL to a local (or unchanged remote) reference
type AssetResolver interface {
	Resolve(rawURL string, kind types.ResourceKind) string
}

// LocalPath maps a page URL to its relative local file path.
//
// Root maps to index.html. A URL with a query string collapses path
// separators to underscores and appends .html: distinct query variants
// sharing that transformed string intentionally land in one file.
// Trailing-slash paths gain index.html; paths without an HTML extension
// gain .html; existing .html/.htm paths pass through unchanged.
func LocalPath(u *url.URL) string {
	p := u.Path
	if p == "" || p == "/" {
		return "index.html"
	}

	rel := strings.TrimPrefix(p, "/")
	if rel == "" {
		return "index.html"
	}

	if u.RawQuery != "" {
		return strings.ReplaceAll(rel, "/", "_") + ".html"
	}

	if strings.HasSuffix(rel, "/") {
		return rel + "index.html"
	}

	if strings.HasSuffix(rel, ".html") || strings.HasSuffix(rel, ".htm") {
		return rel
	}

	return rel + ".html"
}

// Links rewrites every internal hyperlink in doc to its local path and
// collects the page URLs it points at. External links keep their absolute
// URL and are marked to open in a new tab. Anchors targeting known
// resource types are left for the asset pass. Mutates doc in place.
func Links(doc *goquery.Document, pageURL, base *url.URL, ignore []string) *Result {
	result := &Result{}

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")

		resolved, class := urlutil.Classify(pageURL, base, href, ignore)
		switch class {
		case urlutil.ClassPage:
			s.SetAttr("href", LocalPath(resolved))
			result.Discovered = append(result.Discovered, pageIdentity(resolved, base))
			result.Modified++
		case urlutil.ClassExternal:
			s.SetAttr("target", "_blank")
		}
	})

	return result
}

// pageIdentity returns the canonical ledger identity for a linked page:
// the crawl base for the root path, otherwise base joined with the path
// alone. Queries never contribute to page identity.
func pageIdentity(u, base *url.URL) string {
	if u.Path == "" || u.Path == "/" {
		return base.String()
	}
	return base.ResolveReference(&url.URL{Path: u.Path}).String()
}

// Assets routes stylesheet, script, and image references through the
// resolver, replacing each reference with the returned value. Mutates
// doc in place; never touches the filesystem itself.
func Assets(doc *goquery.Document, pageURL *url.URL, resolver AssetResolver) {
	rewriteAttr(doc, "link[rel='stylesheet']", "href", pageURL, types.KindStyle, resolver)
	rewriteAttr(doc, "script[src]", "src", pageURL, types.KindScript, resolver)
	rewriteAttr(doc, "img[src]", "src", pageURL, types.KindImage, resolver)
}

func rewriteAttr(doc *goquery.Document, selector, attr string, pageURL *url.URL, kind types.ResourceKind, resolver AssetResolver) {
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		ref, exists := s.Attr(attr)
		if !exists || ref == "" {
			return
		}

		if strings.HasPrefix(ref, "data:") {
			return
		}

		resolved, ok := urlutil.Resolve(pageURL, ref)
		if !ok {
			return
		}

		s.SetAttr(attr, resolver.Resolve(resolved.String(), kind))
	})
}
