package types

import (
	"time"
)

// Config holds mirror configuration
type Config struct {
	BaseURL      string        `json:"base_url"`
	OutputDir    string        `json:"output_dir"`
	CookiesPath  string        `json:"cookies_path,omitempty"`
	MaxPages     int           `json:"max_pages"` // 0 = discover and download everything
	IgnoreLinks  []string      `json:"ignore_links,omitempty"`
	Headless     bool          `json:"headless"`
	IgnoreRobots bool          `json:"ignore_robots"`
	MaxAttempts  int           `json:"max_attempts"`
	PageTimeout  time.Duration `json:"page_timeout"`
	FetchTimeout time.Duration `json:"fetch_timeout"`
}

// ApplyDefaults fills zero-valued tunables with their defaults
func (c *Config) ApplyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.PageTimeout == 0 {
		c.PageTimeout = 60 * time.Second
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 10 * time.Second
	}
}

// PageStatus is the ledger status of a page URL
type PageStatus string

const (
	StatusQueued     PageStatus = "queued"
	StatusInProgress PageStatus = "in_progress"
	StatusDownloaded PageStatus = "downloaded"
	StatusErrored    PageStatus = "error"
)

// String implements fmt.Stringer for logging
func (s PageStatus) String() string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}

// ResourceKind identifies a non-document asset type
type ResourceKind int

const (
	KindStyle ResourceKind = iota
	KindScript
	KindImage
	KindFont
)

// Kinds lists every resource kind, in output subdirectory order
var Kinds = []ResourceKind{KindStyle, KindScript, KindImage, KindFont}

// Subdir returns the output subdirectory for the kind
func (k ResourceKind) Subdir() string {
	switch k {
	case KindStyle:
		return "css"
	case KindScript:
		return "js"
	case KindImage:
		return "images"
	case KindFont:
		return "fonts"
	}
	return ""
}

// DefaultExt returns the fallback extension for generated filenames
func (k ResourceKind) DefaultExt() string {
	switch k {
	case KindStyle:
		return ".css"
	case KindScript:
		return ".js"
	case KindImage:
		return ".png"
	case KindFont:
		return ".woff2"
	}
	return ""
}

func (k ResourceKind) String() string {
	return k.Subdir()
}

// KindFromString maps a subdirectory name back to its kind
func KindFromString(s string) (ResourceKind, bool) {
	for _, k := range Kinds {
		if k.Subdir() == s {
			return k, true
		}
	}
	return 0, false
}

// ResourceEntry records a fetched resource and its local path
type ResourceEntry struct {
	URL       string
	Kind      ResourceKind
	LocalPath string
}

// Summary contains the results of a mirror run
type Summary struct {
	PagesDownloaded int
	PagesFailed     int
	PagesQueued     int
	Resources       map[ResourceKind]int
}
