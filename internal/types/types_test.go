package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigApplyDefaults(t *testing.T) {
	config := Config{
		BaseURL:   "https://example.com/",
		OutputDir: "/tmp/mirror",
	}

	config.ApplyDefaults()

	assert.Equal(t, 3, config.MaxAttempts)
	assert.Equal(t, 60*time.Second, config.PageTimeout)
	assert.Equal(t, 10*time.Second, config.FetchTimeout)
}

func TestConfigApplyDefaultsKeepsExplicitValues(t *testing.T) {
	config := Config{
		BaseURL:     "https://example.com/",
		OutputDir:   "/tmp/mirror",
		MaxAttempts: 7,
		PageTimeout: 5 * time.Second,
	}

	config.ApplyDefaults()

	assert.Equal(t, 7, config.MaxAttempts)
	assert.Equal(t, 5*time.Second, config.PageTimeout)
}

func TestResourceKind(t *testing.T) {
	tests := []struct {
		kind   ResourceKind
		subdir string
		ext    string
	}{
		{KindStyle, "css", ".css"},
		{KindScript, "js", ".js"},
		{KindImage, "images", ".png"},
		{KindFont, "fonts", ".woff2"},
	}

	for _, tt := range tests {
		t.Run(tt.subdir, func(t *testing.T) {
			assert.Equal(t, tt.subdir, tt.kind.Subdir())
			assert.Equal(t, tt.ext, tt.kind.DefaultExt())
			assert.Equal(t, tt.subdir, tt.kind.String())

			back, ok := KindFromString(tt.subdir)
			assert.True(t, ok)
			assert.Equal(t, tt.kind, back)
		})
	}
}

func TestKindFromStringUnknown(t *testing.T) {
	_, ok := KindFromString("video")
	assert.False(t, ok)
}

func TestPageStatusString(t *testing.T) {
	assert.Equal(t, "queued", StatusQueued.String())
	assert.Equal(t, "unknown", PageStatus("").String())
}
