package testsupport

import (
	"path/filepath"
	"testing"

	"tracklist/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory. Background
// behaviour is off by default: no tracker, no auto-send, no auto-retrieve.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.DataDir = filepath.Join(base, "data")
	cfgVal.SearchDir = []string{filepath.Join(base, "videos")}
	cfgVal.TrackerEnabled = false
	cfgVal.Autosend = config.AutosendOff
	cfgVal.AutosendAtExit = false
	cfgVal.Autoretrieve = config.AutoretrieveOff
	cfgVal.Site.RequestsPerSecond = 0
	cfgVal.Site.BreakerFailures = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAutosend sets the auto-send policy.
func WithAutosend(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Autosend = policy
	}
}

// WithAutoretrieve sets the auto-retrieve policy.
func WithAutoretrieve(policy string, days int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Autoretrieve = policy
		b.cfg.AutoretrieveDays = days
	}
}

// WithConfig applies an arbitrary mutation.
func WithConfig(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		fn(b.cfg)
	}
}
