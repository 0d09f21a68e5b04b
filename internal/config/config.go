package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"github.com/tailscale/hujson"
)

//go:embed sample_config.json
var sampleConfig string

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format" json:"format"`
	Level         string `toml:"level" json:"level"`
	RetentionDays int    `toml:"retention_days" json:"retention_days"`
	// ComponentLevels raises the minimum level of individual components,
	// e.g. {"tracker": "warn"}.
	ComponentLevels map[string]string `toml:"component_levels" json:"component_levels"`
}

// Site contains the limits applied around every site client call.
type Site struct {
	TimeoutSeconds         int     `toml:"timeout_seconds" json:"timeout_seconds"`
	RequestsPerSecond      float64 `toml:"requests_per_second" json:"requests_per_second"`
	Burst                  int     `toml:"burst" json:"burst"`
	BreakerFailures        int     `toml:"breaker_failures" json:"breaker_failures"`
	BreakerCooldownSeconds int     `toml:"breaker_cooldown_seconds" json:"breaker_cooldown_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" json:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout" json:"request_timeout"`
	TrackerUpdates bool   `toml:"tracker_updates" json:"tracker_updates"`
	Errors         bool   `toml:"errors" json:"errors"`
}

// Jellyfin configures the Jellyfin session tracker backend.
type Jellyfin struct {
	URL    string `toml:"url" json:"url"`
	APIKey string `toml:"api_key" json:"api_key"`
	// Username restricts tracking to sessions of one Jellyfin user.
	Username string `toml:"username" json:"username"`
}

// Plex configures the Plex session tracker backend.
type Plex struct {
	URL      string `toml:"url" json:"url"`
	Token    string `toml:"token" json:"token"`
	Username string `toml:"username" json:"username"`
}

// Config encapsulates all configuration values for tracklist.
//
// The flat keys are the options every front-end understands; the sections
// configure the logger, the guard around site calls, push notifications and
// the media-server tracker backends.
type Config struct {
	// DataDir is the root holding accounts.dict and one directory per account.
	DataDir string `toml:"data_dir" json:"data_dir"`

	Player          string   `toml:"player" json:"player"`
	SearchDir       []string `toml:"searchdir" json:"searchdir"`
	LibraryFullPath bool     `toml:"library_full_path" json:"library_full_path"`

	TrackerEnabled    bool   `toml:"tracker_enabled" json:"tracker_enabled"`
	TrackerType       string `toml:"tracker_type" json:"tracker_type"`
	TrackerUpdateWait int    `toml:"tracker_update_wait" json:"tracker_update_wait"`
	TrackerInterval   int    `toml:"tracker_interval" json:"tracker_interval"`
	TrackerProcess    string `toml:"tracker_process" json:"tracker_process"`

	Autoretrieve     string `toml:"autoretrieve" json:"autoretrieve"`
	AutoretrieveDays int    `toml:"autoretrieve_days" json:"autoretrieve_days"`
	Autosend         string `toml:"autosend" json:"autosend"`
	AutosendHours    int    `toml:"autosend_hours" json:"autosend_hours"`
	AutosendSize     int    `toml:"autosend_size" json:"autosend_size"`
	AutosendAtExit   bool   `toml:"autosend_at_exit" json:"autosend_at_exit"`

	DebugDisableLock bool `toml:"debug_disable_lock" json:"debug_disable_lock"`

	AutoStatusChange         bool `toml:"auto_status_change" json:"auto_status_change"`
	AutoStatusChangeIfScored bool `toml:"auto_status_change_if_scored" json:"auto_status_change_if_scored"`
	AutoDateChange           bool `toml:"auto_date_change" json:"auto_date_change"`

	Logging       Logging       `toml:"logging" json:"logging"`
	Site          Site          `toml:"site" json:"site"`
	Notifications Notifications `toml:"notifications" json:"notifications"`
	Jellyfin      Jellyfin      `toml:"jellyfin" json:"jellyfin"`
	Plex          Plex          `toml:"plex" json:"plex"`
}

// DefaultDataDir returns the data root: $TRACKLIST_HOME when set, otherwise
// ~/.tracklist.
func DefaultDataDir() (string, error) {
	if value, ok := os.LookupEnv("TRACKLIST_HOME"); ok && strings.TrimSpace(value) != "" {
		return expandPath(strings.TrimSpace(value))
	}
	return expandPath(defaultDataDir)
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	root, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, defaultConfigName), nil
}

// Load locates, parses, and validates a configuration file. Files ending in
// .toml decode as TOML; everything else decodes as JSON with comments. The
// returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	if root, err := DefaultDataDir(); err == nil {
		cfg.DataDir = root
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		if err := decode(resolvedPath, data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	}
	return decodeJSONC(data, cfg)
}

// decodeJSONC accepts comments and trailing commas.
func decodeJSONC(data []byte, v any) error {
	std, err := hujson.Standardize(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(std, v)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("tracklist.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// AccountDir returns the directory holding one account's files.
func (c *Config) AccountDir(dirName string) string {
	return filepath.Join(c.DataDir, dirName)
}

// LogDir returns the directory receiving session logs.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// AccountsPath returns the path of the account registry.
func (c *Config) AccountsPath() string {
	return filepath.Join(c.DataDir, "accounts.dict")
}

// EnsureDirectories creates the data root and log directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UpdateWait returns tracker_update_wait as a duration.
func (c *Config) UpdateWait() time.Duration {
	return time.Duration(c.TrackerUpdateWait) * time.Second
}

// PollInterval returns tracker_interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.TrackerInterval) * time.Second
}

// SiteTimeout returns the per-call site timeout.
func (c *Config) SiteTimeout() time.Duration {
	return time.Duration(c.Site.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
