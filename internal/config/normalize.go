package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTracker()
	c.normalizePolicies()
	c.normalizeSite()
	c.normalizeNotifications()
	c.normalizeMediaServers()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	if c.DataDir, err = expandPath(strings.TrimSpace(c.DataDir)); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	dirs := make([]string, 0, len(c.SearchDir))
	for _, dir := range c.SearchDir {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("searchdir: %w", err)
		}
		dirs = append(dirs, expanded)
	}
	c.SearchDir = dirs
	c.Player = strings.TrimSpace(c.Player)
	return nil
}

func (c *Config) normalizeTracker() {
	c.TrackerType = strings.ToLower(strings.TrimSpace(c.TrackerType))
	if c.TrackerType == "" {
		c.TrackerType = defaultTrackerType
	}
	c.TrackerProcess = strings.TrimSpace(c.TrackerProcess)
	if c.TrackerProcess == "" {
		c.TrackerProcess = defaultTrackerProcess
	}
	if c.TrackerInterval <= 0 {
		c.TrackerInterval = defaultTrackerInterval
	}
	if c.TrackerUpdateWait < 0 {
		c.TrackerUpdateWait = 0
	}
}

func (c *Config) normalizePolicies() {
	c.Autoretrieve = strings.ToLower(strings.TrimSpace(c.Autoretrieve))
	if c.Autoretrieve == "" {
		c.Autoretrieve = AutoretrieveOff
	}
	c.Autosend = strings.ToLower(strings.TrimSpace(c.Autosend))
	if c.Autosend == "" {
		c.Autosend = AutosendOff
	}
}

func (c *Config) normalizeSite() {
	if c.Site.TimeoutSeconds <= 0 {
		c.Site.TimeoutSeconds = defaultSiteTimeout
	}
	if c.Site.RequestsPerSecond < 0 {
		c.Site.RequestsPerSecond = 0
	}
	if c.Site.Burst <= 0 {
		c.Site.Burst = defaultSiteBurst
	}
	if c.Site.BreakerFailures < 0 {
		c.Site.BreakerFailures = 0
	}
	if c.Site.BreakerCooldownSeconds <= 0 {
		c.Site.BreakerCooldownSeconds = defaultBreakerCooldown
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeMediaServers() {
	c.Jellyfin.URL = strings.TrimRight(strings.TrimSpace(c.Jellyfin.URL), "/")
	c.Jellyfin.APIKey = strings.TrimSpace(c.Jellyfin.APIKey)
	if c.Jellyfin.APIKey == "" {
		if value, ok := os.LookupEnv("JELLYFIN_API_KEY"); ok {
			c.Jellyfin.APIKey = strings.TrimSpace(value)
		}
	}
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	if c.Plex.Token == "" {
		if value, ok := os.LookupEnv("PLEX_TOKEN"); ok {
			c.Plex.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.ComponentLevels) > 0 {
		levels := make(map[string]string, len(c.Logging.ComponentLevels))
		for component, level := range c.Logging.ComponentLevels {
			levels[strings.ToLower(strings.TrimSpace(component))] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.ComponentLevels = levels
	}
}
