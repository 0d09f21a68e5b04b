package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePolicies(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateSite(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePolicies() error {
	switch c.Autoretrieve {
	case AutoretrieveOff, AutoretrieveAlways:
	case AutoretrieveDays:
		if c.AutoretrieveDays <= 0 {
			return errors.New("autoretrieve_days must be positive when autoretrieve is \"days\"")
		}
	default:
		return fmt.Errorf("autoretrieve: unsupported value %q (want off, always or days)", c.Autoretrieve)
	}
	switch c.Autosend {
	case AutosendOff, AutosendAlways:
	case AutosendHours:
		if c.AutosendHours <= 0 {
			return errors.New("autosend_hours must be positive when autosend is \"hours\"")
		}
	case AutosendSize:
		if c.AutosendSize <= 0 {
			return errors.New("autosend_size must be positive when autosend is \"size\"")
		}
	default:
		return fmt.Errorf("autosend: unsupported value %q (want off, always, hours or size)", c.Autosend)
	}
	return nil
}

func (c *Config) validateTracker() error {
	if _, err := regexp.Compile(c.TrackerProcess); err != nil {
		return fmt.Errorf("tracker_process: %w", err)
	}
	switch c.TrackerType {
	case TrackerProcess, TrackerInotify:
	case TrackerJellyfin:
		if c.TrackerEnabled && (c.Jellyfin.URL == "" || c.Jellyfin.APIKey == "") {
			return errors.New("jellyfin.url and jellyfin.api_key are required when tracker_type is \"jellyfin\"")
		}
	case TrackerPlex:
		if c.TrackerEnabled && (c.Plex.URL == "" || c.Plex.Token == "") {
			return errors.New("plex.url and plex.token are required when tracker_type is \"plex\"")
		}
	default:
		return fmt.Errorf("tracker_type: unsupported value %q", c.TrackerType)
	}
	if c.TrackerType == TrackerInotify && c.TrackerEnabled && len(c.SearchDir) == 0 {
		return errors.New("searchdir must be set when tracker_type is \"inotify\"")
	}
	return nil
}

func (c *Config) validateSite() error {
	if c.Site.RequestsPerSecond > 0 && c.Site.Burst <= 0 {
		return errors.New("site.burst must be positive when site.requests_per_second is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	for component, level := range c.Logging.ComponentLevels {
		if !slices.Contains(logLevels, level) {
			return fmt.Errorf("logging.component_levels.%s: unsupported value %q", component, level)
		}
	}
	return nil
}
