package config

const (
	defaultDataDir              = "~/.tracklist"
	defaultConfigName           = "config.json"
	defaultPlayer               = "mpv"
	defaultTrackerType          = TrackerProcess
	defaultTrackerUpdateWait    = 120
	defaultTrackerInterval      = 10
	defaultTrackerProcess       = "mplayer|mplayer2|mpv|vlc"
	defaultAutoretrieve         = AutoretrieveOff
	defaultAutoretrieveDays     = 3
	defaultAutosend             = AutosendHours
	defaultAutosendHours        = 5
	defaultAutosendSize         = 5
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 14
	defaultSiteTimeout          = 10
	defaultSiteRate             = 2.0
	defaultSiteBurst            = 4
	defaultBreakerFailures      = 5
	defaultBreakerCooldown      = 30
	defaultNotifyRequestTimeout = 10
)

// Autoretrieve policies.
const (
	AutoretrieveOff    = "off"
	AutoretrieveAlways = "always"
	AutoretrieveDays   = "days"
)

// Autosend policies.
const (
	AutosendOff    = "off"
	AutosendAlways = "always"
	AutosendHours  = "hours"
	AutosendSize   = "size"
)

// Tracker backends.
const (
	TrackerProcess  = "process"
	TrackerInotify  = "inotify"
	TrackerJellyfin = "jellyfin"
	TrackerPlex     = "plex"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		DataDir:                  defaultDataDir,
		Player:                   defaultPlayer,
		TrackerEnabled:           true,
		TrackerType:              defaultTrackerType,
		TrackerUpdateWait:        defaultTrackerUpdateWait,
		TrackerInterval:          defaultTrackerInterval,
		TrackerProcess:           defaultTrackerProcess,
		Autoretrieve:             defaultAutoretrieve,
		AutoretrieveDays:         defaultAutoretrieveDays,
		Autosend:                 defaultAutosend,
		AutosendHours:            defaultAutosendHours,
		AutosendSize:             defaultAutosendSize,
		AutosendAtExit:           true,
		AutoStatusChange:         true,
		AutoStatusChangeIfScored: true,
		AutoDateChange:           true,
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Site: Site{
			TimeoutSeconds:         defaultSiteTimeout,
			RequestsPerSecond:      defaultSiteRate,
			Burst:                  defaultSiteBurst,
			BreakerFailures:        defaultBreakerFailures,
			BreakerCooldownSeconds: defaultBreakerCooldown,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			TrackerUpdates: true,
			Errors:         true,
		},
	}
}
