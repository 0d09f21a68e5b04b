package preflight

import (
	"context"
	"fmt"

	"tracklist/internal/config"
)

// Result reports the outcome of a single preflight check. Optional checks
// that fail are warnings rather than errors.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.DataDir))
	for i, dir := range cfg.SearchDir {
		result := CheckDirectoryReadable(fmt.Sprintf("Search directory %d", i+1), dir)
		result.Optional = true
		results = append(results, result)
	}

	if cfg.Player != "" {
		results = append(results, CheckBinary("Player", cfg.Player, true))
	}

	if cfg.TrackerEnabled {
		results = append(results, CheckTracker(ctx, cfg))
	}

	return results
}

// CheckTracker verifies the backend selected by tracker_type.
func CheckTracker(ctx context.Context, cfg *config.Config) Result {
	switch cfg.TrackerType {
	case config.TrackerProcess, "":
		result := CheckDirectoryReadable("Tracker (process)", "/proc")
		if !result.Passed {
			result.Detail += "; the process tracker needs procfs"
		}
		return result
	case config.TrackerInotify:
		if len(cfg.SearchDir) == 0 {
			return Result{Name: "Tracker (inotify)", Detail: "no search directories to watch"}
		}
		return Result{Name: "Tracker (inotify)", Passed: true, Detail: fmt.Sprintf("watching %d directories", len(cfg.SearchDir))}
	case config.TrackerJellyfin:
		return CheckJellyfin(ctx, cfg.Jellyfin.URL, cfg.Jellyfin.APIKey)
	case config.TrackerPlex:
		return CheckPlex(ctx, cfg.Plex.URL, cfg.Plex.Token)
	default:
		return Result{Name: "Tracker", Detail: fmt.Sprintf("unknown tracker type %q", cfg.TrackerType)}
	}
}
