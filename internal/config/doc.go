// Package config loads, normalizes, and validates tracklist configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// the global config.json (JSON with comments) or a TOML file, and honours
// environment fallbacks such as TRACKLIST_HOME and JELLYFIN_API_KEY. It also
// owns the two smaller files under the data root: the account registry
// (accounts.dict) and the per-account user.json.
//
// Settings are read once when an engine starts; changes made while it runs
// apply on the next start.
package config
