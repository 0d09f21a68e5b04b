package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"
)

const userConfigName = "user.json"

// UserConfig is the per-account state stored in <user>.<site>/user.json.
// Site clients keep values such as the remote user id in Values; front-ends
// remember the last mediatype used.
type UserConfig struct {
	Mediatype string            `json:"mediatype,omitempty"`
	Values    map[string]string `json:"values,omitempty"`
}

// LoadUserConfig reads user.json from accountDir. A missing file is empty.
func LoadUserConfig(accountDir string) (UserConfig, error) {
	var uc UserConfig
	data, err := os.ReadFile(filepath.Join(accountDir, userConfigName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return uc, nil
		}
		return uc, fmt.Errorf("read user config: %w", err)
	}
	if err := decodeJSONC(data, &uc); err != nil {
		return uc, fmt.Errorf("parse user config: %w", err)
	}
	return uc, nil
}

// SaveUserConfig writes user.json into accountDir atomically.
func SaveUserConfig(accountDir string, uc UserConfig) error {
	if err := os.MkdirAll(accountDir, 0o755); err != nil {
		return fmt.Errorf("create account directory: %w", err)
	}
	data, err := json.MarshalIndent(uc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user config: %w", err)
	}
	return atomic.WriteFile(filepath.Join(accountDir, userConfigName), bytes.NewReader(data))
}
