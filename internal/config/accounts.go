package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"

	"tracklist/internal/media"
)

// ErrUnknownAccount is returned when a registry key does not exist.
var ErrUnknownAccount = errors.New("unknown account")

// Accounts is the account registry stored in accounts.dict. Keys are small
// integers rendered as strings so front-ends can refer to "account 2".
type Accounts struct {
	path string

	Default  string                   `json:"default"`
	Next     int                      `json:"next"`
	Accounts map[string]media.Account `json:"accounts"`
}

// LoadAccounts reads the registry at path. A missing file yields an empty
// registry bound to path.
func LoadAccounts(path string) (*Accounts, error) {
	reg := &Accounts{path: path, Next: 1, Accounts: map[string]media.Account{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return reg, nil
		}
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	if err := decodeJSONC(data, reg); err != nil {
		return nil, fmt.Errorf("parse accounts %s: %w", path, err)
	}
	if reg.Accounts == nil {
		reg.Accounts = map[string]media.Account{}
	}
	for key := range reg.Accounts {
		if n, err := strconv.Atoi(key); err == nil && n >= reg.Next {
			reg.Next = n + 1
		}
	}
	return reg, nil
}

// Add registers an account and returns its key. The first account becomes
// the default.
func (a *Accounts) Add(acct media.Account) (string, error) {
	acct.Username = strings.TrimSpace(acct.Username)
	acct.Site = strings.TrimSpace(acct.Site)
	if acct.Username == "" || acct.Site == "" {
		return "", errors.New("account needs a username and a site")
	}
	for key, existing := range a.Accounts {
		if existing.DirName() == acct.DirName() {
			return "", fmt.Errorf("account %s already registered as %s", acct.DirName(), key)
		}
	}
	key := strconv.Itoa(a.Next)
	a.Next++
	a.Accounts[key] = acct
	if a.Default == "" {
		a.Default = key
	}
	return key, nil
}

// Get returns the account registered under key.
func (a *Accounts) Get(key string) (media.Account, error) {
	acct, ok := a.Accounts[key]
	if !ok {
		return media.Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, key)
	}
	return acct, nil
}

// Resolve returns the account named by key, or the default when key is empty.
func (a *Accounts) Resolve(key string) (string, media.Account, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = a.Default
	}
	if key == "" {
		return "", media.Account{}, fmt.Errorf("%w: no default account configured", ErrUnknownAccount)
	}
	acct, err := a.Get(key)
	return key, acct, err
}

// SetDefault marks key as the default account.
func (a *Accounts) SetDefault(key string) error {
	if _, err := a.Get(key); err != nil {
		return err
	}
	a.Default = key
	return nil
}

// Delete removes key; removing the default clears it.
func (a *Accounts) Delete(key string) error {
	if _, err := a.Get(key); err != nil {
		return err
	}
	delete(a.Accounts, key)
	if a.Default == key {
		a.Default = ""
	}
	return nil
}

// Keys lists registry keys in numeric order.
func (a *Accounts) Keys() []string {
	keys := make([]string, 0, len(a.Accounts))
	for key := range a.Accounts {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(x, y string) int {
		nx, _ := strconv.Atoi(x)
		ny, _ := strconv.Atoi(y)
		return nx - ny
	})
	return keys
}

// Save writes the registry atomically with owner-only permissions; it holds
// credentials.
func (a *Accounts) Save() error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0o700); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := atomic.WriteFile(a.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}
	return os.Chmod(a.path, 0o600)
}
