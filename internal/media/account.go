package media

import "strings"

// Account is one set of site credentials. It is immutable for the lifetime
// of an engine; switching accounts means building a new engine.
type Account struct {
	Username string            `json:"username"`
	Password string            `json:"password"`
	Site     string            `json:"api"`
	Extras   map[string]string `json:"extras,omitempty"`
}

// DirName is the per-account data directory name, "username.site".
func (a Account) DirName() string {
	return strings.TrimSpace(a.Username) + "." + strings.TrimSpace(a.Site)
}
