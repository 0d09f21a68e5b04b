package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const serverTimeout = 5 * time.Second

// CheckJellyfin verifies Jellyfin connectivity and authentication.
func CheckJellyfin(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Jellyfin"

	if strings.TrimSpace(apiKey) == "" {
		if strings.TrimSpace(baseURL) == "" {
			return Result{Name: name, Detail: "missing url"}
		}
		return Result{Name: name, Detail: "missing api key"}
	}
	return checkServer(ctx, name, baseURL, "/Users", "X-Emby-Token", apiKey)
}

// CheckPlex verifies Plex connectivity and the token.
func CheckPlex(ctx context.Context, baseURL, token string) Result {
	const name = "Plex"

	if strings.TrimSpace(token) == "" {
		if strings.TrimSpace(baseURL) == "" {
			return Result{Name: name, Detail: "missing url"}
		}
		return Result{Name: name, Detail: "missing token"}
	}
	return checkServer(ctx, name, baseURL, "/identity", "X-Plex-Token", token)
}

func checkServer(ctx context.Context, name, baseURL, path, header, secret string) Result {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, serverTimeout)
	defer cancel()

	client := &http.Client{Timeout: serverTimeout}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+path, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set(header, strings.TrimSpace(secret))
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeRequestError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid credentials)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}

// CheckBinary resolves the first word of command on PATH. command may carry
// arguments, as the player setting does.
func CheckBinary(name, command string, optional bool) Result {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return Result{Name: name, Optional: optional, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(fields[0])
	if err != nil {
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("binary %q not found", fields[0])}
	}
	return Result{Name: name, Passed: true, Optional: optional, Detail: resolved}
}

func summarizeRequestError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (server unreachable)"
	}
	return fmt.Sprintf("auth check failed (%v)", err)
}
