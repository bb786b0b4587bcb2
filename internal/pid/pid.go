// Package pid guards an application identity with a PID file so two
// simulators never register the same identity at once.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/hdsim/internal/errors"
)

const (
	filePrefix = "hdsim-"
	fileSuffix = ".pid"
	filePerm   = 0o600
	dirPerm    = 0o755
)

// Path returns the lock file for appName inside dir.
func Path(dir, appName string) string {
	return filepath.Join(dir, filePrefix+Slug(appName)+fileSuffix)
}

// Write writes the current process ID to the lock file for appName and
// returns its path. A file left behind by a dead process is replaced.
func Write(dir, appName string) (string, error) {
	errFactory := errors.New()
	path := Path(dir, appName)

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", errFactory.Wrap(errors.ErrInternal, err)
	}

	if owner, ok := readOwner(path); ok && (owner == os.Getpid() || alive(owner)) {
		return "", errFactory.WithData(errors.ErrAlreadyRunning, struct {
			App string
			PID int
		}{
			App: appName,
			PID: owner,
		})
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), filePerm); err != nil {
		return "", errFactory.Wrap(errors.ErrInternal, err)
	}

	return path, nil
}

// Remove removes the lock file at path.
func Remove(path string) error {
	errFactory := errors.New()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Slug reduces an application name to a file-name-safe identifier.
func Slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			b.WriteRune('-')
		}
	}

	cleaned := strings.Trim(b.String(), "-")
	for strings.Contains(cleaned, "--") {
		cleaned = strings.ReplaceAll(cleaned, "--", "-")
	}
	if cleaned == "" {
		return "app"
	}
	return cleaned
}

// readOwner returns the PID recorded at path. Unreadable or malformed
// files report ok=false and are overwritten.
func readOwner(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	owner, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || owner <= 0 {
		return 0, false
	}
	return owner, true
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
