// Package daemon enforces the one-engine-per-session rule through lock
// files under the catcher home. A lock names its owning process; a lock
// whose process is gone is stale and silently reclaimed.
package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/catcher-sh/catcher/internal/errors"
	"github.com/catcher-sh/catcher/internal/logging"
)

const lockSuffix = ".lock"

// Lock is an acquired session lock, backed by a JSON file in the locks
// directory.
type Lock struct {
	Session   string    `json:"session"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	path   string
	logger *logging.Logger
}

// LockPath returns the lock file path for a session.
func LockPath(locksDir, session string) string {
	return filepath.Join(locksDir, session+lockSuffix)
}

// Acquire takes the lock for session, reclaiming a stale one if its owner
// died. It fails with ErrSessionActive while another live process holds
// the session. The logger may be nil.
func Acquire(locksDir, session string, logger *logging.Logger) (*Lock, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithSession(session)

	if session == "" || strings.ContainsAny(session, "/\\") {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "session name %q", session)
	}
	if err := os.MkdirAll(locksDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating locks directory")
	}

	path := LockPath(locksDir, session)
	if existing, err := ReadLock(path); err == nil {
		if isProcessAlive(existing.PID) {
			logger.Error("session already locked",
				"pid", existing.PID, "hostname", existing.Hostname)
			return nil, errors.Wrapf(errors.ErrSessionActive,
				"session %q (PID %d on %s)", session, existing.PID, existing.Hostname)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "removing stale lock")
		}
		logger.Warn("stale lock reclaimed", "old_pid", existing.PID)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	lock := &Lock{
		Session:   session,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		path:      path,
		logger:    logger,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding lock")
	}

	// O_EXCL closes the window between the liveness check and the write
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := ReadLock(path); readErr == nil {
				return nil, errors.Wrapf(errors.ErrSessionActive,
					"session %q (PID %d on %s)", session, existing.PID, existing.Hostname)
			}
			return nil, errors.Wrapf(errors.ErrSessionActive, "session %q", session)
		}
		return nil, errors.Wrap(err, "creating lock file")
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "writing lock file")
	}

	logger.Info("session lock acquired", "pid", lock.PID, "path", path)
	return lock, nil
}

// Release removes the lock file. It only removes a file this process
// owns, and calling it twice is fine.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	existing, err := ReadLock(l.path)
	if err != nil {
		return nil
	}
	if existing.PID != l.PID {
		return nil
	}

	if err := os.Remove(l.path); err != nil {
		return errors.Wrap(err, "removing lock file")
	}
	l.logger.Info("session lock released")
	return nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// ReadLock parses a lock file.
func ReadLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrapf(err, "parsing lock file %s", path)
	}
	lock.path = path
	return &lock, nil
}

// Info describes one session lock for the status listing.
type Info struct {
	Lock  *Lock
	Alive bool
}

// List returns every readable lock in locksDir, sorted by session name.
// Corrupt lock files are skipped.
func List(locksDir string) ([]Info, error) {
	entries, err := os.ReadDir(locksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading locks directory")
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), lockSuffix) {
			continue
		}
		lock, err := ReadLock(filepath.Join(locksDir, entry.Name()))
		if err != nil {
			continue
		}
		infos = append(infos, Info{Lock: lock, Alive: isProcessAlive(lock.PID)})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Lock.Session < infos[j].Lock.Session
	})
	return infos, nil
}

// CleanStale removes locks whose owning process is gone and reports how
// many were removed.
func CleanStale(locksDir string, logger *logging.Logger) (int, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	infos, err := List(locksDir)
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, info := range infos {
		if info.Alive {
			continue
		}
		if err := os.Remove(info.Lock.path); err != nil && !os.IsNotExist(err) {
			return cleaned, errors.Wrapf(err, "removing stale lock for %q", info.Lock.Session)
		}
		logger.Warn("stale lock cleaned",
			"session", info.Lock.Session, "old_pid", info.Lock.PID)
		cleaned++
	}
	return cleaned, nil
}

// isProcessAlive probes pid with signal 0.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
