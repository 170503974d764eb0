package hostd

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/silexa/hostctl/internal/hosterrors"
	"github.com/silexa/hostctl/internal/transport"
)

// DefaultLockLeaseSeconds bounds how long a cooperative lock is honored
// before it may be stolen, so a crashed holder can't wedge the host forever
// (spec.md §9 open question: remote locking is best-effort).
const DefaultLockLeaseSeconds = 300.0

type lockMarker struct {
	PID         int     `json:"pid"`
	AcquiredAt  int64   `json:"acquired_at"`
	LeaseSeconds float64 `json:"lease_seconds"`
}

func (h *Host) lockPath() string {
	return path.Join(h.HostDir, "host_lock")
}

// LockCooperatively acquires the host's cooperative lock, returning a
// release function. Local hosts use flock(2) on a real lock file, polling
// every 100ms up to timeoutSeconds, matching the original implementation
// exactly. Remote hosts have no kernel-level advisory lock available over
// the Connector, so a marker file carrying {pid, acquired_at,
// lease_seconds} is written instead; a lock is only considered held while
// acquired_at+lease_seconds is in the future, so a crashed or
// never-released remote lock self-expires rather than wedging the host.
func (h *Host) LockCooperatively(timeoutSeconds float64, local bool) (release func() error, err error) {
	if local {
		return h.lockLocalFile(timeoutSeconds)
	}
	return h.lockRemoteMarker(timeoutSeconds)
}

func (h *Host) lockLocalFile(timeoutSeconds float64) (func() error, error) {
	lockFile := h.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockFile), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(lockFile, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if time.Since(start).Seconds() > timeoutSeconds {
			f.Close()
			return nil, &hosterrors.LockNotHeldError{HostID: string(h.ID), TimeoutSeconds: timeoutSeconds}
		}
		time.Sleep(100 * time.Millisecond)
	}

	release := func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}
	return release, nil
}

func (h *Host) lockRemoteMarker(timeoutSeconds float64) (func() error, error) {
	lockFile := h.lockPath()
	start := time.Now()

	for {
		held, err := h.remoteLockHeld(lockFile)
		if err != nil {
			return nil, err
		}
		if !held {
			break
		}
		if time.Since(start).Seconds() > timeoutSeconds {
			return nil, &hosterrors.LockNotHeldError{HostID: string(h.ID), TimeoutSeconds: timeoutSeconds}
		}
		time.Sleep(100 * time.Millisecond)
	}

	marker := lockMarker{PID: os.Getpid(), AcquiredAt: time.Now().Unix(), LeaseSeconds: DefaultLockLeaseSeconds}
	data, err := json.Marshal(marker)
	if err != nil {
		return nil, err
	}
	if err := h.Conn.PutFile(bgCtx(), lockFile, data, 0o644); err != nil {
		return nil, err
	}

	release := func() error {
		_, err := h.Conn.RunShellCommand(bgCtx(), fmt.Sprintf("rm -f %s", shQuote(lockFile)), transport.RunOptions{})
		return err
	}
	return release, nil
}

func (h *Host) remoteLockHeld(lockFile string) (bool, error) {
	data, err := h.Conn.GetFile(bgCtx(), lockFile)
	if err != nil {
		return false, nil // absent or unreadable: treat as unheld
	}
	var marker lockMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return false, nil // unparsable marker: treat as stale, allow steal
	}
	expiresAt := time.Unix(marker.AcquiredAt, 0).Add(time.Duration(marker.LeaseSeconds) * time.Second)
	return time.Now().Before(expiresAt), nil
}

// ReportedLockTime returns the lock file's mtime, or the zero time if there
// is no lock recorded.
func (h *Host) ReportedLockTime() (time.Time, error) {
	return h.ReportedActivityTimeAtPath(h.lockPath())
}

// ReportedActivityTimeAtPath is the mtime-lookup primitive shared by
// ReportedActivityTime and ReportedLockTime.
func (h *Host) ReportedActivityTimeAtPath(p string) (time.Time, error) {
	statCmd := fmt.Sprintf("stat -c %%Y %s 2>/dev/null || stat -f %%m %s 2>/dev/null", shQuote(p), shQuote(p))
	result, err := h.Conn.RunShellCommand(bgCtx(), statCmd, transport.RunOptions{})
	if err != nil {
		return time.Time{}, err
	}
	if !result.Success || result.Stdout == "" {
		return time.Time{}, nil
	}
	var unixSeconds int64
	if _, err := fmt.Sscanf(result.Stdout, "%d", &unixSeconds); err != nil {
		return time.Time{}, nil
	}
	return time.Unix(unixSeconds, 0), nil
}
