package agent

import (
	"errors"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/silexa/hostctl/internal/transport"
)

// WaitForReadySignal runs startAction, then waits for the agent type's
// readiness condition - a sentinel file created by a startup hook
// installed during Provision - before returning, so message injection
// never races an unready UI (spec.md §4.F). A Type with no
// ReadySignalRelPath is ready as soon as startAction returns.
func (a *Agent) WaitForReadySignal(isCreating bool, startAction func() error) error {
	if err := startAction(); err != nil {
		return err
	}
	if a.Type == nil || a.Type.ReadySignalRelPath == "" {
		return nil
	}

	path := a.stateDir() + "/" + a.Type.ReadySignalRelPath
	timeout := a.Type.readySignalTimeout()

	if local, ok := a.Host.Conn.(*transport.Local); ok {
		return waitForLocalFile(local, path, timeout)
	}
	return a.pollForFile(path, timeout)
}

// waitForLocalFile uses fsnotify to watch the sentinel's parent directory
// rather than busy-polling, since a local Host gives us a real inotify
// surface; it still falls back to an initial stat in case the file was
// already written before the watch was installed.
func waitForLocalFile(local *transport.Local, path string, timeout time.Duration) error {
	if _, err := local.GetFile(bgCtx(), path); err == nil {
		return nil
	}

	dir := parentDir(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pollForFileDirect(local, path, timeout)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return pollForFileDirect(local, path, timeout)
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errTimeout(path)
		}
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return errTimeout(path)
			}
			if event.Name == path {
				if _, err := local.GetFile(bgCtx(), path); err == nil {
					return nil
				}
			}
		case <-time.After(remaining):
			return errTimeout(path)
		}
	}
}

func pollForFileDirect(local *transport.Local, path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := local.GetFile(bgCtx(), path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return errTimeout(path)
		}
		time.Sleep(sendMessagePollInterval)
	}
}

func (a *Agent) pollForFile(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := a.Host.Conn.GetFile(bgCtx(), path); err == nil {
			return nil
		} else if !errors.Is(err, transport.ErrFileNotFound) {
			return err
		}
		if time.Now().After(deadline) {
			return errTimeout(path)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func errTimeout(path string) error {
	return &timeoutError{path: path}
}

type timeoutError struct{ path string }

func (e *timeoutError) Error() string {
	return "timed out waiting for ready signal at " + e.path
}

func parentDir(path string) string {
	idx := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "."
	}
	return path[:idx]
}
