package hostd

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

// stopConnector records every command issued, in order, and answers
// list-panes/pgrep with a fixed single-PID process tree so StopAgents has
// something to SIGTERM/SIGKILL.
type stopConnector struct {
	mu    sync.Mutex
	calls []string
}

func (c *stopConnector) RunShellCommand(ctx context.Context, cmd string, opts transport.RunOptions) (transport.RunResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, cmd)
	c.mu.Unlock()

	switch {
	case strings.Contains(cmd, "list-panes"):
		return transport.RunResult{Success: true, Stdout: "100\n"}, nil
	case strings.Contains(cmd, "pgrep"):
		return transport.RunResult{Success: true, Stdout: ""}, nil
	}
	return transport.RunResult{Success: true}, nil
}

func (c *stopConnector) GetFile(ctx context.Context, remotePath string) ([]byte, error) {
	return nil, transport.ErrFileNotFound
}

func (c *stopConnector) PutFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	return nil
}

func (c *stopConnector) Disconnect() error { return nil }

func (c *stopConnector) callsSnapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// P4: every pane's process tree must be SIGTERMed before any SIGKILL is
// sent - StopAgents must never skip straight to a hard kill.
func TestStopAgentsSendsTermBeforeKill(t *testing.T) {
	conn := &stopConnector{}
	store := &fakeStore{}
	h := New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", conn, store, nil)

	agent := StartableAgent{ID: ids.NewAgentID(), Name: "box"}
	if err := h.StopAgents([]StartableAgent{agent}, 5*time.Second); err != nil {
		t.Fatalf("StopAgents: %v", err)
	}

	var killCmd string
	for _, c := range conn.callsSnapshot() {
		if strings.Contains(c, "kill -TERM") || strings.Contains(c, "kill -KILL") {
			killCmd = c
			break
		}
	}
	if killCmd == "" {
		t.Fatalf("expected a kill command among calls: %v", conn.callsSnapshot())
	}
	termIdx := strings.Index(killCmd, "kill -TERM")
	killIdx := strings.Index(killCmd, "kill -KILL")
	if termIdx < 0 || killIdx < 0 {
		t.Fatalf("expected both a TERM and a KILL in the same script, got %q", killCmd)
	}
	if termIdx > killIdx {
		t.Fatalf("expected kill -TERM to appear before kill -KILL, got %q", killCmd)
	}
}

func TestStopAgentsKillsTheTmuxSessionAfterTheProcessTree(t *testing.T) {
	conn := &stopConnector{}
	store := &fakeStore{}
	h := New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", conn, store, nil)

	agent := StartableAgent{ID: ids.NewAgentID(), Name: "box"}
	if err := h.StopAgents([]StartableAgent{agent}, 5*time.Second); err != nil {
		t.Fatalf("StopAgents: %v", err)
	}

	calls := conn.callsSnapshot()
	killProcessIdx, killSessionIdx := -1, -1
	for i, c := range calls {
		if strings.Contains(c, "kill -TERM") {
			killProcessIdx = i
		}
		if strings.Contains(c, "tmux kill-session") {
			killSessionIdx = i
		}
	}
	if killProcessIdx == -1 || killSessionIdx == -1 {
		t.Fatalf("expected both a process kill and a tmux kill-session call, got %v", calls)
	}
	if killSessionIdx < killProcessIdx {
		t.Fatalf("expected tmux kill-session to run after the process tree is killed, calls: %v", calls)
	}
}

func TestStopAgentsSkipsKillScriptWhenNoPIDsFound(t *testing.T) {
	conn := &stopConnector{}
	store := &fakeStore{}
	h := New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", conn, store, nil)

	// Override list-panes to report no panes at all.
	conn2 := &stopConnector{}
	h.Conn = &emptyPanesConnector{inner: conn2}

	agent := StartableAgent{ID: ids.NewAgentID(), Name: "box"}
	if err := h.StopAgents([]StartableAgent{agent}, 5*time.Second); err != nil {
		t.Fatalf("StopAgents: %v", err)
	}
	for _, c := range conn2.callsSnapshot() {
		if strings.Contains(c, "kill -TERM") || strings.Contains(c, "kill -KILL") {
			t.Fatalf("did not expect any kill command when no PIDs were found, got %q", c)
		}
	}
}

type emptyPanesConnector struct {
	inner *stopConnector
}

func (c *emptyPanesConnector) RunShellCommand(ctx context.Context, cmd string, opts transport.RunOptions) (transport.RunResult, error) {
	c.inner.mu.Lock()
	c.inner.calls = append(c.inner.calls, cmd)
	c.inner.mu.Unlock()
	if strings.Contains(cmd, "list-panes") {
		return transport.RunResult{Success: true, Stdout: ""}, nil
	}
	return transport.RunResult{Success: true}, nil
}

func (c *emptyPanesConnector) GetFile(ctx context.Context, remotePath string) ([]byte, error) {
	return nil, transport.ErrFileNotFound
}

func (c *emptyPanesConnector) PutFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	return nil
}

func (c *emptyPanesConnector) Disconnect() error { return nil }
