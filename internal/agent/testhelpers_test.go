package agent

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore"
	"github.com/silexa/hostctl/internal/transport"
)

// stepConnector scripts RunShellCommand results for the handful of distinct
// command shapes message.go/lifecycle.go issue: capture-pane and tmux
// wait-for results are each consumed from their own queue in call order (the
// last entry repeats once a queue is exhausted); every other command
// succeeds. calls records every command issued, in order.
type stepConnector struct {
	mu    sync.Mutex
	calls []string
	panes []string
	waits []bool
}

func (c *stepConnector) RunShellCommand(ctx context.Context, cmd string, opts transport.RunOptions) (transport.RunResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, cmd)

	switch {
	case strings.Contains(cmd, "capture-pane"):
		if len(c.panes) == 0 {
			return transport.RunResult{Success: true}, nil
		}
		out := c.panes[0]
		if len(c.panes) > 1 {
			c.panes = c.panes[1:]
		}
		return transport.RunResult{Success: true, Stdout: out}, nil
	case strings.Contains(cmd, "wait-for"):
		if len(c.waits) == 0 {
			return transport.RunResult{Success: true}, nil
		}
		ok := c.waits[0]
		if len(c.waits) > 1 {
			c.waits = c.waits[1:]
		}
		return transport.RunResult{Success: ok}, nil
	default:
		return transport.RunResult{Success: true}, nil
	}
}

func (c *stepConnector) GetFile(ctx context.Context, remotePath string) ([]byte, error) {
	return nil, transport.ErrFileNotFound
}

func (c *stepConnector) PutFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	return nil
}

func (c *stepConnector) Disconnect() error { return nil }

func (c *stepConnector) callCount(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if strings.Contains(call, substr) {
			n++
		}
	}
	return n
}

// noopStore is a statestore.Store that does nothing; Host.ExecuteCommand
// only ever calls ClearCache on it, which this satisfies trivially.
type noopStore struct{}

func (noopStore) Read(id ids.HostID, useCache bool) (*statestore.HostRecord, error) { return nil, nil }
func (noopStore) Write(record *statestore.HostRecord) error                        { return nil }
func (noopStore) Delete(id ids.HostID) error                                       { return nil }
func (noopStore) ListAll() ([]*statestore.HostRecord, error)                       { return nil, nil }
func (noopStore) ClearCache()                                                      {}
func (noopStore) PersistAgentData(hostID ids.HostID, record statestore.AgentRecord) error {
	return nil
}
func (noopStore) RemoveAgentData(hostID ids.HostID, agentID ids.AgentID) error { return nil }
func (noopStore) ListAgentData(hostID ids.HostID) ([]statestore.AgentRecord, error) {
	return nil, nil
}
