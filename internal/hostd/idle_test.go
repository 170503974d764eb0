package hostd

import (
	"context"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore"
	"github.com/silexa/hostctl/internal/transport"
)

type fakeConnector struct {
	statTimes map[string]int64 // path -> unix seconds
}

func (c *fakeConnector) RunShellCommand(ctx context.Context, cmd string, opts transport.RunOptions) (transport.RunResult, error) {
	for path, t := range c.statTimes {
		if strings.Contains(cmd, path) {
			return transport.RunResult{Success: true, Stdout: itoa(t)}, nil
		}
	}
	return transport.RunResult{Success: false}, nil
}

func (c *fakeConnector) GetFile(ctx context.Context, remotePath string) ([]byte, error) {
	return nil, transport.ErrFileNotFound
}

func (c *fakeConnector) PutFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	return nil
}

func (c *fakeConnector) Disconnect() error { return nil }

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

type fakeStore struct {
	agents []statestore.AgentRecord
}

func (s *fakeStore) Read(id ids.HostID, useCache bool) (*statestore.HostRecord, error) { return nil, nil }
func (s *fakeStore) Write(record *statestore.HostRecord) error                         { return nil }
func (s *fakeStore) Delete(id ids.HostID) error                                        { return nil }
func (s *fakeStore) ListAll() ([]*statestore.HostRecord, error)                        { return nil, nil }
func (s *fakeStore) ClearCache()                                                       {}
func (s *fakeStore) PersistAgentData(hostID ids.HostID, record statestore.AgentRecord) error {
	return nil
}
func (s *fakeStore) RemoveAgentData(hostID ids.HostID, agentID ids.AgentID) error { return nil }
func (s *fakeStore) ListAgentData(hostID ids.HostID) ([]statestore.AgentRecord, error) {
	return s.agents, nil
}

func TestGetIdleSecondsNoActivityIsInfinite(t *testing.T) {
	conn := &fakeConnector{}
	store := &fakeStore{}
	h := New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", conn, store, nil)

	idle, err := h.GetIdleSeconds()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsInf(idle, 1) {
		t.Fatalf("expected +Inf, got %v", idle)
	}
}

func TestGetIdleSecondsUsesLatestAcrossHostAndAgents(t *testing.T) {
	now := int64(1_700_000_000)
	agentID := ids.NewAgentID()
	conn := &fakeConnector{statTimes: map[string]int64{
		"activity/boot":                                now - 500,
		"agents/" + string(agentID) + "/activity/user": now - 10,
	}}
	store := &fakeStore{agents: []statestore.AgentRecord{{ID: agentID}}}
	h := New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", conn, store, nil)

	idle, err := h.GetIdleSeconds()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idle < 0 || idle > 1e9 {
		t.Fatalf("unexpected idle seconds: %v", idle)
	}
	// The agent's activity (now-10) is 490s newer than the host's boot
	// (now-500), so idle time must be measured from the agent's file.
	if bootAge := time.Since(time.Unix(now-500, 0)).Seconds(); idle > bootAge-480 {
		t.Fatalf("idle %v was not measured from the latest (agent) activity; boot age is %v", idle, bootAge)
	}
}
