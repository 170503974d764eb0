package statestore

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

// fakeVolumeConnector is an in-memory transport.Connector standing in for
// the state container's shell+file surface: GetFile/PutFile address a flat
// map keyed by remote path, and RunShellCommand understands just the
// shapes DockerVolumeStore issues (mv for atomic rename, rm -f/rm -rf, and
// ls -1 for listing).
type fakeVolumeConnector struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeVolumeConnector() *fakeVolumeConnector {
	return &fakeVolumeConnector{files: make(map[string][]byte)}
}

func (c *fakeVolumeConnector) GetFile(ctx context.Context, remotePath string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.files[remotePath]
	if !ok {
		return nil, transport.ErrFileNotFound
	}
	return data, nil
}

func (c *fakeVolumeConnector) PutFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[remotePath] = append([]byte(nil), data...)
	return nil
}

func (c *fakeVolumeConnector) RunShellCommand(ctx context.Context, cmd string, opts transport.RunOptions) (transport.RunResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case strings.HasPrefix(cmd, "mv -f "):
		src, dst, ok := parseTwoQuotedArgs(cmd[len("mv -f "):])
		if !ok {
			return transport.RunResult{Success: false, Stderr: "bad mv args"}, nil
		}
		data, exists := c.files[src]
		if !exists {
			return transport.RunResult{Success: false, Stderr: "no such file: " + src}, nil
		}
		c.files[dst] = data
		delete(c.files, src)
		return transport.RunResult{Success: true}, nil

	case strings.HasPrefix(cmd, "rm -f "):
		path, ok := parseOneQuotedArg(cmd[len("rm -f "):])
		if !ok {
			return transport.RunResult{Success: false}, nil
		}
		delete(c.files, strings.TrimSuffix(path, "/*"))
		return transport.RunResult{Success: true}, nil

	case strings.HasPrefix(cmd, "rm -rf "):
		prefix, ok := parseOneQuotedArg(cmd[len("rm -rf "):])
		if !ok {
			return transport.RunResult{Success: false}, nil
		}
		for p := range c.files {
			if strings.HasPrefix(p, prefix) {
				delete(c.files, p)
			}
		}
		return transport.RunResult{Success: true}, nil

	case strings.HasPrefix(cmd, "ls -1 "):
		prefix, ok := parseOneQuotedArg(cmd[len("ls -1 "):])
		if !ok {
			return transport.RunResult{Success: false}, nil
		}
		var names []string
		for p := range c.files {
			if strings.HasPrefix(p, prefix+"/") {
				names = append(names, strings.TrimPrefix(p, prefix+"/"))
			}
		}
		return transport.RunResult{Success: true, Stdout: strings.Join(names, "\n")}, nil
	}

	return transport.RunResult{Success: true}, nil
}

func (c *fakeVolumeConnector) Disconnect() error { return nil }

// parseOneQuotedArg extracts the first %q-quoted token fmt.Sprintf produced.
func parseOneQuotedArg(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, " 2>"); i >= 0 {
		s = s[:i]
	}
	return unquote(s)
}

func parseTwoQuotedArgs(s string) (string, string, bool) {
	first, rest, ok := cutQuoted(s)
	if !ok {
		return "", "", false
	}
	second, ok := unquote(strings.TrimSpace(rest))
	if !ok {
		return "", "", false
	}
	return first, second, true
}

func cutQuoted(s string) (string, string, bool) {
	if len(s) == 0 || s[0] != '"' {
		return "", "", false
	}
	end := strings.Index(s[1:], `"`)
	if end < 0 {
		return "", "", false
	}
	return s[1 : end+1], s[end+2:], true
}

func unquote(s string) (string, bool) {
	v, _, ok := cutQuoted(s)
	return v, ok
}

func TestDockerVolumeStoreWriteReadRoundTripsJSON(t *testing.T) {
	conn := newFakeVolumeConnector()
	store, err := NewDockerVolumeStore(conn, "/state", "")
	if err != nil {
		t.Fatalf("NewDockerVolumeStore: %v", err)
	}

	hostID := ids.NewHostID()
	want := &HostRecord{Certified: CertifiedHostData{HostID: hostID, HostName: "remote-box", GeneratedWorkDirs: []string{"/w/1"}}}

	if err := store.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(hostID, false)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got == nil || got.Certified.HostName != "remote-box" {
		t.Fatalf("unexpected round trip result: %+v", got)
	}
	if len(got.Certified.GeneratedWorkDirs) != 1 || got.Certified.GeneratedWorkDirs[0] != "/w/1" {
		t.Fatalf("GeneratedWorkDirs not preserved: %v", got.Certified.GeneratedWorkDirs)
	}
}

// P1: Write stages to a temp remote path and renames into place, so a Read
// in between a real connector's PutFile and its "move" shell command would
// never observe a partially-written record.json.
func TestDockerVolumeStoreWriteIsAtomic(t *testing.T) {
	conn := newFakeVolumeConnector()
	store, err := NewDockerVolumeStore(conn, "/state", "")
	if err != nil {
		t.Fatalf("NewDockerVolumeStore: %v", err)
	}

	hostID := ids.NewHostID()
	if err := store.Write(&HostRecord{Certified: CertifiedHostData{HostID: hostID, HostName: "box"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	for p := range conn.files {
		if strings.Contains(p, ".tmp-") {
			t.Fatalf("temp staging file %q was left behind after Write renamed it into place", p)
		}
	}
	if _, ok := conn.files[store.recordPath(hostID)]; !ok {
		t.Fatalf("record.json was not written to its final path")
	}
}

func TestDockerVolumeStoreReadMissingReturnsNilNil(t *testing.T) {
	conn := newFakeVolumeConnector()
	store, err := NewDockerVolumeStore(conn, "/state", "")
	if err != nil {
		t.Fatalf("NewDockerVolumeStore: %v", err)
	}
	got, err := store.Read(ids.NewHostID(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a host never written, got %+v", got)
	}
}

func TestDockerVolumeStoreAgentDataRoundTrip(t *testing.T) {
	conn := newFakeVolumeConnector()
	store, err := NewDockerVolumeStore(conn, "/state", "")
	if err != nil {
		t.Fatalf("NewDockerVolumeStore: %v", err)
	}
	hostID := ids.NewHostID()
	agentID := ids.NewAgentID()

	if err := store.PersistAgentData(hostID, AgentRecord{ID: agentID, Name: "box"}); err != nil {
		t.Fatalf("PersistAgentData: %v", err)
	}
	list, err := store.ListAgentData(hostID)
	if err != nil {
		t.Fatalf("ListAgentData: %v", err)
	}
	if len(list) != 1 || list[0].Name != "box" {
		t.Fatalf("unexpected agent list: %+v", list)
	}

	if err := store.RemoveAgentData(hostID, agentID); err != nil {
		t.Fatalf("RemoveAgentData: %v", err)
	}
	list, err = store.ListAgentData(hostID)
	if err != nil {
		t.Fatalf("ListAgentData after remove: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no agent data after remove, got %+v", list)
	}
}

func TestDockerVolumeStoreDeleteDropsOfflineCacheToo(t *testing.T) {
	conn := newFakeVolumeConnector()
	cachePath := t.TempDir() + "/offline.db"
	store, err := NewDockerVolumeStore(conn, "/state", cachePath)
	if err != nil {
		t.Fatalf("NewDockerVolumeStore: %v", err)
	}
	hostID := ids.NewHostID()
	if err := store.offline.Put(hostID, ids.NewAgentID(), []byte(`{"name":"cached"}`)); err != nil {
		t.Fatalf("seed offline cache: %v", err)
	}

	if err := store.PersistAgentData(hostID, AgentRecord{ID: ids.NewAgentID(), Name: "box"}); err != nil {
		t.Fatalf("PersistAgentData: %v", err)
	}
	if err := store.Delete(hostID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	cached, err := store.offline.List(hostID)
	if err != nil {
		t.Fatalf("list offline cache: %v", err)
	}
	if len(cached) != 0 {
		t.Fatalf("expected Delete to drop the host's offline-cached agent data, got %d entries", len(cached))
	}
}
