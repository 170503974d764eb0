package statestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/silexa/hostctl/internal/ids"
)

func TestLocalStoreWriteReadRoundTripsJSON(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	hostID := ids.NewHostID()
	want := &HostRecord{
		Certified: CertifiedHostData{
			HostID:            hostID,
			HostName:          "box",
			UserTags:          map[string]string{"env": "dev"},
			Snapshots:         []SnapshotRecord{{ID: ids.NewSnapshotID(), Name: "s1"}},
			GeneratedWorkDirs: []string{"/work/a", "/work/b"},
			IdleTimeoutSeconds: 42.5,
		},
		SSHHost: "10.0.0.1",
		SSHPort: 22,
	}

	if err := store.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(hostID, false)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got == nil {
		t.Fatalf("Read returned nil after Write")
	}
	if got.Certified.HostName != want.Certified.HostName {
		t.Fatalf("HostName = %q, want %q", got.Certified.HostName, want.Certified.HostName)
	}
	if got.SSHHost != want.SSHHost || got.SSHPort != want.SSHPort {
		t.Fatalf("SSH endpoint mismatch: got %+v", got)
	}
	if len(got.Certified.GeneratedWorkDirs) != 2 || got.Certified.GeneratedWorkDirs[0] != "/work/a" {
		t.Fatalf("GeneratedWorkDirs not preserved: %v", got.Certified.GeneratedWorkDirs)
	}
	if len(got.Certified.Snapshots) != 1 || got.Certified.Snapshots[0].Name != "s1" {
		t.Fatalf("Snapshots not preserved: %v", got.Certified.Snapshots)
	}
}

func TestLocalStoreReadMissingReturnsNilNil(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	got, err := store.Read(ids.NewHostID(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil record for a host never written, got %+v", got)
	}
}

// P1: Write must never leave a reader observing a half-written record.json -
// the on-disk file is always either the prior complete version or the new
// complete version, never a partial write.
func TestLocalStoreWriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	hostID := ids.NewHostID()
	record := &HostRecord{Certified: CertifiedHostData{HostID: hostID, HostName: "first"}}
	if err := store.Write(record); err != nil {
		t.Fatalf("Write: %v", err)
	}

	hostDir := filepath.Join(dir, "hosts", string(hostID))
	entries, err := os.ReadDir(hostDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			t.Fatalf("expected no leftover temp file after Write, found %q", e.Name())
		}
	}

	data, err := os.ReadFile(filepath.Join(hostDir, "record.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var onDisk HostRecord
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("record.json is not valid JSON, write was not atomic: %v", err)
	}
	if onDisk.Certified.HostName != "first" {
		t.Fatalf("unexpected on-disk content: %+v", onDisk)
	}

	record.Certified.HostName = "second"
	if err := store.Write(record); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	got, err := store.Read(hostID, false)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Certified.HostName != "second" {
		t.Fatalf("second Write did not take effect: %+v", got)
	}
}

func TestLocalStoreAgentDataRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	hostID := ids.NewHostID()
	agentID := ids.NewAgentID()
	record := AgentRecord{ID: agentID, Name: "box", Command: "bash"}

	if err := store.PersistAgentData(hostID, record); err != nil {
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

	if err := store.RemoveAgentData(hostID, agentID); err != nil {
		t.Fatalf("removing an already-absent agent record must be a no-op, got: %v", err)
	}
}

func TestLocalStoreReadUsesCacheWhenRequested(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	hostID := ids.NewHostID()
	if err := store.Write(&HostRecord{Certified: CertifiedHostData{HostID: hostID, HostName: "cached"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Corrupt the on-disk file directly; a cached Read must not notice.
	if err := os.WriteFile(store.recordPath(hostID), []byte("not json"), 0o644); err != nil {
		t.Fatalf("corrupt record.json: %v", err)
	}

	got, err := store.Read(hostID, true)
	if err != nil {
		t.Fatalf("cached Read returned an error: %v", err)
	}
	if got.Certified.HostName != "cached" {
		t.Fatalf("expected the cached record, got %+v", got)
	}

	store.ClearCache()
	if _, err := store.Read(hostID, true); err == nil {
		t.Fatalf("expected an error reading the corrupted file once the cache is cleared")
	}
}
