package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore/offlinecache"
	"github.com/silexa/hostctl/internal/transport"
)

// DockerVolumeStore persists records through a Connector attached to the
// singleton "state container" that keeps the shared Docker named volume
// mounted (spec.md §4.B, §4.E, §6):
//
//	<mount>/hosts/<host_id>/record.json
//	<mount>/hosts/<host_id>/agents/<agent_id>.json
//
// Agent data additionally falls back to a local offlinecache.Cache when the
// state container's transport is unreachable, so agent data written while a
// host is offline survives and is served by ListAgentData while the state
// container stays unreachable. Cached entries are not copied back to the
// volume once it is reachable again.
type DockerVolumeStore struct {
	conn      transport.Connector
	mountRoot string
	offline   *offlinecache.Cache

	mu    sync.RWMutex
	cache map[ids.HostID]*HostRecord
}

// NewDockerVolumeStore wires a store against a connector already attached
// to the state container, rooted at mountRoot (e.g. "/state"). If cachePath
// is non-empty, a local SQLite offline cache is opened at that path to back
// agent data writes made while the state container is unreachable; an empty
// cachePath disables the fallback.
func NewDockerVolumeStore(conn transport.Connector, mountRoot string, cachePath string) (*DockerVolumeStore, error) {
	s := &DockerVolumeStore{conn: conn, mountRoot: mountRoot, cache: make(map[ids.HostID]*HostRecord)}
	if cachePath != "" {
		offline, err := offlinecache.Open(cachePath)
		if err != nil {
			return nil, fmt.Errorf("open offline cache: %w", err)
		}
		s.offline = offline
	}
	return s, nil
}

func (s *DockerVolumeStore) hostDir(id ids.HostID) string {
	return path.Join(s.mountRoot, "hosts", string(id))
}

func (s *DockerVolumeStore) recordPath(id ids.HostID) string {
	return path.Join(s.hostDir(id), "record.json")
}

func (s *DockerVolumeStore) agentsDir(id ids.HostID) string {
	return path.Join(s.hostDir(id), "agents")
}

func (s *DockerVolumeStore) Read(id ids.HostID, useCache bool) (*HostRecord, error) {
	if useCache {
		s.mu.RLock()
		cached, ok := s.cache[id]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), transport.DefaultTimeout)
	defer cancel()
	data, err := s.conn.GetFile(ctx, s.recordPath(id))
	if errors.Is(err, transport.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read host record %s: %w", id, err)
	}
	var record HostRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode host record %s: %w", id, err)
	}
	s.mu.Lock()
	s.cache[id] = &record
	s.mu.Unlock()
	return &record, nil
}

func (s *DockerVolumeStore) Write(record *HostRecord) error {
	id := record.Certified.HostID
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode host record %s: %w", id, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), transport.DefaultTimeout)
	defer cancel()
	// PutFile writes to a staging name server-side is not guaranteed by the
	// Connector contract, so we write to a temp remote path and rename via a
	// shell command to preserve the P1 atomicity guarantee over the wire.
	tmpPath := s.recordPath(id) + fmt.Sprintf(".tmp-%d", time.Now().UnixNano())
	if err := s.conn.PutFile(ctx, tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write host record %s: %w", id, err)
	}
	mv := fmt.Sprintf("mv -f %q %q", tmpPath, s.recordPath(id))
	result, err := s.conn.RunShellCommand(ctx, mv, transport.RunOptions{})
	if err != nil {
		return fmt.Errorf("rename host record %s: %w", id, err)
	}
	if !result.Success {
		return fmt.Errorf("rename host record %s: %s", id, result.Stderr)
	}
	s.mu.Lock()
	s.cache[id] = record
	s.mu.Unlock()
	return nil
}

func (s *DockerVolumeStore) Delete(id ids.HostID) error {
	ctx, cancel := context.WithTimeout(context.Background(), transport.DefaultTimeout)
	defer cancel()
	result, err := s.conn.RunShellCommand(ctx, fmt.Sprintf("rm -rf %q", s.hostDir(id)), transport.RunOptions{})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("delete host %s: %s", id, result.Stderr)
	}
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
	if s.offline != nil {
		_ = s.offline.DropHost(id)
	}
	return nil
}

func (s *DockerVolumeStore) ListAll() ([]*HostRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), transport.DefaultTimeout)
	defer cancel()
	result, err := s.conn.RunShellCommand(ctx, fmt.Sprintf("ls -1 %q 2>/dev/null || true", path.Join(s.mountRoot, "hosts")), transport.RunOptions{})
	if err != nil {
		return nil, err
	}
	var out []*HostRecord
	for _, name := range splitLines(result.Stdout) {
		record, err := s.Read(ids.HostID(name), false)
		if err != nil {
			return nil, err
		}
		if record != nil {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *DockerVolumeStore) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[ids.HostID]*HostRecord)
	s.mu.Unlock()
}

func (s *DockerVolumeStore) PersistAgentData(hostID ids.HostID, record AgentRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), transport.DefaultTimeout)
	defer cancel()
	putErr := s.conn.PutFile(ctx, path.Join(s.agentsDir(hostID), string(record.ID)+".json"), data, 0o644)
	if putErr == nil {
		return nil
	}
	if s.offline == nil || !transport.IsConnectionError(putErr) {
		return putErr
	}
	if err := s.offline.Put(hostID, record.ID, data); err != nil {
		return fmt.Errorf("write agent record %s to offline cache after connector error (%v): %w", record.ID, putErr, err)
	}
	return nil
}

func (s *DockerVolumeStore) RemoveAgentData(hostID ids.HostID, agentID ids.AgentID) error {
	ctx, cancel := context.WithTimeout(context.Background(), transport.DefaultTimeout)
	defer cancel()
	_, err := s.conn.RunShellCommand(ctx, fmt.Sprintf("rm -f %q", path.Join(s.agentsDir(hostID), string(agentID)+".json")), transport.RunOptions{})
	if s.offline != nil {
		// Best effort: the remote remove is authoritative; the cache entry is
		// just cleaned up so it doesn't resurface on a later ListAgentData.
		_ = s.offline.Remove(hostID, agentID)
	}
	return err
}

func (s *DockerVolumeStore) ListAgentData(hostID ids.HostID) ([]AgentRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), transport.DefaultTimeout)
	defer cancel()
	result, err := s.conn.RunShellCommand(ctx, fmt.Sprintf("ls -1 %q 2>/dev/null || true", s.agentsDir(hostID)), transport.RunOptions{})
	if err != nil {
		if s.offline != nil && transport.IsConnectionError(err) {
			return s.listAgentDataFromOfflineCache(hostID)
		}
		return nil, err
	}
	out := make([]AgentRecord, 0)
	for _, name := range splitLines(result.Stdout) {
		data, err := s.conn.GetFile(ctx, path.Join(s.agentsDir(hostID), name))
		if err != nil {
			if s.offline != nil && transport.IsConnectionError(err) {
				return s.listAgentDataFromOfflineCache(hostID)
			}
			return nil, err
		}
		var record AgentRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("decode agent record %s: %w", name, err)
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *DockerVolumeStore) listAgentDataFromOfflineCache(hostID ids.HostID) ([]AgentRecord, error) {
	entries, err := s.offline.List(hostID)
	if err != nil {
		return nil, fmt.Errorf("list offline-cached agent data for host %s: %w", hostID, err)
	}
	out := make([]AgentRecord, 0, len(entries))
	for _, data := range entries {
		var record AgentRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("decode offline-cached agent record: %w", err)
		}
		out = append(out, record)
	}
	return out, nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if line := s[start:i]; line != "" {
				out = append(out, line)
			}
			start = i + 1
		}
	}
	if rest := s[start:]; rest != "" {
		out = append(out, rest)
	}
	return out
}
