package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/silexa/hostctl/internal/ids"
)

// LocalStore persists records as JSON files under a root directory:
//
//	<root>/hosts/<host_id>/record.json
//	<root>/hosts/<host_id>/agents/<agent_id>.json
//
// It is the backing store used when the control plane itself runs locally
// (no shared Docker state volume), and is what dockervolumestore lays out
// once tunneled through a Connector. Writes go through a temp file + rename
// so a crash mid-write never leaves Read observing a partial document (P1).
type LocalStore struct {
	root string

	mu    sync.RWMutex
	cache map[ids.HostID]*HostRecord
}

// NewLocalStore roots the store at dir, creating it if necessary.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "hosts"), 0o755); err != nil {
		return nil, fmt.Errorf("init local store at %s: %w", dir, err)
	}
	return &LocalStore{root: dir, cache: make(map[ids.HostID]*HostRecord)}, nil
}

func (s *LocalStore) hostDir(id ids.HostID) string {
	return filepath.Join(s.root, "hosts", string(id))
}

func (s *LocalStore) recordPath(id ids.HostID) string {
	return filepath.Join(s.hostDir(id), "record.json")
}

func (s *LocalStore) agentsDir(id ids.HostID) string {
	return filepath.Join(s.hostDir(id), "agents")
}

func (s *LocalStore) Read(id ids.HostID, useCache bool) (*HostRecord, error) {
	if useCache {
		s.mu.RLock()
		cached, ok := s.cache[id]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}
	}
	data, err := os.ReadFile(s.recordPath(id))
	if errors.Is(err, os.ErrNotExist) {
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

func (s *LocalStore) Write(record *HostRecord) error {
	id := record.Certified.HostID
	if err := os.MkdirAll(s.hostDir(id), 0o755); err != nil {
		return fmt.Errorf("write host record %s: %w", id, err)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode host record %s: %w", id, err)
	}
	if err := atomicWriteFile(s.recordPath(id), data); err != nil {
		return fmt.Errorf("write host record %s: %w", id, err)
	}
	s.mu.Lock()
	s.cache[id] = record
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) Delete(id ids.HostID) error {
	if err := os.RemoveAll(s.hostDir(id)); err != nil {
		return fmt.Errorf("delete host %s: %w", id, err)
	}
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) ListAll() ([]*HostRecord, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "hosts"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]*HostRecord, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		record, err := s.Read(ids.HostID(entry.Name()), false)
		if err != nil {
			return nil, err
		}
		if record != nil {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *LocalStore) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[ids.HostID]*HostRecord)
	s.mu.Unlock()
}

func (s *LocalStore) PersistAgentData(hostID ids.HostID, record AgentRecord) error {
	dir := s.agentsDir(hostID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(filepath.Join(dir, string(record.ID)+".json"), data)
}

func (s *LocalStore) RemoveAgentData(hostID ids.HostID, agentID ids.AgentID) error {
	err := os.Remove(filepath.Join(s.agentsDir(hostID), string(agentID)+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *LocalStore) ListAgentData(hostID ids.HostID) ([]AgentRecord, error) {
	entries, err := os.ReadDir(s.agentsDir(hostID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]AgentRecord, 0, len(entries))
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(s.agentsDir(hostID), entry.Name()))
		if err != nil {
			return nil, err
		}
		var record AgentRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("decode agent record %s: %w", entry.Name(), err)
		}
		out = append(out, record)
	}
	return out, nil
}

// atomicWriteFile writes data to a temp file in the same directory as path
// and renames it into place, so a reader never observes a partial write.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
