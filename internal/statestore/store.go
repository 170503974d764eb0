package statestore

import "github.com/silexa/hostctl/internal/ids"

// Store durably maps HostID -> HostRecord, plus per-host out-of-band agent
// data used when a host is offline but an agent record must persist
// (spec.md §4.B). Every read returning (nil, nil) is nonfatal; writes
// propagate the underlying I/O failure. Implementations are write-through:
// Write/Delete update both the backing store and any in-process cache.
type Store interface {
	// Read returns the record for id, or nil if absent. When useCache is
	// true, a cached copy may be served; otherwise the backing store is
	// consulted and the cache repopulated.
	Read(id ids.HostID, useCache bool) (*HostRecord, error)

	// Write atomically replaces the record for id. Implementations MUST
	// write to a temporary name and rename into place so that partial
	// writes are never observed by a concurrent Read (P1).
	Write(record *HostRecord) error

	// Delete removes the record and all per-host agent data.
	Delete(id ids.HostID) error

	// ListAll returns all records; ordering is unspecified.
	ListAll() ([]*HostRecord, error)

	// ClearCache drops the in-process cache. Callers invoke this after any
	// connection error to avoid serving stale SSH endpoints.
	ClearCache()

	// PersistAgentData stores an agent record for offline-host resume.
	PersistAgentData(hostID ids.HostID, record AgentRecord) error

	// RemoveAgentData removes a previously persisted agent record.
	RemoveAgentData(hostID ids.HostID, agentID ids.AgentID) error

	// ListAgentData lists all persisted agent records for a host.
	ListAgentData(hostID ids.HostID) ([]AgentRecord, error)
}
