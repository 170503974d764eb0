// Package offlinecache persists per-host agent data to a local SQLite file
// so a record write survives even when the backing Store's own transport
// (e.g. the Docker state container) can't be reached, and can be read back
// while it stays unreachable (spec.md §4.B, §6). It is a side cache only:
// the Store implementations remain the source of truth once reachable.
//
// Put and List exchange already-encoded record bytes rather than a
// statestore type directly, so this package has no dependency on
// internal/statestore — it's internal/statestore that imports this one.
package offlinecache

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/silexa/hostctl/internal/ids"
)

// Cache wraps a SQLite database keyed by (host_id, agent_id).
type Cache struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite file at path, in WAL mode with
// a busy timeout so concurrent hostctl invocations don't hit SQLITE_BUSY.
func Open(path string) (*Cache, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open offline cache %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping offline cache %s: %w", path, err)
	}
	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate offline cache %s: %w", path, err)
	}
	return c, nil
}

func (c *Cache) migrate() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS agent_records (
		host_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		content TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (host_id, agent_id)
	);`)
	return err
}

// Close closes the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put upserts a host's encoded agent record into the cache.
func (c *Cache) Put(hostID ids.HostID, agentID ids.AgentID, data []byte) error {
	_, err := c.db.Exec(
		`INSERT INTO agent_records (host_id, agent_id, content, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(host_id, agent_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		string(hostID), string(agentID), string(data), time.Now(),
	)
	return err
}

// Remove deletes a cached agent record.
func (c *Cache) Remove(hostID ids.HostID, agentID ids.AgentID) error {
	_, err := c.db.Exec(`DELETE FROM agent_records WHERE host_id = ? AND agent_id = ?`, string(hostID), string(agentID))
	return err
}

// List returns the encoded content of every cached agent record for a host,
// in no particular order.
func (c *Cache) List(hostID ids.HostID) ([][]byte, error) {
	rows, err := c.db.Query(`SELECT content FROM agent_records WHERE host_id = ?`, string(hostID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([][]byte, 0)
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		out = append(out, []byte(content))
	}
	return out, rows.Err()
}

// DropHost removes every cached record for a host; DockerVolumeStore.Delete
// calls it when the host is deleted.
func (c *Cache) DropHost(hostID ids.HostID) error {
	_, err := c.db.Exec(`DELETE FROM agent_records WHERE host_id = ?`, string(hostID))
	return err
}
