// Package statestore durably maps HostID -> HostRecord plus per-host
// out-of-band agent data, per spec.md §4.B.
package statestore

import (
	"time"

	"github.com/silexa/hostctl/internal/ids"
)

// SnapshotRecord is one entry in CertifiedHostData.Snapshots.
type SnapshotRecord struct {
	ID        ids.SnapshotID `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
}

// CertifiedHostData is host-scoped, control-plane-owned data (spec.md §3).
// Field order is preserved on purpose: round-tripping must not depend on
// map/slice reordering (P10).
type CertifiedHostData struct {
	HostID            ids.HostID        `json:"host_id"`
	HostName          string            `json:"host_name"`
	UserTags          map[string]string `json:"user_tags"`
	Snapshots         []SnapshotRecord  `json:"snapshots"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	IdleTimeoutSeconds float64          `json:"idle_timeout_seconds"`
	ActivitySources   []ids.ActivitySource `json:"activity_sources"`
	FailureReason     string            `json:"failure_reason,omitempty"`
	BuildLog          string            `json:"build_log,omitempty"`
	StopReason        string            `json:"stop_reason,omitempty"`
	GeneratedWorkDirs []string          `json:"generated_work_dirs"`
	TmuxSessionPrefix string            `json:"tmux_session_prefix"`
	Plugin            map[string]any    `json:"plugin"`
}

// ContainerConfig captures how the Docker provider (re)creates a container.
type ContainerConfig struct {
	StartArgs []string `json:"start_args"`
	Image     string   `json:"image"`
}

// HostRecord wraps CertifiedHostData with operational, provider-owned
// fields (spec.md §3). ssh_host/ssh_port/ssh_host_public_key are all
// present or all absent.
type HostRecord struct {
	Certified        CertifiedHostData `json:"certified"`
	SSHHost          string            `json:"ssh_host,omitempty"`
	SSHPort          int               `json:"ssh_port,omitempty"`
	SSHHostPublicKey string            `json:"ssh_host_public_key,omitempty"`
	Config           ContainerConfig   `json:"config"`
	ContainerID      string            `json:"container_id,omitempty"`
}

// HasSSHEndpoint reports whether the record has a connectable SSH endpoint;
// per the §3 invariant, the three SSH fields are all present or all absent.
func (r *HostRecord) HasSSHEndpoint() bool {
	return r.SSHHost != "" && r.SSHPort != 0 && r.SSHHostPublicKey != ""
}

// NamedCommand is one entry of AgentRecord.AdditionalCommands.
type NamedCommand struct {
	Command    string `json:"command"`
	WindowName string `json:"window_name"`
}

// AgentRecord is persisted through a Store at
// <root>/hosts/<host_id>/agents/<agent_id>.json; no data.json file is
// written inside a per-agent directory.
type AgentRecord struct {
	ID                  ids.AgentID    `json:"id"`
	Name                string         `json:"name"`
	Type                string         `json:"type"`
	WorkDir             string         `json:"work_dir"`
	CreateTime          time.Time      `json:"create_time"`
	Command             string         `json:"command"`
	AdditionalCommands  []NamedCommand `json:"additional_commands"`
	InitialMessage      string         `json:"initial_message,omitempty"`
	ResumeMessage       string         `json:"resume_message,omitempty"`
	MessageDelaySeconds float64        `json:"message_delay_seconds"`
	Permissions         []string       `json:"permissions"`
	StartOnBoot         bool           `json:"start_on_boot"`
	Plugin              map[string]any `json:"plugin"`
}
