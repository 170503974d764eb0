// Package hostd implements the Host object: the filesystem/exec surface and
// lifecycle operations layered on top of a transport.Connector, per
// spec.md §4.D.
package hostd

import (
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/silexa/hostctl/internal/hosterrors"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore"
	"github.com/silexa/hostctl/internal/transport"
)

// EnvPrefix namespaces core-injected agent environment variables
// (<PREFIX>_HOST_DIR, <PREFIX>_AGENT_ID, ...).
const EnvPrefix = "HOSTCTL"

// Host wraps a Connector plus the host's durable record. All path-bearing
// operations are relative to HostDir, the host-scoped state directory
// (local filesystem root for local hosts, a remote path for remote ones).
type Host struct {
	ID      ids.HostID
	HostDir string
	Prefix  string // tmux session name prefix, e.g. "hostctl-"

	Conn  transport.Connector
	Store statestore.Store
	Log   *slog.Logger

	mu sync.Mutex
}

// New constructs a Host bound to an already-connected Connector.
func New(id ids.HostID, hostDir, prefix string, conn transport.Connector, store statestore.Store, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{ID: id, HostDir: hostDir, Prefix: prefix, Conn: conn, Store: store, Log: log}
}

func (h *Host) agentStateDir(agentID ids.AgentID) string {
	return path.Join(h.HostDir, "agents", string(agentID))
}

func (h *Host) agentEnvPath(agentID ids.AgentID) string {
	return path.Join(h.agentStateDir(agentID), "env")
}

func (h *Host) hostEnvPath() string {
	return path.Join(h.HostDir, "env")
}

func (h *Host) sessionName(agentName string) string {
	return h.Prefix + agentName
}

// RecordActivity writes an activity marker file whose mtime is the
// authoritative timestamp (spec.md §4.D, §4.I); the JSON body is for
// debugging only.
func (h *Host) RecordActivity(scope string, source ids.ActivitySource, payload map[string]any) error {
	dir := h.HostDir
	if scope != "" {
		dir = path.Join(h.HostDir, "agents", scope)
	}
	activityPath := path.Join(dir, "activity", string(source))
	payload["time"] = time.Now().UnixMilli()
	return h.writeJSONFile(activityPath, payload)
}

func (h *Host) writeJSONFile(p string, payload map[string]any) error {
	data, err := jsonMarshalIndent(payload)
	if err != nil {
		return fmt.Errorf("encode activity payload: %w", err)
	}
	result, err := h.Conn.RunShellCommand(bgCtx(), fmt.Sprintf("mkdir -p %s", shQuote(path.Dir(p))), transport.RunOptions{})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("mkdir %s: %s", p, result.Stderr)
	}
	return h.Conn.PutFile(bgCtx(), p, data, 0o644)
}

// ReportedActivityTime returns the mtime of an activity file, or the zero
// time if it has never been recorded.
func (h *Host) ReportedActivityTime(scope string, source ids.ActivitySource) (time.Time, error) {
	dir := h.HostDir
	if scope != "" {
		dir = path.Join(h.HostDir, "agents", scope)
	}
	return h.ReportedActivityTimeAtPath(path.Join(dir, "activity", string(source)))
}

// ExecuteCommand is the general-purpose command runner used by callers
// outside the lifecycle-specific helpers below.
func (h *Host) ExecuteCommand(cmd string, opts transport.RunOptions) (transport.RunResult, error) {
	result, err := h.Conn.RunShellCommand(bgCtx(), cmd, opts)
	if err != nil && transport.IsConnectionError(err) {
		h.Store.ClearCache()
	}
	return result, err
}

func (h *Host) notFound(ref string) error {
	return &hosterrors.AgentNotFoundError{Ref: ref, HostID: string(h.ID)}
}
