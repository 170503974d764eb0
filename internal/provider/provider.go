// Package provider defines the Provider interface (spec.md §4.E): the
// abstraction a concrete backend (Docker, and in principle others) must
// satisfy to create, discover, and tear down hosts.
package provider

import (
	"context"
	"time"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore"
	"github.com/silexa/hostctl/internal/transport"
)

// Capabilities are queried by callers that need to branch on what a
// provider can do rather than hardcoding per-provider behavior.
type Capabilities struct {
	SupportsSnapshots    bool
	SupportsShutdownHost bool
	SupportsVolumes      bool
	SupportsMutableTags  bool
}

// CPUResources/HostResources mirror GetHostResources' shape (spec.md §4.E).
type CPUResources struct {
	Count   int
	FreqGHz float64 // 0 means unknown
}

type HostResources struct {
	CPU      CPUResources
	MemoryGB float64
	DiskGB   float64 // 0 means unknown
	GPU      string  // empty means none/unknown
}

// CreateHostOptions mirrors CreateHost's parameters.
type CreateHostOptions struct {
	Name       string
	Image      string // empty means "build from built-in Dockerfile"
	Tags       map[string]string
	BuildArgs  map[string]string
	StartArgs  []string
	KnownHosts string // path to a known_hosts file to seed for outbound SSH
	SnapshotID ids.SnapshotID
}

// Provider is the backend abstraction of spec.md §4.E.
type Provider interface {
	Name() string
	Capabilities() Capabilities

	CreateHost(ctx context.Context, opts CreateHostOptions) (*statestore.HostRecord, error)
	StopHost(ctx context.Context, id ids.HostID, createSnapshot bool, timeout time.Duration) error
	StartHost(ctx context.Context, id ids.HostID, snapshotID ids.SnapshotID) (*statestore.HostRecord, error)
	DestroyHost(ctx context.Context, id ids.HostID, deleteSnapshots bool) error

	GetHost(ctx context.Context, idOrName string) (*statestore.HostRecord, error)
	ListHosts(ctx context.Context, includeDestroyed bool) ([]*statestore.HostRecord, error)
	GetHostResources(ctx context.Context, id ids.HostID) (HostResources, error)

	CreateSnapshot(ctx context.Context, id ids.HostID, name string) (ids.SnapshotID, error)
	ListSnapshots(ctx context.Context, id ids.HostID) ([]statestore.SnapshotRecord, error)
	DeleteSnapshot(ctx context.Context, id ids.HostID, snapshotID ids.SnapshotID) error

	ListVolumes(ctx context.Context) ([]ids.VolumeID, error)
	DeleteVolume(ctx context.Context, volID ids.VolumeID) error
	GetVolumeForHost(ctx context.Context, id ids.HostID) (ids.VolumeID, error)

	GetTags(ctx context.Context, id ids.HostID) (map[string]string, error)
	SetTags(ctx context.Context, id ids.HostID, tags map[string]string) error
	AddTags(ctx context.Context, id ids.HostID, tags map[string]string) error
	RemoveTags(ctx context.Context, id ids.HostID, keys []string) error

	RenameHost(ctx context.Context, id ids.HostID, newName string) error

	GetConnector(ctx context.Context, id ids.HostID) (transport.Connector, error)

	PersistAgentData(ctx context.Context, hostID ids.HostID, record statestore.AgentRecord) error
	RemovePersistedAgentData(ctx context.Context, hostID ids.HostID, agentID ids.AgentID) error
	ListPersistedAgentData(ctx context.Context, hostID ids.HostID) ([]statestore.AgentRecord, error)

	// OnConnectionError is invoked by the Host wrapper whenever a Connector
	// call surfaces a connection error, so the provider can drop any cached
	// endpoint info (e.g. a stale SSH host/port) for id.
	OnConnectionError(id ids.HostID)
}

// ErrTagsImmutable is returned by SetTags/AddTags/RemoveTags for providers
// whose Capabilities().SupportsMutableTags is false.
var ErrTagsImmutable = immutableTagsError{}

type immutableTagsError struct{}

func (immutableTagsError) Error() string { return "tags are immutable for this provider" }
