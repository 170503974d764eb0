package main

import (
	"context"
	"time"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/provider"
	"github.com/silexa/hostctl/internal/statestore"
	"github.com/silexa/hostctl/internal/transport"
)

// fakeProvider is the same shape as internal/listing's test double, plus a
// Store() method so it also satisfies storeHolder.
type fakeProvider struct {
	name  string
	host  *statestore.HostRecord
	hosts []*statestore.HostRecord
	store statestore.Store
	err   error
}

func (f *fakeProvider) Name() string                       { return f.name }
func (f *fakeProvider) Capabilities() provider.Capabilities { return provider.Capabilities{} }
func (f *fakeProvider) Store() statestore.Store             { return f.store }

func (f *fakeProvider) CreateHost(ctx context.Context, opts provider.CreateHostOptions) (*statestore.HostRecord, error) {
	panic("not used")
}
func (f *fakeProvider) StopHost(ctx context.Context, id ids.HostID, createSnapshot bool, timeout time.Duration) error {
	return f.err
}
func (f *fakeProvider) StartHost(ctx context.Context, id ids.HostID, snapshotID ids.SnapshotID) (*statestore.HostRecord, error) {
	return f.host, f.err
}
func (f *fakeProvider) DestroyHost(ctx context.Context, id ids.HostID, deleteSnapshots bool) error {
	return f.err
}
func (f *fakeProvider) GetHost(ctx context.Context, idOrName string) (*statestore.HostRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.host, nil
}
func (f *fakeProvider) ListHosts(ctx context.Context, includeDestroyed bool) ([]*statestore.HostRecord, error) {
	return f.hosts, f.err
}
func (f *fakeProvider) GetHostResources(ctx context.Context, id ids.HostID) (provider.HostResources, error) {
	panic("not used")
}
func (f *fakeProvider) CreateSnapshot(ctx context.Context, id ids.HostID, name string) (ids.SnapshotID, error) {
	panic("not used")
}
func (f *fakeProvider) ListSnapshots(ctx context.Context, id ids.HostID) ([]statestore.SnapshotRecord, error) {
	panic("not used")
}
func (f *fakeProvider) DeleteSnapshot(ctx context.Context, id ids.HostID, snapshotID ids.SnapshotID) error {
	panic("not used")
}
func (f *fakeProvider) ListVolumes(ctx context.Context) ([]ids.VolumeID, error) { panic("not used") }
func (f *fakeProvider) DeleteVolume(ctx context.Context, volID ids.VolumeID) error {
	panic("not used")
}
func (f *fakeProvider) GetVolumeForHost(ctx context.Context, id ids.HostID) (ids.VolumeID, error) {
	panic("not used")
}
func (f *fakeProvider) GetTags(ctx context.Context, id ids.HostID) (map[string]string, error) {
	panic("not used")
}
func (f *fakeProvider) SetTags(ctx context.Context, id ids.HostID, tags map[string]string) error {
	panic("not used")
}
func (f *fakeProvider) AddTags(ctx context.Context, id ids.HostID, tags map[string]string) error {
	panic("not used")
}
func (f *fakeProvider) RemoveTags(ctx context.Context, id ids.HostID, keys []string) error {
	panic("not used")
}
func (f *fakeProvider) RenameHost(ctx context.Context, id ids.HostID, newName string) error {
	panic("not used")
}
func (f *fakeProvider) GetConnector(ctx context.Context, id ids.HostID) (transport.Connector, error) {
	panic("not used")
}
func (f *fakeProvider) PersistAgentData(ctx context.Context, hostID ids.HostID, record statestore.AgentRecord) error {
	panic("not used")
}
func (f *fakeProvider) RemovePersistedAgentData(ctx context.Context, hostID ids.HostID, agentID ids.AgentID) error {
	panic("not used")
}
func (f *fakeProvider) ListPersistedAgentData(ctx context.Context, hostID ids.HostID) ([]statestore.AgentRecord, error) {
	panic("not used")
}
func (f *fakeProvider) OnConnectionError(id ids.HostID) {}
