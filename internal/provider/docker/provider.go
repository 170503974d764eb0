package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	dockernetwork "github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	"golang.org/x/crypto/ssh"

	"github.com/silexa/hostctl/internal/hosterrors"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/provider"
	"github.com/silexa/hostctl/internal/statestore"
	"github.com/silexa/hostctl/internal/transport"
)

// Config wires the Docker provider to its environment: the shared network
// and state volume it manages, the client keypair used for outbound SSH
// into every host container, and where to record container host keys.
type Config struct {
	Prefix          string // label/env prefix, defaults to "hostctl"
	NetworkName     string // defaults to "<prefix>-net"
	StateVolumeName string // defaults to "<prefix>-state"
	MountPath       string // container path the state volume is mounted at, defaults to "/var/lib/<prefix>/state"
	DaemonHost      string // address the control plane dials to reach published ports, defaults to "127.0.0.1"

	ClientSigner    ssh.Signer // authenticates the provider to every host container
	ClientPublicKey string     // authorized_keys line matching ClientSigner
	HostKnownHosts  string     // known_hosts file recording each container's host key

	// OfflineCachePath is a local disk path for a SQLite cache backing agent
	// data writes made while the state container is unreachable. Empty
	// disables the fallback.
	OfflineCachePath string

	Log *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Prefix == "" {
		c.Prefix = "hostctl"
	}
	if c.NetworkName == "" {
		c.NetworkName = c.Prefix + "-net"
	}
	if c.StateVolumeName == "" {
		c.StateVolumeName = c.Prefix + "-state"
	}
	if c.MountPath == "" {
		c.MountPath = "/var/lib/" + c.Prefix + "/state"
	}
	if c.DaemonHost == "" {
		c.DaemonHost = "127.0.0.1"
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
}

// Provider implements provider.Provider on top of the Docker Engine,
// grounded on agents/shared/docker's client wrapper and container-core mount
// conventions (spec.md §4.E).
type Provider struct {
	cli    *dockerClient
	cfg    Config
	labels labelKeys
	store  statestore.Store

	stateContainerID string

	mu         sync.Mutex
	connectors map[ids.HostID]*transport.SSH
}

// New dials the local Docker daemon, ensures the shared network/volume and
// the singleton state container exist, and returns a ready Provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	cfg.setDefaults()

	cli, err := newDockerClient()
	if err != nil {
		return nil, err
	}

	p := &Provider{
		cli:        cli,
		cfg:        cfg,
		labels:     newLabelKeys(cfg.Prefix),
		connectors: make(map[ids.HostID]*transport.SSH),
	}

	if _, err := p.cli.EnsureNetwork(ctx, cfg.NetworkName, map[string]string{p.labels.provider: providerName}); err != nil {
		return nil, fmt.Errorf("ensure network: %w", err)
	}
	if _, err := p.cli.EnsureVolume(ctx, cfg.StateVolumeName, map[string]string{p.labels.provider: providerName}); err != nil {
		return nil, fmt.Errorf("ensure state volume: %w", err)
	}
	if err := p.ensureStateContainer(ctx); err != nil {
		return nil, fmt.Errorf("ensure state container: %w", err)
	}

	conn := &execConnector{cli: p.cli, containerID: p.stateContainerID}
	store, err := statestore.NewDockerVolumeStore(conn, cfg.MountPath, cfg.OfflineCachePath)
	if err != nil {
		return nil, fmt.Errorf("build state store: %w", err)
	}
	p.store = store

	return p, nil
}

// ensureStateContainer finds or creates the singleton container that keeps
// the shared state volume mounted so multiple control-plane invocations can
// read/write it without each owning a separate mount (spec.md §4.E).
func (p *Provider) ensureStateContainer(ctx context.Context) error {
	id, _, err := p.cli.ContainerByLabels(ctx, p.stateContainerLabels())
	if err != nil {
		return err
	}
	if id != "" {
		p.stateContainerID = id
		return p.cli.StartContainer(ctx, id)
	}

	name := p.cfg.Prefix + "-state"
	cfg := &container.Config{
		Image:      "busybox:stable",
		Cmd:        []string{entrypointScript},
		Labels:     p.stateContainerLabels(),
		Entrypoint: []string{"/bin/sh", "-c"},
	}
	hostCfg := &container.HostConfig{
		Binds:         []string{p.cfg.StateVolumeName + ":" + p.cfg.MountPath},
		RestartPolicy: container.RestartPolicy{Name: "unless-stopped"},
		NetworkMode:   container.NetworkMode(p.cfg.NetworkName),
	}

	if err := p.cli.PullImage(ctx, cfg.Image); err != nil {
		p.cfg.Log.Warn("could not pull state container image, assuming it is already present locally", "image", cfg.Image, "error", err)
	}

	containerID, err := p.cli.CreateContainer(ctx, cfg, hostCfg, nil, name)
	if err != nil {
		return err
	}
	if err := p.cli.StartContainer(ctx, containerID); err != nil {
		return err
	}
	p.stateContainerID = containerID
	return nil
}

func (p *Provider) Name() string { return providerName }

// Store exposes the backing statestore.Store so callers that need to build
// a hostd.Host directly (createpipeline's default HostBuilder) use the
// same record store the provider itself reads and writes.
func (p *Provider) Store() statestore.Store { return p.store }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsSnapshots:    true,
		SupportsShutdownHost: true,
		SupportsVolumes:      true,
		SupportsMutableTags:  false,
	}
}

// CreateHost builds (or pulls) an image per spec.md §4.E's three-way rule,
// runs a container for the new host, and bootstraps SSH inside it. A failed
// bootstrap still yields a listable, failed HostRecord rather than an error
// (scenario 5 of spec.md §8).
func (p *Provider) CreateHost(ctx context.Context, opts provider.CreateHostOptions) (*statestore.HostRecord, error) {
	id := ids.NewHostID()
	now := time.Now().UTC()

	image, err := p.resolveImage(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("resolve image: %w", err)
	}

	labels, err := p.hostLabels(id, opts.Name, opts.Tags)
	if err != nil {
		return nil, err
	}

	containerName := p.cfg.Prefix + "-" + opts.Name
	portSet := nat.PortSet{"22/tcp": struct{}{}}
	cfg := &container.Config{
		Image:        image,
		Labels:       labels,
		Entrypoint:   []string{"/bin/sh", "-c"},
		Cmd:          []string{entrypointScript},
		ExposedPorts: portSet,
	}
	hostCfg := &container.HostConfig{
		PublishAllPorts: false,
		PortBindings: nat.PortMap{
			"22/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: ""}},
		},
		Binds:       []string{p.cfg.StateVolumeName + ":" + p.cfg.MountPath},
		NetworkMode: container.NetworkMode(p.cfg.NetworkName),
	}
	if len(opts.StartArgs) > 0 {
		cfg.Cmd = []string{strings.Join(opts.StartArgs, " ") + " ; " + entrypointScript}
	}

	containerID, err := p.cli.CreateContainer(ctx, cfg, hostCfg, &dockernetwork.NetworkingConfig{}, containerName)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}
	if err := p.cli.StartContainer(ctx, containerID); err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	record := &statestore.HostRecord{
		Certified: statestore.CertifiedHostData{
			HostID:            id,
			HostName:          opts.Name,
			UserTags:          cloneTags(opts.Tags),
			CreatedAt:         now,
			UpdatedAt:         now,
			ActivitySources:   []ids.ActivitySource{ids.ActivityBoot},
			GeneratedWorkDirs: []string{},
			TmuxSessionPrefix: p.cfg.Prefix,
			Plugin:            map[string]any{},
		},
		Config:      statestore.ContainerConfig{StartArgs: opts.StartArgs, Image: image},
		ContainerID: containerID,
	}

	hostPort, err := p.cli.HostPortFor(ctx, containerID, 22)
	if err != nil {
		record.Certified.FailureReason = fmt.Sprintf("no published SSH port: %v", err)
		if writeErr := p.store.Write(record); writeErr != nil {
			return nil, writeErr
		}
		return record, nil
	}
	port := parsePort(hostPort)

	bootstrap, err := p.bootstrapSSH(ctx, containerID, p.cfg.DaemonHost, port)
	if err != nil {
		record.Certified.FailureReason = fmt.Sprintf("ssh bootstrap failed: %v", err)
		if writeErr := p.store.Write(record); writeErr != nil {
			return nil, writeErr
		}
		return record, nil
	}

	if err := p.recordKnownHost(p.cfg.DaemonHost, port, bootstrap.HostPublicKey); err != nil {
		p.cfg.Log.Warn("could not persist known_hosts entry", "error", err)
	}

	record.SSHHost = p.cfg.DaemonHost
	record.SSHPort = port
	record.SSHHostPublicKey = bootstrap.HostPublicKey

	if err := p.store.Write(record); err != nil {
		return nil, err
	}
	return record, nil
}

// resolveImage implements spec.md §4.E's three-way rule: user build args win
// over an explicit image reference, which wins over the built-in Dockerfile.
func (p *Provider) resolveImage(ctx context.Context, opts provider.CreateHostOptions) (string, error) {
	if len(opts.BuildArgs) > 0 {
		tag := p.cfg.Prefix + "/" + opts.Name + ":latest"
		buildArgs := make(map[string]*string, len(opts.BuildArgs))
		for k, v := range opts.BuildArgs {
			val := v
			buildArgs[k] = &val
		}
		tarball, err := buildContextTar(builtinDockerfile)
		if err != nil {
			return "", err
		}
		if err := p.cli.BuildImage(ctx, tarball, tag, buildArgs); err != nil {
			return "", fmt.Errorf("build image: %w", err)
		}
		return tag, nil
	}
	if opts.Image != "" {
		if err := p.cli.PullImage(ctx, opts.Image); err != nil {
			return "", fmt.Errorf("pull image %s: %w", opts.Image, err)
		}
		return opts.Image, nil
	}

	tag := p.cfg.Prefix + "/default:latest"
	tarball, err := buildContextTar(builtinDockerfile)
	if err != nil {
		return "", err
	}
	if err := p.cli.BuildImage(ctx, tarball, tag, nil); err != nil {
		return "", fmt.Errorf("build default image: %w", err)
	}
	p.cfg.Log.Warn("no image or build args supplied, built a minimal default image; consider supplying your own", "image", tag)
	return tag, nil
}

// StopHost snapshots (if requested) and then stops the container, relying
// on the entrypoint's SIGTERM trap for a clean shutdown.
func (p *Provider) StopHost(ctx context.Context, id ids.HostID, createSnapshot bool, timeout time.Duration) error {
	record, err := p.mustRead(id)
	if err != nil {
		return err
	}
	if createSnapshot {
		if _, err := p.CreateSnapshot(ctx, id, ""); err != nil {
			return fmt.Errorf("pre-stop snapshot: %w", err)
		}
		record, err = p.mustRead(id)
		if err != nil {
			return err
		}
	}
	if record.ContainerID == "" {
		return nil
	}
	if err := p.cli.StopContainer(ctx, record.ContainerID, timeout); err != nil {
		return fmt.Errorf("stop container: %w", err)
	}
	record.Certified.UpdatedAt = time.Now().UTC()
	return p.store.Write(record)
}

// StartHost restores from a snapshot image, native-starts the existing
// stopped container, or (absent both) falls back to the most recent
// snapshot (spec.md §4.E).
func (p *Provider) StartHost(ctx context.Context, id ids.HostID, snapshotID ids.SnapshotID) (*statestore.HostRecord, error) {
	record, err := p.mustRead(id)
	if err != nil {
		return nil, err
	}

	if snapshotID != "" {
		return p.startFromSnapshot(ctx, record, snapshotID)
	}

	if record.ContainerID != "" {
		if err := p.cli.StartContainer(ctx, record.ContainerID); err == nil {
			record.Certified.UpdatedAt = time.Now().UTC()
			if err := p.store.Write(record); err != nil {
				return nil, err
			}
			return record, nil
		}
	}

	if len(record.Certified.Snapshots) == 0 {
		return nil, fmt.Errorf("host %s has no container and no snapshots to restore from", id)
	}
	latest := record.Certified.Snapshots[len(record.Certified.Snapshots)-1]
	return p.startFromSnapshot(ctx, record, latest.ID)
}

func (p *Provider) startFromSnapshot(ctx context.Context, record *statestore.HostRecord, snapshotID ids.SnapshotID) (*statestore.HostRecord, error) {
	found := false
	for _, snap := range record.Certified.Snapshots {
		if snap.ID == snapshotID {
			found = true
			break
		}
	}
	if !found {
		return nil, &hosterrors.SnapshotNotFoundError{HostID: string(record.Certified.HostID), SnapshotID: string(snapshotID)}
	}

	p.cfg.Log.Warn("restoring from snapshot does not restore mounted-volume contents captured before the commit", "host_id", record.Certified.HostID, "snapshot_id", snapshotID)

	labels, err := p.hostLabels(record.Certified.HostID, record.Certified.HostName, record.Certified.UserTags)
	if err != nil {
		return nil, err
	}
	containerName := p.cfg.Prefix + "-" + record.Certified.HostName
	cfg := &container.Config{
		Image:        string(snapshotID),
		Labels:       labels,
		Entrypoint:   []string{"/bin/sh", "-c"},
		Cmd:          []string{entrypointScript},
		ExposedPorts: nat.PortSet{"22/tcp": struct{}{}},
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{"22/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: ""}}},
		Binds:        []string{p.cfg.StateVolumeName + ":" + p.cfg.MountPath},
		NetworkMode:  container.NetworkMode(p.cfg.NetworkName),
	}
	containerID, err := p.cli.CreateContainer(ctx, cfg, hostCfg, &dockernetwork.NetworkingConfig{}, containerName)
	if err != nil {
		return nil, err
	}
	if err := p.cli.StartContainer(ctx, containerID); err != nil {
		return nil, err
	}
	record.ContainerID = containerID

	hostPort, err := p.cli.HostPortFor(ctx, containerID, 22)
	if err == nil {
		port := parsePort(hostPort)
		if bootstrap, err := p.bootstrapSSH(ctx, containerID, p.cfg.DaemonHost, port); err == nil {
			_ = p.recordKnownHost(p.cfg.DaemonHost, port, bootstrap.HostPublicKey)
			record.SSHHost = p.cfg.DaemonHost
			record.SSHPort = port
			record.SSHHostPublicKey = bootstrap.HostPublicKey
			record.Certified.FailureReason = ""
		}
	}

	record.Certified.UpdatedAt = time.Now().UTC()
	if err := p.store.Write(record); err != nil {
		return nil, err
	}
	return record, nil
}

// DestroyHost stops without snapshotting, force-removes the container,
// optionally deletes snapshot images, then deletes the record and its
// per-host subtree in the state volume (spec.md §4.E).
func (p *Provider) DestroyHost(ctx context.Context, id ids.HostID, deleteSnapshots bool) error {
	record, err := p.mustRead(id)
	if err != nil {
		return err
	}
	if err := p.StopHost(ctx, id, false, time.Second); err != nil {
		p.cfg.Log.Warn("stop-before-destroy failed, continuing with removal", "host_id", id, "error", err)
	}
	if record.ContainerID != "" {
		if err := p.cli.RemoveContainer(ctx, record.ContainerID, true); err != nil {
			p.cfg.Log.Warn("remove container failed", "host_id", id, "error", err)
		}
	}
	if deleteSnapshots {
		for _, snap := range record.Certified.Snapshots {
			if err := p.cli.RemoveImage(ctx, string(snap.ID)); err != nil {
				p.cfg.Log.Warn("remove snapshot image failed", "snapshot_id", snap.ID, "error", err)
			}
		}
	}
	p.evictConnector(id)
	return p.store.Delete(id)
}

func (p *Provider) GetHost(ctx context.Context, idOrName string) (*statestore.HostRecord, error) {
	if record, err := p.store.Read(ids.HostID(idOrName), true); err == nil && record != nil {
		return record, nil
	}
	all, err := p.store.ListAll()
	if err != nil {
		return nil, err
	}
	for _, record := range all {
		if record.Certified.HostName == idOrName {
			return record, nil
		}
	}
	return nil, nil
}

func (p *Provider) ListHosts(ctx context.Context, includeDestroyed bool) ([]*statestore.HostRecord, error) {
	all, err := p.store.ListAll()
	if err != nil {
		return nil, err
	}
	if includeDestroyed {
		return all, nil
	}
	out := make([]*statestore.HostRecord, 0, len(all))
	for _, record := range all {
		if record.ContainerID != "" {
			out = append(out, record)
		}
	}
	return out, nil
}

// GetHostResources reports the Docker daemon's total resources: spec.md
// §4.E's shape describes a host's capacity, and a container only ever sees
// the cgroup-limited slice of whatever the daemon's machine offers.
func (p *Provider) GetHostResources(ctx context.Context, id ids.HostID) (provider.HostResources, error) {
	if _, err := p.mustRead(id); err != nil {
		return provider.HostResources{}, err
	}
	info, err := p.cli.api.Info(ctx)
	if err != nil {
		return provider.HostResources{}, err
	}
	return provider.HostResources{
		CPU:      provider.CPUResources{Count: info.NCPU},
		MemoryGB: float64(info.MemTotal) / (1 << 30),
	}, nil
}

// CreateSnapshot commits the running container to an image. Mounted-volume
// contents are not part of the committed layer and never will be — warn,
// per spec.md §4.E, rather than silently losing data on restore.
func (p *Provider) CreateSnapshot(ctx context.Context, id ids.HostID, name string) (ids.SnapshotID, error) {
	record, err := p.mustRead(id)
	if err != nil {
		return "", err
	}
	if record.ContainerID == "" {
		return "", fmt.Errorf("host %s has no container to snapshot", id)
	}
	p.cfg.Log.Warn("snapshot does not capture mounted volume contents", "host_id", id)

	snapID := ids.NewSnapshotID()
	repo := p.cfg.Prefix + "/snapshot-" + string(id)
	tag := string(snapID)
	imageID, err := p.cli.CommitContainer(ctx, record.ContainerID, repo, tag)
	if err != nil {
		return "", err
	}
	_ = imageID

	record.Certified.Snapshots = append(record.Certified.Snapshots, statestore.SnapshotRecord{
		ID:        ids.SnapshotID(repo + ":" + tag),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	record.Certified.UpdatedAt = time.Now().UTC()
	if err := p.store.Write(record); err != nil {
		return "", err
	}
	return record.Certified.Snapshots[len(record.Certified.Snapshots)-1].ID, nil
}

func (p *Provider) ListSnapshots(ctx context.Context, id ids.HostID) ([]statestore.SnapshotRecord, error) {
	record, err := p.mustRead(id)
	if err != nil {
		return nil, err
	}
	return record.Certified.Snapshots, nil
}

func (p *Provider) DeleteSnapshot(ctx context.Context, id ids.HostID, snapshotID ids.SnapshotID) error {
	record, err := p.mustRead(id)
	if err != nil {
		return err
	}
	kept := record.Certified.Snapshots[:0]
	found := false
	for _, snap := range record.Certified.Snapshots {
		if snap.ID == snapshotID {
			found = true
			continue
		}
		kept = append(kept, snap)
	}
	if !found {
		return &hosterrors.SnapshotNotFoundError{HostID: string(id), SnapshotID: string(snapshotID)}
	}
	if err := p.cli.RemoveImage(ctx, string(snapshotID)); err != nil {
		p.cfg.Log.Warn("remove snapshot image failed", "snapshot_id", snapshotID, "error", err)
	}
	record.Certified.Snapshots = kept
	record.Certified.UpdatedAt = time.Now().UTC()
	return p.store.Write(record)
}

// ListVolumes/DeleteVolume/GetVolumeForHost operate on the "volumes/<vol_id>"
// subtree of the shared state volume (spec.md §4.E layout), distinct from
// the single Docker volume the state container mounts.
func (p *Provider) ListVolumes(ctx context.Context) ([]ids.VolumeID, error) {
	conn := &execConnector{cli: p.cli, containerID: p.stateContainerID}
	result, err := conn.RunShellCommand(ctx, "ls -1 "+p.cfg.MountPath+"/volumes 2>/dev/null || true", transport.RunOptions{})
	if err != nil {
		return nil, err
	}
	var out []ids.VolumeID
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, ids.VolumeID(line))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (p *Provider) DeleteVolume(ctx context.Context, volID ids.VolumeID) error {
	conn := &execConnector{cli: p.cli, containerID: p.stateContainerID}
	result, err := conn.RunShellCommand(ctx, "rm -rf "+shellQuoteExec(p.cfg.MountPath+"/volumes/"+string(volID)), transport.RunOptions{})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("delete volume %s: %s", volID, result.Stderr)
	}
	return nil
}

func (p *Provider) GetVolumeForHost(ctx context.Context, id ids.HostID) (ids.VolumeID, error) {
	volID, ok := ids.VolumeIDForHost(id)
	if !ok {
		return "", fmt.Errorf("derive volume id for host %s", id)
	}
	return volID, nil
}

func (p *Provider) GetTags(ctx context.Context, id ids.HostID) (map[string]string, error) {
	record, err := p.mustRead(id)
	if err != nil {
		return nil, err
	}
	return cloneTags(record.Certified.UserTags), nil
}

func (p *Provider) SetTags(ctx context.Context, id ids.HostID, tags map[string]string) error {
	return provider.ErrTagsImmutable
}

func (p *Provider) AddTags(ctx context.Context, id ids.HostID, tags map[string]string) error {
	return provider.ErrTagsImmutable
}

func (p *Provider) RemoveTags(ctx context.Context, id ids.HostID, keys []string) error {
	return provider.ErrTagsImmutable
}

// RenameHost updates the persisted record; the container's <prefix>.host-name
// label cannot be changed on a running container, so it goes stale until the
// host is next recreated — callers should treat the record as authoritative.
func (p *Provider) RenameHost(ctx context.Context, id ids.HostID, newName string) error {
	record, err := p.mustRead(id)
	if err != nil {
		return err
	}
	record.Certified.HostName = newName
	record.Certified.UpdatedAt = time.Now().UTC()
	return p.store.Write(record)
}

// GetConnector returns a cached or freshly dialed SSH connector for id.
func (p *Provider) GetConnector(ctx context.Context, id ids.HostID) (transport.Connector, error) {
	p.mu.Lock()
	if conn, ok := p.connectors[id]; ok {
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	record, err := p.mustRead(id)
	if err != nil {
		return nil, err
	}
	if !record.HasSSHEndpoint() {
		return nil, fmt.Errorf("host %s has no SSH endpoint", id)
	}

	conn, err := transport.NewSSH(transport.SSHConfig{
		Addr:           fmt.Sprintf("%s:%d", record.SSHHost, record.SSHPort),
		User:           "root",
		Signer:         p.cfg.ClientSigner,
		KnownHostsFile: p.cfg.HostKnownHosts,
	})
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.connectors[id] = conn
	p.mu.Unlock()
	return conn, nil
}

func (p *Provider) PersistAgentData(ctx context.Context, hostID ids.HostID, record statestore.AgentRecord) error {
	return p.store.PersistAgentData(hostID, record)
}

func (p *Provider) RemovePersistedAgentData(ctx context.Context, hostID ids.HostID, agentID ids.AgentID) error {
	return p.store.RemoveAgentData(hostID, agentID)
}

func (p *Provider) ListPersistedAgentData(ctx context.Context, hostID ids.HostID) ([]statestore.AgentRecord, error) {
	return p.store.ListAgentData(hostID)
}

// OnConnectionError drops any cached connector and state-store cache entry
// for id so the next call re-resolves a fresh endpoint (spec.md §4.C/§5).
func (p *Provider) OnConnectionError(id ids.HostID) {
	p.evictConnector(id)
	p.store.ClearCache()
}

func (p *Provider) evictConnector(id ids.HostID) {
	p.mu.Lock()
	if conn, ok := p.connectors[id]; ok {
		_ = conn.Disconnect()
		delete(p.connectors, id)
	}
	p.mu.Unlock()
}

func (p *Provider) mustRead(id ids.HostID) (*statestore.HostRecord, error) {
	record, err := p.store.Read(id, true)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, &hosterrors.HostNotFoundError{Ref: string(id)}
	}
	return record, nil
}

func (p *Provider) recordKnownHost(host string, port int, publicKeyLine string) error {
	fields := strings.Fields(publicKeyLine)
	if len(fields) < 2 {
		return fmt.Errorf("malformed host public key %q", publicKeyLine)
	}
	entry := fmt.Sprintf("[%s]:%d %s %s\n", host, port, fields[0], fields[1])
	return appendKnownHostsEntry(p.cfg.HostKnownHosts, entry)
}

func cloneTags(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func parsePort(hostPort string) int {
	var port int
	_, _ = fmt.Sscanf(hostPort, "%d", &port)
	return port
}

var _ provider.Provider = (*Provider)(nil)
