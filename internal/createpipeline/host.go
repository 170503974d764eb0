package createpipeline

import (
	"context"
	"log/slog"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/provider"
	"github.com/silexa/hostctl/internal/statestore"
)

// DefaultHostDirPath is where a host's own state (agents/, tmux.conf,
// host_lock, activity/) lives on its own filesystem, local or remote.
const DefaultHostDirPath = "/home/hostctl/.hostctl"

// DefaultSessionPrefix namespaces tmux session names per host.
const DefaultSessionPrefix = "hostctl-"

// defaultHostBuilder is the HostBuilder used whenever CreateOptions.BuildHost
// is nil: it asks the provider for a Connector and wraps it with the
// package-wide default state-dir/prefix convention.
func defaultHostBuilder(prov provider.Provider, record *statestore.HostRecord, store statestore.Store, log *slog.Logger) (*hostd.Host, error) {
	conn, err := prov.GetConnector(context.Background(), record.Certified.HostID)
	if err != nil {
		return nil, err
	}
	return hostd.New(record.Certified.HostID, DefaultHostDirPath, DefaultSessionPrefix, conn, store, log), nil
}

func (o *CreateOptions) buildHost(record *statestore.HostRecord) (*hostd.Host, error) {
	if o.BuildHost != nil {
		return o.BuildHost(o.Provider, record, o.Store, o.log())
	}
	return defaultHostBuilder(o.Provider, record, o.Store, o.log())
}

// ensureTargetHostStarted implements step 8: resolve TargetHostID to an
// existing host, starting it if it is not running, or create a fresh one via NewHost
// (step 4's deferred provider call).
func ensureTargetHostStarted(ctx context.Context, o *CreateOptions) (*statestore.HostRecord, *hostd.Host, error) {
	if o.TargetHostID != "" {
		record, err := o.Provider.GetHost(ctx, string(o.TargetHostID))
		if err != nil {
			return nil, nil, err
		}
		h, err := o.buildHost(record)
		if err != nil {
			return nil, nil, err
		}
		if err := ensureRunning(ctx, o, record); err != nil {
			return nil, nil, err
		}
		return record, h, nil
	}

	opts := provider.CreateHostOptions{}
	if o.NewHost != nil {
		opts = provider.CreateHostOptions{
			Name:      o.NewHost.Name,
			Image:     o.NewHost.Image,
			Tags:      o.NewHost.Tags,
			BuildArgs: o.NewHost.BuildArgs,
			StartArgs: o.NewHost.StartArgs,
		}
	}
	record, err := o.Provider.CreateHost(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	h, err := o.buildHost(record)
	if err != nil {
		return nil, nil, err
	}
	return record, h, nil
}

func ensureRunning(ctx context.Context, o *CreateOptions, record *statestore.HostRecord) error {
	state := deriveHostState(record)
	if state == ids.HostRunning {
		return nil
	}
	_, err := o.Provider.StartHost(ctx, record.Certified.HostID, "")
	return err
}

// deriveHostState decides from the record alone whether StartHost is
// needed: a record with a StopReason, or without a container id, is
// stopped; any other record is running.
func deriveHostState(record *statestore.HostRecord) ids.HostState {
	if record.Certified.StopReason != "" {
		return ids.HostStopped
	}
	if record.ContainerID == "" {
		return ids.HostStopped
	}
	return ids.HostRunning
}

// materializeWorkDir implements step 9: when is_copy_immediate and this is
// not a snapshot restore, transfer the work dir now and return its final
// path (plus generated=true, so the caller tracks it in
// HostRecord.Certified.GeneratedWorkDirs per spec.md §4.D/P2); otherwise the
// source path itself is used unchanged and nothing was generated.
func materializeWorkDir(h *hostd.Host, sourceHost *hostd.Host, sourcePath string, opts AgentOptions, isCopyImmediate, isSnapshotRestore bool, providerName string) (workDir string, generated bool, err error) {
	if !isCopyImmediate || isSnapshotRestore {
		return sourcePath, false, nil
	}
	workDir, err = h.CreateAgentWorkDir(sourceHost, sourcePath, hostd.WorkDirOptions{
		AgentName:    opts.Name,
		ProviderName: providerName,
		TargetPath:   opts.WorkDirTargetPath,
		Git:          opts.Git,
		Data:         opts.Data,
	})
	if err != nil {
		return "", false, err
	}
	return workDir, true, nil
}
