// Package createpipeline implements the create-agent orchestration of
// spec.md §4.G: one function, many cases, grounded on the step ordering of
// original_source/libs/mng/imbue/mng/cli/create.py (its CLI-specific
// concerns - flag parsing, editor-session management, click's
// positional-argument quirks - are not part of this core pipeline; only
// the step semantics are ported).
package createpipeline

import (
	"log/slog"
	"time"

	"github.com/silexa/hostctl/internal/agent"
	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/provider"
	"github.com/silexa/hostctl/internal/statestore"
)

// NewHostOptions mirrors CreateAgentOptions.new_host: how to provision a
// fresh host when TargetHostID is empty (spec.md §4.G step 4).
type NewHostOptions struct {
	Name      string
	Image     string
	Tags      map[string]string
	BuildArgs map[string]string
	StartArgs []string
}

// MessageInput is a literal string or a path to read one from; exactly one
// of the two is meaningful at a time (step 2).
type MessageInput struct {
	Literal string
	Path    string // read at Create time if Literal is empty and Path is set
}

func (m MessageInput) isZero() bool {
	return m.Literal == "" && m.Path == ""
}

// AgentOptions mirrors CreateAgentOptions' agent-scoped fields (name, type,
// command, git/data/provisioning/env/lifecycle/permissions sub-options).
type AgentOptions struct {
	Name                string
	TypeName            string
	CommandOverride     string
	AgentArgs           []string
	AdditionalCommands  []statestore.NamedCommand
	Permissions         []string
	StartOnBoot         bool
	MessageDelaySeconds float64

	// Git/Data/Provisioning reuse the hostd shapes directly - they are
	// already the Go realization of the corresponding Python sub-options.
	Git          *hostd.GitOptions
	Data         hostd.DataOptions
	Provisioning hostd.ProvisioningOptions
	EnvVars      map[string]string

	// WorkDirTargetPath overrides where the work dir is materialized;
	// empty derives it from the source path (hostd.CreateAgentWorkDir).
	WorkDirTargetPath string
}

// HostBuilder constructs a *hostd.Host bound to a provider-issued
// Connector for an already-resolved HostRecord. Kept as an injected
// function so createpipeline never has to know a provider's connector
// plumbing or the on-disk layout of a host's own state directory.
type HostBuilder func(prov provider.Provider, record *statestore.HostRecord, store statestore.Store, log *slog.Logger) (*hostd.Host, error)

// CreateOptions is the Go realization of CreateAgentOptions (spec.md §3),
// flattened to the fields the 11-step pipeline actually branches on.
type CreateOptions struct {
	// Source: SourcePath on SourceHost, already resolved by a prior call to
	// ResolveSource (step 3 is a separate, explicit call since it needs the
	// provider list Create itself doesn't take). SourceHost is never nil -
	// a local source is a real Host bound to transport.Local (see
	// NewLocalHost), not a nil sentinel.
	SourceHost *hostd.Host
	SourcePath string

	// Target: exactly one of TargetHostID or NewHost is meaningful.
	Provider     provider.Provider
	TargetHostID ids.HostID
	NewHost      *NewHostOptions

	Agent AgentOptions

	InitialMessage MessageInput
	ResumeMessage  MessageInput

	Reuse              bool
	EnsureClean        bool // default true; spec.md step 7
	BaseBranch         string
	CopyModeOverride   *ids.GitCopyMode
	IsSnapshotRestore  bool // affects "materialize synchronously" condition (step 9)

	NoConnect    bool
	NoAwaitReady bool
	EditMessage  bool // rejected in combination with background creation (step 1)

	ReadyTimeoutSeconds float64
	LockTimeoutSeconds  float64

	Store       statestore.Store
	Log         *slog.Logger
	BuildHost   HostBuilder
	UnsetVars   []string

	// Background, when set, is invoked instead of completing step 11
	// inline whenever NoConnect && NoAwaitReady. It receives the
	// ContinuationState needed to finish the pipeline later and must
	// return the PID of whatever continues the work (a detached process,
	// a supervisor task id, ...). If nil, Create falls back to
	// SpawnBackgroundCompletion (self re-exec, see background.go).
	Background func(state ContinuationState) (pid int, err error)
}

func (o *CreateOptions) log() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

func (o *CreateOptions) readyTimeout() time.Duration {
	if o.ReadyTimeoutSeconds > 0 {
		return time.Duration(o.ReadyTimeoutSeconds * float64(time.Second))
	}
	return agent.DefaultReadySignalTimeout
}

func (o *CreateOptions) lockTimeout() float64 {
	if o.LockTimeoutSeconds > 0 {
		return o.LockTimeoutSeconds
	}
	return hostd.DefaultLockLeaseSeconds
}

// Result is what Create returns: either a fully started agent, or - for the
// backgrounded path - just enough to report progress to the caller.
type Result struct {
	Agent   *agent.Agent
	Host    *hostd.Host
	Record  *statestore.HostRecord
	Reused  bool
	Started bool

	// Backgrounded is true when step 10 forked off the remainder of the
	// work; Agent/Host are still populated (the record already exists),
	// but Started reports whether the caller's own call started it.
	Backgrounded bool
	PID          int
}
