package ids

// HostState is derived, never persisted; see spec.md §3 for the
// derivation rules (container/record/snapshot presence).
type HostState string

const (
	HostRunning   HostState = "RUNNING"
	HostStopped   HostState = "STOPPED"
	HostDestroyed HostState = "DESTROYED"
	HostFailed    HostState = "FAILED"
	HostBuilding  HostState = "BUILDING"
)

// AgentLifecycleState is computed from the multiplexer session's foreground
// process, its descendants, and the waiting sentinel file (spec.md §4.F).
type AgentLifecycleState string

const (
	AgentRunning  AgentLifecycleState = "RUNNING"
	AgentWaiting  AgentLifecycleState = "WAITING"
	AgentDone     AgentLifecycleState = "DONE"
	AgentReplaced AgentLifecycleState = "REPLACED"
	AgentStopped  AgentLifecycleState = "STOPPED"
)

// ActivitySource enumerates the event sources whose file mtimes drive idle
// detection (spec.md §3). BOOT is host-scoped; the rest are agent-scoped.
type ActivitySource string

const (
	ActivityBoot    ActivitySource = "boot"
	ActivityCreate  ActivitySource = "create"
	ActivityStart   ActivitySource = "start"
	ActivityProcess ActivitySource = "process"
	ActivityUser    ActivitySource = "user"
	ActivityAgent   ActivitySource = "agent"
	ActivitySSH     ActivitySource = "ssh"
)

// IsHostScoped reports whether the source applies to the host rather than an
// individual agent.
func (s ActivitySource) IsHostScoped() bool {
	return s == ActivityBoot
}

// GitCopyMode selects how a work dir is materialized from a source tree
// (spec.md §3, CreateAgentOptions.git.copy_mode).
type GitCopyMode string

const (
	GitCopyModeCopy     GitCopyMode = "COPY"
	GitCopyModeClone    GitCopyMode = "CLONE"
	GitCopyModeWorktree GitCopyMode = "WORKTREE"
	GitCopyModeNone     GitCopyMode = "NONE"
)

// IdleMode selects how idle detection drives auto-shutdown (spec.md §3,
// HostLifecycleOptions.idle_mode).
type IdleMode string

const (
	IdleModeDisabled IdleMode = "DISABLED"
	IdleModeIO       IdleMode = "IO"
	IdleModeProcess  IdleMode = "PROCESS"
)

// UncommittedChangesMode controls how the sync engine handles a dirty
// working tree at the sync destination (spec.md §4.H).
type UncommittedChangesMode string

const (
	UncommittedFail    UncommittedChangesMode = "FAIL"
	UncommittedStash   UncommittedChangesMode = "STASH"
	UncommittedMerge   UncommittedChangesMode = "MERGE"
	UncommittedClobber UncommittedChangesMode = "CLOBBER"
)
