// Package agent implements the typed agent object of spec.md §4.F: a view
// over an agent's state directory plus a registered AgentType describing
// how to assemble its command, provision it, and talk to it once running.
// Grounded on original_source/libs/mngr/imbue/mngr/agents/base_agent.py.
package agent

import (
	"strings"
	"sync"
	"time"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/statestore"
)

// DefaultEnterDelay is the pause between typing message text and sending
// Enter in the simple send-message path, giving the input handler time to
// process the text before a literal newline could be mistaken for submit
// (spec.md §9 open question 2; original's _PRE_ENTER_DELAY_SECONDS region).
const DefaultEnterDelay = 300 * time.Millisecond

// DefaultReadySignalTimeout bounds WaitForReadySignal's default poll.
const DefaultReadySignalTimeout = 30 * time.Second

// Type describes one registered agent type. Behavior hooks are plain
// function fields rather than an interface hierarchy — composition over
// inheritance, per DESIGN.md's open-question decision for this package.
// Every field beyond Name is optional; the zero value reproduces
// BaseAgent's documented no-op defaults.
type Type struct {
	Name string

	// Command is used as the launch command when neither a caller
	// override nor the agent's own persisted command is set. If empty,
	// the type Name itself is used as the command (spec.md §4.F
	// "Direct command" fallback).
	Command string
	CliArgs string

	// ExpectedProcessName overrides the basename-of-command heuristic
	// GetLifecycleState uses to recognize the foreground process, for
	// types whose launch command is a wrapper (env exports, shell glue).
	ExpectedProcessName string

	UsesMarkerBasedSend bool
	TUIReadyIndicator   string
	EnterDelay          time.Duration

	// ReadySignalRelPath, if set, is a path relative to the agent's
	// state directory that WaitForReadySignal polls for before
	// reporting readiness. Empty means no-op (always ready).
	ReadySignalRelPath string
	ReadySignalTimeout time.Duration

	OnBeforeProvisioning     func(a *Agent) error
	GetProvisionFileTransfers func(a *Agent) []hostd.FileTransferSpec
	Provision                func(a *Agent) error
	OnAfterProvisioning      func(a *Agent) error
}

func (t *Type) enterDelay() time.Duration {
	if t.EnterDelay > 0 {
		return t.EnterDelay
	}
	return DefaultEnterDelay
}

func (t *Type) readySignalTimeout() time.Duration {
	if t.ReadySignalTimeout > 0 {
		return t.ReadySignalTimeout
	}
	return DefaultReadySignalTimeout
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*Type{}
)

// Register adds t to the closed agent-type registry, keyed by t.Name.
// Registering the same name twice replaces the prior entry, so tests can
// install fakes without a separate unregister step.
func Register(t *Type) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t.Name] = t
}

// Lookup returns the registered Type for name, if any.
func Lookup(name string) (*Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[name]
	return t, ok
}

// RegisteredNames returns the names currently in the registry, unordered.
func RegisteredNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Agent binds a persisted AgentRecord and its Type to a specific Host.
type Agent struct {
	Host   *hostd.Host
	Record statestore.AgentRecord
	Type   *Type
}

// New constructs an Agent. Type may be nil only for callers that never
// invoke a Type-dependent method (e.g. pure listing).
func New(h *hostd.Host, record statestore.AgentRecord, t *Type) *Agent {
	return &Agent{Host: h, Record: record, Type: t}
}

func (a *Agent) sessionName() string {
	return a.Host.Prefix + a.Record.Name
}

func (a *Agent) stateDir() string {
	return a.Host.HostDir + "/agents/" + string(a.Record.ID)
}

func (a *Agent) waitingSentinelPath() string {
	return a.stateDir() + "/waiting"
}

// command returns the agent's persisted launch command, defaulting to
// "bash" when unset, matching BaseAgent.get_command.
func (a *Agent) command() string {
	if a.Record.Command != "" {
		return a.Record.Command
	}
	return "bash"
}

func commandBasename(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	parts := strings.Split(fields[0], "/")
	return parts[len(parts)-1]
}

func (a *Agent) expectedProcessName() string {
	if a.Type != nil && a.Type.ExpectedProcessName != "" {
		return a.Type.ExpectedProcessName
	}
	return commandBasename(a.command())
}

// AssembleCommand picks the launch command: commandOverride if given, else
// the agent's own persisted command, else the agent type's configured
// Command, else the type name itself — then appends cli_args and any
// caller-supplied agentArgs (spec.md §4.F / base_agent.py assemble_command).
func (a *Agent) AssembleCommand(agentArgs []string, commandOverride string) string {
	var base string
	switch {
	case commandOverride != "":
		base = commandOverride
	case a.Record.Command != "":
		base = a.Record.Command
	case a.Type != nil && a.Type.Command != "":
		base = a.Type.Command
	case a.Type != nil:
		base = a.Type.Name
	default:
		base = "bash"
	}

	parts := []string{base}
	if a.Type != nil && a.Type.CliArgs != "" {
		parts = append(parts, a.Type.CliArgs)
	}
	parts = append(parts, agentArgs...)
	return strings.Join(parts, " ")
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
