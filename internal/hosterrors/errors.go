// Package hosterrors defines the typed error kinds of spec.md §7. Each is a
// small struct implementing error with Unwrap support so callers can use
// errors.As/errors.Is at the boundary that handles them.
package hosterrors

import "fmt"

// HostConnectionError is transient and recoverable by retry after the
// caller clears provider caches via Provider.OnConnectionError.
type HostConnectionError struct {
	HostID string
	Err    error
}

func (e *HostConnectionError) Error() string {
	return fmt.Sprintf("host connection error for %s: %v", e.HostID, e.Err)
}

func (e *HostConnectionError) Unwrap() error { return e.Err }

// HostNotFoundError is terminal for the specific host referenced.
type HostNotFoundError struct {
	Ref string
}

func (e *HostNotFoundError) Error() string {
	return fmt.Sprintf("host not found: %s", e.Ref)
}

// SnapshotNotFoundError is terminal for the specific snapshot referenced.
type SnapshotNotFoundError struct {
	HostID     string
	SnapshotID string
}

func (e *SnapshotNotFoundError) Error() string {
	return fmt.Sprintf("snapshot %s not found on host %s", e.SnapshotID, e.HostID)
}

// AgentNotFoundError is terminal for the specific agent referenced.
type AgentNotFoundError struct {
	Ref    string
	HostID string
}

func (e *AgentNotFoundError) Error() string {
	if e.HostID == "" {
		return fmt.Sprintf("agent not found: %s", e.Ref)
	}
	return fmt.Sprintf("agent %s not found on host %s", e.Ref, e.HostID)
}

// LockNotHeldError means the cooperative lock could not be acquired within
// the caller's timeout budget.
type LockNotHeldError struct {
	HostID         string
	TimeoutSeconds float64
}

func (e *LockNotHeldError) Error() string {
	return fmt.Sprintf("failed to acquire lock on host %s within %.0fs", e.HostID, e.TimeoutSeconds)
}

// AgentStartError is terminal and non-retryable.
type AgentStartError struct {
	Agent  string
	Reason string
}

func (e *AgentStartError) Error() string {
	return fmt.Sprintf("failed to start agent %s: %s", e.Agent, e.Reason)
}

// SendMessageError is terminal; it records the last observed marker-protocol
// state for debugging (spec.md §7).
type SendMessageError struct {
	Agent      string
	Reason     string
	LastMarker string
}

func (e *SendMessageError) Error() string {
	if e.LastMarker == "" {
		return fmt.Sprintf("send message to %s failed: %s", e.Agent, e.Reason)
	}
	return fmt.Sprintf("send message to %s failed: %s (marker %s)", e.Agent, e.Reason, e.LastMarker)
}

// ProcessError captures a failed subprocess invocation's output.
type ProcessError struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("command %q exited %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// UserInputError is rejected before any side effect occurs.
type UserInputError struct {
	Reason string
}

func (e *UserInputError) Error() string { return "invalid input: " + e.Reason }

// ConfigStructureError indicates malformed persisted or loaded configuration.
type ConfigStructureError struct {
	Path   string
	Reason string
}

func (e *ConfigStructureError) Error() string {
	return fmt.Sprintf("malformed config at %s: %s", e.Path, e.Reason)
}

// InvalidProbabilityError and other value-range errors share this shape.
type InvalidValueError struct {
	Field string
	Value any
	Want  string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s: %v (want %s)", e.Field, e.Value, e.Want)
}

// SwitchError marks an exhaustiveness failure in a closed-enum switch — a
// programmer bug, not a user-facing condition.
type SwitchError struct {
	Enum  string
	Value any
}

func (e *SwitchError) Error() string {
	return fmt.Sprintf("unhandled %s case: %v", e.Enum, e.Value)
}
