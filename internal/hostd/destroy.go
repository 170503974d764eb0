package hostd

import (
	"fmt"
	"time"

	"github.com/silexa/hostctl/internal/transport"
)

// DestroyAgent tears down a single agent: it kills the agent's tmux session
// and its whole process tree via the same SIGTERM-then-SIGKILL machinery
// StopAgents uses for a batch, removes the generated work dir (only when it
// is actually tracked in GeneratedWorkDirs — an in-place work dir the agent
// never owned is left alone), removes the agent's state directory, and
// drops the persisted agent record (spec.md §3 "Destroy", testable property
// P2).
func (h *Host) DestroyAgent(agent StartableAgent, timeout time.Duration) error {
	if err := h.StopAgents([]StartableAgent{agent}, timeout); err != nil {
		return fmt.Errorf("stop agent %s before destroy: %w", agent.Name, err)
	}

	if err := h.untrackGeneratedWorkDir(agent.WorkDir); err != nil {
		return fmt.Errorf("untrack generated work dir for agent %s: %w", agent.Name, err)
	}

	stateDir := h.agentStateDir(agent.ID)
	result, err := h.Conn.RunShellCommand(bgCtx(), "rm -rf "+shQuote(stateDir), transport.RunOptions{})
	if err != nil {
		return fmt.Errorf("remove state dir for agent %s: %w", agent.Name, err)
	}
	if !result.Success {
		return fmt.Errorf("remove state dir for agent %s: %s", agent.Name, result.Stderr)
	}

	if err := h.Store.RemoveAgentData(h.ID, agent.ID); err != nil {
		return fmt.Errorf("remove persisted agent data for agent %s: %w", agent.Name, err)
	}
	return nil
}

// untrackGeneratedWorkDir removes workDir from the host record's
// GeneratedWorkDirs and, only if it was tracked there, rm -rf's it on disk.
// A work dir CreateAgentWorkDir never generated (e.g. in-place/None copy
// mode) is never tracked and is therefore never touched here.
func (h *Host) untrackGeneratedWorkDir(workDir string) error {
	if workDir == "" {
		return nil
	}
	record, err := h.Store.Read(h.ID, true)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	idx := -1
	for i, dir := range record.Certified.GeneratedWorkDirs {
		if dir == workDir {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	kept := append(record.Certified.GeneratedWorkDirs[:idx:idx], record.Certified.GeneratedWorkDirs[idx+1:]...)
	record.Certified.GeneratedWorkDirs = kept
	if err := h.Store.Write(record); err != nil {
		return err
	}

	result, err := h.Conn.RunShellCommand(bgCtx(), "rm -rf "+shQuote(workDir), transport.RunOptions{})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("remove work dir %s: %s", workDir, result.Stderr)
	}
	return nil
}
