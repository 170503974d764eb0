package agent

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

// GetLifecycleState runs a single tmux format-variable query and classifies
// the result by the four rules of spec.md §4.F, checking descendant
// processes to see past shell wrappers and fallback commands
// (grounded line-for-line on base_agent.py get_lifecycle_state). P3: a
// pure function of (session existence, pane_dead, current_command,
// descendant processes, waiting-sentinel presence).
func (a *Agent) GetLifecycleState() (ids.AgentLifecycleState, error) {
	session := a.sessionName()
	query := fmt.Sprintf(
		"tmux list-panes -t %s -F '#{pane_dead}|#{pane_current_command}|#{pane_pid}' 2>/dev/null | head -n 1",
		shQuote(session),
	)
	result, err := a.Host.ExecuteCommand(query, transport.RunOptions{Timeout: 5 * time.Second})
	if err != nil {
		return "", err
	}
	if !result.Success || strings.TrimSpace(result.Stdout) == "" {
		return ids.AgentStopped, nil
	}

	parts := strings.Split(strings.TrimSpace(result.Stdout), "|")
	if len(parts) != 3 {
		return ids.AgentStopped, nil
	}
	paneDead, currentCommand, panePID := parts[0], parts[1], parts[2]

	if paneDead == "1" {
		return ids.AgentDone, nil
	}

	expected := a.expectedProcessName()
	if currentCommand == expected {
		return a.checkWaitingState()
	}

	// Current command doesn't match the expected one directly - walk
	// descendants to handle shell wrappers and "cmd1 || cmd2" fallbacks.
	psResult, err := a.Host.ExecuteCommand("ps -e -o pid=,ppid=,comm= 2>/dev/null", transport.RunOptions{Timeout: 5 * time.Second})
	if err != nil {
		return "", err
	}
	if psResult.Success {
		descendants := descendantProcessNames(panePID, psResult.Stdout)
		for _, name := range descendants {
			if name == expected {
				return a.checkWaitingState()
			}
		}
		for _, name := range descendants {
			if !isShellCommand(name) {
				return ids.AgentReplaced, nil
			}
		}
	}

	if isShellCommand(currentCommand) {
		return ids.AgentDone, nil
	}
	return ids.AgentReplaced, nil
}

func (a *Agent) checkWaitingState() (ids.AgentLifecycleState, error) {
	_, err := a.Host.Conn.GetFile(bgCtx(), a.waitingSentinelPath())
	if err == nil {
		return ids.AgentWaiting, nil
	}
	if errors.Is(err, transport.ErrFileNotFound) {
		return ids.AgentRunning, nil
	}
	return "", err
}

var shellBasenames = map[string]bool{
	"bash": true, "sh": true, "zsh": true, "fish": true,
	"dash": true, "ksh": true, "tcsh": true, "csh": true,
}

func isShellCommand(command string) bool {
	return shellBasenames[command]
}

// descendantProcessNames does a breadth-first walk of the ppid->children
// map built from `ps -e -o pid=,ppid=,comm=` output, starting at rootPID.
func descendantProcessNames(rootPID, psOutput string) []string {
	childrenByPPID := map[string][]string{}
	commByPID := map[string]string{}

	for _, line := range strings.Split(strings.TrimSpace(psOutput), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, ppid, comm := fields[0], fields[1], fields[2]
		commByPID[pid] = comm
		childrenByPPID[ppid] = append(childrenByPPID[ppid], pid)
	}

	var names []string
	queue := append([]string{}, childrenByPPID[rootPID]...)
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		if name, ok := commByPID[pid]; ok {
			names = append(names, name)
		}
		queue = append(queue, childrenByPPID[pid]...)
	}
	return names
}
