package hostd

import (
	"fmt"
	"strings"
	"time"

	"github.com/silexa/hostctl/internal/hosterrors"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore"
	"github.com/silexa/hostctl/internal/transport"
)

// StartableAgent is the minimal view of an agent StartAgents/StopAgents
// need; internal/agent.Agent satisfies it.
type StartableAgent struct {
	ID                 ids.AgentID
	Name               string
	WorkDir            string
	Command            string
	AdditionalCommands []statestore.NamedCommand
}

func (h *Host) tmuxConfigPath() string {
	return h.HostDir + "/tmux.conf"
}

// ensureHostTmuxConfig writes the host-level tmux config shared by every
// agent session on this host (spec.md §4.D): key bindings are resolved
// against the session name at runtime via tmux's own format variables, so
// one config correctly serves many concurrently-running agent sessions.
func (h *Host) ensureHostTmuxConfig() (string, error) {
	configPath := h.tmuxConfigPath()
	lines := []string{
		"# hostctl host tmux config",
		"# Auto-generated - do not edit",
		"",
		"if-shell 'test -f ~/.tmux.conf' 'source-file ~/.tmux.conf'",
		"",
		`bind -n C-q run-shell 'SESSION=$(tmux display-message -p "#{session_name}"); tmux detach-client -E "hostctl destroy ` + string(h.ID) + ` --session $SESSION -f"'`,
		"",
		`bind -n C-t run-shell 'SESSION=$(tmux display-message -p "#{session_name}"); tmux detach-client -E "hostctl stop --session $SESSION"'`,
		"",
	}
	content := strings.Join(lines, "\n")
	if err := h.writeTextFile(configPath, content); err != nil {
		return "", err
	}
	return configPath, nil
}

func (h *Host) writeTextFile(path, content string) error {
	result, err := h.Conn.RunShellCommand(bgCtx(), "mkdir -p "+shQuote(dirname(path)), transport.RunOptions{})
	if err != nil {
		return err
	}
	if !result.Success {
		return &pathError{path: path, reason: result.Stderr}
	}
	return h.Conn.PutFile(bgCtx(), path, []byte(content), 0o644)
}

// StartAgents creates one detachable tmux session per agent, sources the
// layered environment into it, types the primary command as literal
// characters (so it lands in shell history and a Ctrl-C + Up can re-run
// it), opens any additional_commands as extra windows, reselects window 0,
// records START activity, and launches the background process-activity
// monitor (spec.md §4.D, grounded line-for-line on original_source
// host.py's start_agents/_start_process_activity_monitor).
func (h *Host) StartAgents(agents []StartableAgent, unsetVars []string) error {
	configPath, err := h.ensureHostTmuxConfig()
	if err != nil {
		return err
	}

	for _, agent := range agents {
		session := h.sessionName(agent.Name)
		envShellCmd := h.BuildEnvShellCommand(agent.ID)

		var unsetArgs strings.Builder
		for _, v := range unsetVars {
			unsetArgs.WriteString("unset " + shQuote(v) + " && ")
		}

		newSession := fmt.Sprintf(
			"%stmux -f %s new-session -d -s %s -c %s %s",
			unsetArgs.String(), shQuote(configPath), shQuote(session), shQuote(agent.WorkDir), shQuote(envShellCmd),
		)
		if err := h.runOrStartErr(agent.Name, newSession, "tmux new-session failed"); err != nil {
			return err
		}

		setDefault := fmt.Sprintf("tmux set-option -t %s default-command %s", shQuote(session), shQuote(envShellCmd))
		if err := h.runOrStartErr(agent.Name, setDefault, "tmux set-option failed"); err != nil {
			return err
		}

		sendKeys := fmt.Sprintf("tmux send-keys -t %s -l %s", shQuote(session), shQuote(agent.Command))
		if err := h.runOrStartErr(agent.Name, sendKeys, "tmux send-keys failed"); err != nil {
			return err
		}
		if err := h.runOrStartErr(agent.Name, fmt.Sprintf("tmux send-keys -t %s Enter", shQuote(session)), "tmux send-keys Enter failed"); err != nil {
			return err
		}

		for idx, named := range agent.AdditionalCommands {
			windowName := named.WindowName
			if windowName == "" {
				windowName = fmt.Sprintf("cmd-%d", idx+1)
			}
			newWindow := fmt.Sprintf("tmux new-window -t %s -n %s -c %s %s",
				shQuote(session), shQuote(windowName), shQuote(agent.WorkDir), shQuote(envShellCmd))
			if err := h.runOrStartErr(agent.Name, newWindow, "tmux new-window failed for "+windowName); err != nil {
				return err
			}
			target := session + ":" + windowName
			sendCmd := fmt.Sprintf("tmux send-keys -t %s -l %s", shQuote(target), shQuote(named.Command))
			if err := h.runOrStartErr(agent.Name, sendCmd, "tmux send-keys failed for "+windowName); err != nil {
				return err
			}
			if err := h.runOrStartErr(agent.Name, fmt.Sprintf("tmux send-keys -t %s Enter", shQuote(target)), "tmux send-keys Enter failed for "+windowName); err != nil {
				return err
			}
		}

		if len(agent.AdditionalCommands) > 0 {
			if err := h.runOrStartErr(agent.Name, fmt.Sprintf("tmux select-window -t %s:0", shQuote(session)), "tmux select-window failed"); err != nil {
				return err
			}
		}

		if err := h.RecordActivity(string(agent.ID), ids.ActivityStart, map[string]any{}); err != nil {
			h.Log.Warn("failed to record start activity", "agent", agent.Name, "err", err)
		}

		h.startProcessActivityMonitor(agent)
	}
	return nil
}

func (h *Host) runOrStartErr(agentName, cmd, failMsg string) error {
	result, err := h.Conn.RunShellCommand(bgCtx(), cmd, transport.RunOptions{})
	if err != nil {
		return err
	}
	if !result.Success {
		return &hosterrors.AgentStartError{Agent: agentName, Reason: failMsg + ": " + result.Stderr}
	}
	return nil
}

// startProcessActivityMonitor launches a detached, nohup'd shell loop that
// writes the agent's PROCESS activity file every 5 seconds for as long as
// its tmux pane's foreground PID is alive, then exits on its own.
func (h *Host) startProcessActivityMonitor(agent StartableAgent) {
	session := h.sessionName(agent.Name)
	activityPath := h.HostDir + "/agents/" + string(agent.ID) + "/activity/" + string(ids.ActivityProcess)

	script := fmt.Sprintf(`
PANE_PID=$(tmux list-panes -t %s -F '#{pane_pid}' 2>/dev/null | head -n 1)
if [ -z "$PANE_PID" ]; then
    exit 0
fi
ACTIVITY_PATH=%s
AGENT_ID=%s
mkdir -p "$(dirname "$ACTIVITY_PATH")"
while kill -0 "$PANE_PID" 2>/dev/null; do
    TIME_MS=$(($(date +%%s) * 1000))
    printf '{\n  "time": %%d,\n  "pane_pid": %%s,\n  "agent_id": "%%s"\n}\n' "$TIME_MS" "$PANE_PID" "$AGENT_ID" > "$ACTIVITY_PATH"
    sleep 5
done
`, shQuote(session), shQuote(activityPath), shQuote(string(agent.ID)))

	cmd := fmt.Sprintf("nohup bash -c %s </dev/null >/dev/null 2>&1 &", shQuote(script))
	result, err := h.Conn.RunShellCommand(bgCtx(), cmd, transport.RunOptions{})
	if err != nil || !result.Success {
		h.Log.Warn("failed to start process activity monitor", "agent", agent.Name, "err", err)
	}
}

// StopAgents collects every pane PID and its descendants for each named
// session, SIGTERMs them all in one shell invocation (never serially — a
// single unresponsive process must not consume the whole timeout budget),
// sleeps min(1s, timeout), SIGKILLs survivors, then kills the sessions
// themselves (spec.md §4.D).
func (h *Host) StopAgents(agents []StartableAgent, timeout time.Duration) error {
	var allPIDs []string
	for _, agent := range agents {
		pids, err := h.collectSessionPIDs(h.sessionName(agent.Name))
		if err != nil {
			return err
		}
		allPIDs = append(allPIDs, pids...)
	}

	if len(allPIDs) > 0 {
		pidList := strings.Join(allPIDs, " ")
		grace := timeout.Seconds()
		if grace > 1 {
			grace = 1
		}
		cmd := fmt.Sprintf(
			"for p in %s; do kill -TERM $p 2>/dev/null; done; sleep %g; for p in %s; do kill -KILL $p 2>/dev/null; done; true",
			pidList, grace, pidList,
		)
		if _, err := h.Conn.RunShellCommand(bgCtx(), cmd, transport.RunOptions{}); err != nil {
			return err
		}
	}

	for _, agent := range agents {
		session := h.sessionName(agent.Name)
		if _, err := h.Conn.RunShellCommand(bgCtx(), fmt.Sprintf("tmux kill-session -t %s 2>/dev/null || true", shQuote(session)), transport.RunOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) collectSessionPIDs(session string) ([]string, error) {
	result, err := h.Conn.RunShellCommand(bgCtx(), fmt.Sprintf("tmux list-panes -s -t %s -F '#{pane_pid}' 2>/dev/null || true", shQuote(session)), transport.RunOptions{})
	if err != nil {
		return nil, err
	}
	var pids []string
	for _, pid := range splitNonEmptyLines(result.Stdout) {
		pids = append(pids, pid)
		descendants, err := h.collectDescendantPIDs(pid)
		if err != nil {
			return nil, err
		}
		pids = append(pids, descendants...)
	}
	return pids, nil
}

func (h *Host) collectDescendantPIDs(parentPID string) ([]string, error) {
	result, err := h.Conn.RunShellCommand(bgCtx(), fmt.Sprintf("pgrep -P %s 2>/dev/null || true", parentPID), transport.RunOptions{})
	if err != nil {
		return nil, err
	}
	var out []string
	for _, childPID := range splitNonEmptyLines(result.Stdout) {
		out = append(out, childPID)
		grandchildren, err := h.collectDescendantPIDs(childPID)
		if err != nil {
			return nil, err
		}
		out = append(out, grandchildren...)
	}
	return out, nil
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
