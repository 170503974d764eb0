package agent

import (
	"strings"
	"time"

	"github.com/silexa/hostctl/internal/ids"
)

// RecordActivity writes the agent-scoped activity marker for source; file
// mtime is the authoritative timestamp (spec.md §4.F/§4.I).
func (a *Agent) RecordActivity(source ids.ActivitySource) error {
	return a.Host.RecordActivity(string(a.Record.ID), source, map[string]any{
		"agent_id":   string(a.Record.ID),
		"agent_name": a.Record.Name,
	})
}

// ReportedActivityTime returns the last time source was recorded, or the
// zero time if never.
func (a *Agent) ReportedActivityTime(source ids.ActivitySource) (time.Time, error) {
	return a.Host.ReportedActivityTime(string(a.Record.ID), source)
}

// IsRunning checks the agent's pid file and confirms the process is still
// alive, independent of the richer tmux-based GetLifecycleState classifier
// (base_agent.py is_running).
func (a *Agent) IsRunning() bool {
	pidPath := a.stateDir() + "/agent.pid"
	data, err := a.Host.Conn.GetFile(bgCtx(), pidPath)
	if err != nil {
		return false
	}
	result, err := a.run("ps -p " + shQuote(strings.TrimSpace(string(data))))
	if err != nil {
		return false
	}
	return result.Success
}
