package hostd

import (
	"math"
	"time"

	"github.com/silexa/hostctl/internal/ids"
)

// allActivitySources lists every source checked by GetIdleSeconds; BOOT is
// host-scoped, the rest are agent-scoped (ids.ActivitySource.IsHostScoped).
var allActivitySources = []ids.ActivitySource{
	ids.ActivityBoot, ids.ActivityCreate, ids.ActivityStart,
	ids.ActivityProcess, ids.ActivityUser, ids.ActivityAgent, ids.ActivitySSH,
}

// GetIdleSeconds returns now minus the latest activity mtime across the
// host's own activity files and every persisted agent's activity files
// (spec.md §4.I). Returns +Inf if no activity has ever been recorded.
func (h *Host) GetIdleSeconds() (float64, error) {
	latest := time.Time{}

	for _, source := range allActivitySources {
		if !source.IsHostScoped() {
			continue
		}
		t, err := h.ReportedActivityTime("", source)
		if err != nil {
			return 0, err
		}
		if t.After(latest) {
			latest = t
		}
	}

	agents, err := h.Store.ListAgentData(h.ID)
	if err != nil {
		return 0, err
	}
	for _, agent := range agents {
		for _, source := range allActivitySources {
			if source.IsHostScoped() {
				continue
			}
			t, err := h.ReportedActivityTime(string(agent.ID), source)
			if err != nil {
				return 0, err
			}
			if t.After(latest) {
				latest = t
			}
		}
	}

	if latest.IsZero() {
		return math.Inf(1), nil
	}
	return time.Since(latest).Seconds(), nil
}
