package createpipeline

import (
	"context"

	"github.com/silexa/hostctl/internal/agent"
	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore"
)

// findReusableAgent implements step 6: look for an agent with the given
// name already persisted on record's host. A match short-circuits the rest
// of the pipeline - the caller starts it if stopped and returns.
func findReusableAgent(ctx context.Context, o *CreateOptions, h *hostd.Host, record *statestore.HostRecord, name string) (*statestore.AgentRecord, error) {
	existing, err := o.Provider.ListPersistedAgentData(ctx, record.Certified.HostID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Name == name {
			return &existing[i], nil
		}
	}
	return nil, nil
}

// reuseAgent starts rec if it is not already running and wraps it as the
// pipeline Result, honoring the initial message the same way a fresh
// creation would (spec.md §4.G step 6).
func reuseAgent(ctx context.Context, o *CreateOptions, h *hostd.Host, rec *statestore.AgentRecord) (*Result, error) {
	t, _ := agent.Lookup(rec.Type)
	a := agent.New(h, *rec, t)

	state, err := a.GetLifecycleState()
	if err != nil {
		return nil, err
	}

	started := false
	if state == ids.AgentStopped {
		if err := h.StartAgents([]hostd.StartableAgent{
			{ID: rec.ID, Name: rec.Name, WorkDir: rec.WorkDir, Command: rec.Command, AdditionalCommands: rec.AdditionalCommands},
		}, o.UnsetVars); err != nil {
			return nil, err
		}
		started = true
	}

	if initial, err := resolveMessage(o.InitialMessage); err != nil {
		return nil, err
	} else if initial != "" {
		if err := a.WaitForReadySignal(false, func() error { return nil }); err != nil {
			return nil, err
		}
		if err := a.SendMessage(initial); err != nil {
			return nil, err
		}
	}

	return &Result{Agent: a, Host: h, Reused: true, Started: started}, nil
}
