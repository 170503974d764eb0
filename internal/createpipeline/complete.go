package createpipeline

import (
	"context"

	"github.com/silexa/hostctl/internal/agent"
	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
)

// CompleteCreate implements step 11: call the core create API (provision,
// start) and run post-create actions (message injection; awaiting the
// agent stopping and attaching a terminal are CLI/TUI concerns left to
// cmd/hostctl, not this package). It is used both inline by Create (the
// common, non-backgrounded path) and by whatever re-enters the pipeline
// after SpawnBackgroundCompletion hands off step 10's continuation state.
func CompleteCreate(ctx context.Context, o *CreateOptions, state ContinuationState) (*Result, error) {
	record, err := o.Provider.GetHost(ctx, string(state.HostID))
	if err != nil {
		return nil, err
	}
	h, err := o.buildHost(record)
	if err != nil {
		return nil, err
	}

	t, _ := agent.Lookup(state.AgentTypeName)
	a := agent.New(h, state.AgentRecord, t)

	if !state.IsReuse {
		if err := h.ProvisionAgent(state.AgentRecord.ID, state.AgentRecord.Name, state.AgentRecord.WorkDir, a, o.Agent.Provisioning, o.Agent.EnvVars); err != nil {
			return nil, err
		}

		startable := hostd.StartableAgent{
			ID:                 state.AgentRecord.ID,
			Name:               state.AgentRecord.Name,
			WorkDir:            state.AgentRecord.WorkDir,
			Command:            state.AgentRecord.Command,
			AdditionalCommands: state.AgentRecord.AdditionalCommands,
		}
		if err := h.StartAgents([]hostd.StartableAgent{startable}, state.UnsetVars); err != nil {
			return nil, err
		}
	}

	if err := a.WaitForReadySignal(!state.IsReuse, func() error { return nil }); err != nil {
		return nil, err
	}

	if state.InitialMessage != "" {
		if err := a.SendMessage(state.InitialMessage); err != nil {
			return nil, err
		}
	}

	if err := h.RecordActivity(string(a.Record.ID), ids.ActivityCreate, map[string]any{}); err != nil {
		h.Log.Warn("failed to record create activity", "agent", a.Record.Name, "err", err)
	}

	return &Result{Agent: a, Host: h, Record: record, Started: true}, nil
}
