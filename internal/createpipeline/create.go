package createpipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/silexa/hostctl/internal/agent"
	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore"
)

// Create implements the 11-step pipeline of spec.md §4.G. The caller is
// expected to have already run ResolveSource to populate opts.SourceHost /
// opts.SourcePath (step 3) - that step enumerates providers, which Create
// itself does not need a provider list for.
func Create(ctx context.Context, opts CreateOptions) (*Result, error) {
	// step 1
	if err := validateFlags(&opts); err != nil {
		return nil, err
	}

	// step 2
	initialMessage, err := resolveMessage(opts.InitialMessage)
	if err != nil {
		return nil, fmt.Errorf("read initial message: %w", err)
	}
	resumeMessage, err := resolveMessage(opts.ResumeMessage)
	if err != nil {
		return nil, fmt.Errorf("read resume message: %w", err)
	}

	// step 6 (reuse short-circuit; only meaningful against an existing,
	// already-named target host)
	if opts.Reuse && opts.TargetHostID != "" {
		record, err := opts.Provider.GetHost(ctx, string(opts.TargetHostID))
		if err != nil {
			return nil, err
		}
		h, err := opts.buildHost(record)
		if err != nil {
			return nil, err
		}
		if rec, err := findReusableAgent(ctx, &opts, h, record, opts.Agent.Name); err != nil {
			return nil, err
		} else if rec != nil {
			if err := ensureRunning(ctx, &opts, record); err != nil {
				return nil, err
			}
			res, err := reuseAgent(ctx, &opts, h, rec)
			if res != nil {
				res.Record = record
			}
			return res, err
		}
	}

	// step 7
	if err := checkEnsureClean(ctx, opts.SourceHost, opts.SourcePath, opts.EnsureClean, opts.BaseBranch); err != nil {
		return nil, err
	}

	// step 4 + step 8: resolve the target host descriptor and ensure it is
	// running, creating it now via the provider if it doesn't exist yet.
	record, h, err := ensureTargetHostStarted(ctx, &opts)
	if err != nil {
		return nil, err
	}

	// step 5: default copy_mode
	sourceIsLocal := opts.SourceHost.ID == h.ID
	copyMode := resolveCopyMode(ctx, opts.SourceHost, opts.SourcePath, sourceIsLocal, opts.CopyModeOverride)
	gitOptions := opts.Agent.Git
	if gitOptions == nil {
		gitOptions = &hostd.GitOptions{}
	}
	gitOptions.CopyMode = copyMode
	if opts.BaseBranch != "" {
		gitOptions.BaseBranch = opts.BaseBranch
	}
	agentOpts := opts.Agent
	agentOpts.Git = gitOptions

	// step 9
	isCopyImmediate := copyMode != ids.GitCopyModeNone
	workDir, generated, err := materializeWorkDir(h, opts.SourceHost, opts.SourcePath, agentOpts, isCopyImmediate, opts.IsSnapshotRestore, opts.Provider.Name())
	if err != nil {
		return nil, err
	}
	if generated {
		record.Certified.GeneratedWorkDirs = append(record.Certified.GeneratedWorkDirs, workDir)
		if err := opts.Store.Write(record); err != nil {
			return nil, fmt.Errorf("persist generated work dir: %w", err)
		}
	}

	agentID := ids.NewAgentID()
	record2 := statestore.AgentRecord{
		ID:                  agentID,
		Name:                agentOpts.Name,
		Type:                agentOpts.TypeName,
		WorkDir:             workDir,
		CreateTime:          time.Now(),
		Command:             assembleAgentCommand(agentOpts),
		AdditionalCommands:  agentOpts.AdditionalCommands,
		InitialMessage:      initialMessage,
		ResumeMessage:       resumeMessage,
		MessageDelaySeconds: agentOpts.MessageDelaySeconds,
		Permissions:         agentOpts.Permissions,
		StartOnBoot:         agentOpts.StartOnBoot,
	}
	if err := opts.Store.PersistAgentData(record.Certified.HostID, record2); err != nil {
		return nil, fmt.Errorf("persist agent record: %w", err)
	}

	state := ContinuationState{
		HostID:              record.Certified.HostID,
		AgentRecord:         record2,
		AgentTypeName:       agentOpts.TypeName,
		InitialMessage:      initialMessage,
		ReadyTimeoutSeconds: opts.ReadyTimeoutSeconds,
		UnsetVars:           opts.UnsetVars,
	}

	// step 10
	if opts.NoConnect && opts.NoAwaitReady {
		pid, err := backgroundComplete(&opts, state)
		if err != nil {
			return nil, err
		}
		t, _ := agent.Lookup(agentOpts.TypeName)
		return &Result{
			Agent:        agent.New(h, record2, t),
			Host:         h,
			Record:       record,
			Backgrounded: true,
			PID:          pid,
		}, nil
	}

	// step 11
	return CompleteCreate(ctx, &opts, state)
}

func assembleAgentCommand(opts AgentOptions) string {
	if opts.CommandOverride != "" {
		return opts.CommandOverride
	}
	t, ok := agent.Lookup(opts.TypeName)
	a := agent.New(nil, statestore.AgentRecord{}, t)
	if !ok {
		return opts.TypeName
	}
	return a.AssembleCommand(opts.AgentArgs, "")
}

func backgroundComplete(o *CreateOptions, state ContinuationState) (int, error) {
	if o.Background != nil {
		return o.Background(state)
	}
	statePath, err := WriteContinuationState(state)
	if err != nil {
		return 0, err
	}
	return SpawnBackgroundCompletion(selfExePath(), []string{"__complete-create"}, statePath, statePath+".log")
}
