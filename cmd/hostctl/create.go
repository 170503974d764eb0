package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silexa/hostctl/internal/createpipeline"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/provider"
)

var createFlags struct {
	agentName     string
	agentType     string
	command       string
	source        string
	targetHost    string
	newHostName   string
	image         string
	message       string
	messageFile   string
	resumeMessage string
	reuse         bool
	ensureClean   bool
	baseBranch    string
	copyMode      string
	noConnect     bool
	noAwaitReady  bool
	startOnBoot   bool
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create (or reuse) an agent on a host",
	RunE:  runCreate,
}

func init() {
	f := createCmd.Flags()
	f.StringVar(&createFlags.agentName, "name", "", "agent name (required)")
	f.StringVar(&createFlags.agentType, "type", "generic", "registered agent type")
	f.StringVar(&createFlags.command, "command", "", "override the agent type's default command")
	f.StringVar(&createFlags.source, "source", ".", "source path or existing agent/host reference (step 3)")
	f.StringVar(&createFlags.targetHost, "host", "", "existing target host id or name; empty creates a new host")
	f.StringVar(&createFlags.newHostName, "new-host-name", "", "name for a freshly created host")
	f.StringVar(&createFlags.image, "image", "", "image to build/pull for a freshly created host")
	f.StringVar(&createFlags.message, "message", "", "initial message literal")
	f.StringVar(&createFlags.messageFile, "message-file", "", "path to read the initial message from")
	f.StringVar(&createFlags.resumeMessage, "resume-message", "", "resume message saved on a newly created agent's record; create does not send it")
	f.BoolVar(&createFlags.reuse, "reuse", true, "reuse an existing agent of the same name if one exists")
	f.BoolVar(&createFlags.ensureClean, "ensure-clean", true, "refuse to create from a dirty source tree")
	f.StringVar(&createFlags.baseBranch, "base-branch", "", "branch the work dir is created from")
	f.StringVar(&createFlags.copyMode, "copy-mode", "", "COPY, CLONE, WORKTREE, or NONE; empty picks the default")
	f.BoolVar(&createFlags.noConnect, "no-connect", false, "don't attach a terminal after creating")
	f.BoolVar(&createFlags.noAwaitReady, "no-await-ready", false, "return immediately instead of waiting for the ready signal")
	f.BoolVar(&createFlags.startOnBoot, "start-on-boot", false, "restart this agent automatically when its host boots")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	if createFlags.agentName == "" {
		return fmt.Errorf("--name is required")
	}

	p, err := findProvider("")
	if err != nil {
		return err
	}
	store, err := storeFor(p)
	if err != nil {
		return err
	}

	localHost := createpipeline.NewLocalHost(ids.NewHostID(), ".", store, current.log)
	loc, err := createpipeline.ResolveSource(context.Background(), current.providers, createFlags.source, localHost, store, current.log)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}

	var copyMode *ids.GitCopyMode
	if createFlags.copyMode != "" {
		m := ids.GitCopyMode(createFlags.copyMode)
		copyMode = &m
	}

	opts := createpipeline.CreateOptions{
		SourceHost: loc.Host,
		SourcePath: loc.Path,
		Provider:   p,
		Agent: createpipeline.AgentOptions{
			Name:            createFlags.agentName,
			TypeName:        createFlags.agentType,
			CommandOverride: createFlags.command,
			StartOnBoot:     createFlags.startOnBoot,
		},
		InitialMessage:      createpipeline.MessageInput{Literal: createFlags.message, Path: createFlags.messageFile},
		ResumeMessage:       createpipeline.MessageInput{Literal: createFlags.resumeMessage},
		Reuse:               createFlags.reuse,
		EnsureClean:         createFlags.ensureClean,
		BaseBranch:          createFlags.baseBranch,
		CopyModeOverride:    copyMode,
		NoConnect:           createFlags.noConnect,
		NoAwaitReady:        createFlags.noAwaitReady,
		ReadyTimeoutSeconds: current.cfg.ReadyTimeoutSeconds,
		LockTimeoutSeconds:  current.cfg.LockTimeoutSeconds,
		Store:               store,
		Log:                 current.log,
		UnsetVars:           current.cfg.UnsetVars,
	}

	if createFlags.targetHost != "" {
		hostID, herr := resolveHostID(p, createFlags.targetHost)
		if herr != nil {
			return herr
		}
		opts.TargetHostID = hostID
	} else {
		opts.NewHost = &createpipeline.NewHostOptions{
			Name:  createFlags.newHostName,
			Image: createFlags.image,
		}
	}

	result, err := createpipeline.Create(context.Background(), opts)
	if err != nil {
		if nerr := current.notifier.NotifyFailure(context.Background(), createFlags.targetHost, createFlags.agentName, err); nerr != nil {
			current.log.Warn("slack notification failed", "error", nerr)
		}
		return err
	}

	if result.Backgrounded {
		fmt.Fprintf(cmd.OutOrStdout(), "started agent %s in the background (pid %d)\n", createFlags.agentName, result.PID)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "agent %s is running on host %s\n", createFlags.agentName, result.Record.Certified.HostID)
	return nil
}

func resolveHostID(p provider.Provider, ref string) (ids.HostID, error) {
	record, err := p.GetHost(context.Background(), ref)
	if err != nil {
		return "", err
	}
	return record.Certified.HostID, nil
}
