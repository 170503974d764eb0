package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/provider"
	"github.com/silexa/hostctl/internal/statestore"
)

var destroyAgentFlags struct {
	session string
	timeout time.Duration
	force   bool
}

// destroyAgentCmd implements spec.md §3's agent Destroy operation: it tears
// down the agent's tmux session and process tree, removes its generated
// work dir (untracking it from GeneratedWorkDirs) and state directory, and
// drops the persisted agent record. Addressable either by name or by
// --session, so the host tmux config's Ctrl-q binding (which only knows the
// tmux session name) can call it directly.
var destroyAgentCmd = &cobra.Command{
	Use:   "destroy <host> [agent]",
	Short: "Destroy a single agent (session, work dir, and state)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := findProvider("")
		if err != nil {
			return err
		}
		id, err := resolveHostID(p, args[0])
		if err != nil {
			return err
		}
		store, err := storeFor(p)
		if err != nil {
			return err
		}
		ctx := context.Background()
		conn, err := p.GetConnector(ctx, id)
		if err != nil {
			return err
		}
		h := hostdHost(id, conn, store)

		agentName := ""
		if len(args) > 1 {
			agentName = args[1]
		}
		record, err := resolveAgentRecord(ctx, p, id, h.Prefix, agentName, destroyAgentFlags.session)
		if err != nil {
			return err
		}

		return h.DestroyAgent(hostd.StartableAgent{
			ID:                 record.ID,
			Name:               record.Name,
			WorkDir:            record.WorkDir,
			Command:            record.Command,
			AdditionalCommands: record.AdditionalCommands,
		}, destroyAgentFlags.timeout)
	},
}

// resolveAgentRecord finds the persisted record for agentName, or for the
// agent owning tmux session name session (prefix stripped) when agentName
// is empty.
func resolveAgentRecord(ctx context.Context, p provider.Provider, hostID ids.HostID, prefix, agentName, session string) (*statestore.AgentRecord, error) {
	if agentName == "" && session != "" {
		agentName = strings.TrimPrefix(session, prefix)
	}
	if agentName == "" {
		return nil, fmt.Errorf("an agent name or --session is required")
	}
	records, err := p.ListPersistedAgentData(ctx, hostID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Name == agentName {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("no agent named %q on this host", agentName)
}

func init() {
	destroyAgentCmd.Flags().StringVar(&destroyAgentFlags.session, "session", "", "resolve the agent by tmux session name instead of by name")
	destroyAgentCmd.Flags().DurationVar(&destroyAgentFlags.timeout, "timeout", 30*time.Second, "grace period before killing the agent's process tree")
	destroyAgentCmd.Flags().BoolVarP(&destroyAgentFlags.force, "force", "f", false, "skip confirmation (accepted for compatibility with the tmux Ctrl-q binding; destroy never prompts)")
	rootCmd.AddCommand(destroyAgentCmd)
}
