package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silexa/hostctl/internal/createpipeline"
)

// completeCreateCmd is the re-exec entrypoint SpawnBackgroundCompletion
// starts (spec.md §4.G step 10; DESIGN.md Open Question decision 5): a
// fresh, detached copy of this binary reads back the ContinuationState a
// foreground invocation wrote to disk and finishes step 11 on its own.
// Hidden from --help since it is never invoked directly by a user.
var completeCreateCmd = &cobra.Command{
	Use:    "__complete-create <state-file>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := createpipeline.ReadContinuationState(args[0])
		if err != nil {
			return fmt.Errorf("read continuation state: %w", err)
		}
		defer os.Remove(args[0])

		p, err := findProvider("")
		if err != nil {
			return err
		}
		store, err := storeFor(p)
		if err != nil {
			return err
		}

		opts := createpipeline.CreateOptions{
			Provider:            p,
			Store:               store,
			Log:                 current.log,
			ReadyTimeoutSeconds: state.ReadyTimeoutSeconds,
			UnsetVars:           state.UnsetVars,
		}
		result, err := createpipeline.CompleteCreate(context.Background(), &opts, state)
		if err != nil {
			if nerr := current.notifier.NotifyFailure(context.Background(), string(state.HostID), state.AgentRecord.Name, err); nerr != nil {
				current.log.Warn("slack notification failed", "error", nerr)
			}
			return err
		}
		current.log.Info("background create completed", "agent", state.AgentRecord.Name, "host", result.Record.Certified.HostID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completeCreateCmd)
}
