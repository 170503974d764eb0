package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Manage hosts directly (stop, start, destroy)",
}

var stopFlags struct {
	snapshot bool
	timeout  time.Duration
}

var stopHostCmd = &cobra.Command{
	Use:   "stop <host>",
	Short: "Stop a host, optionally snapshotting it first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := findProvider("")
		if err != nil {
			return err
		}
		id, err := resolveHostID(p, args[0])
		if err != nil {
			return err
		}
		return p.StopHost(context.Background(), id, stopFlags.snapshot, stopFlags.timeout)
	},
}

var startHostCmd = &cobra.Command{
	Use:   "start <host>",
	Short: "Start a stopped host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := findProvider("")
		if err != nil {
			return err
		}
		id, err := resolveHostID(p, args[0])
		if err != nil {
			return err
		}
		_, err = p.StartHost(context.Background(), id, "")
		return err
	},
}

var destroyFlags struct {
	deleteSnapshots bool
}

var destroyHostCmd = &cobra.Command{
	Use:   "destroy <host>",
	Short: "Permanently destroy a host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := findProvider("")
		if err != nil {
			return err
		}
		id, err := resolveHostID(p, args[0])
		if err != nil {
			return err
		}
		return p.DestroyHost(context.Background(), id, destroyFlags.deleteSnapshots)
	},
}

var idleHostCmd = &cobra.Command{
	Use:   "idle <host>",
	Short: "Print how long a host has been idle, in seconds",
	Args:  cobra.ExactArgs(1),
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
		conn, err := p.GetConnector(context.Background(), id)
		if err != nil {
			return err
		}
		h := hostdHost(id, conn, store)
		seconds, err := h.GetIdleSeconds()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%.0f\n", seconds)
		return nil
	},
}

func init() {
	stopHostCmd.Flags().BoolVar(&stopFlags.snapshot, "snapshot", false, "create a snapshot before stopping")
	stopHostCmd.Flags().DurationVar(&stopFlags.timeout, "timeout", 30*time.Second, "grace period before killing agents")
	destroyHostCmd.Flags().BoolVar(&destroyFlags.deleteSnapshots, "delete-snapshots", false, "also delete this host's snapshots")

	hostCmd.AddCommand(stopHostCmd, startHostCmd, destroyHostCmd, idleHostCmd)
	rootCmd.AddCommand(hostCmd)
}
