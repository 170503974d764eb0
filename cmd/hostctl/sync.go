package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	hostsync "github.com/silexa/hostctl/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize files or a git repo between a host and the local tree",
}

var fileSyncFlags struct {
	dryRun bool
	delete bool
}

var filesPushCmd = &cobra.Command{
	Use:   "files-push <host> <local-path> <host-path>",
	Short: "rsync localPath onto hostPath on the given host",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := resolveSyncHost(args[0])
		if err != nil {
			return err
		}
		fs := hostsync.FileSync{Runner: hostsync.HostGitContext{Host: h}}
		stats, err := fs.Push(context.Background(), args[1], args[2], hostsync.FileSyncOptions{
			DryRun: fileSyncFlags.dryRun, Delete: fileSyncFlags.delete,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d bytes transferred\n", stats.FilesTransferred, stats.BytesTransferred)
		return nil
	},
}

var filesPullCmd = &cobra.Command{
	Use:   "files-pull <host> <host-path> <local-path>",
	Short: "rsync hostPath on the given host back onto localPath",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := resolveSyncHost(args[0])
		if err != nil {
			return err
		}
		fs := hostsync.FileSync{Runner: hostsync.HostGitContext{Host: h}}
		stats, err := fs.Pull(context.Background(), args[1], args[2], hostsync.FileSyncOptions{
			DryRun: fileSyncFlags.dryRun, Delete: fileSyncFlags.delete,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d bytes transferred\n", stats.FilesTransferred, stats.BytesTransferred)
		return nil
	},
}

var gitSyncFlags struct {
	mirror bool
	branch string
	mode   string
}

var gitPushCmd = &cobra.Command{
	Use:   "git-push <host> <src-path> <remote-ref>",
	Short: "git push srcPath (on the given host) to remoteRef",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := resolveSyncHost(args[0])
		if err != nil {
			return err
		}
		gs := &hostsync.GitSync{Log: current.log}
		return gs.Push(context.Background(), hostsync.HostGitContext{Host: h}, args[1], args[2], hostsync.PushOptions{Mirror: gitSyncFlags.mirror})
	},
}

var gitPullCmd = &cobra.Command{
	Use:   "git-pull <host> <dest-path> <src-ref>",
	Short: "git pull srcRef into destPath (on the given host)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := resolveSyncHost(args[0])
		if err != nil {
			return err
		}
		gs := &hostsync.GitSync{Log: current.log}
		mode := ids.UncommittedChangesMode(gitSyncFlags.mode)
		if mode == "" {
			mode = ids.UncommittedFail
		}
		return gs.Pull(context.Background(), hostsync.HostGitContext{Host: h}, args[1], args[2], hostsync.PullOptions{
			Branch: gitSyncFlags.branch,
			Mode:   mode,
		})
	},
}

func resolveSyncHost(ref string) (*hostd.Host, error) {
	p, err := findProvider("")
	if err != nil {
		return nil, err
	}
	id, err := resolveHostID(p, ref)
	if err != nil {
		return nil, err
	}
	store, err := storeFor(p)
	if err != nil {
		return nil, err
	}
	conn, err := p.GetConnector(context.Background(), id)
	if err != nil {
		return nil, err
	}
	return hostdHost(id, conn, store), nil
}

func init() {
	filesPushCmd.Flags().BoolVar(&fileSyncFlags.dryRun, "dry-run", false, "don't actually transfer")
	filesPushCmd.Flags().BoolVar(&fileSyncFlags.delete, "delete", false, "delete extraneous files on the destination")
	filesPullCmd.Flags().BoolVar(&fileSyncFlags.dryRun, "dry-run", false, "don't actually transfer")
	filesPullCmd.Flags().BoolVar(&fileSyncFlags.delete, "delete", false, "delete extraneous files on the destination")

	gitPushCmd.Flags().BoolVar(&gitSyncFlags.mirror, "mirror", false, "force-overwrite all refs instead of requiring fast-forward")
	gitPullCmd.Flags().StringVar(&gitSyncFlags.branch, "branch", "", "branch to check out before merging")
	gitPullCmd.Flags().StringVar(&gitSyncFlags.mode, "uncommitted", "FAIL", "FAIL, STASH, MERGE, or CLOBBER")

	syncCmd.AddCommand(filesPushCmd, filesPullCmd, gitPushCmd, gitPullCmd)
	rootCmd.AddCommand(syncCmd)
}
