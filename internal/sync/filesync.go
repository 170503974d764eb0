package sync

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/silexa/hostctl/internal/hosterrors"
)

// FileSyncOptions mirrors the rsync-affecting flags of spec.md §4.H.
type FileSyncOptions struct {
	DryRun bool
	Delete bool
}

// FileSyncStats is parsed from rsync --stats output.
type FileSyncStats struct {
	FilesTransferred int
	BytesTransferred int64
}

// FileSync runs rsync from one side of the local/agent boundary to the
// other. Runner is where the command actually runs
// (rsync itself reaches across the boundary via its own remote-shell
// syntax); RemoteShellSpec is empty when both sides are the same
// filesystem (e.g. a bind-mounted container), in which case both paths are
// plain local paths to that one Runner.
type FileSync struct {
	Runner GitContext // where the rsync process itself executes

	// RemoteShellSpec, if set, is prefixed onto the remote-side path as
	// rsync's "[user@]host:path" remote-shell syntax; SSHCommand, if set,
	// is passed as rsync's -e flag (e.g. "ssh -p 2222 -o StrictHostKeyChecking=no").
	RemoteShellSpec string
	SSHCommand      string
}

// Push runs rsync from localPath to the agent side (spec.md §4.H "File
// sync"): `rsync -avz --stats --exclude=.git` plus --dry-run/--delete, with
// a trailing slash on the source so only its contents are copied.
func (fs *FileSync) Push(ctx context.Context, localPath, agentPath string, opts FileSyncOptions) (FileSyncStats, error) {
	return fs.run(ctx, localPath, fs.remoteSpec(agentPath), opts)
}

// Pull runs rsync from the agent side back to localPath.
func (fs *FileSync) Pull(ctx context.Context, agentPath, localPath string, opts FileSyncOptions) (FileSyncStats, error) {
	return fs.run(ctx, fs.remoteSpec(agentPath), localPath, opts)
}

func (fs *FileSync) remoteSpec(path string) string {
	if fs.RemoteShellSpec == "" {
		return path
	}
	return fs.RemoteShellSpec + ":" + path
}

func (fs *FileSync) run(ctx context.Context, source, dest string, opts FileSyncOptions) (FileSyncStats, error) {
	args := []string{"rsync", "-avz", "--stats", "--exclude=.git"}
	if fs.SSHCommand != "" {
		args = append(args, "-e", shQuote(fs.SSHCommand))
	}
	if opts.DryRun {
		args = append(args, "--dry-run")
	}
	if opts.Delete {
		args = append(args, "--delete")
	}
	args = append(args, shQuote(strings.TrimRight(source, "/")+"/"), shQuote(dest))

	cmd := strings.Join(args, " ")
	result, err := fs.Runner.Run(ctx, cmd, "")
	if err != nil {
		return FileSyncStats{}, err
	}
	if !result.Success {
		return FileSyncStats{}, &hosterrors.ProcessError{Command: cmd, Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitCode}
	}
	return parseRsyncStats(result.Stdout), nil
}

var (
	filesTransferredRE = regexp.MustCompile(`Number of (?:regular )?files transferred:\s*([\d,]+)`)
	bytesTransferredRE = regexp.MustCompile(`Total transferred file size:\s*([\d,]+)`)
)

// parseRsyncStats extracts the two counters spec.md calls out explicitly
// (files transferred, bytes transferred) from rsync --stats output.
func parseRsyncStats(stdout string) FileSyncStats {
	var stats FileSyncStats
	if m := filesTransferredRE.FindStringSubmatch(stdout); m != nil {
		stats.FilesTransferred = parseCommaInt(m[1])
	}
	if m := bytesTransferredRE.FindStringSubmatch(stdout); m != nil {
		stats.BytesTransferred = int64(parseCommaInt(m[1]))
	}
	return stats
}

func parseCommaInt(s string) int {
	n, _ := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	return n
}
