package sync

import (
	"context"
	"log/slog"
	"strings"

	"github.com/silexa/hostctl/internal/hosterrors"
	"github.com/silexa/hostctl/internal/ids"
)

// PushOptions configures a git-sync push (spec.md §4.H).
type PushOptions struct {
	Mirror bool // force-overwrite of all refs; bypasses the fast-forward check
}

// PullOptions configures a git-sync pull.
type PullOptions struct {
	Branch string // checked out before merging FETCH_HEAD, if non-empty
	Mode   ids.UncommittedChangesMode
}

// GitSync drives the git half of the sync engine over a GitContext, so the
// same push/pull logic runs identically against a local repo or a remote
// agent host's working directory.
type GitSync struct {
	Remote string // the git remote name or URL the destination/source resolves through
	Log    *slog.Logger
}

// Push runs from the source context's repo (at srcPath) to destRef. Branch
// push refuses a non-fast-forward
// update unless Mirror is set, in which case all refs are force-overwritten.
func (g *GitSync) Push(ctx context.Context, src GitContext, srcPath string, destRef string, opts PushOptions) error {
	var cmd string
	if opts.Mirror {
		cmd = "git push --mirror " + shQuote(destRef)
	} else {
		cmd = "git push " + shQuote(destRef)
	}
	result, err := src.Run(ctx, cmd, srcPath)
	if err != nil {
		return err
	}
	if !result.Success {
		if !opts.Mirror && isNonFastForward(result.Stderr) {
			return &hosterrors.UserInputError{Reason: "push rejected: non-fast-forward (use mirror mode to force)"}
		}
		return &hosterrors.ProcessError{Command: cmd, Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitCode}
	}
	return nil
}

func isNonFastForward(stderr string) bool {
	return strings.Contains(stderr, "non-fast-forward") || strings.Contains(stderr, "fetch first")
}

// Pull fetches srcRef into the repo at destPath (reached via dest),
// optionally checks out opts.Branch, merges FETCH_HEAD, and restores the
// branch that was checked out on entry on both success and failure. A
// conflicted merge is detected via MERGE_HEAD's presence and aborted.
func (g *GitSync) Pull(ctx context.Context, dest GitContext, destPath string, srcRef string, opts PullOptions) error {
	restoreDirty, err := handleUncommitted(ctx, dest, destPath, opts.Mode, g.Log)
	if err != nil {
		return err
	}
	defer restoreDirty()

	originalBranch, err := currentBranch(ctx, dest, destPath)
	if err != nil {
		return err
	}
	restoreBranch := func() {
		if originalBranch == "" {
			return
		}
		if _, err := dest.Run(ctx, "git checkout "+shQuote(originalBranch), destPath); err != nil && g.Log != nil {
			g.Log.Warn("failed to restore original branch after pull", "branch", originalBranch, "error", err)
		}
	}
	defer restoreBranch()

	fetchCmd := "git fetch " + shQuote(srcRef)
	if result, err := dest.Run(ctx, fetchCmd, destPath); err != nil {
		return err
	} else if !result.Success {
		return &hosterrors.ProcessError{Command: fetchCmd, Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitCode}
	}

	if opts.Branch != "" {
		checkoutCmd := "git checkout " + shQuote(opts.Branch)
		result, err := dest.Run(ctx, checkoutCmd, destPath)
		if err != nil {
			return err
		}
		if !result.Success {
			return &hosterrors.ProcessError{Command: checkoutCmd, Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitCode}
		}
	}

	mergeResult, err := dest.Run(ctx, "git merge FETCH_HEAD", destPath)
	if err != nil {
		return err
	}
	if !mergeResult.Success {
		headResult, herr := dest.Run(ctx, "git rev-parse -q --verify MERGE_HEAD", destPath)
		if herr == nil && headResult.Success {
			if _, aerr := dest.Run(ctx, "git merge --abort", destPath); aerr != nil && g.Log != nil {
				g.Log.Warn("merge --abort failed after conflict", "error", aerr)
			}
			return &hosterrors.UserInputError{Reason: "merge conflict pulling " + srcRef}
		}
		return &hosterrors.ProcessError{Command: "git merge FETCH_HEAD", Stdout: mergeResult.Stdout, Stderr: mergeResult.Stderr, ExitCode: mergeResult.ExitCode}
	}
	return nil
}

func currentBranch(ctx context.Context, gc GitContext, path string) (string, error) {
	result, err := gc.Run(ctx, "git rev-parse --abbrev-ref HEAD", path)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", &hosterrors.ProcessError{Command: "git rev-parse --abbrev-ref HEAD", Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitCode}
	}
	branch := strings.TrimSpace(result.Stdout)
	if branch == "HEAD" {
		return "", nil // detached HEAD; nothing to restore
	}
	return branch, nil
}
