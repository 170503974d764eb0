package sync

import (
	"context"
	"log/slog"
	"strings"

	"github.com/silexa/hostctl/internal/hosterrors"
	"github.com/silexa/hostctl/internal/ids"
)

// isDirty reports whether a working tree at path has uncommitted changes.
func isDirty(ctx context.Context, gc GitContext, path string) (bool, error) {
	result, err := gc.Run(ctx, "git status --porcelain", path)
	if err != nil {
		return false, err
	}
	if !result.Success {
		return false, &hosterrors.ProcessError{Command: "git status --porcelain", Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitCode}
	}
	return strings.TrimSpace(result.Stdout) != "", nil
}

// handleUncommitted prepares a destination working tree for a sync per
// spec.md §4.H's UncommittedChangesMode semantics, and returns a function
// the caller must invoke on every exit path (success or failure) to restore
// state. Only MERGE pops its stash; FAIL/STASH/CLOBBER return a no-op.
func handleUncommitted(ctx context.Context, gc GitContext, path string, mode ids.UncommittedChangesMode, log *slog.Logger) (func(), error) {
	switch mode {
	case ids.UncommittedFail:
		dirty, err := isDirty(ctx, gc, path)
		if err != nil {
			return nil, err
		}
		if dirty {
			return nil, &hosterrors.UserInputError{Reason: "working tree has uncommitted changes"}
		}
		return func() {}, nil

	case ids.UncommittedStash:
		dirty, err := isDirty(ctx, gc, path)
		if err != nil {
			return nil, err
		}
		if dirty {
			if err := stashPush(ctx, gc, path); err != nil {
				return nil, err
			}
		}
		return func() {}, nil

	case ids.UncommittedMerge:
		return stashGuard(ctx, gc, path, log)

	case ids.UncommittedClobber:
		if _, err := gc.Run(ctx, "git reset --hard HEAD && git clean -fd", path); err != nil {
			return nil, err
		}
		return func() {}, nil

	default:
		return nil, &hosterrors.SwitchError{Enum: "UncommittedChangesMode", Value: mode}
	}
}

// stashGuard is the canonical scoped acquisition of spec.md §4.H: stash on
// enter if dirty, pop on exit (whatever the outcome). The caller defers the
// returned function immediately after acquiring it.
func stashGuard(ctx context.Context, gc GitContext, path string, log *slog.Logger) (func(), error) {
	dirty, err := isDirty(ctx, gc, path)
	if err != nil {
		return nil, err
	}
	if !dirty {
		return func() {}, nil
	}
	if err := stashPush(ctx, gc, path); err != nil {
		return nil, err
	}
	return func() {
		if _, err := gc.Run(ctx, "git stash pop", path); err != nil {
			if log != nil {
				log.Warn("stash pop failed after sync", "path", path, "error", err)
			}
		}
	}, nil
}

func stashPush(ctx context.Context, gc GitContext, path string) error {
	result, err := gc.Run(ctx, "git stash push -u -m hostctl-sync", path)
	if err != nil {
		return err
	}
	if !result.Success {
		return &hosterrors.ProcessError{Command: "git stash push", Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitCode}
	}
	return nil
}
