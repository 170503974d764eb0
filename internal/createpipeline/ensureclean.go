package createpipeline

import (
	"context"
	"strings"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/hosterrors"
	"github.com/silexa/hostctl/internal/transport"
)

// checkEnsureClean implements step 7: --ensure-clean (the default) aborts
// when the source working tree has uncommitted changes, unless a base
// branch was explicitly requested (the caller has already opted into
// branching from a known-good point rather than the tree's current state).
func checkEnsureClean(ctx context.Context, h *hostd.Host, path string, ensureClean bool, baseBranch string) error {
	if !ensureClean || baseBranch != "" {
		return nil
	}

	result, err := h.Conn.RunShellCommand(ctx, "git -C "+shQuote(path)+" status --porcelain", transport.RunOptions{})
	if err != nil || !result.Success {
		return nil // not a git repo, or git unavailable: nothing to guard
	}
	if strings.TrimSpace(result.Stdout) != "" {
		return &hosterrors.UserInputError{Reason: "source working tree at " + path + " has uncommitted changes; pass --base-branch or commit/stash first"}
	}
	return nil
}
