package createpipeline

import (
	"context"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

// resolveCopyMode implements step 5's default: WORKTREE when the source is
// local and inside a git repository, else COPY; a remote source always
// defaults to COPY since a worktree only makes sense alongside its own
// repository. An explicit override always wins.
func resolveCopyMode(ctx context.Context, sourceHost *hostd.Host, sourcePath string, isLocal bool, override *ids.GitCopyMode) ids.GitCopyMode {
	if override != nil {
		return *override
	}
	if !isLocal {
		return ids.GitCopyModeCopy
	}
	if isInsideGitRepo(ctx, sourceHost, sourcePath) {
		return ids.GitCopyModeWorktree
	}
	return ids.GitCopyModeCopy
}

func isInsideGitRepo(ctx context.Context, h *hostd.Host, path string) bool {
	result, err := h.Conn.RunShellCommand(ctx, "git -C "+shQuote(path)+" rev-parse --is-inside-work-tree", transport.RunOptions{})
	if err != nil {
		return false
	}
	return result.Success
}

func shQuote(s string) string {
	quoted := "'"
	for _, r := range s {
		if r == '\'' {
			quoted += `'\''`
		} else {
			quoted += string(r)
		}
	}
	return quoted + "'"
}
