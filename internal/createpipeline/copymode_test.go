package createpipeline

import (
	"context"
	"testing"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

func TestResolveCopyModeOverrideWins(t *testing.T) {
	mode := ids.GitCopyModeClone
	got := resolveCopyMode(context.Background(), nil, "", true, &mode)
	if got != ids.GitCopyModeClone {
		t.Fatalf("expected override to win, got %v", got)
	}
}

func TestResolveCopyModeRemoteDefaultsToCopy(t *testing.T) {
	got := resolveCopyMode(context.Background(), nil, "/some/path", false, nil)
	if got != ids.GitCopyModeCopy {
		t.Fatalf("expected COPY for remote source, got %v", got)
	}
}

func TestResolveCopyModeLocalGitRepoDefaultsToWorktree(t *testing.T) {
	conn := &fakeConnector{runFunc: func(cmd string, opts transport.RunOptions) (transport.RunResult, error) {
		return transport.RunResult{Success: true}, nil
	}}
	h := hostd.New(ids.NewHostID(), "/tmp/host", "hostctl-", conn, nil, nil)
	got := resolveCopyMode(context.Background(), h, "/some/repo", true, nil)
	if got != ids.GitCopyModeWorktree {
		t.Fatalf("expected WORKTREE for local git repo, got %v", got)
	}
}

func TestResolveCopyModeLocalNonGitDefaultsToCopy(t *testing.T) {
	conn := &fakeConnector{runFunc: func(cmd string, opts transport.RunOptions) (transport.RunResult, error) {
		return transport.RunResult{Success: false}, nil
	}}
	h := hostd.New(ids.NewHostID(), "/tmp/host", "hostctl-", conn, nil, nil)
	got := resolveCopyMode(context.Background(), h, "/some/path", true, nil)
	if got != ids.GitCopyModeCopy {
		t.Fatalf("expected COPY for non-git local source, got %v", got)
	}
}
