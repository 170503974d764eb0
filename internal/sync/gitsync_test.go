package sync

import (
	"context"
	"strings"
	"testing"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

func TestGitSyncPushBranchRejectsNonFastForward(t *testing.T) {
	gc := &scriptedGitContext{fallback: transport.RunResult{Success: false, Stderr: "! [rejected] non-fast-forward", ExitCode: 1}}
	g := &GitSync{}
	err := g.Push(context.Background(), gc, "/repo", "origin", PushOptions{})
	if err == nil {
		t.Fatalf("expected non-fast-forward error")
	}
}

func TestGitSyncPushMirrorForcesAllRefs(t *testing.T) {
	gc := &scriptedGitContext{fallback: transport.RunResult{Success: true}}
	g := &GitSync{}
	if err := g.Push(context.Background(), gc, "/repo", "origin", PushOptions{Mirror: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gc.calls[0], "--mirror") {
		t.Fatalf("expected --mirror in push command: %s", gc.calls[0])
	}
}

func TestGitSyncPullMergesAndRestoresBranch(t *testing.T) {
	gc := &scriptedGitContext{
		results: map[string]transport.RunResult{
			"status --porcelain":     {Success: true, Stdout: ""},
			"rev-parse --abbrev-ref": {Success: true, Stdout: "feature-x\n"},
			"fetch":                  {Success: true},
			"checkout":               {Success: true},
			"merge FETCH_HEAD":       {Success: true},
		},
	}
	g := &GitSync{}
	err := g.Pull(context.Background(), gc, "/repo", "origin", PullOptions{Branch: "main", Mode: ids.UncommittedFail})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var restored bool
	for _, c := range gc.calls {
		if c == "git checkout 'feature-x'" {
			restored = true
		}
	}
	if !restored {
		t.Fatalf("expected original branch restore, calls: %v", gc.calls)
	}
}

func TestGitSyncPullAbortsOnConflict(t *testing.T) {
	gc := &scriptedGitContext{
		results: map[string]transport.RunResult{
			"status --porcelain":     {Success: true, Stdout: ""},
			"rev-parse --abbrev-ref": {Success: true, Stdout: "main\n"},
			"fetch":                  {Success: true},
			"merge FETCH_HEAD":       {Success: false, Stderr: "CONFLICT"},
			"rev-parse -q --verify MERGE_HEAD": {Success: true},
			"merge --abort":          {Success: true},
		},
	}
	g := &GitSync{}
	err := g.Pull(context.Background(), gc, "/repo", "origin", PullOptions{Mode: ids.UncommittedFail})
	if err == nil {
		t.Fatalf("expected conflict error")
	}
	var aborted bool
	for _, c := range gc.calls {
		if c == "git merge --abort" {
			aborted = true
		}
	}
	if !aborted {
		t.Fatalf("expected merge --abort on conflict, calls: %v", gc.calls)
	}
}

func TestGitSyncPullDetachedHeadSkipsRestore(t *testing.T) {
	gc := &scriptedGitContext{
		results: map[string]transport.RunResult{
			"status --porcelain":     {Success: true, Stdout: ""},
			"rev-parse --abbrev-ref": {Success: true, Stdout: "HEAD\n"},
			"fetch":                  {Success: true},
			"merge FETCH_HEAD":       {Success: true},
		},
	}
	g := &GitSync{}
	if err := g.Pull(context.Background(), gc, "/repo", "origin", PullOptions{Mode: ids.UncommittedFail}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range gc.calls {
		if strings.HasPrefix(c, "git checkout '") {
			t.Fatalf("should not attempt branch restore on detached HEAD, calls: %v", gc.calls)
		}
	}
}
