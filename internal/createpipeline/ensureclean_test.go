package createpipeline

import (
	"context"
	"testing"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

func TestCheckEnsureCleanSkippedWhenDisabled(t *testing.T) {
	if err := checkEnsureClean(context.Background(), nil, "", false, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckEnsureCleanSkippedWithBaseBranch(t *testing.T) {
	if err := checkEnsureClean(context.Background(), nil, "", true, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckEnsureCleanRejectsDirtyTree(t *testing.T) {
	conn := &fakeConnector{runFunc: func(cmd string, opts transport.RunOptions) (transport.RunResult, error) {
		return transport.RunResult{Success: true, Stdout: " M file.go\n"}, nil
	}}
	h := hostd.New(ids.NewHostID(), "/tmp/host", "hostctl-", conn, nil, nil)
	if err := checkEnsureClean(context.Background(), h, "/some/repo", true, ""); err == nil {
		t.Fatalf("expected dirty-tree error")
	}
}

func TestCheckEnsureCleanAllowsCleanTree(t *testing.T) {
	conn := &fakeConnector{runFunc: func(cmd string, opts transport.RunOptions) (transport.RunResult, error) {
		return transport.RunResult{Success: true, Stdout: ""}, nil
	}}
	h := hostd.New(ids.NewHostID(), "/tmp/host", "hostctl-", conn, nil, nil)
	if err := checkEnsureClean(context.Background(), h, "/some/repo", true, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
