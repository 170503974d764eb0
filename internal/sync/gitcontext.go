// Package sync implements the two independent sync pipelines of spec.md
// §4.H, bidirectional across the local/agent boundary: a file pipeline
// (rsync) and a git pipeline (push/pull/stash-guard), both driven through
// the same GitContext abstraction so neither side's logic has to branch on
// whether it's talking to the local filesystem or a remote agent host.
package sync

import (
	"context"
	"os/exec"
	"strings"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/transport"
)

// GitContext runs a command in a working directory, either via a direct
// local exec or via a Host's Connector (spec.md §4.H).
type GitContext interface {
	Run(ctx context.Context, cmd string, cwd string) (transport.RunResult, error)
}

// LocalGitContext runs commands directly on the control plane's own
// filesystem via os/exec, bypassing the Connector abstraction the same way
// transport.Local does for local hosts.
type LocalGitContext struct{}

func (LocalGitContext) Run(ctx context.Context, cmd string, cwd string) (transport.RunResult, error) {
	c := exec.CommandContext(ctx, "bash", "-c", cmd)
	c.Dir = cwd
	var stdout, stderr strings.Builder
	c.Stdout = &stdout
	c.Stderr = &stderr
	err := c.Run()
	exitCode := 0
	success := true
	if err != nil {
		success = false
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return transport.RunResult{}, err
		}
	}
	return transport.RunResult{Success: success, Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}, nil
}

// HostGitContext runs commands via a hostd.Host's ExecuteCommand, i.e. over
// whatever Connector backs that host (local exec or SSH).
type HostGitContext struct {
	Host *hostd.Host
}

func (h HostGitContext) Run(ctx context.Context, cmd string, cwd string) (transport.RunResult, error) {
	return h.Host.ExecuteCommand(cmd, transport.RunOptions{Cwd: cwd})
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
