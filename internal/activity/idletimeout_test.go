package activity

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

type fakeConnector struct {
	runFunc func(cmd string, opts transport.RunOptions) (transport.RunResult, error)
	puts    map[string][]byte
}

func (c *fakeConnector) RunShellCommand(ctx context.Context, cmd string, opts transport.RunOptions) (transport.RunResult, error) {
	if c.runFunc != nil {
		return c.runFunc(cmd, opts)
	}
	return transport.RunResult{Success: true}, nil
}

func (c *fakeConnector) GetFile(ctx context.Context, remotePath string) ([]byte, error) {
	return nil, transport.ErrFileNotFound
}

func (c *fakeConnector) PutFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	if c.puts == nil {
		c.puts = map[string][]byte{}
	}
	c.puts[remotePath] = data
	return nil
}

func (c *fakeConnector) Disconnect() error { return nil }

func TestInstallShutdownScriptWritesExecutable(t *testing.T) {
	conn := &fakeConnector{}
	h := hostd.New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", conn, nil, nil)

	if err := InstallShutdownScript(h, "kill -TERM 1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, ok := conn.puts["/home/hostctl/.hostctl/commands/shutdown.sh"]
	if !ok {
		t.Fatalf("expected shutdown.sh to be written, got: %v", conn.puts)
	}
	if !strings.Contains(string(data), "kill -TERM 1") {
		t.Fatalf("unexpected script contents: %s", data)
	}
}

func TestInstallIdleTimeoutMonitorSkipsNonPositiveTimeout(t *testing.T) {
	var called bool
	conn := &fakeConnector{runFunc: func(cmd string, opts transport.RunOptions) (transport.RunResult, error) {
		called = true
		return transport.RunResult{Success: true}, nil
	}}
	h := hostd.New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", conn, nil, nil)

	if err := InstallIdleTimeoutMonitor(h, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("expected no command run for a zero timeout")
	}
}

func TestInstallIdleTimeoutMonitorLaunchesDetachedLoop(t *testing.T) {
	var gotCmd string
	conn := &fakeConnector{runFunc: func(cmd string, opts transport.RunOptions) (transport.RunResult, error) {
		gotCmd = cmd
		return transport.RunResult{Success: true}, nil
	}}
	h := hostd.New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", conn, nil, nil)

	if err := InstallIdleTimeoutMonitor(h, 600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotCmd, "nohup bash -c") {
		t.Fatalf("expected a detached nohup loop, got: %s", gotCmd)
	}
}
