package docker

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/silexa/hostctl/internal/transport"
)

// execConnector is a transport.Connector tunneled through `docker exec`,
// used only to reach the singleton state container (spec.md §4.E) — the
// volume that backs the DockerVolumeStore never needs SSH since the
// control-plane process and the Docker daemon share a host.
type execConnector struct {
	cli         *dockerClient
	containerID string
}

func (c *execConnector) RunShellCommand(ctx context.Context, cmd string, opts transport.RunOptions) (transport.RunResult, error) {
	full := cmd
	if opts.Cwd != "" {
		full = fmt.Sprintf("cd %s && %s", shellQuoteExec(opts.Cwd), cmd)
	}
	var env []string
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}
	stdout, stderr, exitCode, err := c.cli.Exec(ctx, c.containerID, []string{"sh", "-c", full}, env, "")
	if err != nil {
		return transport.RunResult{}, err
	}
	return transport.RunResult{
		Success:  exitCode == 0,
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
	}, nil
}

func (c *execConnector) GetFile(ctx context.Context, remotePath string) ([]byte, error) {
	stdout, _, exitCode, err := c.cli.Exec(ctx, c.containerID, []string{"cat", remotePath}, nil, "")
	if err != nil {
		return nil, err
	}
	if exitCode != 0 {
		return nil, transport.ErrFileNotFound
	}
	return []byte(stdout), nil
}

func (c *execConnector) PutFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	if _, _, exitCode, err := c.cli.Exec(ctx, c.containerID, []string{"mkdir", "-p", parentDir(remotePath)}, nil, ""); err != nil {
		return err
	} else if exitCode != 0 {
		return fmt.Errorf("mkdir -p %s in state container: exit %d", parentDir(remotePath), exitCode)
	}
	return c.cli.CopyFileToContainer(ctx, c.containerID, remotePath, data, int64(mode))
}

func (c *execConnector) Disconnect() error { return nil }

func shellQuoteExec(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func parentDir(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}
