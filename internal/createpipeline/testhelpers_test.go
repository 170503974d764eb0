package createpipeline

import (
	"context"
	"os"

	"github.com/silexa/hostctl/internal/transport"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// fakeConnector is a scriptable transport.Connector for tests that need a
// *hostd.Host without a real local/SSH backend.
type fakeConnector struct {
	runFunc func(cmd string, opts transport.RunOptions) (transport.RunResult, error)
}

func (f *fakeConnector) RunShellCommand(ctx context.Context, cmd string, opts transport.RunOptions) (transport.RunResult, error) {
	if f.runFunc != nil {
		return f.runFunc(cmd, opts)
	}
	return transport.RunResult{Success: true}, nil
}

func (f *fakeConnector) GetFile(ctx context.Context, remotePath string) ([]byte, error) {
	return nil, transport.ErrFileNotFound
}

func (f *fakeConnector) PutFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	return nil
}

func (f *fakeConnector) Disconnect() error { return nil }
