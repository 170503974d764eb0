package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig describes how to reach a remote host. Strict host-key checking
// is mandatory (spec.md §6): KnownHostsFile must contain the host's key.
type SSHConfig struct {
	Addr           string // host:port
	User           string
	Signer         ssh.Signer
	KnownHostsFile string
	DialTimeout    time.Duration
}

// SSH is a Connector implementation: one channel per command, per spec.md
// §4.C. Connection loss (closed socket, EOF) surfaces as a wrapped
// connection error for Provider.OnConnectionError to detect.
type SSH struct {
	cfg    SSHConfig
	client *ssh.Client
}

// NewSSH dials the remote host, enforcing known_hosts verification.
func NewSSH(cfg SSHConfig) (*SSH, error) {
	callback, err := knownhosts.New(cfg.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", cfg.KnownHostsFile, err)
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(cfg.Signer)},
		HostKeyCallback: callback,
		Timeout:         timeout,
	}
	client, err := ssh.Dial("tcp", cfg.Addr, clientCfg)
	if err != nil {
		return nil, wrapConnectionError(err)
	}
	return &SSH{cfg: cfg, client: client}, nil
}

func (s *SSH) RunShellCommand(ctx context.Context, cmd string, opts RunOptions) (RunResult, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return RunResult{}, wrapConnectionError(err)
	}
	defer session.Close()

	for k, v := range opts.Env {
		_ = session.Setenv(k, v)
	}
	full := cmd
	if opts.Cwd != "" {
		full = fmt.Sprintf("cd %s && %s", shellQuote(opts.Cwd), cmd)
	}
	if opts.AsRoot {
		full = "sudo -n sh -c " + shellQuote(full)
	} else if opts.User != "" {
		full = fmt.Sprintf("sudo -n -u %s sh -c %s", opts.User, shellQuote(full))
	}

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(full) }()

	timeout := effectiveTimeout(opts)
	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return RunResult{}, ctx.Err()
	case <-time.After(timeout):
		_ = session.Signal(ssh.SIGKILL)
		return RunResult{}, fmt.Errorf("run %q: timed out after %s", cmd, timeout)
	case err := <-done:
		result := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
		if err == nil {
			result.Success = true
			return result, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		if isClosedErr(err) {
			return result, wrapConnectionError(err)
		}
		return result, fmt.Errorf("run %q: %w", cmd, err)
	}
}

func isClosedErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return false
}

func (s *SSH) GetFile(ctx context.Context, remotePath string) ([]byte, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return nil, wrapConnectionError(err)
	}
	defer session.Close()
	out, err := session.Output(fmt.Sprintf("cat %s", shellQuote(remotePath)))
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return nil, ErrFileNotFound
		}
		return nil, wrapConnectionError(err)
	}
	return out, nil
}

func (s *SSH) PutFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	session, err := s.client.NewSession()
	if err != nil {
		return wrapConnectionError(err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		return err
	}
	cmd := fmt.Sprintf("mkdir -p %s && cat > %s && chmod %o %s",
		shellQuote(filepath.Dir(remotePath)), shellQuote(remotePath), mode, shellQuote(remotePath))
	if err := session.Start(cmd); err != nil {
		session.Close()
		return wrapConnectionError(err)
	}
	if _, err := stdin.Write(data); err != nil {
		session.Close()
		return err
	}
	_ = stdin.Close()
	if err := session.Wait(); err != nil {
		return fmt.Errorf("put file %s: %w", remotePath, err)
	}
	return session.Close()
}

func (s *SSH) Disconnect() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
