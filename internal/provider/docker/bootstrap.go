package docker

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// bootstrapResult carries back what the caller needs to finish filling in
// a HostRecord's SSH fields.
type bootstrapResult struct {
	HostPublicKey string
}

// bootstrapSSH configures sshd inside a freshly started container: it
// generates a host keypair if one isn't already present, authorizes the
// provider's single client public key for root, starts sshd detached, and
// waits for the SSH banner on the published port (spec.md §4.E).
func (p *Provider) bootstrapSSH(ctx context.Context, containerID, hostAddr string, hostPort int) (*bootstrapResult, error) {
	steps := []string{
		"mkdir -p /etc/ssh /root/.ssh",
		"chmod 700 /root/.ssh",
		"[ -f /etc/ssh/ssh_host_ed25519_key ] || ssh-keygen -A -q",
		"sed -i 's/^#*PermitRootLogin.*/PermitRootLogin prohibit-password/' /etc/ssh/sshd_config",
		"sed -i 's/^#*PasswordAuthentication.*/PasswordAuthentication no/' /etc/ssh/sshd_config",
	}
	for _, step := range steps {
		if _, stderr, exitCode, err := p.cli.Exec(ctx, containerID, []string{"sh", "-c", step}, nil, ""); err != nil {
			return nil, fmt.Errorf("ssh bootstrap step %q: %w", step, err)
		} else if exitCode != 0 {
			return nil, fmt.Errorf("ssh bootstrap step %q failed: %s", step, stderr)
		}
	}

	if err := p.cli.CopyFileToContainer(ctx, containerID, "/root/.ssh/authorized_keys", []byte(p.cfg.ClientPublicKey+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("authorize client key: %w", err)
	}

	if _, stderr, exitCode, err := p.cli.Exec(ctx, containerID, []string{"sh", "-c", "/usr/sbin/sshd"}, nil, ""); err != nil {
		return nil, fmt.Errorf("start sshd: %w", err)
	} else if exitCode != 0 {
		return nil, fmt.Errorf("start sshd failed: %s", stderr)
	}

	stdout, stderr, exitCode, err := p.cli.Exec(ctx, containerID, []string{"cat", "/etc/ssh/ssh_host_ed25519_key.pub"}, nil, "")
	if err != nil {
		return nil, fmt.Errorf("read host public key: %w", err)
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("read host public key failed: %s", stderr)
	}
	hostPublicKey := strings.TrimSpace(stdout)

	if err := waitForSSHBanner(hostAddr, hostPort, 10*time.Second); err != nil {
		return nil, err
	}

	return &bootstrapResult{HostPublicKey: hostPublicKey}, nil
}

// waitForSSHBanner dials addr:port repeatedly until the server's greeting
// line begins with "SSH-" or timeout elapses (spec.md §4.E).
func waitForSSHBanner(addr string, port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	target := fmt.Sprintf("%s:%d", addr, port)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", target, time.Second)
		if err != nil {
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		line, err := bufio.NewReader(conn).ReadString('\n')
		conn.Close()
		if err == nil && strings.HasPrefix(line, "SSH-") {
			return nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for SSH banner on %s: %v", target, lastErr)
}
