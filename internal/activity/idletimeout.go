// Package activity wires spec.md §4.I idle detection into two surfaces:
// an on-host shell monitor that calls a provider's shutdown.sh once the
// host has been idle past its configured timeout, and a control-plane-side
// Prometheus collector exposing idle seconds per host.
package activity

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/transport"
)

const (
	shutdownScriptPath     = "commands/shutdown.sh"
	idleMonitorIntervalSec = 30
)

// InstallShutdownScript writes the provider-specific shutdown command to
// <host_dir>/commands/shutdown.sh (spec.md §6). For Docker this is
// `kill -TERM 1`, relying on the entrypoint's SIGTERM trap.
func InstallShutdownScript(h *hostd.Host, shutdownCommand string) error {
	content := "#!/bin/sh\n" + shutdownCommand + "\n"
	return writeExecutable(h, shutdownScriptPath, content)
}

// InstallIdleTimeoutMonitor launches a detached, nohup'd shell loop that
// polls the host's own idle seconds (by stat'ing the same activity files
// GetIdleSeconds reads) and invokes shutdown.sh once idleTimeoutSeconds is
// exceeded. This runs entirely on the host, independent of the control
// plane being connected (spec.md §4.I: "that script is only responsible
// for calling the host's shutdown.sh").
func InstallIdleTimeoutMonitor(h *hostd.Host, idleTimeoutSeconds float64) error {
	if idleTimeoutSeconds <= 0 {
		return nil
	}
	script := idleMonitorScript(h.HostDir, idleTimeoutSeconds)
	cmd := fmt.Sprintf("nohup bash -c %s </dev/null >/dev/null 2>&1 &", shQuote(script))
	result, err := h.Conn.RunShellCommand(context.Background(), cmd, transport.RunOptions{})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("failed to install idle-timeout monitor: %s", result.Stderr)
	}
	return nil
}

// idleMonitorScript builds a shell loop finding the newest mtime across the
// host's own activity dir and every agent's activity dir, calling
// shutdown.sh once that age crosses timeoutSeconds.
func idleMonitorScript(hostDir string, timeoutSeconds float64) string {
	return fmt.Sprintf(`
HOST_DIR=%s
TIMEOUT=%d
SHUTDOWN=%s
while true; do
    sleep %d
    NEWEST=0
    for f in "$HOST_DIR"/activity/* "$HOST_DIR"/agents/*/activity/*; do
        [ -e "$f" ] || continue
        MTIME=$(stat -c %%Y "$f" 2>/dev/null || stat -f %%m "$f" 2>/dev/null)
        if [ -n "$MTIME" ] && [ "$MTIME" -gt "$NEWEST" ]; then
            NEWEST=$MTIME
        fi
    done
    if [ "$NEWEST" -eq 0 ]; then
        continue
    fi
    NOW=$(date +%%s)
    IDLE=$((NOW - NEWEST))
    if [ "$IDLE" -ge "$TIMEOUT" ]; then
        sh "$SHUTDOWN"
        exit 0
    fi
done
`, shQuote(hostDir), int(timeoutSeconds), shQuote(hostDir+"/"+shutdownScriptPath), idleMonitorIntervalSec)
}

func writeExecutable(h *hostd.Host, relPath, content string) error {
	full := path.Join(h.HostDir, relPath)
	mkdirCmd := fmt.Sprintf("mkdir -p %s", shQuote(path.Dir(full)))
	ctx := context.Background()
	if result, err := h.Conn.RunShellCommand(ctx, mkdirCmd, transport.RunOptions{}); err != nil {
		return err
	} else if !result.Success {
		return fmt.Errorf("mkdir %s: %s", full, result.Stderr)
	}
	return h.Conn.PutFile(ctx, full, []byte(content), 0o755)
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
