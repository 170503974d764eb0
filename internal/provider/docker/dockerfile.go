package docker

import (
	"archive/tar"
	"bytes"
	"time"
)

// builtinDockerfile pre-installs exactly what the SSH-bootstrap and tmux
// session supervisor need at runtime (spec.md §4.E: "SSH server, terminal
// multiplexer, common tooling"). Built when the caller supplies no image
// reference, or supplies build args.
const builtinDockerfile = `FROM debian:bookworm-slim
RUN apt-get update && apt-get install -y --no-install-recommends \
        openssh-server tmux git rsync curl ca-certificates procps \
    && rm -rf /var/lib/apt/lists/* \
    && mkdir -p /run/sshd
ENTRYPOINT ["/bin/sh", "-c", "` + entrypointScript + `"]
`

// entrypointScript traps SIGTERM and idles, so `docker stop` (which sends
// SIGTERM to PID 1) shuts the container down cleanly instead of Docker
// falling back to SIGKILL after its grace period.
const entrypointScript = `trap 'exit 0' TERM; tail -f /dev/null & wait`

// buildContextTar wraps a single Dockerfile in the tar stream the Docker
// build API expects as its build context.
func buildContextTar(dockerfile string) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{Name: "Dockerfile", Mode: 0o644, Size: int64(len(dockerfile)), ModTime: time.Now()}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}
	if _, err := tw.Write([]byte(dockerfile)); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
