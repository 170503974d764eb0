// Package docker implements provider.Provider on top of the Docker Engine
// API, adapted from the teacher's agents/shared/docker client wrapper: one
// container per host instead of one per dyad member, relabeled for the
// host-lifecycle domain (spec.md §4.E).
package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// dockerClient wraps the Docker SDK client with the small surface the
// provider needs, kept separate from Provider.
type dockerClient struct {
	api *client.Client
}

func newDockerClient() (*dockerClient, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	if err := pingClient(cli); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("ping docker daemon: %w", err)
	}
	return &dockerClient{api: cli}, nil
}

func pingClient(cli *client.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := cli.Ping(ctx)
	return err
}

func (c *dockerClient) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	return c.api.Close()
}

func (c *dockerClient) EnsureNetwork(ctx context.Context, name string, labels map[string]string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("network name required")
	}
	args := filters.NewArgs()
	args.Add("name", name)
	list, err := c.api.NetworkList(ctx, types.NetworkListOptions{Filters: args})
	if err != nil {
		return "", err
	}
	for _, item := range list {
		if item.Name == name {
			return item.ID, nil
		}
	}
	resp, err := c.api.NetworkCreate(ctx, name, types.NetworkCreate{
		CheckDuplicate: true,
		Driver:         "bridge",
		Labels:         labels,
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *dockerClient) EnsureVolume(ctx context.Context, name string, labels map[string]string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("volume name required")
	}
	list, err := c.api.VolumeList(ctx, volume.ListOptions{Filters: filters.NewArgs(filters.Arg("name", name))})
	if err != nil {
		return "", err
	}
	for _, item := range list.Volumes {
		if item.Name == name {
			return item.Name, nil
		}
	}
	resp, err := c.api.VolumeCreate(ctx, volume.CreateOptions{Name: name, Labels: labels})
	if err != nil {
		return "", err
	}
	return resp.Name, nil
}

func (c *dockerClient) ContainerByLabels(ctx context.Context, labels map[string]string) (string, *types.ContainerJSON, error) {
	args := filters.NewArgs()
	for key, val := range labels {
		if key == "" || val == "" {
			continue
		}
		args.Add("label", key+"="+val)
	}
	list, err := c.api.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return "", nil, err
	}
	if len(list) == 0 {
		return "", nil, nil
	}
	selected := list[0]
	for _, item := range list {
		if item.State == "running" {
			selected = item
			break
		}
	}
	info, err := c.api.ContainerInspect(ctx, selected.ID)
	if err != nil {
		return "", nil, err
	}
	return info.ID, &info, nil
}

func (c *dockerClient) ListContainersByLabels(ctx context.Context, labels map[string]string) ([]types.Container, error) {
	args := filters.NewArgs()
	for key, val := range labels {
		if key == "" || val == "" {
			continue
		}
		args.Add("label", key+"="+val)
	}
	return c.api.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
}

func (c *dockerClient) Exec(ctx context.Context, containerID string, cmd []string, env []string, workDir string) (stdout, stderr string, exitCode int, err error) {
	execResp, err := c.api.ContainerExecCreate(ctx, containerID, types.ExecConfig{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
		Env:          env,
		WorkingDir:   workDir,
	})
	if err != nil {
		return "", "", 0, err
	}
	attach, err := c.api.ContainerExecAttach(ctx, execResp.ID, types.ExecStartCheck{})
	if err != nil {
		return "", "", 0, err
	}
	defer attach.Close()

	var outBuf, errBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&outBuf, &errBuf, attach.Reader); err != nil {
		return "", "", 0, err
	}
	inspect, err := c.api.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return "", "", 0, err
	}
	return outBuf.String(), errBuf.String(), inspect.ExitCode, nil
}

func (c *dockerClient) CopyFileToContainer(ctx context.Context, containerID, destPath string, data []byte, mode int64) error {
	if mode == 0 {
		mode = 0o644
	}
	destDir := path.Dir(destPath)
	name := path.Base(destPath)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{Name: name, Mode: mode, Size: int64(len(data)), ModTime: time.Now()}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := tw.Write(data); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return c.api.CopyToContainer(ctx, containerID, destDir, &buf, types.CopyToContainerOptions{AllowOverwriteDirWithFile: true})
}

func (c *dockerClient) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	return c.api.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: force, RemoveVolumes: true})
}

func (c *dockerClient) RemoveVolume(ctx context.Context, name string, force bool) error {
	return c.api.VolumeRemove(ctx, name, force)
}

func (c *dockerClient) CreateContainer(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, name string) (string, error) {
	resp, err := c.api.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, name)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *dockerClient) StartContainer(ctx context.Context, containerID string) error {
	return c.api.ContainerStart(ctx, containerID, container.StartOptions{})
}

func (c *dockerClient) StopContainer(ctx context.Context, containerID string, timeout time.Duration) error {
	seconds := int(timeout.Seconds())
	return c.api.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &seconds})
}

func (c *dockerClient) CommitContainer(ctx context.Context, containerID, repo, tag string) (string, error) {
	resp, err := c.api.ContainerCommit(ctx, containerID, types.ContainerCommitOptions{Reference: repo + ":" + tag})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *dockerClient) RemoveImage(ctx context.Context, imageID string) error {
	_, err := c.api.ImageRemove(ctx, imageID, types.ImageRemoveOptions{Force: true})
	return err
}

func (c *dockerClient) PullImage(ctx context.Context, ref string) error {
	reader, err := c.api.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	return err
}

func (c *dockerClient) BuildImage(ctx context.Context, tarball io.Reader, tag string, buildArgs map[string]*string) error {
	resp, err := c.api.ImageBuild(ctx, tarball, types.ImageBuildOptions{Tags: []string{tag}, BuildArgs: buildArgs, Remove: true})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

func (c *dockerClient) HostPortFor(ctx context.Context, containerID string, containerPort int) (string, error) {
	info, err := c.api.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", err
	}
	if info.NetworkSettings == nil {
		return "", fmt.Errorf("container %s has no network settings", containerID)
	}
	for port, bindings := range info.NetworkSettings.Ports {
		if port.Int() == containerPort {
			for _, b := range bindings {
				if strings.TrimSpace(b.HostPort) != "" {
					return b.HostPort, nil
				}
			}
		}
	}
	return "", fmt.Errorf("no host port bound for container port %d", containerPort)
}

func (c *dockerClient) ContainerLogs(ctx context.Context, containerID string, tailLines int) (string, error) {
	tail := ""
	if tailLines > 0 {
		tail = fmt.Sprintf("%d", tailLines)
	}
	reader, err := c.api.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true, Tail: tail})
	if err != nil {
		return "", err
	}
	defer reader.Close()
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		_, _ = io.Copy(&buf, reader)
	}
	return buf.String(), nil
}

// fileExists reports whether a local file is present.
func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
