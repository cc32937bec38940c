// Package runtime is the agent's container-runtime boundary: an interface
// the rest of the agent codes against, plus a Docker Engine implementation.
// Keeping it an interface lets C9/C10/C12 be tested without a daemon.
package runtime

import (
	"context"
	"io"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/docktail/fleet/internal/shared/apierrors"
	"github.com/docktail/fleet/internal/shared/model"
)

// LogOptions mirrors the subset of container.LogsOptions the log service
// orchestrator (C12) needs to request.
type LogOptions struct {
	Follow     bool
	Stdout     bool
	Stderr     bool
	Timestamps bool
	Since      string
	Until      string
	Tail       string
}

// Runtime is the container-runtime contract. DockerRuntime is the only
// production implementation; tests substitute a fake.
type Runtime interface {
	ListContainers(ctx context.Context, all bool) ([]model.ContainerInfo, error)
	InspectContainer(ctx context.Context, id string) (model.ContainerInfo, error)
	ContainerLogs(ctx context.Context, id string, opts LogOptions) (io.ReadCloser, error)
	ContainerStatsOneShot(ctx context.Context, id string) ([]byte, error)
	ContainerStatsStream(ctx context.Context, id string) (io.ReadCloser, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Restart(ctx context.Context, id string) error
	Pause(ctx context.Context, id string) error
	Unpause(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// DockerRuntime wraps the Docker Engine API client.
type DockerRuntime struct {
	cli *client.Client
}

// NewDockerRuntime negotiates the API version against the local daemon.
func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &DockerRuntime{cli: cli}, nil
}

func (r *DockerRuntime) ListContainers(ctx context.Context, all bool) ([]model.ContainerInfo, error) {
	summaries, err := r.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, err
	}

	out := make([]model.ContainerInfo, 0, len(summaries))
	for _, s := range summaries {
		name := ""
		if len(s.Names) > 0 {
			name = s.Names[0]
		}
		ports := make([]model.PortMapping, 0, len(s.Ports))
		for _, p := range s.Ports {
			ports = append(ports, model.PortMapping{
				PrivatePort: p.PrivatePort,
				PublicPort:  p.PublicPort,
				Type:        p.Type,
				IP:          p.IP,
			})
		}
		out = append(out, model.ContainerInfo{
			ID:        s.ID,
			Name:      name,
			Image:     s.Image,
			State:     s.State,
			Status:    s.Status,
			Labels:    s.Labels,
			CreatedAt: s.Created,
			Ports:     ports,
		})
	}
	return out, nil
}

func (r *DockerRuntime) InspectContainer(ctx context.Context, id string) (model.ContainerInfo, error) {
	j, err := r.cli.ContainerInspect(ctx, id)
	if err != nil {
		return model.ContainerInfo{}, err
	}

	info := model.ContainerInfo{
		ID:     j.ID,
		Name:   j.Name,
		Image:  j.Config.Image,
		Labels: j.Config.Labels,
	}
	if j.HostConfig != nil {
		info.LogDriver = j.HostConfig.LogConfig.Type
	}
	if j.State != nil {
		info.State = j.State.Status
		info.StateInfo = &model.ContainerStateInfo{
			Running:    j.State.Running,
			Paused:     j.State.Paused,
			Restarting: j.State.Restarting,
			OOMKilled:  j.State.OOMKilled,
			Dead:       j.State.Dead,
			ExitCode:   j.State.ExitCode,
			Error:      j.State.Error,
			StartedAt:  j.State.StartedAt,
			FinishedAt: j.State.FinishedAt,
		}
	}
	if j.Created != "" {
		if t, err := time.Parse(time.RFC3339Nano, j.Created); err == nil {
			info.CreatedAt = t.Unix()
		}
	}
	return info, nil
}

func (r *DockerRuntime) ContainerLogs(ctx context.Context, id string, opts LogOptions) (io.ReadCloser, error) {
	return r.cli.ContainerLogs(ctx, id, container.LogsOptions{
		Follow:     opts.Follow,
		ShowStdout: opts.Stdout,
		ShowStderr: opts.Stderr,
		Timestamps: opts.Timestamps,
		Since:      opts.Since,
		Until:      opts.Until,
		Tail:       opts.Tail,
	})
}

func (r *DockerRuntime) ContainerStatsOneShot(ctx context.Context, id string) ([]byte, error) {
	resp, err := r.cli.ContainerStatsOneShot(ctx, id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (r *DockerRuntime) ContainerStatsStream(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := r.cli.ContainerStats(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// wrapNotFound maps the runtime client's 404s and 403s onto the shared
// ContainerNotFound/PermissionDenied error taxonomy (spec §7).
func wrapNotFound(op string, err error) error {
	if err == nil {
		return nil
	}
	if client.IsErrNotFound(err) || errdefs.IsNotFound(err) {
		return apierrors.Wrap(apierrors.KindContainerNotFound, op, err)
	}
	if errdefs.IsPermissionDenied(err) {
		return apierrors.Wrap(apierrors.KindPermissionDenied, op, err)
	}
	return err
}

func (r *DockerRuntime) Start(ctx context.Context, id string) error {
	return wrapNotFound("start container", r.cli.ContainerStart(ctx, id, container.StartOptions{}))
}

func (r *DockerRuntime) Stop(ctx context.Context, id string) error {
	return wrapNotFound("stop container", r.cli.ContainerStop(ctx, id, container.StopOptions{}))
}

func (r *DockerRuntime) Restart(ctx context.Context, id string) error {
	return wrapNotFound("restart container", r.cli.ContainerRestart(ctx, id, container.StopOptions{}))
}

func (r *DockerRuntime) Pause(ctx context.Context, id string) error {
	return wrapNotFound("pause container", r.cli.ContainerPause(ctx, id))
}

func (r *DockerRuntime) Unpause(ctx context.Context, id string) error {
	return wrapNotFound("unpause container", r.cli.ContainerUnpause(ctx, id))
}

func (r *DockerRuntime) Remove(ctx context.Context, id string) error {
	return wrapNotFound("remove container", r.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}))
}

func (r *DockerRuntime) Ping(ctx context.Context) error {
	_, err := r.cli.Ping(ctx)
	return err
}

func (r *DockerRuntime) Close() error {
	return r.cli.Close()
}

// Client exposes the underlying Docker Engine API client so callers that
// need endpoints outside the Runtime contract (e.g. the exec package's
// kill-on-timeout support) can build their own thin wrapper around it.
func (r *DockerRuntime) Client() *client.Client {
	return r.cli
}
