// Package exec implements the agent-side exec/kill-on-timeout contract
// described in spec §5 and §7: run a command inside a container, and if a
// caller-supplied timeout trips, exec a `kill -9 <pid>` inside the same
// container so the original process never becomes an orphan. The actual
// PTY/stdio plumbing a full exec RPC would need is out of scope (spec §1);
// this package only owns the create/poll/kill state machine.
package exec

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"

	"github.com/docktail/fleet/internal/shared/apierrors"
)

// pollInterval is how often Run polls ExecInspect while waiting for a
// command to finish.
const pollInterval = 100 * time.Millisecond

// Client is the exec-side contract the runner needs from a container
// runtime. DockerClient is the only production implementation.
type Client interface {
	ExecCreate(ctx context.Context, containerID string, cmd []string) (execID string, err error)
	ExecStart(ctx context.Context, execID string) error
	ExecInspect(ctx context.Context, execID string) (pid int, running bool, exitCode int, err error)
}

// DockerClient wraps the Docker Engine API client's exec endpoints.
type DockerClient struct {
	cli *client.Client
}

func NewDockerClient(cli *client.Client) *DockerClient {
	return &DockerClient{cli: cli}
}

func (d *DockerClient) ExecCreate(ctx context.Context, containerID string, cmd []string) (string, error) {
	resp, err := d.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (d *DockerClient) ExecStart(ctx context.Context, execID string) error {
	return d.cli.ContainerExecStart(ctx, execID, container.ExecStartOptions{Detach: true})
}

func (d *DockerClient) ExecInspect(ctx context.Context, execID string) (int, bool, int, error) {
	insp, err := d.cli.ContainerExecInspect(ctx, execID)
	if err != nil {
		return 0, false, 0, err
	}
	return insp.Pid, insp.Running, insp.ExitCode, nil
}

// Result is the outcome of a Runner.Run call.
type Result struct {
	ExitCode int
	TimedOut bool
}

// Runner owns the create/poll/kill state machine for one-shot exec
// commands against a container.
type Runner struct {
	client Client
	log    *logrus.Entry
}

func New(c Client, log *logrus.Entry) *Runner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Runner{client: c, log: log}
}

// Run execs cmd inside containerID and blocks until it finishes or timeout
// elapses (a zero timeout means wait forever). On trip, it execs
// `kill -9 <pid>` in the same container before returning an
// apierrors.KindTimeout error, so the original process doesn't outlive the
// caller's patience.
func (r *Runner) Run(ctx context.Context, containerID string, cmd []string, timeout time.Duration) (Result, error) {
	execID, err := r.client.ExecCreate(ctx, containerID, cmd)
	if err != nil {
		return Result{}, fmt.Errorf("create exec: %w", err)
	}
	if err := r.client.ExecStart(ctx, execID); err != nil {
		return Result{}, fmt.Errorf("start exec: %w", err)
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-deadline:
			pid, running, _, inspectErr := r.client.ExecInspect(ctx, execID)
			if inspectErr == nil && running && pid > 0 {
				r.killOrphan(containerID, pid)
			}
			return Result{TimedOut: true}, apierrors.New(apierrors.KindTimeout,
				fmt.Sprintf("exec %q timed out after %s", cmd, timeout))
		case <-ticker.C:
			pid, running, exitCode, inspectErr := r.client.ExecInspect(ctx, execID)
			if inspectErr != nil {
				return Result{}, fmt.Errorf("inspect exec: %w", inspectErr)
			}
			if !running {
				return Result{ExitCode: exitCode}, nil
			}
			_ = pid
		}
	}
}

// killOrphan execs `kill -9 <pid>` inside containerID using a background
// context so the caller's (already-expired) context can't cancel the kill
// itself.
func (r *Runner) killOrphan(containerID string, pid int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	killCmd := []string{"kill", "-9", fmt.Sprintf("%d", pid)}
	killExecID, err := r.client.ExecCreate(ctx, containerID, killCmd)
	if err != nil {
		r.log.WithError(err).WithField("container_id", containerID).
			Warn("failed to create kill exec for timed-out process")
		return
	}
	if err := r.client.ExecStart(ctx, killExecID); err != nil {
		r.log.WithError(err).WithField("container_id", containerID).
			Warn("failed to start kill exec for timed-out process")
	}
}
