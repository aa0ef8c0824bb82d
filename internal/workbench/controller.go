// Package workbench drives the notebook workbench container.
//
// The workbench itself is a pre-built third-party image wired together by a
// compose file; this package only triggers state transitions in it and
// queries its state. It provides:
//   - Docker client lifecycle management with version negotiation
//   - Build and detached start of the compose service
//   - Readiness credential retrieval (the notebook server token)
//   - Container status inspection and log streaming
//
// Build/start go through the docker compose CLI, which owns the service
// definition; everything else uses the Docker API directly.
package workbench

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/riffle-ml/riffle/internal/logger"
)

// composeServiceLabel is set by docker compose on every container it
// creates, carrying the service name from the compose file.
const composeServiceLabel = "com.docker.compose.service"

// serverListCommands are tried in order inside the container to obtain the
// notebook token. Newer images ship jupyter-server, older ones only the
// classic notebook command.
var serverListCommands = [][]string{
	{"jupyter", "server", "list", "--json"},
	{"jupyter", "notebook", "list", "--json"},
}

// DockerController operates the workbench service through the Docker
// daemon and the docker compose CLI.
//
// All methods are safe for concurrent use; the underlying Docker client is
// thread-safe and the controller itself holds no mutable state.
type DockerController struct {
	client *client.Client

	// Progress receives human-readable build/start output lines. The
	// overwrite flag marks carriage-return updates that should replace
	// the previous line (docker's progress bars). Nil discards output.
	Progress func(line string, overwrite bool)
}

// NewDockerController creates a controller and verifies daemon connectivity.
//
// The Docker client is configured from the environment (DOCKER_HOST and
// friends) with API version negotiation, and the daemon is pinged with a
// 5-second timeout so misconfiguration surfaces before any work is done.
func NewDockerController() (*DockerController, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("Docker daemon is not accessible: %w", err)
	}

	return &DockerController{client: cli}, nil
}

// BuildAndStart builds the service image and starts the service detached.
//
// The call returns once the start request has been issued, not once the
// notebook server inside the container is actually serving. Readiness is
// confirmed separately through ReadinessCredential.
func (c *DockerController) BuildAndStart(ctx context.Context, service string) error {
	logger.Info("Building workbench image for service: %s", service)
	if err := runCompose(ctx, c.Progress, "build", service); err != nil {
		return fmt.Errorf("compose build failed: %w", err)
	}

	logger.Info("Starting workbench service: %s (detached)", service)
	if err := runCompose(ctx, c.Progress, "up", "-d", service); err != nil {
		return fmt.Errorf("compose up failed: %w", err)
	}

	return nil
}

// Down stops and removes the compose service containers. The dataset
// device stays attached; only the service is torn down.
func (c *DockerController) Down(ctx context.Context) error {
	logger.Info("Stopping workbench")
	if err := runCompose(ctx, c.Progress, "down"); err != nil {
		return fmt.Errorf("compose down failed: %w", err)
	}
	return nil
}

// ReadinessCredential queries the running service for its notebook token.
//
// Returns the empty string while the service is still starting: no
// container yet, container not running, the jupyter command not answering,
// or an empty server list are all "not ready yet", not errors. Only
// failures talking to the Docker daemon itself are returned as errors.
func (c *DockerController) ReadinessCredential(ctx context.Context, service string) (string, error) {
	id, running, err := c.findContainer(ctx, service)
	if err != nil {
		return "", err
	}
	if id == "" || !running {
		logger.Debug("Workbench container not running yet (service: %s)", service)
		return "", nil
	}

	for _, cmd := range serverListCommands {
		token, err := c.execServerList(ctx, id, cmd)
		if err != nil {
			logger.Debug("Server list command %v failed: %v", cmd, err)
			continue
		}
		if token != "" {
			return token, nil
		}
	}

	return "", nil
}

// execServerList runs a jupyter list command inside the container and
// extracts the token from its JSON-lines output.
func (c *DockerController) execServerList(ctx context.Context, containerID string, cmd []string) (string, error) {
	execResp, err := c.client.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create exec: %w", err)
	}

	attach, err := c.client.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to attach exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return "", fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := c.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return "", fmt.Errorf("failed to inspect exec: %w", err)
	}
	if inspect.ExitCode != 0 {
		return "", fmt.Errorf("command exited with code %d: %s",
			inspect.ExitCode, strings.TrimSpace(stderr.String()))
	}

	return ParseServerList(stdout.Bytes()), nil
}

// ParseServerList extracts the first token from jupyter's --json output.
//
// The output is one JSON object per line, one per running server. Lines
// that are not JSON (startup noise, warnings) are skipped. Returns the
// empty string when no server reports a token.
func ParseServerList(output []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var server struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal([]byte(line), &server); err != nil {
			continue
		}
		if server.Token != "" {
			return server.Token
		}
	}
	return ""
}

// ServiceStatus describes the current state of the workbench container.
type ServiceStatus struct {
	// ContainerID is the full container identifier, empty if no
	// container exists for the service.
	ContainerID string

	// State is the container state as reported by Docker
	// (created, running, exited, ...).
	State string

	// Status is Docker's human-readable status line (e.g. "Up 2 hours").
	Status string

	// HostPort is the published host port for the notebook, zero when
	// not published or not running.
	HostPort int
}

// Status inspects the service container and reports its state.
//
// A missing container is not an error: the returned status has an empty
// ContainerID and state "absent".
func (c *DockerController) Status(ctx context.Context, service string, notebookPort int) (*ServiceStatus, error) {
	id, _, err := c.findContainer(ctx, service)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return &ServiceStatus{State: "absent"}, nil
	}

	info, err := c.client.ContainerInspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}

	status := &ServiceStatus{ContainerID: id}
	if info.State != nil {
		status.State = info.State.Status
		if info.State.Running && info.State.StartedAt != "" {
			if startedAt, err := time.Parse(time.RFC3339Nano, info.State.StartedAt); err == nil {
				status.Status = fmt.Sprintf("(up %s)", time.Since(startedAt).Round(time.Second))
			}
		}
	}

	// Resolve the published notebook port from the container's port map.
	if info.NetworkSettings != nil {
		port, err := nat.NewPort("tcp", fmt.Sprintf("%d", notebookPort))
		if err == nil {
			for _, binding := range info.NetworkSettings.Ports[port] {
				if binding.HostPort != "" {
					fmt.Sscanf(binding.HostPort, "%d", &status.HostPort)
					break
				}
			}
		}
	}

	return status, nil
}

// StreamLogs copies the container's log output to the given writers,
// demultiplexing Docker's combined stream. With follow set, the call
// blocks until the context is cancelled or the container stops.
func (c *DockerController) StreamLogs(ctx context.Context, service string, follow bool, stdout, stderr io.Writer) error {
	id, _, err := c.findContainer(ctx, service)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("no container found for service: %s", service)
	}

	reader, err := c.client.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       "all",
	})
	if err != nil {
		return fmt.Errorf("failed to get container logs: %w", err)
	}
	defer reader.Close()

	_, err = stdcopy.StdCopy(stdout, stderr, reader)
	return err
}

// findContainer locates the compose container for the service by label.
// Returns an empty id when no container exists yet.
func (c *DockerController) findContainer(ctx context.Context, service string) (id string, running bool, err error) {
	containers, err := c.client.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=%s", composeServiceLabel, service)),
		),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to list containers: %w", err)
	}

	if len(containers) == 0 {
		return "", false, nil
	}

	// Compose keeps at most one container per service unless scaled;
	// prefer a running one if several exist.
	for _, ctr := range containers {
		if ctr.State == "running" {
			return ctr.ID, true, nil
		}
	}
	return containers[0].ID, false, nil
}
