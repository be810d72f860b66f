// Package docker implements the ContainerDriver port on the Docker API.
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bnema/zerowrap"
	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/ltuffery/Octopus/internal/domain"
)

const (
	LabelSite    = "octopus.site"
	LabelManaged = "octopus.managed"

	appDir  = "/app"
	dataDir = "/data"
)

// LogCollector stores container output per site.
type LogCollector interface {
	StartLogging(ctx context.Context, unitID, site string, stream io.ReadCloser) error
	StopLogging(unitID string) error
	Remove(site string) error
}

// Config holds driver settings.
type Config struct {
	// Network is the docker network containers join; empty uses the default bridge.
	Network string
	// StopTimeout is passed to the daemon before it kills the container.
	StopTimeout time.Duration
}

// Driver runs each site as a container.
type Driver struct {
	client *client.Client
	config Config
	logs   LogCollector
}

// NewDriver connects to the daemon configured in the environment.
func NewDriver(config Config, logs LogCollector) (*Driver, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return NewDriverWithClient(cli, config, logs), nil
}

// NewDriverWithClient creates a driver with a custom client (for testing).
func NewDriverWithClient(cli *client.Client, config Config, logs LogCollector) *Driver {
	if config.StopTimeout <= 0 {
		config.StopTimeout = 10 * time.Second
	}
	return &Driver{client: cli, config: config, logs: logs}
}

// Ping checks that the daemon answers.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Docker daemon: %w", err)
	}
	return nil
}

// ContainerName is the container name used for a site.
func ContainerName(site string) string { return "octopus-" + site }

// VolumeName is the data volume name used for a site.
func VolumeName(site string) string { return "octopus-" + site + "-data" }

// Start creates and starts the site container and returns its ID.
func (d *Driver) Start(ctx context.Context, spec domain.RuntimeSpec) (string, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "adapter",
		zerowrap.FieldAdapter:  "docker",
		zerowrap.FieldAction:   "Start",
		zerowrap.FieldEntityID: spec.SiteID,
		"image":                spec.Image,
	})
	log := zerowrap.FromCtx(ctx)

	if spec.Image == "" {
		return "", domain.NewError(domain.KindValidation, "start container", "no image configured")
	}
	if err := d.ensureImage(ctx, spec.Image); err != nil {
		return "", domain.WrapError(domain.KindExecutionFailure, "start container", err)
	}
	if err := d.removeContainer(ctx, ContainerName(spec.Name)); err != nil {
		return "", domain.WrapError(domain.KindExecutionFailure, "start container", err)
	}
	if _, err := d.client.VolumeCreate(ctx, volume.CreateOptions{
		Name:   VolumeName(spec.Name),
		Labels: d.labels(spec),
	}); err != nil {
		return "", domain.WrapError(domain.KindExecutionFailure, "start container", fmt.Errorf("create volume: %w", err))
	}

	port := nat.Port(fmt.Sprintf("%d/tcp", spec.Port))
	env := append([]string{}, spec.Env...)
	env = append(env, "PORT="+strconv.Itoa(spec.Port))

	containerConfig := &container.Config{
		Image:        spec.Image,
		Env:          env,
		ExposedPorts: nat.PortSet{port: struct{}{}},
		WorkingDir:   appDir,
		Cmd:          []string{"sh", "-c", spec.Command},
		Labels:       d.labels(spec),
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(spec.Port)}},
		},
		Binds: []string{
			spec.Workdir + ":" + appDir,
			VolumeName(spec.Name) + ":" + dataDir,
		},
	}
	var networkConfig *network.NetworkingConfig
	if d.config.Network != "" {
		hostConfig.NetworkMode = container.NetworkMode(d.config.Network)
		networkConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				d.config.Network: {Aliases: []string{spec.Name}},
			},
		}
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, networkConfig, nil, ContainerName(spec.Name))
	if err != nil {
		return "", domain.WrapError(domain.KindExecutionFailure, "start container", log.WrapErr(err, "failed to create container"))
	}
	if err := d.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", domain.WrapError(domain.KindExecutionFailure, "start container", log.WrapErr(err, "failed to start container"))
	}

	d.collectLogs(ctx, resp.ID, spec.Name)

	log.Info().Str("container_id", resp.ID).Msg("container started")
	return resp.ID, nil
}

// Stop stops and removes the container. The data volume is kept.
func (d *Driver) Stop(ctx context.Context, handle string) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "adapter",
		zerowrap.FieldAdapter:  "docker",
		zerowrap.FieldAction:   "Stop",
		zerowrap.FieldEntityID: handle,
	})
	log := zerowrap.FromCtx(ctx)

	_ = d.logs.StopLogging(handle)

	timeout := int(d.config.StopTimeout.Seconds())
	if err := d.client.ContainerStop(ctx, handle, container.StopOptions{Timeout: &timeout}); err != nil {
		if cerrdefs.IsNotFound(err) {
			log.Debug().Msg("container not found, already stopped")
			return nil
		}
		return domain.WrapError(domain.KindExecutionFailure, "stop container", log.WrapErr(err, "failed to stop container"))
	}
	if err := d.removeContainer(ctx, handle); err != nil {
		return domain.WrapError(domain.KindExecutionFailure, "stop container", err)
	}

	log.Info().Msg("container stopped")
	return nil
}

// Status inspects the container.
func (d *Driver) Status(ctx context.Context, handle string) (domain.UnitState, error) {
	resp, err := d.client.ContainerInspect(ctx, handle)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return domain.UnitStopped, nil
		}
		return "", fmt.Errorf("inspect container %s: %w", handle, err)
	}
	if resp.ContainerJSONBase == nil || resp.State == nil {
		return domain.UnitStopped, nil
	}
	switch {
	case resp.State.Running:
		return domain.UnitRunning, nil
	case resp.State.ExitCode != 0 || resp.State.OOMKilled:
		return domain.UnitError, nil
	default:
		return domain.UnitStopped, nil
	}
}

// Usage takes a one-shot stats sample.
func (d *Driver) Usage(ctx context.Context, handle string) (domain.ResourceUsage, error) {
	resp, err := d.client.ContainerStatsOneShot(ctx, handle)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return domain.ResourceUsage{}, domain.NewError(domain.KindNotFound, "usage", "container is not running")
		}
		return domain.ResourceUsage{}, fmt.Errorf("stats for %s: %w", handle, err)
	}
	defer resp.Body.Close()

	var stats container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return domain.ResourceUsage{}, fmt.Errorf("decode stats: %w", err)
	}
	return usageFromStats(stats), nil
}

// Remove deletes the container, its data volume and its logs.
func (d *Driver) Remove(ctx context.Context, handle string, spec domain.RuntimeSpec) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "adapter",
		zerowrap.FieldAdapter:  "docker",
		zerowrap.FieldAction:   "Remove",
		zerowrap.FieldEntityID: spec.SiteID,
	})
	log := zerowrap.FromCtx(ctx)

	if handle != "" {
		_ = d.logs.StopLogging(handle)
		if err := d.removeContainer(ctx, handle); err != nil {
			return domain.WrapError(domain.KindExecutionFailure, "remove container", err)
		}
	}
	if err := d.client.VolumeRemove(ctx, VolumeName(spec.Name), true); err != nil && !cerrdefs.IsNotFound(err) {
		return domain.WrapError(domain.KindExecutionFailure, "remove container", log.WrapErr(err, "failed to remove volume"))
	}
	if err := d.logs.Remove(spec.Name); err != nil {
		log.Warn().Err(err).Msg("failed to remove site logs")
	}

	log.Info().Msg("container and volume removed")
	return nil
}

func (d *Driver) ensureImage(ctx context.Context, ref string) error {
	log := zerowrap.FromCtx(ctx)

	if _, err := d.client.ImageInspect(ctx, ref); err == nil {
		return nil
	} else if !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("inspect image %s: %w", ref, err)
	}

	log.Info().Msg("pulling image")
	reader, err := d.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("read pull response: %w", err)
	}
	return nil
}

func (d *Driver) removeContainer(ctx context.Context, ref string) error {
	err := d.client.ContainerRemove(ctx, ref, container.RemoveOptions{Force: true})
	if err != nil && !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("remove container %s: %w", ref, err)
	}
	return nil
}

func (d *Driver) collectLogs(ctx context.Context, id, site string) {
	log := zerowrap.FromCtx(ctx)

	stream, err := d.client.ContainerLogs(context.WithoutCancel(ctx), id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to attach container logs")
		return
	}
	if err := d.logs.StartLogging(ctx, id, site, stream); err != nil {
		stream.Close()
		log.Warn().Err(err).Msg("failed to collect container logs")
	}
}

func (d *Driver) labels(spec domain.RuntimeSpec) map[string]string {
	return map[string]string{
		LabelSite:    spec.SiteID,
		LabelManaged: "true",
	}
}

// usageFromStats applies the docker CLI formulas: CPU relative to the host
// scaled by online CPUs, memory without the inactive page cache.
func usageFromStats(stats container.StatsResponse) domain.ResourceUsage {
	var usage domain.ResourceUsage

	cpuDelta := float64(stats.CPUStats.CPUUsage.TotalUsage) - float64(stats.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(stats.CPUStats.SystemUsage) - float64(stats.PreCPUStats.SystemUsage)
	online := float64(stats.CPUStats.OnlineCPUs)
	if online == 0 {
		online = float64(len(stats.CPUStats.CPUUsage.PercpuUsage))
	}
	if cpuDelta > 0 && systemDelta > 0 {
		usage.CPUPercent = cpuDelta / systemDelta * online * 100
	}

	usage.MemoryBytes = stats.MemoryStats.Usage
	if cache, ok := stats.MemoryStats.Stats["inactive_file"]; ok && cache < usage.MemoryBytes {
		usage.MemoryBytes -= cache
	}
	return usage
}
