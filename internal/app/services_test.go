package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltuffery/Octopus/internal/domain"
)

func testConfig(t *testing.T, storage string) Config {
	t.Helper()
	_, cfg, err := initConfig(writeConfig(t, "octopus.toml", ""))
	require.NoError(t, err)
	cfg.Server.DataDir = t.TempDir()
	cfg.Storage.Driver = storage
	return cfg
}

func TestCreateServices_Memory(t *testing.T) {
	log := zerowrap.Default()
	ctx := zerowrap.WithCtx(context.Background(), log)
	cfg := testConfig(t, "memory")

	svc, err := createServices(ctx, cfg, log)
	require.NoError(t, err)
	defer svc.close(log)

	assert.NotNil(t, svc.registry)
	assert.NotNil(t, svc.siteSvc)
	assert.NotNil(t, svc.scheduler)
	assert.NotNil(t, svc.webhookSvc)
	assert.NotNil(t, svc.logSvc)
	assert.NotNil(t, svc.healthSvc)
	assert.DirExists(t, filepath.Join(cfg.Server.DataDir, "logs", "sites"))

	sites, err := svc.siteSvc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestCreateServices_SQLitePersists(t *testing.T) {
	log := zerowrap.Default()
	ctx := zerowrap.WithCtx(context.Background(), log)
	cfg := testConfig(t, "sqlite")

	svc, err := createServices(ctx, cfg, log)
	require.NoError(t, err)
	hook, err := svc.webhookSvc.Create(ctx, domain.WebhookSpec{Name: "deploy", URL: "https://example.com/hook"})
	require.NoError(t, err)
	svc.close(log)

	assert.FileExists(t, filepath.Join(cfg.Server.DataDir, "octopus.db"))

	reopened, err := createServices(ctx, cfg, log)
	require.NoError(t, err)
	defer reopened.close(log)

	got, err := reopened.webhookSvc.Get(ctx, hook.ID)
	require.NoError(t, err)
	assert.Equal(t, "deploy", got.Name)
	assert.Equal(t, "POST", got.Method)
}

func TestCreateServices_MetricsDisabled(t *testing.T) {
	log := zerowrap.Default()
	ctx := zerowrap.WithCtx(context.Background(), log)
	cfg := testConfig(t, "memory")
	cfg.Metrics.Enabled = false

	svc, err := createServices(ctx, cfg, log)
	require.NoError(t, err)
	defer svc.close(log)

	assert.Nil(t, svc.registry)
	assert.Nil(t, svc.metrics)
}

func TestCreateRateLimiters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := testConfig(t, "memory")

	global, perIP := createRateLimiters(ctx, cfg, zerowrap.Default())
	require.NotNil(t, global)
	require.NotNil(t, perIP)
	assert.True(t, perIP.Allow(ctx, "ip:127.0.0.1"))

	cfg.Server.RateLimit.Enabled = false
	global, perIP = createRateLimiters(ctx, cfg, zerowrap.Default())
	assert.Nil(t, global)
	assert.Nil(t, perIP)
}

func TestImportManifest(t *testing.T) {
	log := zerowrap.Default()
	ctx := zerowrap.WithCtx(context.Background(), log)
	cfg := testConfig(t, "memory")

	svc, err := createServices(ctx, cfg, log)
	require.NoError(t, err)
	defer svc.close(log)

	path := filepath.Join(cfg.Server.DataDir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
webhooks:
  - name: ping
    url: https://example.com/ping
cron:
  - name: nightly
    schedule: "0 3 * * *"
    command: echo nightly
  - name: ping-hourly
    schedule: "@hourly"
    webhook: ping
`), 0o600))

	require.NoError(t, importManifest(ctx, svc, path))

	jobs, err := svc.scheduler.List(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	hooks, err := svc.webhookSvc.List(ctx)
	require.NoError(t, err)
	require.Len(t, hooks, 1)

	// A second import only skips.
	require.NoError(t, importManifest(ctx, svc, path))
	jobs, err = svc.scheduler.List(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestImportManifest_MissingFile(t *testing.T) {
	log := zerowrap.Default()
	ctx := zerowrap.WithCtx(context.Background(), log)
	cfg := testConfig(t, "memory")

	svc, err := createServices(ctx, cfg, log)
	require.NoError(t, err)
	defer svc.close(log)

	assert.Error(t, importManifest(ctx, svc, filepath.Join(cfg.Server.DataDir, "missing.yaml")))
}

func TestSetVersion(t *testing.T) {
	prev := version
	t.Cleanup(func() { version = prev })

	SetVersion("")
	assert.Equal(t, prev, version)
	SetVersion("1.4.0")
	assert.Equal(t, "1.4.0", version)
}
