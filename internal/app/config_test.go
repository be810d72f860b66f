package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInitConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "octopus.toml", "")

	_, cfg, err := initConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "process", cfg.Sites.DefaultRuntime)
	assert.Equal(t, 10*time.Minute, cfg.Sites.BuildTimeout)
	assert.Equal(t, time.Second, cfg.Cron.TickInterval)
	assert.Equal(t, "allow", cfg.Cron.Overlap)
	maxOutput, err := cfg.maxOutputBytes()
	require.NoError(t, err)
	assert.Equal(t, 64*1024, maxOutput)
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 50.0, cfg.Server.RateLimit.PerIPRPS)
	assert.Equal(t, 100, cfg.Server.RateLimit.Burst)
	assert.NotEmpty(t, cfg.Server.DataDir)
}

func TestInitConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, "octopus.toml", `
[server]
addr = "0.0.0.0:9000"
allowed_cidrs = ["10.0.0.0/8"]

[sites]
build_timeout = "2m"
auto_build = true

[cron]
overlap = "skip"

[process]
max_output = 131072
`)
	t.Setenv("OCTOPUS_STORAGE_DRIVER", "memory")
	t.Setenv("OCTOPUS_CRON_COMMAND_TIMEOUT", "45s")

	_, cfg, err := initConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.AllowedCIDRs)
	assert.Equal(t, 2*time.Minute, cfg.Sites.BuildTimeout)
	assert.True(t, cfg.Sites.AutoBuild)
	assert.Equal(t, "skip", cfg.Cron.Overlap)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 45*time.Second, cfg.Cron.CommandTimeout)
	maxOutput, err := cfg.maxOutputBytes()
	require.NoError(t, err)
	assert.Equal(t, 128*1024, maxOutput)
}

func TestInitConfig_YAML(t *testing.T) {
	path := writeConfig(t, "octopus.yaml", `
storage:
  driver: memory
docker:
  enabled: true
sites:
  default_runtime: docker
`)

	_, cfg, err := initConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Docker.Enabled)
	assert.Equal(t, "docker", cfg.Sites.DefaultRuntime)
}

func TestInitConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"storage driver", "[storage]\ndriver = \"postgres\"\n"},
		{"runtime", "[sites]\ndefault_runtime = \"vm\"\n"},
		{"docker runtime without docker", "[sites]\ndefault_runtime = \"docker\"\n"},
		{"overlap", "[cron]\noverlap = \"queue\"\n"},
		{"max output", "[process]\nmax_output = \"lots\"\n"},
		{"rate limit", "[server.rate_limit]\nper_ip_rps = 0\n"},
		{"notification event", "[notifications]\nevents = [\"site.exploded\"]\n"},
		{"syntax", "[server\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := initConfig(writeConfig(t, "octopus.toml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "octopus.db"), resolvePath("/data", "", "octopus.db"))
	assert.Equal(t, "/srv/db.sqlite", resolvePath("/data", "/srv/db.sqlite", "octopus.db"))
	assert.Equal(t, filepath.Join("/data", "custom", "db"), resolvePath("/data", "custom/db", "octopus.db"))
}
