package app

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ltuffery/Octopus/internal/domain"
	"github.com/ltuffery/Octopus/pkg/bytesize"
)

// Config holds the application configuration.
type Config struct {
	Server struct {
		Addr           string        `mapstructure:"addr"`
		DataDir        string        `mapstructure:"data_dir"`
		AllowedCIDRs   []string      `mapstructure:"allowed_cidrs"`
		TrustedProxies []string      `mapstructure:"trusted_proxies"`
		ReadTimeout    time.Duration `mapstructure:"read_timeout"`
		WriteTimeout   time.Duration `mapstructure:"write_timeout"`
		RateLimit      struct {
			Enabled   bool    `mapstructure:"enabled"`
			GlobalRPS float64 `mapstructure:"global_rps"`
			PerIPRPS  float64 `mapstructure:"per_ip_rps"`
			Burst     int     `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"server"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   struct {
			Enabled    bool   `mapstructure:"enabled"`
			Path       string `mapstructure:"path"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
		} `mapstructure:"file"`
		SiteLogs struct {
			Dir        string `mapstructure:"dir"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
		} `mapstructure:"site_logs"`
	} `mapstructure:"logging"`

	Storage struct {
		Driver string `mapstructure:"driver"` // "sqlite" or "memory"
		Path   string `mapstructure:"path"`
	} `mapstructure:"storage"`

	Sites struct {
		BuildTimeout    time.Duration `mapstructure:"build_timeout"`
		StartTimeout    time.Duration `mapstructure:"start_timeout"`
		StopTimeout     time.Duration `mapstructure:"stop_timeout"`
		GitTimeout      time.Duration `mapstructure:"git_timeout"`
		AutoBuild       bool          `mapstructure:"auto_build"`
		WorkspaceDir    string        `mapstructure:"workspace_dir"`
		DefaultRuntime  string        `mapstructure:"default_runtime"`
		Manifest        string        `mapstructure:"manifest"`
		EnvFile         string        `mapstructure:"env_file"`
		MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	} `mapstructure:"sites"`

	Process struct {
		MaxOutput string        `mapstructure:"max_output"` // e.g. "64KB"
		KillGrace time.Duration `mapstructure:"kill_grace"`
		Shell     string        `mapstructure:"shell"`
		StopGrace time.Duration `mapstructure:"stop_grace"`
	} `mapstructure:"process"`

	Cron struct {
		TickInterval   time.Duration `mapstructure:"tick_interval"`
		CommandTimeout time.Duration `mapstructure:"command_timeout"`
		Overlap        string        `mapstructure:"overlap"`
	} `mapstructure:"cron"`

	Webhook struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"webhook"`

	Health struct {
		Host         string        `mapstructure:"host"`
		ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	} `mapstructure:"health"`

	Docker struct {
		Enabled     bool          `mapstructure:"enabled"`
		Network     string        `mapstructure:"network"`
		ImagePrefix string        `mapstructure:"image_prefix"`
		StopTimeout time.Duration `mapstructure:"stop_timeout"`
	} `mapstructure:"docker"`

	ExecLog struct {
		Capacity int `mapstructure:"capacity"`
		File     struct {
			Enabled    bool   `mapstructure:"enabled"`
			Path       string `mapstructure:"path"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
		} `mapstructure:"file"`
	} `mapstructure:"execlog"`

	Notifications struct {
		WebhookURL string   `mapstructure:"webhook_url"`
		Events     []string `mapstructure:"events"`
	} `mapstructure:"notifications"`

	Events struct {
		BufferSize int `mapstructure:"buffer_size"`
	} `mapstructure:"events"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

// initConfig loads configuration from file, environment and defaults.
func initConfig(configPath string) (*viper.Viper, Config, error) {
	v := viper.New()
	if err := loadConfig(v, configPath); err != nil {
		return nil, Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Server.DataDir == "" {
		cfg.Server.DataDir = DefaultDataDir()
	}

	if err := cfg.validate(); err != nil {
		return nil, Config{}, err
	}

	return v, cfg, nil
}

// loadConfig loads configuration from file and sets defaults.
func loadConfig(v *viper.Viper, configPath string) error {
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.data_dir", DefaultDataDir())
	v.SetDefault("server.allowed_cidrs", []string{})
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.read_timeout", "30s")
	// Lifecycle requests answer when the operation is done; builds can be long.
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.global_rps", 500)
	v.SetDefault("server.rate_limit.per_ip_rps", 50)
	v.SetDefault("server.rate_limit.burst", 100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)
	v.SetDefault("logging.site_logs.dir", "")
	v.SetDefault("logging.site_logs.max_size", 50)
	v.SetDefault("logging.site_logs.max_backups", 3)
	v.SetDefault("logging.site_logs.max_age", 14)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "")
	v.SetDefault("sites.build_timeout", "10m")
	v.SetDefault("sites.start_timeout", "30s")
	v.SetDefault("sites.stop_timeout", "30s")
	v.SetDefault("sites.git_timeout", "5m")
	v.SetDefault("sites.auto_build", false)
	v.SetDefault("sites.workspace_dir", "")
	v.SetDefault("sites.default_runtime", string(domain.RuntimeProcess))
	v.SetDefault("sites.manifest", "")
	v.SetDefault("sites.env_file", ".env")
	v.SetDefault("sites.monitor_interval", "15s")
	v.SetDefault("process.max_output", "64KB")
	v.SetDefault("process.kill_grace", "500ms")
	v.SetDefault("process.shell", "/bin/sh")
	v.SetDefault("process.stop_grace", "10s")
	v.SetDefault("cron.tick_interval", "1s")
	v.SetDefault("cron.command_timeout", "5m")
	v.SetDefault("cron.overlap", string(domain.OverlapAllow))
	v.SetDefault("webhook.timeout", "30s")
	v.SetDefault("health.host", "127.0.0.1")
	v.SetDefault("health.probe_timeout", "5s")
	v.SetDefault("docker.enabled", false)
	v.SetDefault("docker.network", "")
	v.SetDefault("docker.image_prefix", "")
	v.SetDefault("docker.stop_timeout", "10s")
	v.SetDefault("execlog.capacity", 10000)
	v.SetDefault("execlog.file.enabled", false)
	v.SetDefault("execlog.file.path", "")
	v.SetDefault("execlog.file.max_size", 50)
	v.SetDefault("execlog.file.max_backups", 5)
	v.SetDefault("execlog.file.max_age", 30)
	v.SetDefault("notifications.webhook_url", "")
	v.SetDefault("notifications.events", []string{})
	v.SetDefault("events.buffer_size", 100)
	v.SetDefault("metrics.enabled", true)

	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("OCTOPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return nil
}

// validate rejects settings that would only fail later at first use.
func (c Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid storage.driver %q: expected sqlite or memory", c.Storage.Driver)
	}
	switch domain.SiteRuntime(c.Sites.DefaultRuntime) {
	case domain.RuntimeProcess:
	case domain.RuntimeDocker:
		if !c.Docker.Enabled {
			return fmt.Errorf("sites.default_runtime is docker but docker.enabled is false")
		}
	default:
		return fmt.Errorf("invalid sites.default_runtime %q", c.Sites.DefaultRuntime)
	}
	switch domain.OverlapPolicy(c.Cron.Overlap) {
	case domain.OverlapAllow, domain.OverlapSkip:
	default:
		return fmt.Errorf("invalid cron.overlap %q: expected %s or %s", c.Cron.Overlap, domain.OverlapAllow, domain.OverlapSkip)
	}
	if _, err := c.maxOutputBytes(); err != nil {
		return err
	}
	if rl := c.Server.RateLimit; rl.Enabled && (rl.GlobalRPS <= 0 || rl.PerIPRPS <= 0 || rl.Burst <= 0) {
		return fmt.Errorf("server.rate_limit values must be positive when enabled")
	}
	for _, name := range c.Notifications.Events {
		if !domain.EventType(name).IsKnown() {
			return fmt.Errorf("invalid notifications.events entry %q", name)
		}
	}
	return nil
}

// maxOutputBytes parses process.max_output.
func (c Config) maxOutputBytes() (int, error) {
	n, err := bytesize.Parse(c.Process.MaxOutput)
	if err != nil {
		return 0, fmt.Errorf("invalid process.max_output: %w", err)
	}
	if n <= 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("invalid process.max_output %q: must be between 1B and 2GB", c.Process.MaxOutput)
	}
	return int(n), nil
}
