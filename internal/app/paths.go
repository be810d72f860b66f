// Package app provides the application initialization and wiring.
package app

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultDataDir returns the default data directory path.
// Uses ~/.octopus for user installations, /var/lib/octopus as fallback.
func DefaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".octopus")
	}
	return "/var/lib/octopus"
}

// ConfigureViper sets up viper with standard config file search paths.
// Config file: octopus.{toml,yaml,yml}
// Search paths (in order): current directory, ~/.config/octopus, /etc/octopus
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.SetConfigName("octopus")
	v.AddConfigPath(".")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "octopus"))
	}
	v.AddConfigPath("/etc/octopus")
}

// resolvePath returns p, or def joined under dataDir when p is empty.
// Relative paths are resolved against dataDir.
func resolvePath(dataDir, p, def string) string {
	if p == "" {
		return filepath.Join(dataDir, def)
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}
