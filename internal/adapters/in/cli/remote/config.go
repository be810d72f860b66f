package remote

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultRemote is the API address used when nothing else is configured.
const DefaultRemote = "http://127.0.0.1:8080"

// EnvRemote names the environment variable overriding the API address.
const EnvRemote = "OCTOPUS_REMOTE"

// ClientConfig represents the client-side configuration file.
type ClientConfig struct {
	Client ClientSettings `toml:"client"`
}

// ClientSettings represents the [client] section.
type ClientSettings struct {
	Remote  string `toml:"remote"`
	Timeout string `toml:"timeout,omitempty"` // Go duration, e.g. "10m"
}

// DefaultClientConfigPath returns the default client config path.
func DefaultClientConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.Getenv("HOME")
	}
	return filepath.Join(configDir, "octopus", "client.toml")
}

// LoadClientConfig loads the client configuration. A missing file yields an
// empty configuration.
func LoadClientConfig(path string) (*ClientConfig, error) {
	if path == "" {
		path = DefaultClientConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ClientConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config ClientConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// SaveClientConfig writes the client configuration.
func SaveClientConfig(path string, config *ClientConfig) error {
	if path == "" {
		path = DefaultClientConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ResolveRemote resolves the API address.
// Precedence: flag > env > config file > default
func ResolveRemote(flagRemote string, config *ClientConfig) string {
	if flagRemote != "" {
		return flagRemote
	}
	if env := os.Getenv(EnvRemote); env != "" {
		return env
	}
	if config != nil && config.Client.Remote != "" {
		return config.Client.Remote
	}
	return DefaultRemote
}
