package remote

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRemote_FromClientConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvRemote, "")

	cfg := []byte(`
[client]
remote = "http://octopus.internal:9000"
timeout = "5m"
`)
	path := DefaultClientConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, cfg, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config, err := LoadClientConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if config.Client.Timeout != "5m" {
		t.Fatalf("unexpected timeout: %s", config.Client.Timeout)
	}
	if got := ResolveRemote("", config); got != "http://octopus.internal:9000" {
		t.Fatalf("unexpected remote: %s", got)
	}
}

func TestResolveRemote_Precedence(t *testing.T) {
	config := &ClientConfig{Client: ClientSettings{Remote: "http://from-config"}}

	t.Setenv(EnvRemote, "http://from-env")
	if got := ResolveRemote("http://from-flag", config); got != "http://from-flag" {
		t.Fatalf("flag should win, got %s", got)
	}
	if got := ResolveRemote("", config); got != "http://from-env" {
		t.Fatalf("env should beat config, got %s", got)
	}

	t.Setenv(EnvRemote, "")
	if got := ResolveRemote("", nil); got != DefaultRemote {
		t.Fatalf("expected default remote, got %s", got)
	}
}

func TestLoadClientConfig_MissingFile(t *testing.T) {
	config, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if config.Client.Remote != "" {
		t.Fatalf("expected empty remote, got %s", config.Client.Remote)
	}
}

func TestSaveClientConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.toml")

	if err := SaveClientConfig(path, &ClientConfig{Client: ClientSettings{Remote: "http://saved"}}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected mode: %v", info.Mode().Perm())
	}

	config, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if config.Client.Remote != "http://saved" {
		t.Fatalf("unexpected remote: %s", config.Client.Remote)
	}
}
