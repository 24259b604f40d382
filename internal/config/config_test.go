//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tilde expands to home", "~/music", filepath.Join(home, "music")},
		{"absolute path unchanged", "/var/lib/wavelet.db", "/var/lib/wavelet.db"},
		{"relative path unchanged", "data/catalog.db", "data/catalog.db"},
		{"empty string unchanged", "", ""},
		{"tilde only", "~", home},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths("")
	if len(paths) != 2 {
		t.Fatalf("getConfigPaths() = %v, want 2 entries", paths)
	}
	if paths[1] != "config.toml" {
		t.Errorf("last config path = %q, want %q", paths[1], "config.toml")
	}

	paths = getConfigPaths("/etc/wavelet.toml")
	if paths[len(paths)-1] != "/etc/wavelet.toml" {
		t.Errorf("explicit path should have highest priority, got %v", paths)
	}
}

// chdirTemp runs the test from an empty directory so no stray
// config.toml or .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	xdg.Reload()
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.TickInterval(); got != time.Second {
		t.Errorf("TickInterval() = %v, want 1s", got)
	}
	if !cfg.MPRISEnabled() || !cfg.NotifyEnabled() {
		t.Error("mpris and notify should default to enabled")
	}
	srv := cfg.GetServerConfig()
	if srv.Enabled {
		t.Error("server should default to disabled")
	}
	if srv.Listen != "127.0.0.1:7878" || srv.SendBuffer != 16 {
		t.Errorf("GetServerConfig() = %+v", srv)
	}
	log := cfg.GetLogConfig()
	if log.Level != "info" || log.MaxSizeMB != 10 || log.MaxBackups != 3 || log.MaxAgeDays != 28 {
		t.Errorf("GetLogConfig() = %+v", log)
	}
	if filepath.Base(log.File) != "wavelet.log" {
		t.Errorf("default log file = %q", log.File)
	}
}

func TestLoad_LocalFile(t *testing.T) {
	dir := chdirTemp(t)
	writeFile(t, filepath.Join(dir, "config.toml"), `
[log]
level = "DEBUG"
max_backups = 7

[server]
enabled = true
listen = ":9000"
send_buffer = 4

[session]
tick_interval = "250ms"

[mpris]
enabled = false

[catalog]
path = "/srv/music/catalog.db"
`)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.GetLogConfig(); got.Level != "debug" || got.MaxBackups != 7 {
		t.Errorf("GetLogConfig() = %+v", got)
	}
	if got := cfg.GetServerConfig(); !got.Enabled || got.Listen != ":9000" || got.SendBuffer != 4 {
		t.Errorf("GetServerConfig() = %+v", got)
	}
	if got := cfg.TickInterval(); got != 250*time.Millisecond {
		t.Errorf("TickInterval() = %v, want 250ms", got)
	}
	if cfg.MPRISEnabled() {
		t.Error("mpris should be disabled")
	}
	if !cfg.NotifyEnabled() {
		t.Error("notify should stay enabled")
	}
	if p, _ := cfg.CatalogPath(); p != "/srv/music/catalog.db" {
		t.Errorf("CatalogPath() = %q", p)
	}
}

func TestLoad_LocalOverridesXDG(t *testing.T) {
	dir := chdirTemp(t)
	xdgDir := filepath.Join(dir, "xdg", "wavelet")
	if err := os.MkdirAll(xdgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(xdgDir, "config.toml"), "[server]\nlisten = \":1111\"\nsend_buffer = 2\n")
	writeFile(t, filepath.Join(dir, "config.toml"), "[server]\nlisten = \":2222\"\n")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	srv := cfg.GetServerConfig()
	if srv.Listen != ":2222" {
		t.Errorf("Listen = %q, want :2222", srv.Listen)
	}
	if srv.SendBuffer != 2 {
		t.Errorf("SendBuffer = %d, want 2 from the XDG file", srv.SendBuffer)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[log]\nlevel = \"warn\"\n")
	explicit := filepath.Join(dir, "custom.toml")
	writeFile(t, explicit, "[log]\nlevel = \"error\"\n")

	cfg, err := Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.GetLogConfig().Level; got != "error" {
		t.Errorf("Level = %q, want error (./config.toml must be ignored)", got)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Load() should fail for a missing --config file")
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	dir := chdirTemp(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[log\nlevel=")

	if _, err := Load(""); err == nil {
		t.Error("Load() should fail on malformed TOML")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := chdirTemp(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[log]\nlevel = \"warn\"\n")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvListen, "0.0.0.0:8080")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.GetLogConfig().Level; got != "debug" {
		t.Errorf("Level = %q, want debug", got)
	}
	srv := cfg.GetServerConfig()
	if !srv.Enabled || srv.Listen != "0.0.0.0:8080" {
		t.Errorf("GetServerConfig() = %+v", srv)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	writeFile(t, filepath.Join(dir, ".env"), EnvLogLevel+"=error\n")
	// godotenv sets the variable for the process; restore it afterwards.
	t.Setenv(EnvLogLevel, "")
	os.Unsetenv(EnvLogLevel)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.GetLogConfig().Level; got != "error" {
		t.Errorf("Level = %q, want error from .env", got)
	}
}
