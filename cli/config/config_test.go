package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/toolproxy/lode"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `telemetry:
  enabled: true
  dir: /var/lib/toolproxy
  program: rustc
  backend: s3
  s3:
    path: my-bucket/builds
    region: us-east-1
    endpoint: https://example.com
    path_style: true

toolchain:
  bin_dir: /opt/rust/bin

log:
  level: debug
  file: /tmp/toolproxy.log

adapter:
  type: webhook
  url: https://hooks.example.com/builds
  headers:
    Authorization: Bearer token123
  timeout: 500ms
  retries: 2
`
	path := writeTemp(t, "config.yaml", yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.TelemetryEnabled() {
		t.Error("expected telemetry.enabled=true")
	}
	assertEqual(t, "telemetry dir", cfg.TelemetryDir(), "/var/lib/toolproxy")
	assertEqual(t, "telemetry.program", cfg.Telemetry.Program, "rustc")
	assertEqual(t, "telemetry.backend", cfg.Telemetry.Backend, "s3")
	assertEqual(t, "telemetry.s3.path", cfg.Telemetry.S3.Path, "my-bucket/builds")
	assertEqual(t, "telemetry.s3.region", cfg.Telemetry.S3.Region, "us-east-1")
	assertEqual(t, "telemetry.s3.endpoint", cfg.Telemetry.S3.Endpoint, "https://example.com")
	if !cfg.Telemetry.S3.PathStyle {
		t.Error("expected telemetry.s3.path_style=true")
	}

	assertEqual(t, "bin dir", cfg.BinDir(), "/opt/rust/bin")
	assertEqual(t, "log.level", cfg.Log.Level, "debug")
	assertEqual(t, "log.file", cfg.Log.File, "/tmp/toolproxy.log")

	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/builds")
	assertEqual(t, "adapter.headers", cfg.Adapter.Headers["Authorization"], "Bearer token123")
	if cfg.Adapter.Timeout.Duration != 500*time.Millisecond {
		t.Errorf("adapter.timeout = %v, want 500ms", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 2 {
		t.Errorf("adapter.retries = %v, want 2", cfg.Adapter.Retries)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoad_TOML(t *testing.T) {
	content := `[telemetry]
enabled = true
backend = "sqlite"

[adapter]
type = "redis"
url = "redis://localhost:6379/0"
channel = "builds:{kind}"
timeout = "2s"
retries = 0
`
	path := writeTemp(t, "config.toml", content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.TelemetryEnabled() {
		t.Error("expected telemetry.enabled=true")
	}
	assertEqual(t, "telemetry.backend", cfg.Telemetry.Backend, "sqlite")
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "redis")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "builds:{kind}")
	if cfg.Adapter.Timeout.Duration != 2*time.Second {
		t.Errorf("adapter.timeout = %v, want 2s", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 0 {
		t.Errorf("adapter.retries = %v, want explicit 0", cfg.Adapter.Retries)
	}
}

func TestLoad_RelativeDirsResolveAgainstFile(t *testing.T) {
	path := writeTemp(t, "config.yaml", "telemetry:\n  dir: data\ntoolchain:\n  bin_dir: bin\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	home := filepath.Dir(path)
	assertEqual(t, "telemetry dir", cfg.TelemetryDir(), filepath.Join(home, "data"))
	assertEqual(t, "bin dir", cfg.BinDir(), filepath.Join(home, "bin"))
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("HOOK_URL", "https://hooks.example.com/x")

	path := writeTemp(t, "config.yaml", "adapter:\n  type: webhook\n  url: ${HOOK_URL}\n  channel: ${MISSING:-fallback}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/x")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "fallback")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTemp(t, "config.yaml", "telemetry: [unclosed\n")
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "invalid YAML") {
			t.Errorf("expected YAML error, got %v", err)
		}
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := writeTemp(t, "config.toml", "[telemetry\n")
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "invalid TOML") {
			t.Errorf("expected TOML error, got %v", err)
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		path := writeTemp(t, "config.yaml", "adapter:\n  timeout: soon\n")
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "invalid duration") {
			t.Errorf("expected duration error, got %v", err)
		}
	})
}

func TestLoadHome_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()

	cfg, err := LoadHome(home)
	if err != nil {
		t.Fatalf("LoadHome failed: %v", err)
	}
	if cfg.TelemetryEnabled() {
		t.Error("telemetry should be disabled without a config file")
	}
	assertEqual(t, "telemetry dir", cfg.TelemetryDir(), filepath.Join(home, DefaultTelemetryDir))
	assertEqual(t, "home", cfg.Home(), home)
}

func TestLoadHome_PrefersYAML(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	mustWrite(t, filepath.Join(home, "config.toml"), "[telemetry]\nprogram = \"from-toml\"\n")
	mustWrite(t, filepath.Join(home, "config.yaml"), "telemetry:\n  program: from-yaml\n")

	cfg, err := LoadHome(home)
	if err != nil {
		t.Fatalf("LoadHome failed: %v", err)
	}
	assertEqual(t, "telemetry.program", cfg.Telemetry.Program, "from-yaml")
}

func TestLoadHome_EnvOverrides(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		telemetry   string
		dir         string
		wantEnabled bool
		wantDir     string
	}{
		{name: "env enables", file: "", telemetry: "1", wantEnabled: true, wantDir: DefaultTelemetryDir},
		{name: "env disables", file: "telemetry:\n  enabled: true\n", telemetry: "false", wantEnabled: false, wantDir: DefaultTelemetryDir},
		{name: "file value kept", file: "telemetry:\n  enabled: true\n", wantEnabled: true, wantDir: DefaultTelemetryDir},
		{name: "dir override", telemetry: "true", dir: "/srv/telemetry", wantEnabled: true, wantDir: "/srv/telemetry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			home := t.TempDir()
			if tt.file != "" {
				mustWrite(t, filepath.Join(home, "config.yaml"), tt.file)
			}
			t.Setenv(EnvTelemetry, tt.telemetry)
			t.Setenv(EnvTelemetryDir, tt.dir)

			cfg, err := LoadHome(home)
			if err != nil {
				t.Fatalf("LoadHome failed: %v", err)
			}
			if cfg.TelemetryEnabled() != tt.wantEnabled {
				t.Errorf("TelemetryEnabled() = %v, want %v", cfg.TelemetryEnabled(), tt.wantEnabled)
			}
			want := tt.wantDir
			if !filepath.IsAbs(want) {
				want = filepath.Join(home, want)
			}
			assertEqual(t, "telemetry dir", cfg.TelemetryDir(), want)
		})
	}
}

func TestLoadHome_InvalidTelemetryEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTelemetry, "sometimes")

	if _, err := LoadHome(t.TempDir()); err == nil {
		t.Fatal("expected error for invalid TOOLPROXY_TELEMETRY")
	}
}

func TestHomeDir(t *testing.T) {
	t.Setenv(EnvHome, "/custom/home")
	got, err := HomeDir()
	if err != nil {
		t.Fatalf("HomeDir failed: %v", err)
	}
	assertEqual(t, "home", got, "/custom/home")

	t.Setenv(EnvHome, "")
	t.Setenv("HOME", "/home/builder")
	got, err = HomeDir()
	if err != nil {
		t.Fatalf("HomeDir failed: %v", err)
	}
	assertEqual(t, "home", got, filepath.Join("/home/builder", DefaultHomeName))
}

func TestValidate(t *testing.T) {
	retries := -1
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Config{}},
		{name: "bad backend", cfg: Config{Telemetry: TelemetryConfig{Backend: "ftp"}}, wantErr: "invalid telemetry backend"},
		{name: "s3 without path", cfg: Config{Telemetry: TelemetryConfig{Backend: "s3"}}, wantErr: "telemetry.s3.path"},
		{name: "adapter without url", cfg: Config{Adapter: AdapterConfig{Type: "redis"}}, wantErr: "adapter.url"},
		{name: "unknown adapter", cfg: Config{Adapter: AdapterConfig{Type: "kafka", URL: "x"}}, wantErr: "invalid adapter.type"},
		{name: "negative retries", cfg: Config{Adapter: AdapterConfig{Type: "webhook", URL: "http://x", Retries: &retries}}, wantErr: "retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStoreConfig(t *testing.T) {
	cfg := Default("/home/builder/.toolproxy")
	cfg.Telemetry.Backend = "s3"
	cfg.Telemetry.S3 = S3Config{Path: "bucket/a/b", Region: "eu-west-1", PathStyle: true}

	sc, err := cfg.StoreConfig()
	if err != nil {
		t.Fatalf("StoreConfig failed: %v", err)
	}
	if sc.Backend != lode.BackendS3 {
		t.Errorf("backend = %q, want s3", sc.Backend)
	}
	assertEqual(t, "bucket", sc.S3.Bucket, "bucket")
	assertEqual(t, "prefix", sc.S3.Prefix, "a/b")
	assertEqual(t, "region", sc.S3.Region, "eu-west-1")
	if !sc.S3.UsePathStyle {
		t.Error("expected UsePathStyle")
	}
	assertEqual(t, "storage path", cfg.StoragePath(), "s3://bucket/a/b")

	cfg.Telemetry.Backend = ""
	sc, err = cfg.StoreConfig()
	if err != nil {
		t.Fatalf("StoreConfig failed: %v", err)
	}
	if sc.Backend != lode.BackendFS {
		t.Errorf("backend = %q, want fs", sc.Backend)
	}
	assertEqual(t, "dir", sc.Dir, "/home/builder/.toolproxy/telemetry")
}

// --- helpers ---

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	mustWrite(t, path, content)
	return path
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvTelemetry, "")
	t.Setenv(EnvTelemetryDir, "")
	t.Setenv(EnvLogLevel, "")
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
