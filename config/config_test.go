package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

type mtlsSection struct {
	BundlePath     string `mapstructure:"bundle_path"`
	BundlePassword string `mapstructure:"bundle_password"`
}

type clientSection struct {
	Name    string            `mapstructure:"name"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Headers map[string]string `mapstructure:"headers"`
	MTLS    *mtlsSection      `mapstructure:"mtls"`
}

type testConfig struct {
	Client clientSection `mapstructure:"client"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return p
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "client.yml", `
client:
  name: billing
  timeout: 5s
  headers:
    x-api-version: "2"
  mtls:
    bundle_path: /etc/certs/client.p12
    bundle_password: changeit
`)

	var cfg testConfig
	if err := LoadConfig("futurenet-test", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Client.Name != "billing" {
		t.Errorf("expected name 'billing', got %q", cfg.Client.Name)
	}
	if cfg.Client.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Client.Timeout)
	}
	if cfg.Client.Headers["x-api-version"] != "2" {
		t.Errorf("expected header value 2, got %v", cfg.Client.Headers)
	}
	if cfg.Client.MTLS == nil || cfg.Client.MTLS.BundlePath != "/etc/certs/client.p12" {
		t.Errorf("expected mtls section, got %+v", cfg.Client.MTLS)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "client.yml", `
client:
  timeout: 5s
  mtls:
    bundle_password: from-file
`)
	t.Setenv("FNTEST_CLIENT_TIMEOUT", "12s")
	t.Setenv("FNTEST_CLIENT_MTLS_BUNDLE_PASSWORD", "from-env")

	var cfg testConfig
	err := LoadConfig("fntest", &cfg, WithConfigFile(configPath))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.Timeout != 12*time.Second {
		t.Errorf("expected env timeout 12s, got %v", cfg.Client.Timeout)
	}
	if cfg.Client.MTLS == nil || cfg.Client.MTLS.BundlePassword != "from-env" {
		t.Errorf("expected env password, got %+v", cfg.Client.MTLS)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "FNDOTENV_CLIENT_NAME=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("FNDOTENV_CLIENT_NAME") })

	var cfg testConfig
	err := LoadConfig("fndotenv", &cfg,
		WithFileSystem(&mockFS{files: map[string]bool{envPath: true}, loadEnv: true}),
		WithEnvFile(envPath),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.Name != "from-dotenv" {
		t.Errorf("expected name from .env, got %q", cfg.Client.Name)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("missing", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestLoadConfig_NoFiles(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nofiles", &cfg, WithFileSystem(&mockFS{files: map[string]bool{}}))
	if err != nil {
		t.Fatalf("expected success with no files, got %v", err)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./config/my-svc.yml": true,
		"./.env":              true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("my-svc", LoaderConfig{})
	if files.ConfigFile != "./config/my-svc.yml" {
		t.Errorf("expected ./config/my-svc.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected ./.env, got %q", files.EnvFile)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("CLIENT_MTLS_BUNDLE_PATH")
	for _, want := range []string{
		"client_mtls_bundle_path",
		"client.mtls.bundle.path",
		"client.mtls.bundle_path",
		"client.mtls_bundle_path",
	} {
		if !slices.Contains(got, want) {
			t.Errorf("missing variant %q in %v", want, got)
		}
	}
	if got := generateEnvKeyVariants("NAME"); len(got) != 1 || got[0] != "name" {
		t.Errorf("single-part key variants = %v", got)
	}
}

type mockFS struct {
	files   map[string]bool
	loadEnv bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }

func (m *mockFS) LoadEnv(path string) error {
	if m.loadEnv {
		return (&RealFileSystem{}).LoadEnv(path)
	}
	return nil
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithEnvPrefix("APP")(&lc)
	if lc.FileSystem == nil || lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" || lc.EnvPrefix != "APP" {
		t.Errorf("options not applied: %+v", lc)
	}
}
