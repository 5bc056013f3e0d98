package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "", cfg.Output)
	assert.True(t, cfg.Checks)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "  ", cfg.Indent)
	assert.Equal(t, ":8080", cfg.Proxy.Listen)
	assert.Equal(t, int64(10<<20), cfg.Proxy.MaxBodyBytes)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_LoadFromYAML(t *testing.T) {
	yamlContent := `
output: /tmp/schemas
checks: false
log_level: debug
proxy:
  listen: "127.0.0.1:9000"
  target: "http://api.internal:8081"
  metrics_listen: ":9100"
  max_body_bytes: 2048
`
	path := writeConfig(t, t.TempDir(), "castor.yml", yamlContent)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/schemas", cfg.Output)
	assert.False(t, cfg.Checks)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "  ", cfg.Indent, "unset keys keep their defaults")
	assert.Equal(t, "127.0.0.1:9000", cfg.Proxy.Listen)
	assert.Equal(t, "http://api.internal:8081", cfg.Proxy.Target)
	assert.Equal(t, ":9100", cfg.Proxy.MetricsListen)
	assert.Equal(t, int64(2048), cfg.Proxy.MaxBodyBytes)

	target, err := cfg.TargetURL()
	require.NoError(t, err)
	assert.Equal(t, "api.internal:8081", target.Host)
}

func TestConfig_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"invalid yaml", "proxy: [unclosed", "failed to parse config file"},
		{"bad log level", "log_level: loud", "invalid log level"},
		{"bad target scheme", "proxy:\n  target: ftp://example.com", "scheme must be http or https"},
		{"target without host", "proxy:\n  target: http://", "missing host"},
		{"negative body limit", "proxy:\n  max_body_bytes: -1", "max_body_bytes must be positive"},
		{"empty indent", "indent: \"\"", "indent must be one or more spaces or tabs"},
		{"non-whitespace indent", "indent: \"--\"", "indent must be one or more spaces or tabs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, dir, filepath.Base(t.Name())+".yml", tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := LoadConfig(filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfig_FindConfigFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	want := writeConfig(t, root, ".castor.yml", "checks: false\n")

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(nested))

	got := FindConfigFile()
	// Resolve symlinks so temp dirs under /private on macOS compare equal.
	wantResolved, _ := filepath.EvalSymlinks(want)
	gotResolved, _ := filepath.EvalSymlinks(got)
	assert.Equal(t, wantResolved, gotResolved)
}

func TestConfig_LoadConfigWithCLI(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "castor.yml", "output: from-file\nchecks: true\nlog_level: warn\n")

	t.Run("file values without overrides", func(t *testing.T) {
		cfg, err := LoadConfigWithCLI(path, Overrides{})
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.Output)
		assert.True(t, cfg.Checks)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("overrides take precedence", func(t *testing.T) {
		off := false
		cfg, err := LoadConfigWithCLI(path, Overrides{
			Output:       "from-cli",
			Checks:       &off,
			LogLevel:     "error",
			Target:       "https://upstream.example.com",
			MaxBodyBytes: 512,
		})
		require.NoError(t, err)
		assert.Equal(t, "from-cli", cfg.Output)
		assert.False(t, cfg.Checks)
		assert.Equal(t, "error", cfg.LogLevel)
		assert.Equal(t, "https://upstream.example.com", cfg.Proxy.Target)
		assert.Equal(t, int64(512), cfg.Proxy.MaxBodyBytes)
	})

	t.Run("no config file", func(t *testing.T) {
		cfg, err := LoadConfigWithCLI("", Overrides{Listen: ":7000"})
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.Proxy.Listen)
		assert.True(t, cfg.Checks)
	})

	t.Run("invalid override", func(t *testing.T) {
		_, err := LoadConfigWithCLI("", Overrides{LogLevel: "chatty"})
		require.Error(t, err)
	})
}
