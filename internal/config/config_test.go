package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SESSIONWATCH_CONFIG_PATH",
		"SESSIONWATCH_SERVER_HOST",
		"SESSIONWATCH_SERVER_PORT",
		"SESSIONWATCH_TRANSPORT_MODE",
		"SESSIONWATCH_DB_PATH",
		"SESSIONWATCH_LOG_LEVEL",
		"SESSIONWATCH_SWEEP_INTERVAL",
		"SESSIONWATCH_NOTIFY_HELPER",
		"SESSIONWATCH_ACCOUNT_ALIAS",
		"CLAUDE_CONFIG_DIR",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 8321, cfg.Server.Port)
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 30*time.Second, cfg.Sweep.Interval)
	require.Equal(t, "default", cfg.Account.Alias)
	require.Contains(t, cfg.DB.Path, "sessions.db")
	require.Empty(t, cfg.Notify.HelperPath)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSIONWATCH_SERVER_HOST", "0.0.0.0")
	t.Setenv("SESSIONWATCH_SERVER_PORT", "9000")
	t.Setenv("SESSIONWATCH_TRANSPORT_MODE", "http")
	t.Setenv("SESSIONWATCH_DB_PATH", "/tmp/test.db")
	t.Setenv("SESSIONWATCH_LOG_LEVEL", "debug")
	t.Setenv("SESSIONWATCH_SWEEP_INTERVAL", "2m")
	t.Setenv("SESSIONWATCH_NOTIFY_HELPER", "/opt/swnotify")
	t.Setenv("SESSIONWATCH_ACCOUNT_ALIAS", "work")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, "/tmp/test.db", cfg.DB.Path)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 2*time.Minute, cfg.Sweep.Interval)
	require.Equal(t, "/opt/swnotify", cfg.Notify.HelperPath)
	require.Equal(t, "work", cfg.Account.Alias)
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSIONWATCH_SERVER_PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadInvalidSweepInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSIONWATCH_SWEEP_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
transport:
  mode: http
sweep:
  interval: 45s
notify:
  helper_path: /opt/helper
`), 0o644))
	t.Setenv("SESSIONWATCH_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, 45*time.Second, cfg.Sweep.Interval)
	require.Equal(t, "/opt/helper", cfg.Notify.HelperPath)
	require.Equal(t, "127.0.0.1", cfg.Server.Host, "file values merge over defaults")
}

func TestLoadEnvBeatsFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o644))
	t.Setenv("SESSIONWATCH_CONFIG_PATH", path)
	t.Setenv("SESSIONWATCH_SERVER_PORT", "7777")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7777, cfg.Server.Port)
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSIONWATCH_CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := Load()
	require.Error(t, err)
}

func TestAccountAliasFromConfigDir(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"", "default"},
		{"/home/dev/.claude", "default"},
		{"/home/dev/.claude-work", "work"},
		{"/home/dev/.claude-personal", "personal"},
		{"/home/dev/.config", "default"},
	}
	for _, test := range tests {
		t.Run(test.dir, func(t *testing.T) {
			clearEnv(t)
			if test.dir != "" {
				t.Setenv("CLAUDE_CONFIG_DIR", test.dir)
			}

			cfg, err := Load()
			require.NoError(t, err)
			require.Equal(t, test.want, cfg.Account.Alias)
		})
	}
}
