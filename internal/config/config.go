package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines monitor configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Notify    NotifyConfig    `yaml:"notify"`
	Account   AccountConfig   `yaml:"account"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// TransportConfig selects how the monitor serves MCP: "stdio" or "http".
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SweepConfig controls the liveness sweeper.
type SweepConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// UnmarshalYAML accepts Go duration strings like "45s" for the interval.
func (s *SweepConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Interval string `yaml:"interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Interval == "" {
		return nil
	}
	interval, err := time.ParseDuration(raw.Interval)
	if err != nil {
		return fmt.Errorf("invalid sweep interval: %w", err)
	}
	s.Interval = interval
	return nil
}

// NotifyConfig points at the helper binary used to emit user notifications.
// When the binary is missing the dispatcher falls back to osascript.
type NotifyConfig struct {
	HelperPath string `yaml:"helper_path"`
}

// AccountConfig names the account alias attached to new sessions.
type AccountConfig struct {
	Alias string `yaml:"alias"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8321,
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		DB: DBConfig{
			Path: defaultDBPath(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Sweep: SweepConfig{
			Interval: 30 * time.Second,
		},
		Account: AccountConfig{
			Alias: accountAliasFromEnv(),
		},
	}

	if path := os.Getenv("SESSIONWATCH_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("SESSIONWATCH_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("SESSIONWATCH_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SESSIONWATCH_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("SESSIONWATCH_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if dbPath := os.Getenv("SESSIONWATCH_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("SESSIONWATCH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if intervalStr := os.Getenv("SESSIONWATCH_SWEEP_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SESSIONWATCH_SWEEP_INTERVAL: %w", err)
		}
		cfg.Sweep.Interval = interval
	}
	if helper := os.Getenv("SESSIONWATCH_NOTIFY_HELPER"); helper != "" {
		cfg.Notify.HelperPath = helper
	}
	if alias := os.Getenv("SESSIONWATCH_ACCOUNT_ALIAS"); alias != "" {
		cfg.Account.Alias = alias
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sessions.db"
	}
	return filepath.Join(home, ".sessionwatch", "sessions.db")
}

// accountAliasFromEnv infers the account alias from SESSIONWATCH_ACCOUNT_ALIAS
// or the basename of the assistant config dir (".claude-work" -> "work").
func accountAliasFromEnv() string {
	if alias := os.Getenv("SESSIONWATCH_ACCOUNT_ALIAS"); alias != "" {
		return alias
	}
	configDir := os.Getenv("CLAUDE_CONFIG_DIR")
	if configDir == "" {
		return "default"
	}
	base := filepath.Base(configDir)
	if base == ".claude" {
		return "default"
	}
	if rest, ok := strings.CutPrefix(base, ".claude-"); ok {
		return rest
	}
	return "default"
}
