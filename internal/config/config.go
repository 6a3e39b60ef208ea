package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is everything chalk reads at startup. Sources, in precedence order:
// command-line flags (bound by the CLI), CHALK_* environment variables, the
// YAML config file, then the defaults below.
type Config struct {
	Server ServerConfig
	Course string
	Output OutputConfig
	Log    LogConfig

	// StatePath is the sqlite file holding persisted UI state and pulled
	// course snapshots.
	StatePath string
}

type ServerConfig struct {
	URL        string
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

type OutputConfig struct {
	// Format is the CLI output encoding: json or yaml.
	Format string
}

type LogConfig struct {
	// Mode selects the zap config: dev or prod.
	Mode  string
	Level string
	// File routes logs to a file. The TUI requires one; it owns the
	// terminal.
	File string
}

// ConfigDir returns the directory searched for config.yaml.
func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.config).
	if v := strings.TrimSpace(os.Getenv("CHALK_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "chalk"), nil
}

func defaultStatePath() string {
	if v := strings.TrimSpace(os.Getenv("CHALK_STATE_DIR")); v != "" {
		return filepath.Join(v, "state.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "state.db"
	}
	return filepath.Join(home, ".local", "share", "chalk", "state.db")
}

// Load reads the config file (the given path, or config.yaml in ConfigDir),
// layered under CHALK_* environment variables. A missing default config file
// is fine; an explicitly named one must exist.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return Config{}, err
		}
		v.AddConfigPath(dir)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CHALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.url", "")
	v.SetDefault("server.token", "")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.maxretries", 4)
	v.SetDefault("course", "")
	v.SetDefault("output.format", "json")
	v.SetDefault("log.mode", "prod")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("state.path", defaultStatePath())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	return Config{
		Server: ServerConfig{
			URL:        strings.TrimSpace(v.GetString("server.url")),
			Token:      strings.TrimSpace(v.GetString("server.token")),
			Timeout:    v.GetDuration("server.timeout"),
			MaxRetries: v.GetInt("server.maxretries"),
		},
		Course: strings.TrimSpace(v.GetString("course")),
		Output: OutputConfig{
			Format: strings.ToLower(strings.TrimSpace(v.GetString("output.format"))),
		},
		Log: LogConfig{
			Mode:  strings.TrimSpace(v.GetString("log.mode")),
			Level: strings.TrimSpace(v.GetString("log.level")),
			File:  strings.TrimSpace(v.GetString("log.file")),
		},
		StatePath: strings.TrimSpace(v.GetString("state.path")),
	}, nil
}
