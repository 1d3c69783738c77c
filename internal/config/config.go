// Package config loads postbook settings.
//
// Sources, lowest precedence first: built-in defaults, config.yaml in the
// data directory (or the file given explicitly), .env files, then POSTBOOK_*
// environment variables. Nested keys map to env names by replacing dots with
// underscores, e.g. log.level -> POSTBOOK_LOG_LEVEL.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "POSTBOOK"

const configFile = "config.yaml"

// MemoryDatabase selects a private in-memory database.
const MemoryDatabase = ":memory:"

// Config is the application configuration.
type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Events     EventsConfig     `mapstructure:"events"`
	Controller ControllerConfig `mapstructure:"controller"`
	Live       LiveConfig       `mapstructure:"live"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // Defaults to <data_dir>/postbook.db
}

// LogConfig controls the file logger.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	Dir   string `mapstructure:"dir"`   // Defaults to <data_dir>/logs
}

// EventsConfig controls the JSONL event log.
type EventsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"` // Defaults to <data_dir>/events.jsonl
}

// ControllerConfig tunes screen controllers.
type ControllerConfig struct {
	KeepAlive time.Duration `mapstructure:"keep_alive"`
}

// LiveConfig tunes live queries.
type LiveConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// DefaultDataDir returns ~/.postbook.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".postbook")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("database.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.file", "")
	v.SetDefault("controller.keep_alive", 5*time.Second)
	v.SetDefault("live.min_interval", time.Duration(0))
}

// Load reads the configuration. When path is empty, config.yaml is looked up
// in the data directory and a missing file is not an error; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(v.GetString("data_dir"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.fillPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv loads .env from the working directory and the default data
// directory. Variables already in the environment win.
func loadDotEnv() {
	for _, f := range []string{".env", filepath.Join(DefaultDataDir(), ".env")} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// fillPaths derives unset paths from DataDir.
func (c *Config) fillPaths() {
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.DataDir, "postbook.db")
	}
	if c.Log.Dir == "" {
		c.Log.Dir = filepath.Join(c.DataDir, "logs")
	}
	if c.Events.File == "" {
		c.Events.File = filepath.Join(c.DataDir, "events.jsonl")
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Controller.KeepAlive < 0 {
		return errors.New("controller.keep_alive must not be negative")
	}
	if c.Live.MinInterval < 0 {
		return errors.New("live.min_interval must not be negative")
	}
	return nil
}

// InMemory reports whether the database lives only in memory.
func (c *Config) InMemory() bool {
	return c.Database.Path == MemoryDatabase
}

// EnsureDirs creates the data, log and database directories.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.DataDir, c.Log.Dir}
	if !c.InMemory() {
		dirs = append(dirs, filepath.Dir(c.Database.Path))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}

// Save writes c as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return c.viper().WriteConfigAs(path)
}

// Settings returns the flattened key/value pairs of c, sorted by key.
func (c *Config) Settings() [][2]string {
	v := c.viper()
	keys := v.AllKeys()
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, v.GetString(k)})
	}
	return out
}

func (c *Config) viper() *viper.Viper {
	v := viper.New()
	v.Set("data_dir", c.DataDir)
	v.Set("database.path", c.Database.Path)
	v.Set("log.level", c.Log.Level)
	v.Set("log.dir", c.Log.Dir)
	v.Set("events.enabled", c.Events.Enabled)
	v.Set("events.file", c.Events.File)
	v.Set("controller.keep_alive", c.Controller.KeepAlive.String())
	v.Set("live.min_interval", c.Live.MinInterval.String())
	return v
}

// File returns the config file location inside c.DataDir.
func (c *Config) File() string {
	return filepath.Join(c.DataDir, configFile)
}
