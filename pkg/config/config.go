package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "tarefas"
	configFile = "config.yaml"
	envPrefix  = "TAREFAS"
)

type RemoteConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Token   string        `yaml:"token,omitempty" mapstructure:"token"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type CacheConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `yaml:"backend" mapstructure:"backend"`
	// Path is a directory for the file backend and a database file for
	// sqlite. Empty means inside the config directory.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

type CalendarConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	DataFile string `yaml:"data_file" mapstructure:"data_file"`
}

type Config struct {
	Remote   RemoteConfig   `yaml:"remote" mapstructure:"remote"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Locale   string         `yaml:"locale" mapstructure:"locale"`
	Calendar CalendarConfig `yaml:"calendar" mapstructure:"calendar"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
}

func Default() *Config {
	return &Config{
		Remote:   RemoteConfig{URL: "http://localhost:5001/api", Timeout: 10 * time.Second},
		Cache:    CacheConfig{Backend: "file"},
		Locale:   "en",
		Calendar: CalendarConfig{Name: "Tasks"},
		Server:   ServerConfig{Addr: ":5001", DataFile: "task-data.json"},
	}
}

// Dir is where config, cache and credentials live.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads path (or the default location when empty) over the defaults.
// A missing file is not an error. TAREFAS_* environment variables override
// file values, e.g. TAREFAS_REMOTE_URL or TAREFAS_CACHE_BACKEND.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("remote.url", d.Remote.URL)
	v.SetDefault("remote.token", d.Remote.Token)
	v.SetDefault("remote.timeout", d.Remote.Timeout)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("locale", d.Locale)
	v.SetDefault("calendar.name", d.Calendar.Name)
	v.SetDefault("calendar.enabled", d.Calendar.Enabled)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.data_file", d.Server.DataFile)
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown cache backend %q (want file or sqlite)", c.Cache.Backend)
	}
	if c.Calendar.Name == "" {
		c.Calendar.Name = "Tasks"
	}
	return nil
}

// Save writes cfg to path (or the default location when empty).
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
