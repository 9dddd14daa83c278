package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/harshpatel5940/reelmark/internal/cloud"
)

// FileName is the config file looked up in the home directory.
const FileName = ".reelmark.yaml"

type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Sync      SyncConfig      `yaml:"sync" mapstructure:"sync"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

// StoreConfig selects where the local bookmark collection lives.
type StoreConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"` // "file" or "redis"
	Path          string `yaml:"path" mapstructure:"path"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	RedisKey      string `yaml:"redis_key" mapstructure:"redis_key"`
}

type SyncConfig struct {
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	Folder          string        `yaml:"folder" mapstructure:"folder"`
	Encrypt         bool          `yaml:"encrypt" mapstructure:"encrypt"`
	KeyPath         string        `yaml:"key_path" mapstructure:"key_path"`
	DefaultProvider string        `yaml:"default_provider" mapstructure:"default_provider"`
	Keep            int           `yaml:"keep" mapstructure:"keep"`
}

type ProvidersConfig struct {
	S3    cloud.S3Config    `yaml:"s3" mapstructure:"s3"`
	Azure cloud.AzureConfig `yaml:"azure" mapstructure:"azure"`
}

type ServerConfig struct {
	Listen    string `yaml:"listen" mapstructure:"listen"`
	RateLimit int    `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per minute per client
}

func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Backend:   "file",
			Path:      filepath.Join(homeDir, ".reelmark", "bookmarks.json"),
			RedisAddr: "localhost:6379",
			RedisKey:  "reelmark:bookmarks",
		},
		Sync: SyncConfig{
			Timeout:         60 * time.Second,
			RequestTimeout:  30 * time.Second,
			Folder:          cloud.DefaultFolder,
			KeyPath:         filepath.Join(homeDir, ".reelmark.key"),
			DefaultProvider: string(cloud.KindGDrive),
			Keep:            10,
		},
		Providers: ProvidersConfig{
			S3:    cloud.S3Config{Region: "us-east-1"},
			Azure: cloud.AzureConfig{Container: cloud.DefaultFolder},
		},
		Server: ServerConfig{
			Listen:    "127.0.0.1:7878",
			RateLimit: 60,
		},
	}
}

// DefaultPath returns ~/.reelmark.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, FileName), nil
}

func Load() (*Config, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the config at configPath over the defaults. A missing file
// yields the defaults; REELMARK_* environment variables override both
// (REELMARK_SYNC_TIMEOUT for sync.timeout).
func LoadFrom(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REELMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("store.redis_password", d.Store.RedisPassword)
	v.SetDefault("store.redis_db", d.Store.RedisDB)
	v.SetDefault("store.redis_key", d.Store.RedisKey)

	v.SetDefault("sync.timeout", d.Sync.Timeout)
	v.SetDefault("sync.request_timeout", d.Sync.RequestTimeout)
	v.SetDefault("sync.folder", d.Sync.Folder)
	v.SetDefault("sync.encrypt", d.Sync.Encrypt)
	v.SetDefault("sync.key_path", d.Sync.KeyPath)
	v.SetDefault("sync.default_provider", d.Sync.DefaultProvider)
	v.SetDefault("sync.keep", d.Sync.Keep)

	v.SetDefault("providers.s3.bucket", d.Providers.S3.Bucket)
	v.SetDefault("providers.s3.region", d.Providers.S3.Region)
	v.SetDefault("providers.s3.endpoint", d.Providers.S3.Endpoint)
	v.SetDefault("providers.s3.prefix", d.Providers.S3.Prefix)
	v.SetDefault("providers.azure.account_url", d.Providers.Azure.AccountURL)
	v.SetDefault("providers.azure.account_name", d.Providers.Azure.AccountName)
	v.SetDefault("providers.azure.container", d.Providers.Azure.Container)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks values that would only fail later at sync time.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown store backend %q (use file or redis)", c.Store.Backend)
	}
	if c.Sync.Timeout <= 0 {
		return fmt.Errorf("sync.timeout must be positive")
	}
	if _, err := cloud.ParseKind(c.Sync.DefaultProvider); err != nil {
		return err
	}
	return nil
}

// CloudConfig maps the provider settings onto cloud.Config.
func (c *Config) CloudConfig(agent string) cloud.Config {
	return cloud.Config{
		Folder:  c.Sync.Folder,
		Timeout: c.Sync.RequestTimeout,
		Agent:   agent,
		S3:      c.Providers.S3,
		Azure:   c.Providers.Azure,
	}
}

func (c *Config) ExpandPaths() {
	homeDir, _ := os.UserHomeDir()

	c.Store.Path = expandPath(c.Store.Path, homeDir)
	c.Sync.KeyPath = expandPath(c.Sync.KeyPath, homeDir)
}

func expandPath(path, homeDir string) string {
	if len(path) > 0 && path[0] == '~' {
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
