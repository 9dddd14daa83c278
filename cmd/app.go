package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/cloud"
	"github.com/harshpatel5940/reelmark/internal/config"
	"github.com/harshpatel5940/reelmark/internal/crypto"
	"github.com/harshpatel5940/reelmark/internal/logger"
	"github.com/harshpatel5940/reelmark/internal/store"
)

// app bundles what most commands need.
type app struct {
	cfg   *config.Config
	log   logger.Logger
	store store.Store
	close func()
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ExpandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

// newLogger keeps interactive commands quiet unless --verbose is set.
func newLogger(cfg *config.Config, interactive bool) (logger.Logger, error) {
	level := cfg.Log.Level
	pretty := cfg.Log.Pretty
	if interactive {
		pretty = true
		if !verbose {
			level = "warn"
		} else {
			level = "debug"
		}
	}
	return logger.New(level, pretty)
}

func setup(ctx context.Context, interactive bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg, interactive)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, close: func() { _ = log.Sync() }}

	switch cfg.Store.Backend {
	case "redis":
		rs, err := store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Key:      cfg.Store.RedisKey,
		}, log)
		if err != nil {
			return nil, err
		}
		a.store = rs
		a.close = func() {
			_ = rs.Close()
			_ = log.Sync()
		}
	default:
		a.store = store.NewFileStore(cfg.Store.Path, log)
	}
	return a, nil
}

func (a *app) codec() (backup.Codec, error) {
	if !a.cfg.Sync.Encrypt {
		return backup.JSONCodec{}, nil
	}
	if !crypto.NewEncryptor(a.cfg.Sync.KeyPath).KeyExists() {
		return nil, fmt.Errorf("encryption is enabled but no key exists at %s (run 'reelmark init')", a.cfg.Sync.KeyPath)
	}
	return backup.NewAgeCodec(a.cfg.Sync.KeyPath), nil
}

func (a *app) manager() (*cloud.Manager, error) {
	codec, err := a.codec()
	if err != nil {
		return nil, err
	}
	providers := cloud.NewProviders(a.cfg.CloudConfig(userAgent()), codec, a.log)
	return cloud.NewManager(providers, backup.DefaultOrigin(Version), a.log), nil
}

func userAgent() string {
	return "reelmark/" + Version
}

func now() time.Time {
	return time.Now().UTC()
}

// envOr returns the flag value, or the environment variable when unset.
func envOr(flag, env string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(env)
}
