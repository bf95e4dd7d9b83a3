package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env   string      `yaml:"env" env:"MEMFS_ENV" env-default:"local"`
	App   AppConfig   `yaml:"app"`
	Store StoreConfig `yaml:"store"`
	Fuse  FuseConfig  `yaml:"fuse"`
	NineP NinePConfig `yaml:"ninep"`
}

// Load reads configPath and applies environment overrides on top of it.
// An empty configPath means environment variables and defaults only.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		// check if file exists
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("%s: config file %s: %w", op, configPath, err)
		}

		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic("cannot read config: " + err.Error())
	}

	return cfg
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("%w: unknown env %q", ErrInvalidConfig, c.Env)
	}

	if c.Store.Capacity <= 0 {
		return fmt.Errorf("%w: store capacity must be positive, got %d", ErrInvalidConfig, c.Store.Capacity)
	}
	if c.Store.FileName == "" {
		return fmt.Errorf("%w: store file name is empty", ErrInvalidConfig)
	}
	if c.App.Port < 0 || c.App.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.App.Port)
	}

	return nil
}
