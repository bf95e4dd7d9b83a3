package config

import (
	"time"
)

type AppConfig struct {
	Port           int           `yaml:"port" env:"MEMFS_PORT" env-default:"8080"`
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"MEMFS_TIMEOUT" env-default:"5s"`
}

type StoreConfig struct {
	Capacity         int64  `yaml:"capacity" env:"MEMFS_CAPACITY" env-default:"1073741824"`
	FileName         string `yaml:"file_name" env:"MEMFS_FILE_NAME" env-default:"test.txt"`
	ZeroFillOnExtend bool   `yaml:"zero_fill_on_extend" env:"MEMFS_ZERO_FILL" env-default:"false"`
}

type FuseConfig struct {
	Mountpoint   string        `yaml:"mountpoint" env:"MEMFS_MOUNTPOINT"`
	FsName       string        `yaml:"fs_name" env-default:"memfs"`
	AllowOther   bool          `yaml:"allow_other" env-default:"false"`
	EntryTimeout time.Duration `yaml:"entry_timeout" env-default:"1s"`
	AttrTimeout  time.Duration `yaml:"attr_timeout" env-default:"1s"`
	Debug        bool          `yaml:"debug" env:"MEMFS_FUSE_DEBUG" env-default:"false"`
}

type NinePConfig struct {
	Enabled bool   `yaml:"enabled" env:"MEMFS_9P_ENABLED" env-default:"false"`
	Addr    string `yaml:"addr" env:"MEMFS_9P_ADDR" env-default:"127.0.0.1:5640"`
}
