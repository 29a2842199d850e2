// Package config file: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 PLUGSHELL_LOG_LEVEL
const EnvPrefix = "PLUGSHELL"

type ShellConfig struct {
	Prompt string `mapstructure:"prompt" validate:"required"`
}

type StorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type PluginsConfig struct {
	InstallDir    string        `mapstructure:"install_dir"`
	ActionTimeout time.Duration `mapstructure:"action_timeout" validate:"gte=0"`
	Watch         bool          `mapstructure:"watch"`
}

type AdminConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Listen       string  `mapstructure:"listen" validate:"required_if=Enabled true"`
	PasswordHash string  `mapstructure:"password_hash" validate:"required_if=Enabled true"`
	JWTSecret    string  `mapstructure:"jwt_secret" validate:"omitempty,min=16"`
	RatePerSec   float64 `mapstructure:"rate_per_second" validate:"gt=0"`
	Burst        int     `mapstructure:"burst" validate:"gt=0"`
}

type DebugConfig struct {
	PprofAddr string `mapstructure:"pprof_addr"`
}

// Config 是 PlugShell 的完整配置
type Config struct {
	Shell   ShellConfig   `mapstructure:"shell"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Plugins PluginsConfig `mapstructure:"plugins"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("shell.prompt", "plugshell> ")
	v.SetDefault("storage.path", filepath.Join("instance", "plugshell.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("plugins.install_dir", filepath.Join("instance", "plugins"))
	v.SetDefault("plugins.action_timeout", 0)
	v.SetDefault("plugins.watch", false)
	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.listen", "127.0.0.1:10224")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.rate_per_second", 5.0)
	v.SetDefault("admin.burst", 10)
	v.SetDefault("debug.pprof_addr", "")
}

// Load 读取配置文件并合并环境变量覆盖。
// path 为空时只使用默认值与环境变量；指定的文件不存在时返回错误。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("配置文件 '%s' 不存在: %w", path, err)
			}
			return nil, fmt.Errorf("读取配置文件 '%s' 失败: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置到结构体失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if c.Admin.Enabled && c.Admin.JWTSecret == "" {
		return errors.New("配置校验失败: 启用管理接口时必须设置 admin.jwt_secret")
	}
	return nil
}
