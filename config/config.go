/*
Package config loads process configuration and builds the logger.

SOURCES (later wins):
  1. Defaults below
  2. Optional YAML file (-config)
  3. AIDES_* environment variables, dots replaced by underscores:
     AIDES_LOG_LEVEL=debug, AIDES_COMPILER_FAIL_FAST=true
  4. Command-line flags applied by the caller on the returned struct

KEYS:
  port                       HTTP port                          8080
  db                         SQLite path (":memory:" allowed)   aides.db
  log.level                  debug|info|warn|error              info
  log.format                 text|json                          text
  conditions.strict          malformed visibleWhen is an error  false
  conditions.cache_size      parsed-expression cache entries    512
  compiler.reject_undefined  unset answers are errors           false
  compiler.fail_fast         stop at the first build error      false
  compiler.legacy_fallback   serve BuildPartial on failure      true
  cors.origins               allowed origins                    localhost dev servers
*/
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved process configuration.
type Config struct {
	Port       int              `mapstructure:"port"`
	DB         string           `mapstructure:"db"`
	Log        LogConfig        `mapstructure:"log"`
	Conditions ConditionsConfig `mapstructure:"conditions"`
	Compiler   CompilerConfig   `mapstructure:"compiler"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ConditionsConfig struct {
	Strict    bool `mapstructure:"strict"`
	CacheSize int  `mapstructure:"cache_size"`
}

type CompilerConfig struct {
	RejectUndefined bool `mapstructure:"reject_undefined"`
	FailFast        bool `mapstructure:"fail_fast"`
	LegacyFallback  bool `mapstructure:"legacy_fallback"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "AIDES"

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db", "aides.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("conditions.strict", false)
	v.SetDefault("conditions.cache_size", 512)
	v.SetDefault("compiler.reject_undefined", false)
	v.SetDefault("compiler.fail_fast", false)
	v.SetDefault("compiler.legacy_fallback", true)
	v.SetDefault("cors.origins", []string{"http://localhost:5173", "http://localhost:8080"})
}

// Load resolves the configuration. path may be empty.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DB == "" {
		errs = append(errs, errors.New("db path is empty"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log format %q: want text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}
