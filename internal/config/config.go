package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/mitchelldurbincs/wargame/internal/game/rules"
)

// Config holds all configuration for the application
type Config struct {
	Combat     CombatConfig     `mapstructure:"combat"`
	Estimator  EstimatorConfig  `mapstructure:"estimator"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Server     ServerConfig     `mapstructure:"server"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// CombatConfig selects the ruleset and overrides its game constants
type CombatConfig struct {
	// RulesPath is a YAML ruleset; empty uses the built-in classic rules.
	RulesPath string `mapstructure:"rules_path"`
	// DiceSides and MaxRounds override the ruleset when positive.
	DiceSides int `mapstructure:"dice_sides"`
	MaxRounds int `mapstructure:"max_rounds"`
}

// EstimatorConfig holds odds estimator settings
type EstimatorConfig struct {
	RunCount          int     `mapstructure:"run_count"`
	MaxRunCount       int     `mapstructure:"max_run_count"`
	Workers           int     `mapstructure:"workers"`
	AttritionExponent float64 `mapstructure:"attrition_exponent"`
	ExactThresholdMS  int     `mapstructure:"exact_threshold_ms"`
	ProgressEvery     int     `mapstructure:"progress_every"`
	TimeoutMS         int     `mapstructure:"timeout_ms"`
}

// CacheConfig holds estimate cache settings
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Backend    string `mapstructure:"backend"`
	RedisURL   string `mapstructure:"redis_url"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	MaxEntries int    `mapstructure:"max_entries"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTP                  HTTPServerConfig `mapstructure:"http"`
	GRPC                  GRPCServerConfig `mapstructure:"grpc"`
	GracefulShutdownDelay int              `mapstructure:"graceful_shutdown_delay"`
	LogLevel              string           `mapstructure:"log_level"`
	LogFormat             string           `mapstructure:"log_format"`
}

// HTTPServerConfig holds HTTP server configuration
type HTTPServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// GRPCServerConfig holds gRPC server configuration
type GRPCServerConfig struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	EnableReflection bool   `mapstructure:"enable_reflection"`
}

// MonitoringConfig holds runtime monitoring settings
type MonitoringConfig struct {
	IntervalSeconds         int `mapstructure:"interval_seconds"`
	GoroutineAlertThreshold int `mapstructure:"goroutine_alert_threshold"`
}

// ExactThreshold is the time budget below which the fast estimator is used.
func (c EstimatorConfig) ExactThreshold() time.Duration {
	return time.Duration(c.ExactThresholdMS) * time.Millisecond
}

// Timeout is the default time budget of a single estimate.
func (c EstimatorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// TTL is the lifetime of a cached estimate.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Interval is the goroutine sampling interval.
func (c MonitoringConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Ruleset loads the configured ruleset and applies the overrides.
func (c CombatConfig) Ruleset() (*rules.Ruleset, error) {
	base := rules.Classic()
	if c.RulesPath != "" {
		loaded, err := rules.Load(c.RulesPath)
		if err != nil {
			return nil, err
		}
		base = loaded
	}
	if c.DiceSides <= 0 && c.MaxRounds <= 0 {
		return base, nil
	}

	rs := *base
	if c.DiceSides > 0 {
		rs.DiceSides = c.DiceSides
	}
	if c.MaxRounds > 0 {
		rs.MaxRounds = c.MaxRounds
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

var (
	// Global config instance
	cfg *Config
	v   *viper.Viper
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	// Combat defaults; zero keeps the ruleset's own values
	v.SetDefault("combat.rules_path", "")
	v.SetDefault("combat.dice_sides", 0)
	v.SetDefault("combat.max_rounds", 0)

	// Estimator defaults
	v.SetDefault("estimator.run_count", 200)
	v.SetDefault("estimator.max_run_count", 100000)
	v.SetDefault("estimator.workers", 0)
	v.SetDefault("estimator.attrition_exponent", 1.5)
	v.SetDefault("estimator.exact_threshold_ms", 250)
	v.SetDefault("estimator.progress_every", 100)
	v.SetDefault("estimator.timeout_ms", 10000)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.key_prefix", "wargame:odds")
	v.SetDefault("cache.ttl_seconds", 600)
	v.SetDefault("cache.max_entries", 1000)

	// Server defaults
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.grpc.host", "0.0.0.0")
	v.SetDefault("server.grpc.port", 50051)
	v.SetDefault("server.grpc.enable_reflection", true)
	v.SetDefault("server.graceful_shutdown_delay", 5)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")

	// Monitoring defaults
	v.SetDefault("monitoring.interval_seconds", 30)
	v.SetDefault("monitoring.goroutine_alert_threshold", 1000)
}

// Init initializes the configuration
func Init(configPath string) error {
	v = viper.New()

	// Set defaults before loading any config
	setViperDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/wargame")
	}

	v.SetEnvPrefix("WGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file means defaults. For the default search paths only
		// ConfigFileNotFoundError is tolerated.
		var notFound viper.ConfigFileNotFoundError
		if configPath == "" && !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		if err := Init(""); err != nil {
			panic("failed to initialize config with defaults: " + err.Error())
		}
	}
	return cfg
}

// GetViper returns the viper instance for advanced usage
func GetViper() *viper.Viper {
	if v == nil {
		panic("config not initialized - call Init() first")
	}
	return v
}

// LoadEnvironmentConfig loads environment-specific config overlay
func LoadEnvironmentConfig(env string) error {
	if env == "" {
		return nil
	}

	envFile := fmt.Sprintf("config.%s.yaml", env)

	v.SetConfigFile(envFile)
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error merging environment config %s: %w", envFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode merged config into struct: %w", err)
	}

	return nil
}

// Set allows runtime config updates
func Set(key string, value interface{}) {
	v.Set(key, value)
	_ = v.Unmarshal(cfg)
}

// GetString gets a string value from config
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt gets an int value from config
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetBool gets a bool value from config
func GetBool(key string) bool {
	return v.GetBool(key)
}

// GetFloat64 gets a float64 value from config
func GetFloat64(key string) float64 {
	return v.GetFloat64(key)
}

// ConfigFilePath returns the path of the loaded config file
func ConfigFilePath() string {
	return v.ConfigFileUsed()
}

// WatchConfig enables hot-reloading of config file. Invalid edits are
// reported to onError and leave the previous values in place.
func WatchConfig(onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		next := &Config{}
		if err := v.Unmarshal(next); err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		if err := Validate(next); err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		*cfg = *next
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
}

// Validate validates the configuration values
func Validate(c *Config) error {
	if c.Combat.DiceSides < 0 {
		return fmt.Errorf("combat.dice_sides must be non-negative")
	}
	if c.Combat.MaxRounds < 0 {
		return fmt.Errorf("combat.max_rounds must be non-negative")
	}

	if c.Estimator.RunCount < 0 {
		return fmt.Errorf("estimator.run_count must be non-negative")
	}
	if c.Estimator.MaxRunCount < c.Estimator.RunCount {
		return fmt.Errorf("estimator.max_run_count must be at least estimator.run_count")
	}
	if c.Estimator.Workers < 0 {
		return fmt.Errorf("estimator.workers must be non-negative")
	}
	if c.Estimator.AttritionExponent < 1 {
		return fmt.Errorf("estimator.attrition_exponent must be at least 1")
	}
	if c.Estimator.ExactThresholdMS < 0 {
		return fmt.Errorf("estimator.exact_threshold_ms must be non-negative")
	}
	if c.Estimator.ProgressEvery < 0 {
		return fmt.Errorf("estimator.progress_every must be non-negative")
	}
	if c.Estimator.TimeoutMS < 0 {
		return fmt.Errorf("estimator.timeout_ms must be non-negative")
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Enabled && c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must be non-negative")
	}

	if c.Server.HTTP.Port <= 0 || c.Server.HTTP.Port > 65535 {
		return fmt.Errorf("server.http.port must be between 1 and 65535")
	}
	if c.Server.GRPC.Port <= 0 || c.Server.GRPC.Port > 65535 {
		return fmt.Errorf("server.grpc.port must be between 1 and 65535")
	}
	if c.Server.GracefulShutdownDelay < 0 {
		return fmt.Errorf("server.graceful_shutdown_delay must be non-negative")
	}
	switch c.Server.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("server.log_format must be console or json, got %q", c.Server.LogFormat)
	}

	if c.Monitoring.IntervalSeconds < 0 {
		return fmt.Errorf("monitoring.interval_seconds must be non-negative")
	}

	return nil
}
