package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "FLEET"
	configDir  = ".fleet"

	KeyConfigDir      = "config.dir"
	KeyAPIBaseURL     = "api.base_url"
	KeyAPITimeout     = "api.timeout"
	KeySessionTimeout = "session.timeout"
	KeyExpirySkew     = "session.expiry_skew"
	KeySessionStore   = "session.store"
	KeySessionDir     = "session.dir"
	KeySessionKey     = "session.key"
	KeyPassPrefix     = "session.pass_prefix"
	KeyRedisURL       = "redis.url"
	KeyRedisPrefix    = "redis.prefix"
	KeyRedisTTL       = "redis.ttl"
	KeyScopeCustomer  = "scope.customer"
	KeyScopeParam     = "scope.param"
	KeyScopePrefixes  = "scope.prefixes"
	KeyCacheTTL       = "cache.ttl"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
)

const (
	StoreFile   = "file"
	StorePass   = "pass"
	StoreChain  = "chain"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	API     APIConfig
	Session SessionConfig
	Redis   RedisConfig
	Scope   ScopeConfig
	Cache   CacheConfig
	Log     LogConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	IdleTimeout time.Duration
	ExpirySkew  time.Duration
	Store       string
	Dir         string
	Key         string
	PassPrefix  string
}

type RedisConfig struct {
	URL    string
	Prefix string
	TTL    time.Duration
}

type ScopeConfig struct {
	Customer string
	Param    string
	Prefixes []string
}

type CacheConfig struct {
	TTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load resolves configuration from defaults, ~/.fleet/config.toml and FLEET_*
// environment variables, in increasing precedence. Values set directly on cfg
// win over all of them.
func Load(cfg *viper.Viper) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	setDefaults(cfg, filepath.Join(homeDir, configDir))

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(cfg.GetString(KeyConfigDir))

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	out := Config{
		API: APIConfig{
			BaseURL: strings.TrimSpace(cfg.GetString(KeyAPIBaseURL)),
			Timeout: cfg.GetDuration(KeyAPITimeout),
		},
		Session: SessionConfig{
			IdleTimeout: cfg.GetDuration(KeySessionTimeout),
			ExpirySkew:  cfg.GetDuration(KeyExpirySkew),
			Store:       strings.ToLower(strings.TrimSpace(cfg.GetString(KeySessionStore))),
			Dir:         expandHome(cfg.GetString(KeySessionDir), homeDir),
			Key:         cfg.GetString(KeySessionKey),
			PassPrefix:  cfg.GetString(KeyPassPrefix),
		},
		Redis: RedisConfig{
			URL:    cfg.GetString(KeyRedisURL),
			Prefix: cfg.GetString(KeyRedisPrefix),
			TTL:    cfg.GetDuration(KeyRedisTTL),
		},
		Scope: ScopeConfig{
			Customer: strings.TrimSpace(cfg.GetString(KeyScopeCustomer)),
			Param:    cfg.GetString(KeyScopeParam),
			Prefixes: splitList(cfg.GetStringSlice(KeyScopePrefixes)),
		},
		Cache: CacheConfig{TTL: cfg.GetDuration(KeyCacheTTL)},
		Log: LogConfig{
			Level:  cfg.GetString(KeyLogLevel),
			Format: cfg.GetString(KeyLogFormat),
		},
	}

	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

func setDefaults(cfg *viper.Viper, dir string) {
	cfg.SetDefault(KeyConfigDir, dir)
	cfg.SetDefault(KeyAPIBaseURL, "http://127.0.0.1:8080/")
	cfg.SetDefault(KeyAPITimeout, 30*time.Second)
	cfg.SetDefault(KeySessionTimeout, 30*time.Minute)
	cfg.SetDefault(KeyExpirySkew, 30*time.Second)
	cfg.SetDefault(KeySessionStore, StoreChain)
	cfg.SetDefault(KeySessionDir, filepath.Join(dir, "secrets"))
	cfg.SetDefault(KeySessionKey, "session/credentials")
	cfg.SetDefault(KeyPassPrefix, "fleet")
	cfg.SetDefault(KeyRedisPrefix, "fleet")
	cfg.SetDefault(KeyRedisTTL, time.Duration(0))
	cfg.SetDefault(KeyScopeParam, "customer_Name")
	cfg.SetDefault(KeyScopePrefixes, []string{"devices/", "tickets/", "gps/", "plc/"})
	cfg.SetDefault(KeyCacheTTL, time.Minute)
	cfg.SetDefault(KeyLogLevel, "warn")
	cfg.SetDefault(KeyLogFormat, "text")
}

func (c Config) Validate() error {
	var problems []error

	if c.API.BaseURL == "" {
		problems = append(problems, fmt.Errorf("%s is empty", KeyAPIBaseURL))
	}
	if c.API.Timeout <= 0 {
		problems = append(problems, fmt.Errorf("%s must be positive", KeyAPITimeout))
	}
	if c.Session.IdleTimeout <= 0 {
		problems = append(problems, fmt.Errorf("%s must be positive", KeySessionTimeout))
	}
	if c.Session.ExpirySkew < 0 {
		problems = append(problems, fmt.Errorf("%s must not be negative", KeyExpirySkew))
	}
	switch c.Session.Store {
	case StoreFile, StorePass, StoreChain, StoreMemory:
	case StoreRedis:
		if c.Redis.URL == "" {
			problems = append(problems, fmt.Errorf("%s is required when %s is %q", KeyRedisURL, KeySessionStore, StoreRedis))
		}
	default:
		problems = append(problems, fmt.Errorf("%s: unknown store %q", KeySessionStore, c.Session.Store))
	}
	if c.Session.Key == "" {
		problems = append(problems, fmt.Errorf("%s is empty", KeySessionKey))
	}
	if c.Scope.Param == "" {
		problems = append(problems, fmt.Errorf("%s is empty", KeyScopeParam))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
	}
	return nil
}

// splitList accepts both a TOML array and a comma separated env value.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func expandHome(path string, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(homeDir, rest)
	}
	return path
}
