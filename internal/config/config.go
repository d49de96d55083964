// Package config loads the service configuration from an optional yaml file,
// an optional .env file and SENTRI_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by storage.driver
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the resolved service configuration
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Remote  RemoteConfig
	Log     LogConfig

	// File is the config file that was read, empty when none was found
	File string
}

// ServerConfig holds the HTTP listener settings. A RateLimitRPS of 0
// disables per-IP rate limiting.
type ServerConfig struct {
	Port         int
	CORSOrigins  []string
	RateLimitRPS int
}

// StorageConfig selects where scan history snapshots are kept.
// Driver is one of DriverMemory, DriverSQLite or DriverPostgres.
type StorageConfig struct {
	Driver string
	DSN    string
}

// RemoteConfig points at an optional external scoring service.
// An empty URL disables it.
type RemoteConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// LogConfig switches between zap's production and development loggers.
type LogConfig struct {
	Development bool
}

// Load resolves the configuration. configFile overrides the default lookup
// of sentri.yaml in ./configs and the working directory.
func Load(configFile string) (Config, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sentri")
		v.SetConfigType("yaml")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("SENTRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.timeout", "3s")
	v.SetDefault("log.development", false)

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	cfg.Server = ServerConfig{
		Port:         v.GetInt("server.port"),
		CORSOrigins:  splitList(v.GetStringSlice("server.cors_origins")),
		RateLimitRPS: v.GetInt("server.rate_limit_rps"),
	}
	cfg.Storage = StorageConfig{
		Driver: strings.ToLower(v.GetString("storage.driver")),
		DSN:    v.GetString("storage.dsn"),
	}
	cfg.Remote = RemoteConfig{
		URL:     strings.TrimRight(v.GetString("remote.url"), "/"),
		Token:   v.GetString("remote.token"),
		Timeout: v.GetDuration("remote.timeout"),
	}
	cfg.Log = LogConfig{Development: v.GetBool("log.development")}

	if cfg.Storage.Driver == DriverSQLite && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "sentri.db"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default its way out of
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("server.rate_limit_rps must not be negative")
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q (want memory, sqlite or postgres)", c.Storage.Driver)
	}
	if c.Remote.URL != "" && c.Remote.Timeout <= 0 {
		return errors.New("remote.timeout must be positive when remote.url is set")
	}
	return nil
}

// splitList accepts both yaml lists and comma-separated env values
func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
