// Package config loads the gate's settings from a YAML file and PORTUNUS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, with dots in the
// key replaced by underscores (storage.driver -> PORTUNUS_STORAGE_DRIVER).
const EnvPrefix = "portunus"

// Config represents the root structure of the YAML configuration file.
type Config struct {
	HTTPAddr string `mapstructure:"http_addr" validate:"required"`
	// GRPCAddr serves the gRPC health service. Empty disables it.
	GRPCAddr string `mapstructure:"grpc_addr"`

	Storage    Storage    `mapstructure:"storage"`
	Directory  Directory  `mapstructure:"directory"`
	Provider   Provider   `mapstructure:"provider"`
	Webhook    Webhook    `mapstructure:"webhook"`
	ScanEvents ScanEvents `mapstructure:"scan_events"`
	Metrics    Metrics    `mapstructure:"metrics"`

	// Debug enable or disable debug option set from CLI.
	Debug bool `mapstructure:"debug"`
}

// Storage selects where scan events, counters and (by default) directory
// records live.
type Storage struct {
	Driver        string `mapstructure:"driver"         validate:"oneof=sqlite mongo memory"`
	SQLitePath    string `mapstructure:"sqlite_path"    validate:"required_if=Driver sqlite"`
	MongoURI      string `mapstructure:"mongo_uri"      validate:"required_if=Driver mongo"`
	MongoDatabase string `mapstructure:"mongo_database" validate:"required_if=Driver mongo"`
	// Fixtures is a YAML file loaded into the memory driver at startup.
	Fixtures string `mapstructure:"fixtures"`
}

// Directory selects how organization and access point records are read.
type Directory struct {
	Source     string `mapstructure:"source"      validate:"oneof=store dataapi"`
	DataAPIURL string `mapstructure:"dataapi_url" validate:"required_if=Source dataapi,omitempty,url"`
	DataAPIKey string `mapstructure:"dataapi_key"`
}

// Provider is the external identity provider used for group role lookups.
// An empty BaseURL disables the group-role path.
type Provider struct {
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"gte=0"`
}

type Webhook struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type ScanEvents struct {
	// Retention sets each event's expiry. 0 uses the service's 30 day
	// default and leaves the background pruner off.
	Retention     time.Duration `mapstructure:"retention"      validate:"gte=0"`
	PruneInterval time.Duration `mapstructure:"prune_interval" validate:"gte=0"`
}

// Metrics configuration settings for Prometheus metrics.
type Metrics struct {
	// Path is the HTTP path for the Prometheus scrape endpoint.
	// Defaults to "/metrics" when empty.
	Path string `mapstructure:"path"`
}

var defaults = map[string]any{
	"http_addr":                  ":8080",
	"grpc_addr":                  "",
	"storage.driver":             "sqlite",
	"storage.sqlite_path":        "./data/portunus-gate.db",
	"storage.mongo_uri":          "",
	"storage.mongo_database":     "portunus",
	"storage.fixtures":           "",
	"directory.source":           "store",
	"directory.dataapi_url":      "",
	"directory.dataapi_key":      "",
	"provider.base_url":          "",
	"provider.timeout":           "5s",
	"webhook.timeout":            "10s",
	"scan_events.retention":      "720h",
	"scan_events.prune_interval": "6h",
	"metrics.path":               "/metrics",
	"debug":                      false,
}

// New returns a viper instance with defaults and environment overrides
// configured. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) into v, unmarshals and validates the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the struct tags and joins every violation into one error.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
