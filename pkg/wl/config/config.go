// Package config loads wl settings from defaults, an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/komsit37/thematic-wl/pkg/wl/enrich"
)

// EnvPrefix prefixes every environment override, e.g. WL_PRICES_SOURCE.
const EnvPrefix = "WL"

type Config struct {
	Prices    Prices    `mapstructure:"prices"`
	Massive   Massive   `mapstructure:"massive"`
	Proxy     Proxy     `mapstructure:"proxy"`
	Catalysts Catalysts `mapstructure:"catalysts"`
	Log       Log       `mapstructure:"log"`
	Render    Render    `mapstructure:"render"`
}

type Prices struct {
	Source    string        `mapstructure:"source"` // massive, proxy, yahoo or none
	BatchSize int           `mapstructure:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type Massive struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type Proxy struct {
	URL    string `mapstructure:"url"`
	Listen string `mapstructure:"listen"`
}

type Catalysts struct {
	Listen string `mapstructure:"listen"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Render struct {
	// MaxColWidth wraps table columns; 0 derives it from the terminal.
	MaxColWidth int `mapstructure:"max_col_width"`
}

var defaults = map[string]any{
	"prices.source":        "massive",
	"prices.batch_size":    enrich.DefaultBatchSize,
	"prices.timeout":       "10s",
	"massive.api_key":      "",
	"massive.base_url":     enrich.DefaultMassiveURL,
	"proxy.url":            "http://localhost:8787",
	"proxy.listen":         ":8787",
	"catalysts.listen":     ":8788",
	"log.level":            "info",
	"render.max_col_width": 40,
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("massive.api_key", EnvPrefix+"_MASSIVE_API_KEY", "MASSIVE_API_KEY")
	return v
}

// Load reads file into v (or ./wl.yaml when file is empty and it exists)
// and decodes the result.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("wl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	switch strings.ToLower(c.Prices.Source) {
	case "massive", "proxy", "yahoo", "none":
	default:
		return fmt.Errorf("prices.source %q: want massive, proxy, yahoo or none", c.Prices.Source)
	}
	if c.Prices.BatchSize <= 0 {
		return fmt.Errorf("prices.batch_size must be positive, got %d", c.Prices.BatchSize)
	}
	if c.Prices.Timeout <= 0 {
		return fmt.Errorf("prices.timeout must be positive, got %s", c.Prices.Timeout)
	}
	if c.Render.MaxColWidth < 0 {
		return fmt.Errorf("render.max_col_width must not be negative, got %d", c.Render.MaxColWidth)
	}
	return nil
}

// ErrNoAPIKey is returned when the massive source has no key configured.
var ErrNoAPIKey = errors.New("massive.api_key not set (MASSIVE_API_KEY)")

// PriceSource builds the configured source. It returns nil, nil for "none".
func (c Config) PriceSource() (enrich.PriceSource, error) {
	switch strings.ToLower(c.Prices.Source) {
	case "none":
		return nil, nil
	case "proxy":
		return enrich.NewProxySource(c.Proxy.URL, c.Prices.Timeout), nil
	case "yahoo":
		return enrich.NewYahooSource(c.Prices.Timeout), nil
	case "massive":
		if c.Massive.APIKey == "" {
			return nil, ErrNoAPIKey
		}
		return enrich.NewMassiveSource(c.Massive.APIKey, c.Massive.BaseURL, c.Prices.Timeout)
	}
	return nil, fmt.Errorf("prices.source %q: unknown", c.Prices.Source)
}
