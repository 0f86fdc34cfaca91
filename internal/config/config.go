// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data  DataConfig  `yaml:"data" mapstructure:"data"`
	Fit   FitConfig   `yaml:"fit" mapstructure:"fit"`
	Store StoreConfig `yaml:"store" mapstructure:"store"`
	Map   MapConfig   `yaml:"map" mapstructure:"map"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// DataConfig configures input handling.
type DataConfig struct {
	InputPath string `yaml:"input_path" mapstructure:"input_path"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// FitConfig configures the estimation pipeline.
type FitConfig struct {
	Estimator   string `yaml:"estimator" mapstructure:"estimator"` // "ml" or "gee"
	MinRuralN   int    `yaml:"min_rural_n" mapstructure:"min_rural_n"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string      `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string      `yaml:"database_url" mapstructure:"database_url"`
	Pool        *PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional postgres pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// MapConfig configures choropleth data preparation.
type MapConfig struct {
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DISPARITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.output_dir", "output")
	v.SetDefault("fit.estimator", "ml")
	v.SetDefault("fit.min_rural_n", 50)
	v.SetDefault("fit.concurrency", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "disparity.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command is about to rely on. Mode is the
// command name: "fit" needs a sane estimation setup, "mapdata" additionally
// needs boundary geometry.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	switch mode {
	case "fit":
		if c.Fit.Estimator != "ml" && c.Fit.Estimator != "gee" {
			problems = append(problems, "fit.estimator must be ml or gee")
		}
		if c.Fit.MinRuralN < 0 {
			problems = append(problems, "fit.min_rural_n must be >= 0")
		}
		if c.Fit.Concurrency < 1 || c.Fit.Concurrency > 64 {
			problems = append(problems, "fit.concurrency must be between 1 and 64")
		}
	case "mapdata":
		if c.Map.ShapefilePath == "" {
			problems = append(problems, "map.shapefile_path is required")
		}
	case "runs":
		// store checks above suffice
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
