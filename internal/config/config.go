// Package config loads the application configuration from file and
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Data       DataConfig       `mapstructure:"data"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Topography TopographyConfig `mapstructure:"topography"`
}

type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

type DataConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	RegistryPath string `mapstructure:"registry_path"`
}

type RetrievalConfig struct {
	Stride            int           `mapstructure:"stride"`
	TemporalTolerance time.Duration `mapstructure:"temporal_tolerance"`
	Workers           int           `mapstructure:"workers"`
	NoiseFloor        float64       `mapstructure:"noise_floor"`
	MaxSpeed          float64       `mapstructure:"max_speed"`
}

// TopographyConfig points at the land mask source. Raster takes precedence
// over shoreline when both are set.
type TopographyConfig struct {
	RasterPath    string `mapstructure:"raster_path"`
	ShorelinePath string `mapstructure:"shoreline_path"`
}

// Load reads configuration from config.yaml and SARWIND_* environment
// variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 300)
	v.SetDefault("data.output_dir", "data/wind")
	v.SetDefault("data.registry_path", "data/sarwind.db")
	v.SetDefault("retrieval.stride", 4)
	v.SetDefault("retrieval.temporal_tolerance", 3*time.Hour)
	v.SetDefault("retrieval.workers", 4)
	v.SetDefault("retrieval.noise_floor", 1e-4)
	v.SetDefault("retrieval.max_speed", 50.0)
	v.SetDefault("topography.raster_path", "")
	v.SetDefault("topography.shoreline_path", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// SARWIND_RETRIEVAL_STRIDE -> retrieval.stride
	v.SetEnvPrefix("SARWIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Data.OutputDir == "" {
		errs = append(errs, "data.output_dir is required")
	}
	if c.Retrieval.Stride < 1 {
		errs = append(errs, fmt.Sprintf("retrieval.stride must be >= 1, got %d", c.Retrieval.Stride))
	}
	if c.Retrieval.TemporalTolerance <= 0 {
		errs = append(errs, "retrieval.temporal_tolerance must be positive")
	}
	if c.Retrieval.Workers < 1 {
		errs = append(errs, fmt.Sprintf("retrieval.workers must be >= 1, got %d", c.Retrieval.Workers))
	}
	if c.Retrieval.NoiseFloor <= 0 {
		errs = append(errs, "retrieval.noise_floor must be positive")
	}
	if c.Retrieval.MaxSpeed <= 0 {
		errs = append(errs, "retrieval.max_speed must be positive")
	}
	if c.Topography.RasterPath == "" && c.Topography.ShorelinePath == "" {
		errs = append(errs, "either topography.raster_path or topography.shoreline_path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
