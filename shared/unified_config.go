package shared

import (
	"time"

	"github.com/sirupsen/logrus"
)

// UnifiedConfiguration holds the tuning parameters that are not read from the environment
type UnifiedConfiguration struct {
	Source   SourceConfig   `json:"source"`
	Database DatabaseConfig `json:"database"`
	Cache    CacheConfig    `json:"cache"`
	Artifact ArtifactConfig `json:"artifact"`
	Logging  LoggingConfig  `json:"logging"`
}

// SourceConfig holds outbound provider call configuration
type SourceConfig struct {
	CountriesURL       string        `json:"countries_url"`
	RatesURL           string        `json:"rates_url"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// CacheConfig holds query cache configuration
type CacheConfig struct {
	DefaultTTL time.Duration `json:"default_ttl"`
	MaxSize    int           `json:"max_size"`
}

// ArtifactConfig holds summary image configuration
type ArtifactConfig struct {
	Directory string `json:"directory"`
	FileName  string `json:"file_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	TopN      int    `json:"top_n"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

const (
	DefaultCountriesURL = "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies"
	DefaultRatesURL     = "https://open.er-api.com/v6/latest/USD"
)

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Source: SourceConfig{
			CountriesURL:       DefaultCountriesURL,
			RatesURL:           DefaultRatesURL,
			HTTPRequestTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Cache: CacheConfig{
			DefaultTTL: 5 * time.Minute,
			MaxSize:    1000,
		},
		Artifact: ArtifactConfig{
			Directory: "cache",
			FileName:  "summary.png",
			Width:     800,
			Height:    600,
			TopN:      5,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "country-currency-api",
		},
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	if c.Source.CountriesURL == "" {
		c.Source.CountriesURL = defaults.Source.CountriesURL
		logger.Debug("Applied default Source.CountriesURL")
	}

	if c.Source.RatesURL == "" {
		c.Source.RatesURL = defaults.Source.RatesURL
		logger.Debug("Applied default Source.RatesURL")
	}

	if c.Source.HTTPRequestTimeout <= 0 {
		c.Source.HTTPRequestTimeout = defaults.Source.HTTPRequestTimeout
		logger.Debug("Applied default Source.HTTPRequestTimeout")
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
		logger.Debug("Applied default Database.MaxOpenConns")
	}

	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
		logger.Debug("Applied default Database.MaxIdleConns")
	}

	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}

	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = defaults.Cache.DefaultTTL
		logger.Debug("Applied default Cache.DefaultTTL")
	}

	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = defaults.Cache.MaxSize
		logger.Debug("Applied default Cache.MaxSize")
	}

	if c.Artifact.Directory == "" {
		c.Artifact.Directory = defaults.Artifact.Directory
		logger.Debug("Applied default Artifact.Directory")
	}

	if c.Artifact.FileName == "" {
		c.Artifact.FileName = defaults.Artifact.FileName
	}

	if c.Artifact.Width <= 0 || c.Artifact.Height <= 0 {
		c.Artifact.Width = defaults.Artifact.Width
		c.Artifact.Height = defaults.Artifact.Height
		logger.Debug("Applied default Artifact dimensions")
	}

	if c.Artifact.TopN <= 0 {
		c.Artifact.TopN = defaults.Artifact.TopN
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}

	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}

	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = defaults.Logging.ServiceName
	}
}
