package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Store drivers selectable through STORE_DRIVER
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

type Config struct {
	ServerPort             string
	StoreDriver            string
	DatabaseURL            string
	MongoURL               string
	DatabaseName           string
	RedisURL               string
	CountriesAPIURL        string
	RatesAPIURL            string
	HTTPTimeoutSeconds     string
	CacheDir               string
	CacheTTLMinutes        string
	RefreshIntervalHours   string
	RefreshLockWaitSeconds string
	LogLevel               string
	LogFormat              string
	ServiceName            string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:             getEnv("SERVER_PORT", getEnv("PORT", "8080")),
		StoreDriver:            strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		MongoURL:               getEnv("MONGODB_URL", ""),
		DatabaseName:           getEnv("DATABASE_NAME", "countries_db"),
		RedisURL:               getEnv("REDIS_URL", ""),
		CountriesAPIURL:        getEnv("COUNTRIES_API_URL", shared.DefaultCountriesURL),
		RatesAPIURL:            getEnv("RATES_API_URL", shared.DefaultRatesURL),
		HTTPTimeoutSeconds:     getEnv("HTTP_TIMEOUT_SECONDS", "30"),
		CacheDir:               getEnv("CACHE_DIR", "cache"),
		CacheTTLMinutes:        getEnv("CACHE_TTL_MINUTES", "5"),
		RefreshIntervalHours:   getEnv("REFRESH_INTERVAL_HOURS", "0"),
		RefreshLockWaitSeconds: getEnv("REFRESH_LOCK_WAIT_SECONDS", "60"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		ServiceName:            getEnv("SERVICE_NAME", ""),
	}
}

// GetHTTPTimeout returns the outbound provider timeout
func (c *Config) GetHTTPTimeout() time.Duration {
	return parseDuration("HTTP_TIMEOUT_SECONDS", c.HTTPTimeoutSeconds, time.Second, 30*time.Second, false)
}

// GetCacheTTL returns the query cache TTL
func (c *Config) GetCacheTTL() time.Duration {
	return parseDuration("CACHE_TTL_MINUTES", c.CacheTTLMinutes, time.Minute, 5*time.Minute, false)
}

// GetRefreshInterval returns the scheduled refresh period; zero disables it
func (c *Config) GetRefreshInterval() time.Duration {
	return parseDuration("REFRESH_INTERVAL_HOURS", c.RefreshIntervalHours, time.Hour, 0, true)
}

// GetRefreshLockWait returns how long a refresh waits for a distributed lock
func (c *Config) GetRefreshLockWait() time.Duration {
	return parseDuration("REFRESH_LOCK_WAIT_SECONDS", c.RefreshLockWaitSeconds, time.Second, 60*time.Second, false)
}

// UnifiedConfiguration maps the environment onto the shared tuning defaults
func (c *Config) UnifiedConfiguration() *shared.UnifiedConfiguration {
	unified := shared.NewDefaultUnifiedConfiguration()
	unified.Source.CountriesURL = c.CountriesAPIURL
	unified.Source.RatesURL = c.RatesAPIURL
	unified.Source.HTTPRequestTimeout = c.GetHTTPTimeout()
	unified.Cache.DefaultTTL = c.GetCacheTTL()
	unified.Artifact.Directory = c.CacheDir
	unified.Logging.Level = c.LogLevel
	unified.Logging.Format = c.LogFormat
	unified.Logging.ServiceName = c.ServiceName
	unified.ValidateAndApplyDefaults()
	return unified
}

// ConfigureLogging applies the logging section to the standard logrus logger
// and stamps every entry with the service name
func ConfigureLogging(logging shared.LoggingConfig) {
	level, err := logrus.ParseLevel(logging.Level)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL value: %s, using info", logging.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	hooks := make(logrus.LevelHooks)
	if logging.ServiceName != "" {
		hooks.Add(serviceHook{service: logging.ServiceName})
	}
	logrus.StandardLogger().ReplaceHooks(hooks)

	if strings.EqualFold(logging.Format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
}

type serviceHook struct {
	service string
}

func (h serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h serviceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["service"]; !ok {
		entry.Data["service"] = h.service
	}
	return nil
}

func parseDuration(key, raw string, unit, fallback time.Duration, allowZero bool) time.Duration {
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 || (value == 0 && !allowZero) {
		logrus.Warnf("Invalid %s value: %s, using default %s", key, raw, fallback)
		return fallback
	}

	return time.Duration(value) * unit
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
