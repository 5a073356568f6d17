package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Clustering Clustering `mapstructure:"clustering"`
	Features   Features   `mapstructure:"features"`
	Sentiment  Sentiment  `mapstructure:"sentiment"`
	Database   Database   `mapstructure:"database"`
	Server     Server     `mapstructure:"server"`
	Logging    Logging    `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	ConfigFile string `mapstructure:"config_file"`
}

// Clustering holds tuning knobs for the clustering engine
type Clustering struct {
	DefaultAlgorithm     string  `mapstructure:"default_algorithm"`
	MaxIterations        int     `mapstructure:"max_iterations"`
	Seed                 int64   `mapstructure:"seed"`
	SilhouetteExactLimit int     `mapstructure:"silhouette_exact_limit"`
	ProxyReferenceScale  float64 `mapstructure:"proxy_reference_scale"`
	EigenSolver          string  `mapstructure:"eigen_solver"`
	PowerIterations      int     `mapstructure:"power_iterations"`
	SigmaSampleSize      int     `mapstructure:"sigma_sample_size"`
	Timeout              string  `mapstructure:"timeout"`
}

// Features holds feature engineering configuration
type Features struct {
	DefaultGroups []string `mapstructure:"default_groups"`
	BrandTerms    []string `mapstructure:"brand_terms"`
}

// Sentiment holds configuration for scoring posts that arrive without a sentiment value
type Sentiment struct {
	ScoreMissing bool `mapstructure:"score_missing"`
}

// Database holds configuration for the SQL post source
type Database struct {
	Driver           string `mapstructure:"driver"`
	ConnectionString string `mapstructure:"connection_string"`
	Table            string `mapstructure:"table"`
	Timeout          string `mapstructure:"timeout"`
}

// Server holds HTTP server configuration
type Server struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	CORS           CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin configuration
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".audiencelens")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)

	viper.SetDefault("clustering.default_algorithm", "kmeans")
	viper.SetDefault("clustering.max_iterations", 100)
	viper.SetDefault("clustering.seed", 0)
	viper.SetDefault("clustering.silhouette_exact_limit", 2000)
	viper.SetDefault("clustering.proxy_reference_scale", 0.0)
	viper.SetDefault("clustering.eigen_solver", "power")
	viper.SetDefault("clustering.power_iterations", 50)
	viper.SetDefault("clustering.sigma_sample_size", 100)
	viper.SetDefault("clustering.timeout", "30s")

	viper.SetDefault("features.default_groups", []string{"sentiment", "engagement"})
	viper.SetDefault("features.brand_terms", []string{})

	viper.SetDefault("sentiment.score_missing", true)

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.table", "posts")
	viper.SetDefault("database.timeout", "10s")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.request_timeout", "45s")
	viper.SetDefault("server.max_body_bytes", 10<<20)
	viper.SetDefault("server.cors.enabled", false)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("database.connection_string", []string{
		"DATABASE_URL",
		"AUDIENCELENS_DATABASE_URL",
	})

	bindEnvKeys("clustering.seed", []string{
		"AUDIENCELENS_SEED",
	})

	bindEnvKeys("server.port", []string{
		"PORT",
		"AUDIENCELENS_PORT",
	})

	bindEnvKeys("logging.level", []string{
		"LOG_LEVEL",
		"AUDIENCELENS_LOG_LEVEL",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"AUDIENCELENS_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	// SQLite DSNs are file paths
	if config.Database.Driver == "sqlite3" && config.Database.ConnectionString != "" {
		config.Database.ConnectionString = expandPath(config.Database.ConnectionString)
	}

	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"clustering.timeout": config.Clustering.Timeout,
		"database.timeout":   config.Database.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures configuration values are usable
func validateConfig(config *Config) error {
	var errors []string

	c := config.Clustering
	switch c.DefaultAlgorithm {
	case "kmeans", "spectral", "hierarchical", "dbscan", "gaussian":
	default:
		errors = append(errors, fmt.Sprintf("Unknown clustering algorithm: %s. Supported: kmeans, spectral, hierarchical, dbscan, gaussian", c.DefaultAlgorithm))
	}

	switch c.EigenSolver {
	case "power", "symmetric":
	default:
		errors = append(errors, fmt.Sprintf("Unknown eigen solver: %s. Supported: power, symmetric", c.EigenSolver))
	}

	if c.MaxIterations <= 0 {
		errors = append(errors, "clustering.max_iterations must be positive")
	}
	if c.PowerIterations <= 0 {
		errors = append(errors, "clustering.power_iterations must be positive")
	}
	if c.SigmaSampleSize < 2 {
		errors = append(errors, "clustering.sigma_sample_size must be at least 2")
	}
	if c.SilhouetteExactLimit < 0 {
		errors = append(errors, "clustering.silhouette_exact_limit must not be negative")
	}
	if c.ProxyReferenceScale < 0 {
		errors = append(errors, "clustering.proxy_reference_scale must not be negative")
	}

	for _, g := range config.Features.DefaultGroups {
		switch g {
		case "sentiment", "engagement", "content", "temporal", "keywords":
		default:
			errors = append(errors, fmt.Sprintf("Unknown feature group: %s", g))
		}
	}

	switch config.Database.Driver {
	case "postgres", "sqlite3":
	default:
		errors = append(errors, fmt.Sprintf("Unknown database driver: %s. Supported: postgres, sqlite3", config.Database.Driver))
	}

	if config.Server.Port < 0 || config.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("Invalid server port: %d", config.Server.Port))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ClusteringTimeout returns the parsed clustering timeout (zero means no limit)
func (c Clustering) ClusteringTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// QueryTimeout returns the parsed database timeout
func (d Database) QueryTimeout() time.Duration {
	t, err := time.ParseDuration(d.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return t
}

// Convenience getters for commonly used configuration values
func GetDatabase() Database { return Get().Database }
func GetServer() Server     { return Get().Server }
func GetLogging() Logging   { return Get().Logging }
func IsDebugMode() bool     { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
