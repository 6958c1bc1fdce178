// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database    DatabaseConfig    `json:"database"`
	Server      ServerConfig      `json:"server"`
	Security    SecurityConfig    `json:"security"`
	JWT         JWTConfig         `json:"jwt"`
	Logging     LoggingConfig     `json:"logging"`
	Metrics     MetricsConfig     `json:"metrics"`
	Cache       CacheConfig       `json:"cache"`
	Deployment  DeploymentConfig  `json:"deployment"`
	Shortener   ShortenerConfig   `json:"shortener"`
	Geolocation GeolocationConfig `json:"geolocation"`
	Enrichment  EnrichmentConfig  `json:"enrichment"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver"` // postgres, sqlite
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	SQLitePath      string        `json:"sqlite_path"`
	AutoMigrate     bool          `json:"auto_migrate"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	BodyLimit         int           `json:"body_limit"`
	TrustedProxies    []string      `json:"trusted_proxies"`
	ProxyHeader       string        `json:"proxy_header"`
	EnableCompression bool          `json:"enable_compression"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	GlobalRateLimit   int           `json:"global_rate_limit"`   // requests per window
	RedirectRateLimit int           `json:"redirect_rate_limit"` // requests per window per IP on short codes
	RateLimitWindow   time.Duration `json:"rate_limit_window"`

	// Content Security
	CSPPolicy      string `json:"csp_policy"`
	XFrameOptions  string `json:"x_frame_options"`
	ReferrerPolicy string `json:"referrer_policy"`
	HSTSMaxAge     int    `json:"hsts_max_age"`

	// API keys
	APIKeyHeader string `json:"api_key_header"`
	BcryptCost   int    `json:"bcrypt_cost"`
}

type JWTConfig struct {
	SecretKey       string        `json:"secret_key"`
	PrivateKey      string        `json:"private_key"`  // RSA private key in PEM format
	PublicKey       string        `json:"public_key"`   // RSA public key in PEM format
	UseRSAKeys      bool          `json:"use_rsa_keys"` // Whether to use RSA keys instead of secret key
	AccessTokenTTL  time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl"`
	Issuer          string        `json:"issuer"`
	Audience        string        `json:"audience"`
}

type LoggingConfig struct {
	Level           string `json:"level"`  // debug, info, warn, error
	Format          string `json:"format"` // json, text
	Output          string `json:"output"` // stdout, file, both
	FilePath        string `json:"file_path"`
	MaxSize         int    `json:"max_size"` // MB
	MaxBackups      int    `json:"max_backups"`
	MaxAge          int    `json:"max_age"` // days
	Compress        bool   `json:"compress"`
	EnableCaller    bool   `json:"enable_caller"`
	EnableAccessLog bool   `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled             bool          `json:"enabled"`
	Provider            string        `json:"provider"` // redis
	RedisURL            string        `json:"redis_url"`
	RedisPrefix         string        `json:"redis_prefix"`
	LinkTTL             time.Duration `json:"link_ttl"` // also bounds how stale a cached owner tier can be
	HealthCheckInterval time.Duration `json:"health_check_interval"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// ShortenerConfig controls public URLs and the redirect path.
type ShortenerConfig struct {
	BaseURL           string        `json:"base_url"`  // prefix of generated short urls
	HomeURL           string        `json:"home_url"`  // where unknown codes are sent
	InterstitialPath  string        `json:"interstitial_path"`
	InterstitialDelay time.Duration `json:"interstitial_delay"`
	RedirectTimeout   time.Duration `json:"redirect_timeout"`
}

type GeolocationConfig struct {
	Enabled       bool          `json:"enabled"`
	IPInfoBaseURL string        `json:"ipinfo_base_url"`
	IPInfoToken   string        `json:"ipinfo_token"`
	IPAPIBaseURL  string        `json:"ipapi_base_url"`
	Timeout       time.Duration `json:"timeout"` // per provider
}

type EnrichmentConfig struct {
	Workers      int           `json:"workers"`
	QueueSize    int           `json:"queue_size"`
	JobTimeout   time.Duration `json:"job_timeout"`
	DrainTimeout time.Duration `json:"drain_timeout"`
}

// LoadProductionConfig loads configuration from environment variables,
// after applying an optional .env file.
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Driver:          getEnvString("DB_DRIVER", "postgres"),
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "susanoo"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			SQLitePath:      getEnvString("DB_SQLITE_PATH", "data/susanoo.db"),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", false),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 500*time.Millisecond),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:    getEnvDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024),
			TrustedProxies:    getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:       getEnvString("SERVER_PROXY_HEADER", "X-Forwarded-For"),
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
		},
		Security: SecurityConfig{
			AllowedOrigins:    getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"https://susanoo.link"}),
			AllowedMethods:    getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders:    getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-API-Key"}),
			AllowCredentials:  getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			CORSMaxAge:        getEnvInt("CORS_MAX_AGE", 86400),
			GlobalRateLimit:   getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			RedirectRateLimit: getEnvInt("REDIRECT_RATE_LIMIT", 300),
			RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			CSPPolicy:         getEnvString("CSP_POLICY", "default-src 'self'; style-src 'self' 'unsafe-inline'"),
			XFrameOptions:     getEnvString("X_FRAME_OPTIONS", "DENY"),
			ReferrerPolicy:    getEnvString("REFERRER_POLICY", "strict-origin-when-cross-origin"),
			HSTSMaxAge:        getEnvInt("HSTS_MAX_AGE", 31536000),
			APIKeyHeader:      getEnvString("API_KEY_HEADER", "X-API-Key"),
			BcryptCost:        getEnvInt("BCRYPT_COST", 12),
		},
		JWT: JWTConfig{
			SecretKey:       getEnvString("JWT_SECRET_KEY", ""),
			PrivateKey:      getEnvString("JWT_PRIVATE_KEY", ""),
			PublicKey:       getEnvString("JWT_PUBLIC_KEY", ""),
			UseRSAKeys:      getEnvBool("JWT_USE_RSA_KEYS", false),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour),
			Issuer:          getEnvString("JWT_ISSUER", "susanoo"),
			Audience:        getEnvString("JWT_AUDIENCE", "susanoo-api"),
		},
		Logging: LoggingConfig{
			Level:           getEnvString("LOG_LEVEL", "info"),
			Format:          getEnvString("LOG_FORMAT", "json"),
			Output:          getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:        getEnvString("LOG_FILE_PATH", "logs/susanoo.log"),
			MaxSize:         getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:      getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:          getEnvInt("LOG_MAX_AGE", 30),
			Compress:        getEnvBool("LOG_COMPRESS", true),
			EnableCaller:    getEnvBool("LOG_ENABLE_CALLER", false),
			EnableAccessLog: getEnvBool("LOG_ENABLE_ACCESS_LOG", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:             getEnvBool("CACHE_ENABLED", false),
			Provider:            getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:            getEnvString("CACHE_REDIS_URL", ""),
			RedisPrefix:         getEnvString("CACHE_REDIS_PREFIX", "susanoo:"),
			LinkTTL:             getEnvDuration("CACHE_LINK_TTL", time.Minute),
			HealthCheckInterval: getEnvDuration("CACHE_HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("APP_VERSION", "dev"),
			CommitHash:  getEnvString("APP_COMMIT_HASH", ""),
			BuildTime:   getEnvString("APP_BUILD_TIME", ""),
		},
		Shortener: ShortenerConfig{
			BaseURL:           strings.TrimRight(getEnvString("SHORTENER_BASE_URL", "http://localhost:8080"), "/"),
			HomeURL:           getEnvString("SHORTENER_HOME_URL", "/"),
			InterstitialPath:  getEnvString("SHORTENER_INTERSTITIAL_PATH", "/redirect-wait"),
			InterstitialDelay: getEnvDuration("SHORTENER_INTERSTITIAL_DELAY", 5*time.Second),
			RedirectTimeout:   getEnvDuration("SHORTENER_REDIRECT_TIMEOUT", 3*time.Second),
		},
		Geolocation: GeolocationConfig{
			Enabled:       getEnvBool("GEO_ENABLED", true),
			IPInfoBaseURL: getEnvString("GEO_IPINFO_BASE_URL", "https://ipinfo.io"),
			IPInfoToken:   getEnvString("GEO_IPINFO_TOKEN", ""),
			IPAPIBaseURL:  getEnvString("GEO_IPAPI_BASE_URL", "http://ip-api.com"),
			Timeout:       getEnvDuration("GEO_PROVIDER_TIMEOUT", 3*time.Second),
		},
		Enrichment: EnrichmentConfig{
			Workers:      getEnvInt("ENRICHMENT_WORKERS", 4),
			QueueSize:    getEnvInt("ENRICHMENT_QUEUE_SIZE", 1000),
			JobTimeout:   getEnvDuration("ENRICHMENT_JOB_TIMEOUT", 10*time.Second),
			DrainTimeout: getEnvDuration("ENRICHMENT_DRAIN_TIMEOUT", 15*time.Second),
		},
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile applies ENV_FILE (default .env) without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile() error {
	path := getEnvString("ENV_FILE", ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errs []string

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host == "" {
			errs = append(errs, "DB_HOST is required")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errs = append(errs, "DB_PORT must be between 1 and 65535")
		}
		if cfg.Database.Name == "" {
			errs = append(errs, "DB_NAME is required")
		}
		if cfg.Database.User == "" {
			errs = append(errs, "DB_USER is required")
		}
	case "sqlite":
		if cfg.Database.SQLitePath == "" {
			errs = append(errs, "DB_SQLITE_PATH is required for the sqlite driver")
		}
	default:
		errs = append(errs, "DB_DRIVER must be one of: postgres, sqlite")
	}

	if !cfg.JWT.UseRSAKeys && len(cfg.JWT.SecretKey) < 32 {
		errs = append(errs, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.UseRSAKeys && (cfg.JWT.PrivateKey == "" || cfg.JWT.PublicKey == "") {
		errs = append(errs, "JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required when JWT_USE_RSA_KEYS is set")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, "JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, "JWT_REFRESH_TOKEN_TTL must be positive")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 || cfg.Server.IdleTimeout <= 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT, SERVER_WRITE_TIMEOUT and SERVER_IDLE_TIMEOUT must be positive")
	}

	if cfg.Security.BcryptCost < 10 || cfg.Security.BcryptCost > 14 {
		errs = append(errs, "BCRYPT_COST must be between 10 and 14")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Logging.Level != "" && !slices.Contains(validLevels, cfg.Logging.Level) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	if !slices.Contains([]string{"stdout", "file", "both"}, cfg.Logging.Output) {
		errs = append(errs, "LOG_OUTPUT must be one of: stdout, file, both")
	}

	if cfg.Cache.Enabled && cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
		errs = append(errs, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
	}

	if cfg.Shortener.BaseURL == "" {
		errs = append(errs, "SHORTENER_BASE_URL is required")
	}
	if !strings.HasPrefix(cfg.Shortener.InterstitialPath, "/") {
		errs = append(errs, "SHORTENER_INTERSTITIAL_PATH must start with /")
	}

	if cfg.Geolocation.Enabled && cfg.Geolocation.Timeout <= 0 {
		errs = append(errs, "GEO_PROVIDER_TIMEOUT must be positive")
	}
	if cfg.Enrichment.Workers <= 0 {
		errs = append(errs, "ENRICHMENT_WORKERS must be positive")
	}
	if cfg.Enrichment.QueueSize <= 0 {
		errs = append(errs, "ENRICHMENT_QUEUE_SIZE must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
