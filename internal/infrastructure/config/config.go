package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Recognized values for app.env.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config is the root of everything configurable at startup.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Log       LogConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

// AppConfig identifies the service and where it listens.
type AppConfig struct {
	Name        string
	Version     string
	Description string
	Env         string // development, staging, production
	Debug       bool
	Host        string
	Port        string
}

// HTTPConfig tunes the HTTP server and its middleware chain.
type HTTPConfig struct {
	APIPrefix        string   // base path for versioned API routes
	AllowedHosts     []string // Host header allowlist (empty = allow all)
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	CORSAllowCreds   bool
	CORSMaxAge       time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	RateLimitEnabled bool
	RateLimitRPS     int
	RateLimitBurst   int
	TrustedProxies   []string
}

// DatabaseConfig holds database connection settings.
// URL is a full connection string; the driver is selected from its scheme.
// An empty URL leaves the persistence layer disabled outside production.
type DatabaseConfig struct {
	URL                string
	AutoMigrate        bool
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
	LogQueries         bool
}

// RedisConfig locates the cache server.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig holds token-signing settings for templates that add identity
type AuthConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
}

// LogConfig shapes the zap logger built at startup.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// SwaggerConfig controls exposure of the generated API documentation.
type SwaggerConfig struct {
	Enabled     bool     // serve the documentation endpoints
	RequireAuth bool     // demand a bearer token for access
	AllowedIPs  []string // IPs or CIDR ranges; empty admits everyone
}

// TelemetryConfig carries the OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled           bool    // master switch for traces and metrics
	CollectorEndpoint string  // OTLP gRPC target, host:port
	SamplingRatio     float64 // fraction of traces kept, 0.0 through 1.0
	ServiceName       string  // resource name attached to exported data
	Insecure          bool    // plaintext gRPC, development only
	Metrics           bool    // export HTTP server metrics alongside traces
	DBTraceEnabled    bool    // trace SQL statements through otelgorm
}

// Load reads config.toml, layers APIBASE_ environment variables over it
// (APIBASE_DATABASE_URL overrides database.url) and fills the rest from
// built-in defaults. A missing file is fine; a malformed file or an
// invalid effective configuration is not.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/apibase")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("APIBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Flags that default to true must be known to viper before Get;
	// the zero-value pass in applyDefaults cannot express them.
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("swagger.enabled", true)
	v.SetDefault("telemetry.metrics", true)

	cfg := &Config{
		App:       loadApp(v),
		HTTP:      loadHTTP(v),
		Database:  loadDatabase(v),
		Redis:     loadRedis(v),
		Auth:      loadAuth(v),
		Log:       loadLog(v),
		Swagger:   loadSwagger(v),
		Telemetry: loadTelemetry(v),
	}
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadApp(v *viper.Viper) AppConfig {
	return AppConfig{
		Name:        v.GetString("app.name"),
		Version:     v.GetString("app.version"),
		Description: v.GetString("app.description"),
		Env:         v.GetString("app.env"),
		Debug:       v.GetBool("app.debug"),
		Host:        v.GetString("app.host"),
		Port:        v.GetString("app.port"),
	}
}

func loadHTTP(v *viper.Viper) HTTPConfig {
	return HTTPConfig{
		APIPrefix:        v.GetString("http.api_prefix"),
		AllowedHosts:     v.GetStringSlice("http.allowed_hosts"),
		CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
		CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
		CORSAllowCreds:   v.GetBool("http.cors_allow_credentials"),
		CORSMaxAge:       v.GetDuration("http.cors_max_age"),
		ReadTimeout:      v.GetDuration("http.read_timeout"),
		WriteTimeout:     v.GetDuration("http.write_timeout"),
		IdleTimeout:      v.GetDuration("http.idle_timeout"),
		MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
		MaxBodySize:      v.GetInt64("http.max_body_size"),
		RateLimitEnabled: v.GetBool("http.rate_limit_enabled"),
		RateLimitRPS:     v.GetInt("http.rate_limit_rps"),
		RateLimitBurst:   v.GetInt("http.rate_limit_burst"),
		TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
	}
}

func loadDatabase(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		URL:                v.GetString("database.url"),
		AutoMigrate:        v.GetBool("database.auto_migrate"),
		MaxOpenConns:       v.GetInt("database.max_open_conns"),
		MaxIdleConns:       v.GetInt("database.max_idle_conns"),
		ConnMaxLifetime:    v.GetDuration("database.conn_max_lifetime"),
		ConnMaxIdleTime:    v.GetDuration("database.conn_max_idle_time"),
		SlowQueryThreshold: v.GetDuration("database.slow_query_threshold"),
		LogQueries:         v.GetBool("database.log_queries"),
	}
}

func loadRedis(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Enabled:  v.GetBool("redis.enabled"),
		Host:     v.GetString("redis.host"),
		Port:     v.GetInt("redis.port"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
}

func loadAuth(v *viper.Viper) AuthConfig {
	return AuthConfig{
		Secret:                v.GetString("auth.secret"),
		Issuer:                v.GetString("auth.issuer"),
		AccessTokenExpiration: v.GetDuration("auth.access_token_expiration"),
	}
}

func loadLog(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: v.GetString("log.output"),
	}
}

func loadSwagger(v *viper.Viper) SwaggerConfig {
	return SwaggerConfig{
		Enabled:     v.GetBool("swagger.enabled"),
		RequireAuth: v.GetBool("swagger.require_auth"),
		AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
	}
}

func loadTelemetry(v *viper.Viper) TelemetryConfig {
	return TelemetryConfig{
		Enabled:           v.GetBool("telemetry.enabled"),
		CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
		SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
		ServiceName:       v.GetString("telemetry.service_name"),
		Insecure:          v.GetBool("telemetry.insecure"),
		Metrics:           v.GetBool("telemetry.metrics"),
		DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
	}
}

// setDefault assigns def to dst when dst still holds its zero value.
func setDefault[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

// applyDefaults fills every field the file and environment left unset.
func applyDefaults(cfg *Config) {
	setDefault(&cfg.App.Name, "apibase")
	setDefault(&cfg.App.Version, "0.1.0")
	setDefault(&cfg.App.Description, "A web application backend template")
	setDefault(&cfg.App.Env, EnvDevelopment)
	setDefault(&cfg.App.Host, "0.0.0.0")
	setDefault(&cfg.App.Port, "8000")

	setDefault(&cfg.HTTP.APIPrefix, "/api/v1")
	// A wildcard origin keeps the template usable out of the box; production
	// validation rejects it so deployments must list real origins.
	if len(cfg.HTTP.CORSAllowOrigins) == 0 {
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	setDefault(&cfg.HTTP.CORSMaxAge, 12*time.Hour)
	setDefault(&cfg.HTTP.ReadTimeout, 15*time.Second)
	setDefault(&cfg.HTTP.WriteTimeout, 15*time.Second)
	setDefault(&cfg.HTTP.IdleTimeout, 60*time.Second)
	setDefault(&cfg.HTTP.MaxHeaderBytes, 1<<20)
	setDefault(&cfg.HTTP.MaxBodySize, int64(10<<20))
	setDefault(&cfg.HTTP.RateLimitRPS, 100)
	setDefault(&cfg.HTTP.RateLimitBurst, cfg.HTTP.RateLimitRPS)

	setDefault(&cfg.Database.MaxOpenConns, 20)
	setDefault(&cfg.Database.MaxIdleConns, 10)
	setDefault(&cfg.Database.ConnMaxLifetime, 5*time.Minute)
	setDefault(&cfg.Database.ConnMaxIdleTime, time.Minute)
	setDefault(&cfg.Database.SlowQueryThreshold, 200*time.Millisecond)
	// Query echo follows debug mode unless set explicitly.
	if cfg.App.Debug {
		cfg.Database.LogQueries = true
	}

	setDefault(&cfg.Redis.Host, "localhost")
	setDefault(&cfg.Redis.Port, 6379)

	setDefault(&cfg.Auth.Issuer, cfg.App.Name)
	setDefault(&cfg.Auth.AccessTokenExpiration, 15*time.Minute)

	if cfg.Log.Level == "" {
		if cfg.App.Debug {
			cfg.Log.Level = "debug"
		} else {
			cfg.Log.Level = "info"
		}
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == EnvDevelopment {
			cfg.Log.Format = "console"
		} else {
			cfg.Log.Format = "json"
		}
	}
	setDefault(&cfg.Log.Output, "stdout")

	setDefault(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	setDefault(&cfg.Telemetry.SamplingRatio, 1.0)
	setDefault(&cfg.Telemetry.ServiceName, cfg.App.Name)
}

// validate rejects configurations the server cannot run with. Some rules
// only bind in production, where a permissive default would be a hazard
// rather than a convenience.
func (c *Config) validate() error {
	switch c.App.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("app.env must be one of development, staging, production, got %q", c.App.Env)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	// Outside production a missing database.url only disables the
	// persistence layer.
	if c.IsProduction() {
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required in production")
		}
		if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
			return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
		if c.Swagger.RequireAuth && c.Auth.Secret == "" {
			return fmt.Errorf("auth.secret is required when swagger.require_auth is enabled in production")
		}
		if c.Auth.Secret != "" && len(c.Auth.Secret) < 32 {
			return fmt.Errorf("auth.secret must be at least 32 characters in production")
		}
	}

	// Credentials combined with a wildcard origin are rejected by browsers.
	if c.HTTP.CORSAllowCreds && slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
		return fmt.Errorf("cors_allow_credentials requires specific cors_allow_origins, not '*'")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// String renders a one-line summary of the effective configuration, safe
// for logs: the database password is masked and secrets are left out.
func (c *Config) String() string {
	db := c.Database.RedactedURL()
	if db == "" {
		db = "disabled"
	}
	return fmt.Sprintf("app=%s env=%s addr=%s database=%s redis=%t swagger=%t telemetry=%t",
		c.App.Name, c.App.Env, c.App.Addr(), db,
		c.Redis.Enabled, c.Swagger.Enabled, c.Telemetry.Enabled)
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// IsDevelopment reports whether the app runs with development settings
func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment
}

// Addr returns the listen address for the HTTP server
func (a *AppConfig) Addr() string {
	return net.JoinHostPort(a.Host, a.Port)
}

// Enabled reports whether a database connection string is configured
func (d *DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// RedactedURL returns the connection string with any password masked,
// safe for logging the effective configuration.
func (d *DatabaseConfig) RedactedURL() string {
	if d.URL == "" {
		return ""
	}
	u, err := url.Parse(d.URL)
	if err != nil || u.User == nil {
		return d.URL
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// Addr returns the host:port address of the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
