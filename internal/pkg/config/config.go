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
	Planner    PlannerConfig    `mapstructure:"planner"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Directions DirectionsConfig `mapstructure:"directions"`
	Routing    RoutingConfig    `mapstructure:"routing"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// PlanTimeout bounds one planning run, in seconds.
	PlanTimeout int `mapstructure:"plan_timeout"`
}

func (s ServerConfig) PlanTimeoutDuration() time.Duration {
	return time.Duration(s.PlanTimeout) * time.Second
}

type PlannerConfig struct {
	Region      string  `mapstructure:"region"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type DirectionsConfig struct {
	APIKey    string  `mapstructure:"api_key"`
	BaseURL   string  `mapstructure:"base_url"`
	RateLimit float64 `mapstructure:"rate_limit"`
	Timeout   int     `mapstructure:"timeout"`
}

// Routing providers. An empty provider picks google when a Directions API key
// is configured and estimate otherwise.
const (
	ProviderGoogle   = "google"
	ProviderEstimate = "estimate"
)

type RoutingConfig struct {
	Provider string `mapstructure:"provider"`
	CacheTTL int    `mapstructure:"cache_ttl"`
}

// ResolveProvider fills in an unset routing provider from the Directions key.
func (c *Config) ResolveProvider() {
	if c.Routing.Provider != "" {
		return
	}
	if c.Directions.APIKey != "" {
		c.Routing.Provider = ProviderGoogle
	} else {
		c.Routing.Provider = ProviderEstimate
	}
}

func (r RoutingConfig) CacheTTLDuration() time.Duration {
	return time.Duration(r.CacheTTL) * time.Second
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TemporalConfig struct {
	// Enabled routes API plans through the Temporal worker.
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: WANDERPLAN_GEMINI_API_KEY → gemini.api_key
	v.SetEnvPrefix("WANDERPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ResolveProvider()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.plan_timeout", 110)
	v.SetDefault("planner.region", "Fukuoka, Japan")
	v.SetDefault("planner.model", "gemini-2.5-flash")
	v.SetDefault("planner.temperature", 0.7)
	v.SetDefault("planner.timeout", 60)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("directions.api_key", "")
	v.SetDefault("directions.base_url", "https://maps.googleapis.com/maps/api/directions/json")
	v.SetDefault("directions.rate_limit", 10)
	v.SetDefault("directions.timeout", 15)
	v.SetDefault("routing.provider", "")
	v.SetDefault("routing.cache_ttl", 600)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wanderplan")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "wanderplan")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "plan-runs")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.PlanTimeout <= 0 {
		errs = append(errs, "server.plan_timeout must be positive")
	}
	if c.Planner.Model == "" {
		errs = append(errs, "planner.model is required")
	}
	if c.Planner.Temperature < 0 || c.Planner.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("planner.temperature must be 0-2, got %g", c.Planner.Temperature))
	}
	if c.Planner.Timeout <= 0 {
		errs = append(errs, "planner.timeout must be positive")
	}
	switch c.Routing.Provider {
	case ProviderGoogle:
		if c.Directions.APIKey == "" {
			errs = append(errs, "directions.api_key is required when routing.provider is google")
		}
		if c.Directions.BaseURL == "" {
			errs = append(errs, "directions.base_url is required")
		}
	case ProviderEstimate:
	default:
		errs = append(errs, fmt.Sprintf("routing.provider must be google or estimate, got %q", c.Routing.Provider))
	}
	if c.Directions.RateLimit <= 0 {
		errs = append(errs, "directions.rate_limit must be positive")
	}
	if c.Routing.CacheTTL < 0 {
		errs = append(errs, "routing.cache_ttl must not be negative")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.Enabled && c.Temporal.HostPort == "" {
		errs = append(errs, "temporal.host_port is required when temporal.enabled is true")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
