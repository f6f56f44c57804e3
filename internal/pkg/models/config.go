package models

// Config represents application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	JWT      JWTConfig
	NewRelic NewRelicConfig
	Logger   LoggerConfig
	Tracking TrackingConfig
	Routing  RoutingConfig
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Database  string
	SSLMode   string
	MaxConns  int
	IdleConns int
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// NATSConfig contains NATS connection configuration
type NATSConfig struct {
	URL string
}

// JWTConfig contains JWT authentication configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in minutes
	Issuer     string
}

// NewRelicConfig contains New Relic observability configuration
type NewRelicConfig struct {
	LicenseKey string
	AppName    string
	Enabled    bool
}

// LoggerConfig contains structured logging configuration
type LoggerConfig struct {
	Level    string
	FilePath string
}

// TrackingConfig contains tracking service specific configuration
type TrackingConfig struct {
	PollIntervalSeconds int // polling-fallback re-query interval for the position channel
	PositionTTLHours    int // retention of latest-position records in Redis
}

// RoutingConfig contains routing collaborator configuration; an empty API
// key disables routed estimates and the straight-line fallback applies.
type RoutingConfig struct {
	GoogleAPIKey   string
	RefreshSeconds int
}
