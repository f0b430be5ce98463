// Package config loads service configuration from a TOML file with environment
// overrides, and builds the service logger.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	SLA      SLAConfig
	Workflow WorkflowConfig
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds Postgres pool settings.
type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	MaxConnTime time.Duration
	MaxIdleTime time.Duration
}

// NATSConfig holds messaging settings. An empty URL disables publishing.
type NATSConfig struct {
	URL            string
	PublishTimeout time.Duration
}

// SLAConfig holds the four reminder day-thresholds, each independently
// overridable.
type SLAConfig struct {
	IntakeReviewDays    int    // requests awaiting triage in the intake department
	ManagerReviewDays   int    // routed requests awaiting employee assignment
	EmployeeWorkDays    int    // assigned requests being worked
	FinalValidationDays int    // requests back in intake for final validation
	SweepSchedule       string // cron expression for the sweep
}

// WorkflowConfig holds workflow-level settings resolved once at startup.
type WorkflowConfig struct {
	// IntakeDepartmentID is the single department that receives all new
	// submissions and performs final completion/rejection. Optional: when
	// empty the flagged department row is resolved from the directory at
	// startup.
	IntakeDepartmentID string
}

// Load reads config.toml (path overridable via CONFIG_NAME) and applies
// environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configName := "config"
	if v := os.Getenv("CONFIG_NAME"); v != "" {
		configName = v
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("toml")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("service.name", "be-ideas-workflow")
	viper.SetDefault("service.version", "dev")
	viper.SetDefault("service.environment", "development")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readtimeout", 15*time.Second)
	viper.SetDefault("server.writetimeout", 15*time.Second)
	viper.SetDefault("server.idletimeout", 60*time.Second)
	viper.SetDefault("server.shutdowntimeout", 10*time.Second)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.database", "ideas")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconns", 10)
	viper.SetDefault("database.minconns", 2)

	viper.SetDefault("nats.publishtimeout", 3*time.Second)

	viper.SetDefault("sla.intakereviewdays", 3)
	viper.SetDefault("sla.managerreviewdays", 5)
	viper.SetDefault("sla.employeeworkdays", 7)
	viper.SetDefault("sla.finalvalidationdays", 2)
	viper.SetDefault("sla.sweepschedule", "0 6 * * *")
}

// NewLogger builds the service logger from config and LOG_LEVEL.
func NewLogger(cfg ServiceConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && l != zerolog.NoLevel {
		level = l
	}

	var out = zerolog.New(os.Stdout)
	if cfg.Environment == "development" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	return out.Level(level).With().
		Timestamp().
		Str("service", cfg.Name).
		Str("version", cfg.Version).
		Logger()
}
