package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Reservations ReservationsConfig
	Scheduler    SchedulerConfig
}

type ServerConfig struct {
	Address      string
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	MaxPoolConns int
}

type ReservationsConfig struct {
	BaseURL string
}

// SchedulerConfig is the static trigger-backend identity plus dispatcher
// tuning. Read-only after startup.
type SchedulerConfig struct {
	Region         string
	AccountID      string
	FunctionName   string
	TargetURL      string
	PollInterval   time.Duration
	LeaseDuration  time.Duration
	FiredRetention time.Duration
}

func (dc *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s pool_max_conns=%d",
		dc.Host,
		dc.Port,
		dc.Name,
		dc.User,
		dc.Password,
		dc.MaxPoolConns,
	)
}

func NewConfig() (*Config, error) {
	// Pick up a local .env if present; real env vars win.
	godotenv.Load()

	serverCfg, err := newServerConfig()
	if err != nil {
		return nil, fmt.Errorf("server config error: %w", err)
	}

	dbCfg, err := newDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("database config error: %w", err)
	}

	schedulerCfg, err := newSchedulerConfig()
	if err != nil {
		return nil, fmt.Errorf("scheduler config error: %w", err)
	}

	return &Config{
		Server:       serverCfg,
		Database:     dbCfg,
		Reservations: newReservationsConfig(),
		Scheduler:    schedulerCfg,
	}, nil
}

func newServerConfig() (ServerConfig, error) {
	writeTimeout, err := getDurationFromEnv("SERVER_WRITE_TIMEOUT", "15s")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("write timeout parse error: %w", err)
	}

	readTimeout, err := getDurationFromEnv("SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("read timeout parse error: %w", err)
	}

	idleTimeout, err := getDurationFromEnv("SERVER_IDLE_TIMEOUT", "30s")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("idle timeout parse error: %w", err)
	}

	return ServerConfig{
		Address:      getEnvOrDefault("SERVER_ADDRESS", ":5000"),
		WriteTimeout: writeTimeout,
		ReadTimeout:  readTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func newDatabaseConfig() (DatabaseConfig, error) {
	maxConns, err := strconv.Atoi(getEnvOrDefault("MAX_CONNS", "99"))
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("max connections parse error: %w", err)
	}

	return DatabaseConfig{
		Host:         getEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:         getEnvOrDefault("POSTGRES_PORT", "5432"),
		Name:         getEnvOrDefault("POSTGRES_DB", "checkin"),
		User:         getEnvOrDefault("POSTGRES_USER", "postgres"),
		Password:     getEnvOrDefault("POSTGRES_PASSWORD", ""),
		MaxPoolConns: maxConns,
	}, nil
}

func newReservationsConfig() ReservationsConfig {
	return ReservationsConfig{
		BaseURL: getEnvOrDefault("RESERVATIONS_URL", "https://mobile.example-air.com/api/v1"),
	}
}

func newSchedulerConfig() (SchedulerConfig, error) {
	pollInterval, err := getDurationFromEnv("SCHEDULER_POLL_INTERVAL", "2s")
	if err != nil {
		return SchedulerConfig{}, fmt.Errorf("poll interval parse error: %w", err)
	}

	leaseDuration, err := getDurationFromEnv("SCHEDULER_LEASE_DURATION", "30s")
	if err != nil {
		return SchedulerConfig{}, fmt.Errorf("lease duration parse error: %w", err)
	}

	firedRetention, err := getDurationFromEnv("SCHEDULER_FIRED_RETENTION", "168h")
	if err != nil {
		return SchedulerConfig{}, fmt.Errorf("fired retention parse error: %w", err)
	}

	return SchedulerConfig{
		Region:         getEnvOrDefault("SCHEDULER_REGION", "us-east-1"),
		AccountID:      getEnvOrDefault("SCHEDULER_ACCOUNT_ID", "000000000000"),
		FunctionName:   getEnvOrDefault("CHECKIN_FUNCTION_NAME", "checkin-service-prod-HandleScheduledCheckin"),
		TargetURL:      getEnvOrDefault("CHECKIN_FUNCTION_URL", "http://localhost:5001/v1/checkin/execute"),
		PollInterval:   pollInterval,
		LeaseDuration:  leaseDuration,
		FiredRetention: firedRetention,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationFromEnv(key, defaultValue string) (time.Duration, error) {
	return time.ParseDuration(getEnvOrDefault(key, defaultValue))
}
