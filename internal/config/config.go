// Package config assembles the service configuration from defaults,
// command-line flags and environment variables (later sources win), loading
// a .env file when present and validating the result.
package config

import (
	"flag"
	"log"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	RunAddr        string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel       string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN    string        `env:"DATABASE_DSN"`
	DBQueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" validate:"gt=0"`
	HasherWorkers  int           `env:"HASHER_WORKERS" validate:"gte=1"`
}

var defaultConfig = Config{
	RunAddr:        ":8080",
	LogLevel:       "info",
	DatabaseDSN:    "",
	DBQueryTimeout: 3 * time.Second,
	HasherWorkers:  4,
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables flag.Parse, for use in tests.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration: defaults, then flags, then environment.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	cfg := defaultConfig

	if !options.disableFlagsParsing {
		flag.StringVar(&cfg.RunAddr, "a", cfg.RunAddr, "address and port to run server")
		flag.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "logger level")
		flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database connection string")
		flag.DurationVar(&cfg.DBQueryTimeout, "t", cfg.DBQueryTimeout, "timeout applied to every store call")
		flag.IntVar(&cfg.HasherWorkers, "w", cfg.HasherWorkers, "number of password hashing workers")
		flag.Parse()
	}

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}

	if valuesFromEnv.RunAddr != "" {
		cfg.RunAddr = valuesFromEnv.RunAddr
	}

	if valuesFromEnv.LogLevel != "" {
		cfg.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.DatabaseDSN != "" {
		cfg.DatabaseDSN = valuesFromEnv.DatabaseDSN
	}

	if valuesFromEnv.DBQueryTimeout != 0 {
		cfg.DBQueryTimeout = valuesFromEnv.DBQueryTimeout
	}

	if valuesFromEnv.HasherWorkers != 0 {
		cfg.HasherWorkers = valuesFromEnv.HasherWorkers
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
