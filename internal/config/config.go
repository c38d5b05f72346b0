package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Amund211/advancements/internal/domain"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

type StoreKind string

const (
	StoreFile     StoreKind = "file"
	StorePostgres StoreKind = "postgres"
)

const (
	DEFAULT_DATA_DIR       = "data"
	DEFAULT_PORT           = "8080"
	DEFAULT_BOARD_CAPACITY = 16
	DEFAULT_SAVE_INTERVAL  = 5 * time.Minute
)

type Config struct {
	dataDir       string
	store         StoreKind
	catalogPath   string
	percentFormat domain.PercentFormat
	boardCapacity int
	saveInterval  time.Duration
	port          string

	cloudSQLUnixSocketPath string
	dBPassword             string
	dBUsername             string
	sentryDSN              string
	env                    environment
}

func (c *Config) DataDir() string {
	return c.dataDir
}

func (c *Config) Store() StoreKind {
	return c.store
}

// Path to a catalog file overriding the embedded one. Empty when not set.
func (c *Config) CatalogPath() string {
	return c.catalogPath
}

func (c *Config) PercentFormat() domain.PercentFormat {
	return c.percentFormat
}

func (c *Config) BoardCapacity() int {
	return c.boardCapacity
}

func (c *Config) SaveInterval() time.Duration {
	return c.saveInterval
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) CloudSQLUnixSocketPath() string {
	return c.cloudSQLUnixSocketPath
}

func (c *Config) DBPassword() string {
	return c.dBPassword
}

func (c *Config) DBUsername() string {
	return c.dBUsername
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, store: %s, dataDir: %s, catalog: %s, percentFormat: %s, boardCapacity: %d, saveInterval: %s, port: %s, ...}",
		string(c.env),
		string(c.store),
		c.dataDir,
		c.catalogPath,
		string(c.percentFormat),
		c.boardCapacity,
		c.saveInterval,
		c.port,
	)
}

func getOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}
	invalidValue := func(key, value string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, value)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("ADVANCEMENTS_ENVIRONMENT")
	if !ok {
		return missingKey("ADVANCEMENTS_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return invalidValue("ADVANCEMENTS_ENVIRONMENT", rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	rawStore := getOrDefault("ADVANCEMENTS_STORE", string(StoreFile))
	store := StoreKind(rawStore)
	if store != StoreFile && store != StorePostgres {
		return invalidValue("ADVANCEMENTS_STORE", rawStore)
	}

	rawPercentFormat := getOrDefault("ADVANCEMENTS_PERCENT_FORMAT", string(domain.PercentFormatDecimal))
	percentFormat, err := domain.ParsePercentFormat(rawPercentFormat)
	if err != nil {
		return invalidValue("ADVANCEMENTS_PERCENT_FORMAT", rawPercentFormat)
	}

	boardCapacity := DEFAULT_BOARD_CAPACITY
	if rawCapacity := os.Getenv("ADVANCEMENTS_BOARD_CAPACITY"); rawCapacity != "" {
		boardCapacity, err = strconv.Atoi(rawCapacity)
		if err != nil || boardCapacity <= 0 {
			return invalidValue("ADVANCEMENTS_BOARD_CAPACITY", rawCapacity)
		}
	}

	saveInterval := DEFAULT_SAVE_INTERVAL
	if rawInterval := os.Getenv("ADVANCEMENTS_SAVE_INTERVAL"); rawInterval != "" {
		saveInterval, err = time.ParseDuration(rawInterval)
		if err != nil || saveInterval <= 0 {
			return invalidValue("ADVANCEMENTS_SAVE_INTERVAL", rawInterval)
		}
	}

	cloudSQLUnixSocketPath := os.Getenv("CLOUDSQL_UNIX_SOCKET")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbUsername := os.Getenv("DB_USERNAME")
	sentryDSN := os.Getenv("SENTRY_DSN")

	if env == production || env == staging {
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}

		if store == StorePostgres {
			if cloudSQLUnixSocketPath == "" {
				return missingKey("CLOUDSQL_UNIX_SOCKET")
			}
			if dbUsername == "" {
				return missingKey("DB_USERNAME")
			}
			if dbPassword == "" {
				return missingKey("DB_PASSWORD")
			}
		}
	}

	return Config{
		dataDir:       getOrDefault("ADVANCEMENTS_DATA_DIR", DEFAULT_DATA_DIR),
		store:         store,
		catalogPath:   os.Getenv("ADVANCEMENTS_CATALOG"),
		percentFormat: percentFormat,
		boardCapacity: boardCapacity,
		saveInterval:  saveInterval,
		port:          getOrDefault("PORT", DEFAULT_PORT),

		cloudSQLUnixSocketPath: cloudSQLUnixSocketPath,
		dBPassword:             dbPassword,
		dBUsername:             dbUsername,
		sentryDSN:              sentryDSN,
		env:                    env,
	}, nil
}
