package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hostel/internal/core"
	"hostel/internal/finance"

	"github.com/shopspring/decimal"
)

// DefaultRooms are the rooms of the hostel when ROOMS is unset.
var DefaultRooms = []string{"Dormitório A", "Dormitório B", "Privativo 1", "Privativo 2"}

type Config struct {
	// HTTP Server
	Port string

	// Backend selection: memory, sqlite or sheets
	DataBackend string

	// Memory backend seed directory (reservas.csv, despesas.csv)
	SeedDir string

	// Database
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	ReservationsSheet        string
	ExpensesSheet            string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP; publishing is disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Read cache
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration

	// Hostel
	Rooms        []string
	ChannelRates string
	PaymentRates string
	Timezone     string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),
		SeedDir:     getEnv("MEMORY_SEED_DIR", "data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/hostel.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		ReservationsSheet:        getEnv("RESERVATIONS_SHEET", "reservas"),
		ExpensesSheet:            getEnv("EXPENSES_SHEET", "despesas"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "hostel"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_changes"),

		CacheTTL:             getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),

		Rooms:        getEnvList("ROOMS", DefaultRooms),
		ChannelRates: getEnv("CHANNEL_RATES", ""),
		PaymentRates: getEnv("PAYMENT_RATES", ""),
		Timezone:     getEnv("TIMEZONE", "America/Sao_Paulo"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "sheets" {
		errors = append(errors, c.validateGoogle()...)
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	} else if c.CacheTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 1 hour", c.CacheTTL))
	}
	if c.CacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
	}

	if len(c.Rooms) == 0 {
		errors = append(errors, "at least one room must be configured in ROOMS")
	}
	if _, err := c.FeePolicy(); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateMirror checks the settings the mirror worker needs on top of
// Validate: a broker and a spreadsheet to write to.
func (c *Config) ValidateMirror() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required by the mirror worker")
	}
	errors = append(errors, c.validateGoogle()...)
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateGoogle() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.ReservationsSheet == "" || c.ExpensesSheet == "" {
		errors = append(errors, "RESERVATIONS_SHEET and EXPENSES_SHEET cannot be empty")
	}
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasFile && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
	}
	if hasFile && c.GoogleServiceAccountJSON == "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

// FeePolicy builds the fee tables. Unset rate variables keep the defaults.
func (c *Config) FeePolicy() (finance.FeePolicy, error) {
	ch, err := parseRates("CHANNEL_RATES", c.ChannelRates)
	if err != nil {
		return finance.FeePolicy{}, err
	}
	pay, err := parseRates("PAYMENT_RATES", c.PaymentRates)
	if err != nil {
		return finance.FeePolicy{}, err
	}
	return finance.NewFeePolicy(ch, pay), nil
}

// Location loads the hostel's time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE '%s': %v", c.Timezone, err)
	}
	return loc, nil
}

func parseRates(key, value string) (map[string]decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	rates, err := finance.ParseRates(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", key, err)
	}
	return rates, nil
}

// RoomSet returns the configured rooms.
func (c *Config) RoomSet() core.RoomSet {
	return core.RoomSet(c.Rooms)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
