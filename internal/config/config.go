package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/log"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. BUDGET_DB_PATH.
const EnvPrefix = "BUDGET"

// Keys, as used with viper and in config files.
const (
	KeyDBPath         = "db_path"
	KeyBusyTimeout    = "busy_timeout"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyLocale         = "locale"
	KeyCurrency       = "currency"
	KeyListLimit      = "list_limit"
	KeyCacheSize      = "cache_size"
	KeyCacheTTL       = "cache_ttl"
	KeyAMQPURL        = "amqp_url"
	KeyAMQPExchange   = "amqp_exchange"
	KeyAMQPRoutingKey = "amqp_routing_key"
)

type Config struct {
	// Database
	DBPath      string
	BusyTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Presentation
	Locale    string
	Currency  string
	ListLimit int

	// Summary cache
	CacheSize int
	CacheTTL  time.Duration

	// AMQP change events; an empty URL disables publishing
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

// SetDefaults registers the default of every key and binds the BUDGET_ environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDBPath, "./data/budget.db")
	v.SetDefault(KeyBusyTimeout, 5*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLocale, "en")
	v.SetDefault(KeyCurrency, "EUR")
	v.SetDefault(KeyListLimit, core.DefaultListLimit)
	v.SetDefault(KeyCacheSize, 24)
	v.SetDefault(KeyCacheTTL, 5*time.Minute)
	v.SetDefault(KeyAMQPURL, "")
	v.SetDefault(KeyAMQPExchange, "budget")
	v.SetDefault(KeyAMQPRoutingKey, "ledger.changed")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load reads the resolved values out of v. Call SetDefaults first.
func Load(v *viper.Viper) *Config {
	return &Config{
		DBPath:      v.GetString(KeyDBPath),
		BusyTimeout: v.GetDuration(KeyBusyTimeout),

		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),

		Locale:    v.GetString(KeyLocale),
		Currency:  v.GetString(KeyCurrency),
		ListLimit: v.GetInt(KeyListLimit),

		CacheSize: v.GetInt(KeyCacheSize),
		CacheTTL:  v.GetDuration(KeyCacheTTL),

		AMQPURL:        v.GetString(KeyAMQPURL),
		AMQPExchange:   v.GetString(KeyAMQPExchange),
		AMQPRoutingKey: v.GetString(KeyAMQPRoutingKey),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "database path cannot be empty")
	}
	if c.BusyTimeout < 0 {
		problems = append(problems, fmt.Sprintf("invalid busy timeout %v: must not be negative", c.BusyTimeout))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if _, err := core.NewCurrencyFormatter(c.Locale, c.Currency); err != nil {
		problems = append(problems, fmt.Sprintf("invalid currency settings: %v", err))
	}

	if c.ListLimit < 1 {
		problems = append(problems, fmt.Sprintf("invalid list limit %d: must be at least 1", c.ListLimit))
	} else if c.ListLimit > 10000 {
		problems = append(problems, fmt.Sprintf("invalid list limit %d: must be at most 10000", c.ListLimit))
	}

	if c.CacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid cache ttl %v: must not be negative", c.CacheTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			problems = append(problems, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed:\n- " + strings.Join(problems, "\n- "))
	}
	return nil
}

// EventsEnabled reports whether change events should be published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}
