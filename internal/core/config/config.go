package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the webhook server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// WebhookToken is the shared secret expected in the x-api-key header of provider pushes.
	WebhookToken string `mapstructure:"WEBHOOK_TOKEN" required:"true"`

	// Provider holds the tracking API configuration.
	Provider ProviderConfig `mapstructure:",squash"`

	// Store holds the order store configuration.
	Store StoreConfig `mapstructure:",squash"`

	// Sync holds the polling daemon configuration.
	Sync SyncConfig `mapstructure:",squash"`
}

// ProviderConfig holds the credentials for the Shiprocket tracking API.
type ProviderConfig struct {
	// URL is the base URL of the tracking API.
	URL string `mapstructure:"SHIPROCKET_URL" required:"true"`
	// Token is the bearer token for API access.
	Token string `mapstructure:"SHIPROCKET_TOKEN" required:"true"`
	// HTTPTimeout bounds every outbound tracking call.
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT" default:"10s"`
}

// StoreConfig holds order store connection details.
type StoreConfig struct {
	// Driver selects the store backend: "redis" or "mysql".
	Driver string `mapstructure:"STORE_DRIVER" default:"redis"`
	// RedisURL is the connection URL for the redis store and notifier.
	RedisURL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`
	// MySQLDSN is the DSN for the mysql store; required only when Driver is "mysql".
	MySQLDSN string `mapstructure:"MYSQL_DSN"`
	// NotifyChannel is the pub/sub channel for status transition notifications.
	NotifyChannel string `mapstructure:"NOTIFY_CHANNEL" default:"shipment_status_changed"`
}

// SyncConfig holds the polling daemon knobs.
type SyncConfig struct {
	// PollInterval is the period between polling cycles.
	PollInterval time.Duration `mapstructure:"POLL_INTERVAL" default:"5m"`
	// BatchSize bounds how many orders one cycle may process.
	BatchSize int `mapstructure:"SYNC_BATCH_SIZE" default:"50"`
	// Lookback is how stale last_synced_at must be before an order is re-selected.
	Lookback time.Duration `mapstructure:"SYNC_LOOKBACK" default:"30m"`
	// InterRequestSleep is the fixed pause between per-order provider calls.
	InterRequestSleep time.Duration `mapstructure:"INTER_REQUEST_SLEEP" default:"1s"`
	// MaxRetryAttempts bounds attempts of a single provider call.
	MaxRetryAttempts int `mapstructure:"MAX_RETRY_ATTEMPTS" default:"3"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if config.Store.Driver == "mysql" && config.Store.MySQLDSN == "" {
		return nil, fmt.Errorf("missing required configuration: MYSQL_DSN (STORE_DRIVER=mysql)")
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
