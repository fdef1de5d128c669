package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting read from the environment.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath      string `envconfig:"DB_PATH" default:"data/commute.db"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// UserEmail identifies the single user this process acts for.
	UserEmail string `envconfig:"COMMUTE_USER_EMAIL" default:"commuter@example.com"`
	Timezone  string `envconfig:"COMMUTE_TZ" default:"Local"`

	TravelProvider   string        `envconfig:"TRAVEL_PROVIDER" default:"google"`
	GoogleMapsAPIKey string        `envconfig:"GOOGLE_MAPS_API_KEY"`
	ORSAPIKey        string        `envconfig:"ORS_API_KEY"`
	TravelCache      string        `envconfig:"TRAVEL_CACHE" default:"sql"`
	TravelCacheTTL   time.Duration `envconfig:"TRAVEL_CACHE_TTL" default:"2m"`
	RedisAddr        string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	RefreshInterval     time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	NotifyCheckInterval time.Duration `envconfig:"NOTIFY_CHECK_INTERVAL" default:"30s"`
	NotifyLeadTime      time.Duration `envconfig:"NOTIFY_LEAD_TIME" default:"15m"`
	RefreshConcurrency  int           `envconfig:"REFRESH_CONCURRENCY" default:"4"`

	NotifySink string `envconfig:"NOTIFY_SINK" default:"log"`
	// NotifyPermission is the initial permission state of the sink.
	NotifyPermission string `envconfig:"NOTIFY_PERMISSION" default:"default"`
	// NotifyPermissionAnswer is what a permission request resolves to
	// from the default state: granted or denied.
	NotifyPermissionAnswer string `envconfig:"NOTIFY_PERMISSION_ANSWER" default:"granted"`

	MQTTBroker    string `envconfig:"MQTT_BROKER" default:"mqtt://localhost:1883"`
	MQTTClientID  string `envconfig:"MQTT_CLIENT_ID" default:"commute-eta"`
	MQTTUsername  string `envconfig:"MQTT_USERNAME"`
	MQTTPassword  string `envconfig:"MQTT_PASSWORD"`
	MQTTTopicRoot string `envconfig:"MQTT_TOPIC_ROOT" default:"commute"`
}

// Load reads an optional .env file and decodes the environment into Config.
// The second return reports whether a .env file was found.
func Load() (*Config, bool, error) {
	foundEnv := godotenv.Load() == nil

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, foundEnv, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, foundEnv, fmt.Errorf("load config: %w", err)
	}

	return &cfg, foundEnv, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case "sqlite":
		if strings.TrimSpace(c.DBPath) == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case "pgx":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for pgx"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or pgx, got %q", c.DBDriver))
	}

	switch c.TravelProvider {
	case "google", "ors", "none":
	default:
		errs = append(errs, fmt.Errorf("TRAVEL_PROVIDER must be google, ors or none, got %q", c.TravelProvider))
	}

	switch c.TravelCache {
	case "sql", "redis", "none":
	default:
		errs = append(errs, fmt.Errorf("TRAVEL_CACHE must be sql, redis or none, got %q", c.TravelCache))
	}

	switch c.NotifySink {
	case "log", "mqtt":
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_SINK must be log or mqtt, got %q", c.NotifySink))
	}

	switch c.NotifyPermission {
	case "unsupported", "default", "granted", "denied":
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_PERMISSION is not a permission state: %q", c.NotifyPermission))
	}

	switch c.NotifyPermissionAnswer {
	case "granted", "denied":
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_PERMISSION_ANSWER must be granted or denied, got %q", c.NotifyPermissionAnswer))
	}

	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("REFRESH_INTERVAL must be positive"))
	}
	if c.NotifyCheckInterval < 0 {
		errs = append(errs, errors.New("NOTIFY_CHECK_INTERVAL must not be negative"))
	}
	if c.NotifyLeadTime < 0 {
		errs = append(errs, errors.New("NOTIFY_LEAD_TIME must not be negative"))
	}
	if c.RefreshConcurrency < 1 {
		errs = append(errs, errors.New("REFRESH_CONCURRENCY must be at least 1"))
	}
	if strings.TrimSpace(c.UserEmail) == "" {
		errs = append(errs, errors.New("COMMUTE_USER_EMAIL is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves COMMUTE_TZ.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("COMMUTE_TZ %q: %w", c.Timezone, err)
	}
	return loc, nil
}
