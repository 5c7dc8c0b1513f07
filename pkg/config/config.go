package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "harborline"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "HARBORLINE_DB_DSN"
	EnvDBHost = "HARBORLINE_DB_HOST"
	EnvDBUser = "HARBORLINE_DB_USER"
	EnvDBName = "HARBORLINE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Square   SquareConfig
	Checkout CheckoutConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Cron     CronConfig
	Features FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HARBORLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"HARBORLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HARBORLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HARBORLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HARBORLINE_DB_DSN"`
	Driver string `envconfig:"HARBORLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HARBORLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"HARBORLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HARBORLINE_DB_USER"`
	LegacyPassword string `envconfig:"HARBORLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"HARBORLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"HARBORLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HARBORLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HARBORLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HARBORLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HARBORLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HARBORLINE_REDIS_URL"`
	Address      string        `envconfig:"HARBORLINE_REDIS_ADDR"`
	Password     string        `envconfig:"HARBORLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"HARBORLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HARBORLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HARBORLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HARBORLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HARBORLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HARBORLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"HARBORLINE_SQUARE_ACCESS_TOKEN"`
	LocationID  string `envconfig:"HARBORLINE_SQUARE_LOCATION_ID"`
	Env         string `envconfig:"HARBORLINE_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// CheckoutConfig is the injected checkout policy: tax rate, shipping tariffs,
// and the storefront-wide minimum order value. Defaults mirror the launch
// business rules.
type CheckoutConfig struct {
	TaxRate           string `envconfig:"HARBORLINE_CHECKOUT_TAX_RATE" default:"0.10"`
	MinOrderCents     int64  `envconfig:"HARBORLINE_CHECKOUT_MIN_ORDER_CENTS" default:"500"`
	Currency          string `envconfig:"HARBORLINE_CHECKOUT_CURRENCY" default:"USD"`
	StandardCents     int64  `envconfig:"HARBORLINE_SHIPPING_STANDARD_CENTS" default:"500"`
	ExpressCents      int64  `envconfig:"HARBORLINE_SHIPPING_EXPRESS_CENTS" default:"1500"`
	OvernightCents    int64  `envconfig:"HARBORLINE_SHIPPING_OVERNIGHT_CENTS" default:"2500"`
	FreeShippingCents int64  `envconfig:"HARBORLINE_SHIPPING_FREE_CENTS" default:"0"`
}

type PubSubConfig struct {
	ProjectID    string `envconfig:"HARBORLINE_GCP_PROJECT_ID"`
	OrdersTopic  string `envconfig:"HARBORLINE_PUBSUB_ORDERS_TOPIC" default:"hl-order-events"`
	DefaultTopic string `envconfig:"HARBORLINE_PUBSUB_DEFAULT_TOPIC" default:"hl-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HARBORLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HARBORLINE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HARBORLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"HARBORLINE_CRON_INTERVAL" default:"24h"`
	LockTTL             time.Duration `envconfig:"HARBORLINE_CRON_LOCK_TTL" default:"25h"`
	OutboxRetentionDays int           `envconfig:"HARBORLINE_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	CartRetentionDays   int           `envconfig:"HARBORLINE_CRON_CART_RETENTION_DAYS" default:"90"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HARBORLINE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
