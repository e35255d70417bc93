package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Commerce     CommerceConfig
	Cart         CartConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	AMQP         AMQPConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORGREENI_APP_ENV" required:"true"`
	Port         string `envconfig:"ORGREENI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORGREENI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORGREENI_LOG_WARN_STACK" default:"false"`
	// LogFormat is "json" or "console".
	LogFormat string `envconfig:"ORGREENI_LOG_FORMAT" default:"json"`
	// CORSOrigins is comma separated.
	CORSOrigins []string `envconfig:"ORGREENI_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	// MetricsAddr is where background workers serve /metrics. The API
	// serves it on its own router instead. Empty disables the listener.
	MetricsAddr string `envconfig:"ORGREENI_WORKER_METRICS_ADDR" default:":9102"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORGREENI_SERVICE_KIND" default:"api"`
	// InstanceID names this process in logs; the hostname when unset.
	InstanceID string `envconfig:"ORGREENI_INSTANCE_ID"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORGREENI_DB_DSN"`
	Driver string `envconfig:"ORGREENI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORGREENI_DB_HOST"`
	LegacyPort     int    `envconfig:"ORGREENI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORGREENI_DB_USER"`
	LegacyPassword string `envconfig:"ORGREENI_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORGREENI_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORGREENI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORGREENI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORGREENI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORGREENI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORGREENI_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"ORGREENI_DB_SLOW_QUERY" default:"250ms"`
	// TxRetries is how many times WithTx reruns a transaction postgres
	// aborted for a deadlock or serialization failure.
	TxRetries int `envconfig:"ORGREENI_DB_TX_RETRIES" default:"2"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORGREENI_REDIS_URL"`
	Address      string        `envconfig:"ORGREENI_REDIS_ADDR"`
	Password     string        `envconfig:"ORGREENI_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORGREENI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORGREENI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORGREENI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORGREENI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORGREENI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORGREENI_REDIS_WRITE_TIMEOUT" default:"5s"`
	// KeyPrefix namespaces every key so environments can share a server.
	KeyPrefix string `envconfig:"ORGREENI_REDIS_KEY_PREFIX" default:"og"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ORGREENI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORGREENI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORGREENI_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ORGREENI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ORGREENI_AUTO_MIGRATE" default:"false"`
}

// CommerceConfig carries the policy defaults used when the settings table has no override.
type CommerceConfig struct {
	VATPercentage     string        `envconfig:"ORGREENI_VAT_PERCENTAGE" default:"5"`
	OrderPrefix       string        `envconfig:"ORGREENI_ORDER_PREFIX" default:"CHL"`
	AdvanceOrderDays  int           `envconfig:"ORGREENI_ADVANCE_ORDER_DAYS" default:"7"`
	MaxLineQuantity   int           `envconfig:"ORGREENI_MAX_LINE_QUANTITY" default:"100"`
	LowStockThreshold int           `envconfig:"ORGREENI_LOW_STOCK_THRESHOLD" default:"10"`
	PolicyCacheTTL    time.Duration `envconfig:"ORGREENI_POLICY_CACHE_TTL" default:"1m"`
}

type CartConfig struct {
	GuestRetentionDays int `envconfig:"ORGREENI_CART_GUEST_RETENTION_DAYS" default:"30"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"ORGREENI_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
	// CriticalIdempotencyTTL covers checkout and cancellation, which clients
	// retry longest.
	CriticalIdempotencyTTL time.Duration `envconfig:"ORGREENI_EVENTING_IDEMPOTENCY_CRITICAL_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ORGREENI_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic    string `envconfig:"ORGREENI_PUBSUB_ORDERS_TOPIC" default:"orgreeni-order-events"`
	InventoryTopic string `envconfig:"ORGREENI_PUBSUB_INVENTORY_TOPIC" default:"orgreeni-inventory-events"`
}

type AMQPConfig struct {
	URL      string `envconfig:"ORGREENI_AMQP_URL"`
	Exchange string `envconfig:"ORGREENI_AMQP_EXCHANGE" default:"orgreeni.events"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"ORGREENI_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"ORGREENI_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"ORGREENI_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Transport      string `envconfig:"ORGREENI_OUTBOX_TRANSPORT" default:"pubsub"`
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Transport)) {
	case OutboxTransportPubSub, OutboxTransportAMQP:
		return nil
	default:
		return fmt.Errorf("unsupported outbox transport %q", o.Transport)
	}
}

// UsesAMQP reports whether outbox rows should be published to RabbitMQ.
func (o OutboxConfig) UsesAMQP() bool {
	return strings.EqualFold(strings.TrimSpace(o.Transport), OutboxTransportAMQP)
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ORGREENI_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"ORGREENI_CRON_LOCK_TTL" default:"10m"`
}

// RateLimitConfig throttles guest order lookups by number and phone.
type RateLimitConfig struct {
	LookupWindow     time.Duration `envconfig:"ORGREENI_LOOKUP_RATE_WINDOW" default:"10m"`
	LookupIPLimit    int           `envconfig:"ORGREENI_LOOKUP_RATE_IP_LIMIT" default:"60"`
	LookupPhoneLimit int           `envconfig:"ORGREENI_LOOKUP_RATE_PHONE_LIMIT" default:"20"`
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
