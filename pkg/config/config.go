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
	Eventing     EventingConfig
	GCP          GCPConfig
	BigQuery     BigQueryConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Functions    FunctionsConfig
	MRP          MRPConfig
	Fulfillment  FulfillmentConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Fulfillment.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDB reads only the database settings, for tools such as cmd/migrate
// that should not require the full service environment.
func LoadDB() (*DBConfig, error) {
	var cfg DBConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing db config: %w", err)
	}
	if err := cfg.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"MESFLOW_APP_ENV" required:"true"`
	Port         string   `envconfig:"MESFLOW_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"MESFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"MESFLOW_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"MESFLOW_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	// MetricsAddr exposes /metrics from background workers. Empty disables it.
	MetricsAddr string `envconfig:"MESFLOW_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MESFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MESFLOW_DB_DSN"`
	Driver string `envconfig:"MESFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MESFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"MESFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MESFLOW_DB_USER"`
	LegacyPassword string `envconfig:"MESFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"MESFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"MESFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MESFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MESFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MESFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MESFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"MESFLOW_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MESFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MESFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"MESFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"MESFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MESFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MESFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MESFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MESFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MESFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MESFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MESFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MESFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MESFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MESFLOW_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	TaskIdempotencyTTL time.Duration `envconfig:"MESFLOW_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL time.Duration `envconfig:"MESFLOW_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MESFLOW_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MESFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MESFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

// BigQueryConfig enables the suggested action export. An empty dataset turns it off.
type BigQueryConfig struct {
	Dataset               string `envconfig:"MESFLOW_BIGQUERY_DATASET"`
	SuggestedActionsTable string `envconfig:"MESFLOW_BIGQUERY_SUGGESTED_ACTIONS_TABLE" default:"suggested_actions"`
}

func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.Dataset) != ""
}

type PubSubConfig struct {
	TasksTopic        string `envconfig:"MESFLOW_PUBSUB_TASKS_TOPIC" default:"mesflow-tasks"`
	TasksSubscription string `envconfig:"MESFLOW_PUBSUB_TASKS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"MESFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"MESFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"MESFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"MESFLOW_OUTBOX_RETENTION" default:"720h"`
}

// FunctionsConfig points at the external scheduler and purchasing functions.
// Audience enables Google-signed identity tokens on outbound calls.
type FunctionsConfig struct {
	SchedulerURL  string        `envconfig:"MESFLOW_FUNCTIONS_SCHEDULER_URL"`
	PurchasingURL string        `envconfig:"MESFLOW_FUNCTIONS_PURCHASING_URL"`
	Audience      string        `envconfig:"MESFLOW_FUNCTIONS_AUDIENCE"`
	Timeout       time.Duration `envconfig:"MESFLOW_FUNCTIONS_TIMEOUT" default:"30s"`
}

type MRPConfig struct {
	HorizonWeeks int `envconfig:"MESFLOW_MRP_HORIZON_WEEKS" default:"48"`
}

type FulfillmentConfig struct {
	PickQuantityMode string `envconfig:"MESFLOW_PICK_QUANTITY_MODE" default:"delta"`
}

func (f *FulfillmentConfig) validate() error {
	f.PickQuantityMode = strings.ToLower(strings.TrimSpace(f.PickQuantityMode))
	switch f.PickQuantityMode {
	case PickModeDelta, PickModeReplace:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvPickQuantityMode, PickModeDelta, PickModeReplace)
	}
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MESFLOW_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"MESFLOW_CRON_LOCK_TTL" default:"50m"`
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
