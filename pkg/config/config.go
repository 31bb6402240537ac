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
	Engine       EngineConfig
	Eventing     EventingConfig
	Outbox       OutboxConfig
	Reconcile    ReconcileConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ASSETTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"ASSETTRACK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ASSETTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ASSETTRACK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"ASSETTRACK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ASSETTRACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ASSETTRACK_DB_DSN"`
	Driver string `envconfig:"ASSETTRACK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ASSETTRACK_DB_HOST"`
	LegacyPort     int    `envconfig:"ASSETTRACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ASSETTRACK_DB_USER"`
	LegacyPassword string `envconfig:"ASSETTRACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ASSETTRACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ASSETTRACK_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"ASSETTRACK_SQLITE_PATH" default:"assettrack.db"`

	MaxOpenConns    int           `envconfig:"ASSETTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ASSETTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ASSETTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ASSETTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets SQLite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ASSETTRACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ASSETTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"ASSETTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASSETTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASSETTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASSETTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASSETTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASSETTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASSETTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ASSETTRACK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ASSETTRACK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ASSETTRACK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ASSETTRACK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ASSETTRACK_AUTO_MIGRATE" default:"false"`
}

type EngineConfig struct {
	POMigrationBatchSize int `envconfig:"ASSETTRACK_PO_MIGRATION_BATCH_SIZE" default:"500"`
	HistoryPageSize      int `envconfig:"ASSETTRACK_HISTORY_PAGE_SIZE" default:"25"`
}

type EventingConfig struct {
	Channel        string        `envconfig:"ASSETTRACK_EVENTS_CHANNEL" default:"assettrack:events"`
	IdempotencyTTL time.Duration `envconfig:"ASSETTRACK_IDEMPOTENCY_TTL" default:"24h"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"ASSETTRACK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"ASSETTRACK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"ASSETTRACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"ASSETTRACK_OUTBOX_RETENTION" default:"720h"`
}

type ReconcileConfig struct {
	Interval    time.Duration `envconfig:"ASSETTRACK_RECONCILE_INTERVAL" default:"15m"`
	LockTTL     time.Duration `envconfig:"ASSETTRACK_RECONCILE_LOCK_TTL" default:"14m"`
	MetricsAddr string        `envconfig:"ASSETTRACK_RECONCILE_METRICS_ADDR" default:":9102"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
	}
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
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
