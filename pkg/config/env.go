package config

const EnvPrefix = "ASSETTRACK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "ASSETTRACK_APP_ENV"
	EnvPort     = "ASSETTRACK_APP_PORT"
	EnvLogLevel = "ASSETTRACK_LOG_LEVEL"

	EnvDBDSN    = "ASSETTRACK_DB_DSN"
	EnvDBDriver = "ASSETTRACK_DB_DRIVER"
	EnvDBHost   = "ASSETTRACK_DB_HOST"
	EnvDBPort   = "ASSETTRACK_DB_PORT"
	EnvDBUser   = "ASSETTRACK_DB_USER"
	EnvDBPass   = "ASSETTRACK_DB_PASSWORD"
	EnvDBName   = "ASSETTRACK_DB_NAME"

	EnvRedisURL = "ASSETTRACK_REDIS_URL"

	EnvJWTSecret  = "ASSETTRACK_JWT_SECRET"
	EnvJWTIssuer  = "ASSETTRACK_JWT_ISSUER"
	EnvJWTExpMins = "ASSETTRACK_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "ASSETTRACK_USE_SQLITE"
	EnvAutoMigrate = "ASSETTRACK_AUTO_MIGRATE"

	EnvPOMigrationBatchSize = "ASSETTRACK_PO_MIGRATION_BATCH_SIZE"
	EnvReconcileInterval    = "ASSETTRACK_RECONCILE_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
