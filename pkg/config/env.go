package config

// EnvPrefix is handed to envconfig; every field carries an explicit envconfig tag.
const EnvPrefix = "PHONELIFE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	CartBackendRedis  = "redis"
	CartBackendDB     = "db"
	CartBackendMemory = "memory"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv           = "PHONELIFE_APP_ENV"
	EnvPort             = "PHONELIFE_APP_PORT"
	EnvShopAPIURL       = "PHONELIFE_SHOP_API_URL"
	EnvCartBackend      = "PHONELIFE_CART_BACKEND"
	EnvCartWriteTimeout = "PHONELIFE_CART_WRITE_TIMEOUT"
	EnvRedisURL         = "PHONELIFE_REDIS_URL"
	EnvRedisAddr        = "PHONELIFE_REDIS_ADDR"
	EnvDBDriver         = "PHONELIFE_DB_DRIVER"
	EnvDBDSN            = "PHONELIFE_DB_DSN"
	EnvCORSOrigins      = "PHONELIFE_CORS_ORIGINS"
)
