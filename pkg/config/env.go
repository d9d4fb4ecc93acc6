package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "MERCADITO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "MERCADITO_APP_ENV"
	EnvPort     = "MERCADITO_APP_PORT"
	EnvDBDSN    = "MERCADITO_DB_DSN"
	EnvDBHost   = "MERCADITO_DB_HOST"
	EnvDBUser   = "MERCADITO_DB_USER"
	EnvDBName   = "MERCADITO_DB_NAME"
	EnvRedisURL = "MERCADITO_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
