package config

const EnvPrefix = "ORGREENI"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	OutboxTransportPubSub = "pubsub"
	OutboxTransportAMQP   = "amqp"
)

// Environment variable names referenced outside of struct tags.
const (
	EnvAppEnv       = "ORGREENI_APP_ENV"
	EnvPort         = "ORGREENI_APP_PORT"
	EnvDBDSN        = "ORGREENI_DB_DSN"
	EnvDBHost       = "ORGREENI_DB_HOST"
	EnvDBUser       = "ORGREENI_DB_USER"
	EnvDBName       = "ORGREENI_DB_NAME"
	EnvDBPassword   = "ORGREENI_DB_PASSWORD"
	EnvRedisURL     = "ORGREENI_REDIS_URL"
	EnvJWTSecret    = "ORGREENI_JWT_SECRET"
	EnvJWTIssuer    = "ORGREENI_JWT_ISSUER"
	EnvVATPercent   = "ORGREENI_VAT_PERCENTAGE"
	EnvOrderPrefix  = "ORGREENI_ORDER_PREFIX"
	EnvOutboxTransp = "ORGREENI_OUTBOX_TRANSPORT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
