package config

const EnvPrefix = "MESFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	PickModeDelta   = "delta"
	PickModeReplace = "replace"
)

const (
	EnvAppEnv           = "MESFLOW_APP_ENV"
	EnvPort             = "MESFLOW_APP_PORT"
	EnvDBDSN            = "MESFLOW_DB_DSN"
	EnvDBHost           = "MESFLOW_DB_HOST"
	EnvDBUser           = "MESFLOW_DB_USER"
	EnvDBName           = "MESFLOW_DB_NAME"
	EnvDBPassword       = "MESFLOW_DB_PASSWORD"
	EnvRedisURL         = "MESFLOW_REDIS_URL"
	EnvJWTSecret        = "MESFLOW_JWT_SECRET"
	EnvJWTIssuer        = "MESFLOW_JWT_ISSUER"
	EnvGCPProjectID     = "MESFLOW_GCP_PROJECT_ID"
	EnvPubSubTasksSub   = "MESFLOW_PUBSUB_TASKS_SUBSCRIPTION"
	EnvMRPHorizonWeeks  = "MESFLOW_MRP_HORIZON_WEEKS"
	EnvPickQuantityMode = "MESFLOW_PICK_QUANTITY_MODE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
