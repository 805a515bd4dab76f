package config

// EnvPrefix is passed to envconfig; individual fields carry explicit keys so
// the effective prefix stays MEMALERTS_ either way.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "MEMALERTS_DB_DSN"
	EnvDBHost = "MEMALERTS_DB_HOST"
	EnvDBUser = "MEMALERTS_DB_USER"
	EnvDBName = "MEMALERTS_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
