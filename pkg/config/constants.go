package config

// EnvPrefix is passed to envconfig; the struct tags already carry the
// fully-qualified names, so the prefix only matters for unqualified fields.
const EnvPrefix = "solmercado"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageBackendMemory = "memory"
	StorageBackendSQLite = "sqlite"
	StorageBackendRedis  = "redis"
)

const EnvStorageSQLitePath = "SOLMERCADO_STORAGE_SQLITE_PATH"
