package config

import "time"

const (
	DefaultPort     = "8000"
	DefaultLogLevel = "info"

	DefaultStorageBackend = StorageFile
	DefaultDataFile       = "data.json"
	DefaultSQLDSN         = "bookings.db"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "motobooking"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultAuthUsername = "admin"
	DefaultAuthPassword = "password"
	DefaultAuthRealm    = "Moto Booking Server"

	DefaultRateLimitRequests = 120
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StorageMySQL    = "mysql"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)
