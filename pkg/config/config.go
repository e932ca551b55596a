package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"motobooking/pkg/logger"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port" validate:"required"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	StorageBackend string `yaml:"storage_backend" validate:"oneof=file sqlite mysql postgres mongo"`
	DataFile       string `yaml:"data_file" validate:"required_if=StorageBackend file"`
	SQLDSN         string `yaml:"sql_dsn"`

	MongoURI          string        `yaml:"mongo_uri"`
	MongoDatabaseName string        `yaml:"mongo_database_name"`
	MongoConnTimeout  time.Duration `yaml:"mongo_conn_timeout" validate:"gt=0"`

	// Requires a replica set.
	MongoTransactions bool `yaml:"mongo_transactions"`

	AuthUsername     string `yaml:"auth_username" validate:"required"`
	AuthPassword     string `yaml:"auth_password"`
	AuthPasswordHash string `yaml:"auth_password_hash"`
	AuthRealm        string `yaml:"auth_realm" validate:"required"`

	// Zero disables rate limiting.
	RateLimitRequests int           `yaml:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window" validate:"gt=0"`

	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" validate:"gt=0"`
	MaxRequestSize int           `yaml:"max_request_size" validate:"gt=0"`

	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`

	Log *logger.Logger `yaml:"-" validate:"-"`
}

// Load reads the configuration and exits the process when it is invalid.
func Load(serviceName string) *Config {
	cfg, err := Parse(serviceName)
	if err != nil {
		logger.New(logger.Config{Service: serviceName}).Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// Parse builds the configuration from defaults, an optional YAML file named
// by CONFIG_FILE and environment variables, in increasing precedence.
func Parse(serviceName string) (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:     DefaultPort,
		LogLevel: DefaultLogLevel,

		StorageBackend: DefaultStorageBackend,
		DataFile:       DefaultDataFile,
		SQLDSN:         DefaultSQLDSN,

		MongoURI:          DefaultMongoURI,
		MongoDatabaseName: DefaultMongoDatabaseName,
		MongoConnTimeout:  DefaultMongoConnTimeout,

		AuthUsername: DefaultAuthUsername,
		AuthPassword: DefaultAuthPassword,
		AuthRealm:    DefaultAuthRealm,

		RateLimitRequests: DefaultRateLimitRequests,
		RateLimitWindow:   DefaultRateLimitWindow,

		RequestTimeout: DefaultRequestTimeout,
		IdempotencyTTL: DefaultIdempotencyTTL,
		MaxRequestSize: DefaultMaxRequestSize,

		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func (cfg *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (cfg *Config) applyEnv() {
	cfg.Port = getEnvStr(EnvPort, cfg.Port)
	cfg.LogLevel = getEnvStr(EnvLogLevel, cfg.LogLevel)

	cfg.StorageBackend = getEnvStr(EnvStorageBackend, cfg.StorageBackend)
	cfg.DataFile = getEnvStr(EnvDataFile, cfg.DataFile)
	cfg.SQLDSN = getEnvStr(EnvSQLDSN, cfg.SQLDSN)

	cfg.MongoURI = getEnvStr(EnvMongoURI, cfg.MongoURI)
	cfg.MongoDatabaseName = getEnvStr(EnvMongoDatabaseName, cfg.MongoDatabaseName)
	cfg.MongoConnTimeout = getEnvDuration(EnvMongoConnTimeout, cfg.MongoConnTimeout)
	cfg.MongoTransactions = getEnvBool(EnvMongoTransactions, cfg.MongoTransactions)

	cfg.AuthUsername = getEnvStr(EnvAuthUsername, cfg.AuthUsername)
	cfg.AuthPassword = getEnvStr(EnvAuthPassword, cfg.AuthPassword)
	cfg.AuthPasswordHash = getEnvStr(EnvAuthPasswordHash, cfg.AuthPasswordHash)
	cfg.AuthRealm = getEnvStr(EnvAuthRealm, cfg.AuthRealm)

	cfg.RateLimitRequests = getEnvNum(EnvRateLimitRequests, cfg.RateLimitRequests)
	cfg.RateLimitWindow = getEnvDuration(EnvRateLimitWindow, cfg.RateLimitWindow)

	cfg.RequestTimeout = getEnvDuration(EnvRequestTimeout, cfg.RequestTimeout)
	cfg.IdempotencyTTL = getEnvDuration(EnvIdempotencyTTL, cfg.IdempotencyTTL)
	cfg.MaxRequestSize = getEnvNum(EnvMaxRequestSize, cfg.MaxRequestSize)

	cfg.ReadTimeout = getEnvDuration(EnvReadTimeout, cfg.ReadTimeout)
	cfg.WriteTimeout = getEnvDuration(EnvWriteTimeout, cfg.WriteTimeout)
	cfg.IdleTimeout = getEnvDuration(EnvIdleTimeout, cfg.IdleTimeout)
	cfg.ShutdownTimeout = getEnvDuration(EnvShutdownTimeout, cfg.ShutdownTimeout)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (cfg *Config) Validate() error {
	var errors []string

	if err := validate.Struct(cfg); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errors = append(errors, describeFieldError(fe))
			}
		} else {
			errors = append(errors, err.Error())
		}
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.AuthPassword == "" && cfg.AuthPasswordHash == "" {
		errors = append(errors, "AuthPassword or AuthPasswordHash must be set")
	}

	switch cfg.StorageBackend {
	case StorageSQLite, StorageMySQL, StoragePostgres:
		if cfg.SQLDSN == "" {
			errors = append(errors, fmt.Sprintf("SQLDSN cannot be empty for storage backend %s", cfg.StorageBackend))
		}
	case StorageMongo:
		if !mongoURIRegex.MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s cannot be empty", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got: %v", fe.Field(), fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be positive, got: %v", fe.Field(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s cannot be negative, got: %v", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"storage_backend", cfg.StorageBackend,
		"data_file", cfg.DataFile,
		"sql_dsn", redactDSN(cfg.SQLDSN),
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"mongo_transactions", cfg.MongoTransactions,
		"auth_username", cfg.AuthUsername,
		"auth_password_hash_set", cfg.AuthPasswordHash != "",
		"auth_realm", cfg.AuthRealm,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

var (
	mongoURIRegex   = regexp.MustCompile(`^mongodb(\+srv)?://`)
	mongoCredsRegex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	urlCredsRegex   = regexp.MustCompile(`(://)[^:/@]+:[^@]+@`)
	mysqlCredsRegex = regexp.MustCompile(`^[^:/@]+:[^@/]*@`)
	kvPasswordRegex = regexp.MustCompile(`(password=)\S+`)
)

func redactMongoURI(uri string) string {
	return mongoCredsRegex.ReplaceAllString(uri, "${1}***:***@")
}

// redactDSN hides credentials in URL, mysql and key=value style DSNs.
func redactDSN(dsn string) string {
	dsn = urlCredsRegex.ReplaceAllString(dsn, "${1}***:***@")
	dsn = mysqlCredsRegex.ReplaceAllString(dsn, "***:***@")
	return kvPasswordRegex.ReplaceAllString(dsn, "${1}***")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
