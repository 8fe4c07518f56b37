package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"gopkg.in/yaml.v3"
)

// Auth modes selectable with AUTH_MODE
const (
	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
	AuthDev      = "dev" // trusts X-User-ID, local development only
)

// Store drivers selectable with STORE_DRIVER
const (
	StoreFirestore = "firestore"
	StoreMongo     = "mongo"
	StoreSQLite    = "sqlite"
	StoreMemory    = "memory"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	MongoDB  MongoDBConfig
	Redis    RedisConfig
	Firebase FirebaseConfig
	S3       S3Config
	Auth     AuthConfig
	OTEL     OTELConfig
	Location *time.Location
	Goals    domain.GoalDefaults
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string
	BodyLimitKB    int64
	AllowedOrigins string
}

// StoreConfig selects the document store backing users/{uid}/...
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

// MongoDBConfig holds MongoDB connection configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis connection configuration. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
}

// FirebaseConfig holds Firebase Admin SDK configuration
type FirebaseConfig struct {
	ProjectID   string
	PrivateKey  string // Base64 encoded
	ClientEmail string
}

// S3Config points at the S3-compatible bucket finished sessions are archived to.
// An empty Endpoint disables archiving.
type S3Config struct {
	Region    string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

// AuthConfig controls how the caller's user id is resolved
type AuthConfig struct {
	Mode      string
	JWTSecret string
}

// OTELConfig holds OpenTelemetry exporter configuration
type OTELConfig struct {
	Enabled        bool
	Endpoint       string
	InstanceID     string
	Token          string
	ServiceName    string
	ServiceVersion string
	Environment    string
	Insecure       bool
	SamplePercent  int
}

// Load reads configuration from environment variables
// It attempts to load from .env file first, then falls back to system env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			BodyLimitKB:    getEnvAsInt64("BODY_LIMIT_KB", 256),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
			SQLitePath: getEnv("SQLITE_PATH", "data/liftlog.db"),
		},
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "liftlog"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Firebase: FirebaseConfig{
			ProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
			PrivateKey:  getEnv("FIREBASE_PRIVATE_KEY", ""),
			ClientEmail: getEnv("FIREBASE_CLIENT_EMAIL", ""),
		},
		S3: S3Config{
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Bucket:    getEnv("S3_BUCKET", "liftlog-sessions"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},
		Auth: AuthConfig{
			Mode:      strings.ToLower(getEnv("AUTH_MODE", AuthJWT)),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		OTEL: OTELConfig{
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			InstanceID:     getEnv("OTEL_INSTANCE_ID", ""),
			Token:          getEnv("OTEL_TOKEN", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "liftlog"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("OTEL_ENVIRONMENT", "development"),
			Insecure:       getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SamplePercent:  int(getEnvAsInt64("OTEL_TRACES_SAMPLE_PERCENT", 100)),
		},
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	goals, err := LoadGoals(getEnv("GOALS_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.Goals = goals

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreFirestore:
		if err := c.Firebase.validate(); err != nil {
			return err
		}
	case StoreMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("MONGODB_URI is required")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Auth.Mode {
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case AuthFirebase:
		if err := c.Firebase.validate(); err != nil {
			return err
		}
	case AuthDev:
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.Auth.Mode)
	}
	if c.OTEL.Enabled && c.OTEL.Endpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is set")
	}
	return nil
}

// UsesFirebase reports whether a Firebase app has to be initialised.
func (c *Config) UsesFirebase() bool {
	return c.Store.Driver == StoreFirestore || c.Auth.Mode == AuthFirebase
}

func (f FirebaseConfig) validate() error {
	if f.ProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}
	if f.PrivateKey == "" {
		return fmt.Errorf("FIREBASE_PRIVATE_KEY is required")
	}
	if f.ClientEmail == "" {
		return fmt.Errorf("FIREBASE_CLIENT_EMAIL is required")
	}
	return nil
}

// LoadGoals reads default daily goals from a YAML file. Keys missing from the
// file keep their built-in defaults; an empty path returns the defaults.
func LoadGoals(path string) (domain.GoalDefaults, error) {
	goals := domain.DefaultGoalDefaults()
	if path == "" {
		return goals, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return goals, fmt.Errorf("failed to read goals file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &goals); err != nil {
		return goals, fmt.Errorf("failed to parse goals file %s: %w", path, err)
	}
	if goals.Steps < 0 || goals.Calories < 0 || goals.Water < 0 || goals.Sleep < 0 ||
		goals.Weight < 0 || goals.ActiveMinutes < 0 || goals.WeeklyWorkouts < 0 {
		return goals, fmt.Errorf("goals file %s: goals must not be negative", path)
	}
	return goals, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 retrieves an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
