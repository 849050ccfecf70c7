package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types

	"github.com/joho/godotenv" // godotenv loads a local .env file when present
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database fields are optional: when DB_HOST is
// empty the service falls back to the in-memory store and logs a warning
// at startup.
type Config struct {
	Env               string // application environment (e.g. "dev", "prod")
	Port              string // HTTP port to listen on
	LogLevel          string // zap log level (debug/info/warn/error)
	LogFormat         string // zap output format (json/console)
	DBUser            string // database username (optional)
	DBPass            string // database password (optional)
	DBHost            string // database host address (optional)
	DBPort            string // database port number
	DBName            string // database name
	JWTSecret         string // secret used to sign JWTs
	AccessTTLMin      int    // access token time-to-live in minutes
	AdminPasswordHash string // bcrypt hash the admin login is verified against (optional)
	ServiceAPIKey     string // shared key the conversational layer exchanges for tokens (optional)
	QueueConsumer     bool   // whether to start the reservation event consumer
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is merged first; missing
// required variables cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // a missing .env file is not an error

	return Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "json"),
		DBUser:            os.Getenv("DB_USER"),
		DBPass:            os.Getenv("DB_PASS"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            getenv("DB_PORT", "3306"),
		DBName:            getenv("DB_NAME", "cafe_reservation"),
		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		ServiceAPIKey:     os.Getenv("SERVICE_API_KEY"),
		QueueConsumer:     getenv("QUEUE_CONSUMER_ENABLED", "true") == "true",
	}
}

// UsesDatabase reports whether MySQL is configured; when false the
// service runs on the in-memory store.
func (c Config) UsesDatabase() bool { return c.DBHost != "" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
