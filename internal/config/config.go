package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings"

    "github.com/joho/godotenv" // godotenv reads a local .env file into the process environment
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    LogLevel       string // slog level: debug, info, warn, error
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing
    RabbitMQURL    string // broker URL for moderation events; empty disables publishing
    CORSOrigins    []string
    Upload         UploadConfig
    Storage        StorageConfig
}

// LoadDotEnv loads variables from a .env file in the working directory when
// one exists.  Variables already present in the environment win.
func LoadDotEnv() {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Printf("config: .env not loaded: %v", err)
    }
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),                               // environment (dev/test/prod)
        Port:           must("APP_PORT"),                              // port to bind the HTTP server
        LogLevel:       envStr("LOG_LEVEL", "info"),                   // slog level
        DBUser:         must("DB_USER"),                               // database user
        DBPass:         os.Getenv("DB_PASS"),                          // database password (empty allowed)
        DBHost:         must("DB_HOST"),                               // database host
        DBPort:         must("DB_PORT"),                               // database port
        DBName:         must("DB_NAME"),                               // database name
        JWTSecret:      must("JWT_SECRET"),                            // secret used for signing JWTs
        AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 7*24*60),      // the SPA keeps a single token for a week
        RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 30),          // TTL for refresh tokens in days
        BcryptCost:     mustInt("BCRYPT_COST"),                        // bcrypt cost factor
        RabbitMQURL:    rabbitURL(),
        CORSOrigins:    splitList(envStr("CORS_ORIGINS", "*")),
        Upload:         LoadUploadConfig(),
        Storage:        LoadStorageConfig(),
    }
}

// rabbitURL honours both RABBITMQ_URL and the AMQP_URL alias.
func rabbitURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}

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
