// Package config loads application configuration from environment
// variables.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
package config

import (
    "log"
    "os"
    "strconv"
    "time"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name
    JWTSecret    string // secret used to sign JWTs
    AccessTTLMin int    // access token time-to-live in minutes
    BcryptCost   int    // bcrypt cost for password hashing

    // FeedbackInterval is the poll period of the feedback scheduler.
    FeedbackInterval time.Duration

    // Mail transport.  When SMTPHost is empty, outbound mail is
    // disabled and notifications are skipped.
    SMTPHost        string
    SMTPPort        string
    SMTPUsername    string
    SMTPPassword    string
    MailFrom        string
    MailFromName    string
    FeedbackBaseURL string // frontend URL feedback links point at
    VerifyBaseURL   string // URL account verification links resolve against
}

// Load reads configuration from the environment.
func Load() Config {
    return Config{
        Env:          must("APP_ENV"),
        Port:         must("APP_PORT"),
        DBUser:       must("DB_USER"),
        DBPass:       os.Getenv("DB_PASS"), // empty allowed
        DBHost:       must("DB_HOST"),
        DBPort:       must("DB_PORT"),
        DBName:       must("DB_NAME"),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
        BcryptCost:   mustInt("BCRYPT_COST"),

        FeedbackInterval: envDur("FEEDBACK_SCAN_INTERVAL", 5*time.Minute),

        SMTPHost:        os.Getenv("SMTP_HOST"),
        SMTPPort:        envStr("SMTP_PORT", "587"),
        SMTPUsername:    os.Getenv("SMTP_USERNAME"),
        SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
        MailFrom:        envStr("MAIL_FROM", "events@campus.edu"),
        MailFromName:    envStr("MAIL_FROM_NAME", "Campus Events"),
        FeedbackBaseURL: envStr("FEEDBACK_BASE_URL", "http://localhost:3000/feedback"),
        VerifyBaseURL:   envStr("VERIFY_BASE_URL", "http://localhost:8080/v1/auth/verify"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

func envStr(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func envInt(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return def
}

func envDur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    if d, err := time.ParseDuration(v); err == nil && d > 0 {
        return d
    }
    return def
}
