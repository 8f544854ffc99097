package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign session tokens
    SessionTTLMin  int    // session token time‑to‑live in minutes
    BcryptCost     int    // bcrypt cost for password hashing
    ClientURL      string // allowed frontend origin for CORS and OAuth redirects
    GoogleClientID string // OAuth client id issued by the provider
    GoogleSecret   string // OAuth client secret issued by the provider
    GoogleCallback string // absolute callback URL registered with the provider
    AuditURL       string // reasoning service endpoint (chat completions)
    AuditAPIKey    string // API key for the reasoning service
    AuditModel     string // model identifier sent to the reasoning service
    ExtractorKind  string // document extractor adapter to resolve at startup
    MaxUploadBytes int64  // upper bound on uploaded document size
    SMTPHost       string // outbound mail server host
    SMTPPort       string // outbound mail server port
    SMTPUser       string // outbound mail account
    SMTPPass       string // outbound mail password
    MailFrom       string // From address on verification mails
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  In particular a
// missing JWT_SECRET is a startup failure, never a per-request one.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),      // environment (dev/test/prod)
        Port:           must("APP_PORT"),     // port to bind the HTTP server
        DBUser:         must("DB_USER"),      // database user
        DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:         must("DB_HOST"),      // database host
        DBPort:         must("DB_PORT"),      // database port
        DBName:         must("DB_NAME"),      // database name
        JWTSecret:      must("JWT_SECRET"),   // secret used for signing session tokens
        SessionTTLMin:  mustInt("SESSION_TTL_MIN"),
        BcryptCost:     mustInt("BCRYPT_COST"),
        ClientURL:      must("CLIENT_URL"),
        GoogleClientID: must("GOOGLE_CLIENT_ID"),
        GoogleSecret:   must("GOOGLE_CLIENT_SECRET"),
        GoogleCallback: must("GOOGLE_CALLBACK_URL"),
        AuditURL:       getenvDefault("AUDIT_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
        AuditAPIKey:    must("AUDIT_API_KEY"),
        AuditModel:     getenvDefault("AUDIT_MODEL", "openai/gpt-4o-mini"),
        ExtractorKind:  getenvDefault("EXTRACTOR_KIND", "pdf"),
        MaxUploadBytes: int64(envIntDefault("MAX_UPLOAD_BYTES", 10<<20)),
        SMTPHost:       must("SMTP_HOST"),
        SMTPPort:       must("SMTP_PORT"),
        SMTPUser:       must("SMTP_USER"),
        SMTPPass:       must("SMTP_PASS"),
        MailFrom:       getenvDefault("MAIL_FROM", os.Getenv("SMTP_USER")),
    }
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

// getenvDefault returns the value of an optional variable or a fallback.
func getenvDefault(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// envIntDefault parses an optional integer variable, falling back to a
// default when unset or malformed.
func envIntDefault(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        if n, err := strconv.Atoi(v); err == nil {
            return n
        }
    }
    return def
}
