package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	JWT       JWTConfig
	Firebase  FirebaseConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Login     LoginConfig
	Logging   LoggingConfig
	Assistant AssistantConfig
	Gallery   GalleryConfig
	Audit     AuditConfig
	Contact   ContactConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
	StaticDir   string
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
	StorageBucket   string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// LoginConfig throttles failed admin sign-ins per email.
type LoginConfig struct {
	MaxAttempts int
	Lockout     time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type AssistantConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

type GalleryConfig struct {
	MaxUploadBytes int64
}

type AuditConfig struct {
	IPLookupURL string
	BufferSize  int
}

type ContactConfig struct {
	Phone string
	Email string
}

const defaultJWTSecret = "dev-secret-key"

// Load reads configuration from environment variables
func Load() *Config {
	apiKey := getEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("API_KEY", "")
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Host:        getEnv("HOST", "0.0.0.0"),
			Environment: getEnv("ENVIRONMENT", "development"),
			StaticDir:   getEnv("STATIC_DIR", "./web/dist"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", defaultJWTSecret),
			Expiration:             parseDuration(getEnv("JWT_EXPIRATION", "1h"), time.Hour),
			RefreshTokenExpiration: parseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "7d"), 7*24*time.Hour),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
			StorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			Requests: parseInt(getEnv("RATE_LIMIT_REQUESTS", "100"), 100),
			Window:   parseDuration(getEnv("RATE_LIMIT_WINDOW", "60"), 60*time.Second),
		},
		Login: LoginConfig{
			MaxAttempts: parseInt(getEnv("LOGIN_MAX_ATTEMPTS", "5"), 5),
			Lockout:     parseDuration(getEnv("LOGIN_LOCKOUT", "15m"), 15*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Assistant: AssistantConfig{
			APIKey:      apiKey,
			Model:       getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
			Temperature: parseFloat32(getEnv("GEMINI_TEMPERATURE", "0.7"), 0.7),
		},
		Gallery: GalleryConfig{
			MaxUploadBytes: int64(parseInt(getEnv("MAX_UPLOAD_MB", "50"), 50)) << 20,
		},
		Audit: AuditConfig{
			IPLookupURL: getEnv("IP_LOOKUP_URL", "https://api.ipify.org?format=json"),
			BufferSize:  parseInt(getEnv("AUDIT_BUFFER", "64"), 64),
		},
		Contact: ContactConfig{
			Phone: getEnv("CONTACT_PHONE", "+221785216296"),
			Email: getEnv("CONTACT_EMAIL", "dchristophe507@gmail.com"),
		},
	}
}

// getEnv returns the variable with surrounding quotes removed; some env
// loaders keep them.
func getEnv(key, defaultValue string) string {
	if value := removeQuotes(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func removeQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimPrefix(s, `'`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSuffix(s, `'`)
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseFloat32(s string, defaultValue float32) float32 {
	if f, err := strconv.ParseFloat(s, 32); err == nil {
		return float32(f)
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	// Handle simple formats like "30m", "7d", "60"
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if strings.HasSuffix(s, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	// If it's just a number, assume seconds
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func parseStringSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// FirebaseEnabled reports whether a Firebase project is configured. Without
// one the server runs on demo data.
func (c *Config) FirebaseEnabled() bool {
	return c.Firebase.ProjectID != ""
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == defaultJWTSecret && c.IsProduction() {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.FirebaseEnabled() {
		if _, err := os.Stat(c.Firebase.CredentialsPath); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("firebase credentials file not found: %s", c.Firebase.CredentialsPath))
		}
		if c.Firebase.StorageBucket == "" {
			errs = append(errs, errors.New("FIREBASE_STORAGE_BUCKET must be set when FIREBASE_PROJECT_ID is set"))
		}
	}
	if c.Gallery.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	return errors.Join(errs...)
}
