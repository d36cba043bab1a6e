package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AllowedOrigins []string // CORS and websocket origin allow-list

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	CodeTTL         time.Duration
	CodeMaxAttempts int

	Notifier      string // "smtp" | "script" | "sns" | "log"
	NotifyTimeout time.Duration
	NotifyScript  string // command line, e.g. "python3 send_email.py"

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	SNSTopicARN    string
	MediaBucket    string // media uploads are disabled when empty
	MediaURLTTL    time.Duration

	SeedDemoUsers bool

	WSSendBuffer  int
	WSEventRate   float64 // inbound events per second per connection
	WSEventBurst  int
	CallRetention time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3001"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),

		CodeTTL:         getEnvDuration("CODE_TTL", 5*time.Minute),
		CodeMaxAttempts: getEnvInt("CODE_MAX_ATTEMPTS", 30),

		Notifier:      getEnv("NOTIFIER", "log"),
		NotifyTimeout: getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
		NotifyScript:  getEnv("NOTIFY_SCRIPT", "python3 send_email.py"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		SNSTopicARN:    getEnv("SNS_TOPIC_ARN", ""),
		MediaBucket:    getEnv("MEDIA_BUCKET", ""),
		MediaURLTTL:    getEnvDuration("MEDIA_URL_TTL", 24*time.Hour),

		SeedDemoUsers: getEnvBool("SEED_DEMO_USERS", true),

		WSSendBuffer:  getEnvInt("WS_SEND_BUFFER", 64),
		WSEventRate:   getEnvFloat("WS_EVENT_RATE", 60),
		WSEventBurst:  getEnvInt("WS_EVENT_BURST", 120),
		CallRetention: getEnvDuration("CALL_RETENTION", time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("5m", "90s").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
