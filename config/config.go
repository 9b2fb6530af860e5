package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	LoginModeToken     = "token"
	LoginModeMagicLink = "magic_link"
)

type Config struct {
	Port   string
	AppEnv string

	DatabaseURL string

	JWTSecret       []byte
	SessionTTL      time.Duration
	ResetTTL        time.Duration
	LoginMode       string
	GoogleClientID  string
	FrontendURL     string
	CORSOrigins     []string
	DeliveryFee     int64
	UploadsDir      string
	BackupDir       string
	BackupRetention time.Duration
	PublicBaseURL   string
	FirebaseCreds   string
	FirebaseBucket  string
	PaystackSecret  string
	PaystackBaseURL string

	// Per-IP requests allowed on login, forgot-password and newsletter.
	RateLimit       int
	RateLimitWindow time.Duration

	Mail   MailConfig
	Outbox OutboxConfig
}

type MailConfig struct {
	From         string
	AdminEmail   string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "5000"),
		AppEnv:          getEnv("APP_ENV", "production"),
		DatabaseURL:     databaseURL(),
		SessionTTL:      getDuration("SESSION_TTL", 2*time.Hour),
		ResetTTL:        getDuration("RESET_TTL", 15*time.Minute),
		LoginMode:       strings.ToLower(getEnv("LOGIN_MODE", LoginModeToken)),
		GoogleClientID:  os.Getenv("GOOGLE_CLIENT_ID"),
		FrontendURL:     strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		UploadsDir:      getEnv("UPLOADS_DIR", "./uploads"),
		BackupDir:       os.Getenv("BACKUP_DIR"),
		BackupRetention: getDuration("BACKUP_RETENTION", 4*24*time.Hour),
		RateLimit:       getInt("RATE_LIMIT", 10),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		FirebaseCreds:   os.Getenv("FIREBASE_CREDENTIALS_JSON"),
		FirebaseBucket:  os.Getenv("FIREBASE_STORAGE_BUCKET"),
		PaystackSecret:  os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL: getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		Mail: MailConfig{
			From:         getEnv("MAIL_FROM", "Ikeyà Support <support@ikeya.shop>"),
			AdminEmail:   os.Getenv("ADMIN_EMAIL"),
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     os.Getenv("SMTP_USER"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		},
		Outbox: OutboxConfig{
			PollInterval: getDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 20),
			MaxAttempts:  getInt("OUTBOX_MAX_ATTEMPTS", 5),
		},
	}

	fee, err := strconv.ParseInt(getEnv("DELIVERY_FEE", "250000"), 10, 64)
	if err != nil || fee < 0 {
		return nil, fmt.Errorf("invalid DELIVERY_FEE %q", os.Getenv("DELIVERY_FEE"))
	}
	cfg.DeliveryFee = fee

	if cfg.LoginMode != LoginModeToken && cfg.LoginMode != LoginModeMagicLink {
		return nil, fmt.Errorf("invalid LOGIN_MODE %q", cfg.LoginMode)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Warn("JWT_SECRET not set, generating a random secret. Issued tokens will not survive a restart. SET JWT_SECRET IN PRODUCTION!")
		cfg.JWTSecret = randomSecret(32)
	} else {
		cfg.JWTSecret = []byte(secret)
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", cfg.Port)
		cfg.Port = "5000"
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// databaseURL prefers DATABASE_URL and falls back to the discrete DB_* keys.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if os.Getenv("DB_HOST") == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func randomSecret(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return []byte(hex.EncodeToString(b))
}
