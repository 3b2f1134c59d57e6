package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	JWTSecret       string
	ResetSecret     string
	GoogleAudience  string
	AllowOrigins    []string
	LogstashTCPAddr string

	SessionTTL    time.Duration
	ResetTokenTTL time.Duration

	FrontendBaseURL   string
	ResetPasswordPath string
	ServiceName       string

	MailDriver   string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	MailGateway  string

	MoodleTimeout     time.Duration
	MoodleInsecureTLS bool

	SeedFile string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     must("DATABASE_URL"),
		JWTSecret:       must("JWT_SECRET"),
		ResetSecret:     getenv("RESET_TOKEN_SECRET", ""),
		GoogleAudience:  getenv("GOOGLE_AUDIENCE", ""),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),

		SessionTTL:    duration("SESSION_TTL", 24*time.Hour),
		ResetTokenTTL: duration("RESET_TOKEN_TTL", 5*time.Minute),

		FrontendBaseURL:   getenv("FRONTEND_BASE_URL", ""),
		ResetPasswordPath: getenv("RESET_PASSWORD_PATH", "reset-password?token"),
		ServiceName:       getenv("SERVICE_NAME", "OxyPass"),

		MailDriver:   strings.ToLower(getenv("MAIL_DRIVER", "smtp")),
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", ""),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		MailGateway:  getenv("MAIL_GATEWAY_URL", ""),

		MoodleTimeout:     duration("MOODLE_TIMEOUT", 30*time.Second),
		MoodleInsecureTLS: getenv("MOODLE_INSECURE_TLS", "false") == "true",

		SeedFile: getenv("SEED_FILE", ""),
	}

	// Reset tokens fall back to the session secret when no dedicated one is
	// configured.
	if cfg.ResetSecret == "" {
		cfg.ResetSecret = cfg.JWTSecret
	}
	return cfg
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func duration(k string, d time.Duration) time.Duration {
	raw := os.Getenv(k)
	if raw == "" {
		return d
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		log.Printf("Warning: invalid %s=%q, using %s", k, raw, d)
		return d
	}
	return parsed
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
