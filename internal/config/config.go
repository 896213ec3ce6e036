package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	ListenAddr  string
	DatabaseURL string

	// Channel provider credentials. An empty token leaves the
	// corresponding adapter unconfigured; deliveries to it fail
	// with a clear message rather than panicking.
	DiscordBotToken string
	SlackBotToken   string
	WebexBotToken   string
	SendGridAPIKey  string
	EmailFrom       string

	// SendTimeout bounds every outbound call to a channel provider.
	// A hanging provider becomes a delivery failure, not a hung request.
	SendTimeout time.Duration

	// Bootstrap tenant created on startup so a fresh deployment can
	// ingest immediately. If BootstrapAPIKey is empty, no tenant is
	// created.
	BootstrapTenantEmail string
	BootstrapAPIKey      string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		ListenAddr:           getenv("APP_LISTEN_ADDR", ":8080"),
		DatabaseURL:          os.Getenv("APP_DATABASE_URL"),
		DiscordBotToken:      os.Getenv("APP_DISCORD_BOT_TOKEN"),
		SlackBotToken:        os.Getenv("APP_SLACK_BOT_TOKEN"),
		WebexBotToken:        os.Getenv("APP_WEBEX_BOT_TOKEN"),
		SendGridAPIKey:       os.Getenv("APP_SENDGRID_API_KEY"),
		EmailFrom:            getenv("APP_EMAIL_FROM", "notify@eventping.dev"),
		SendTimeout:          10 * time.Second,
		BootstrapTenantEmail: getenv("APP_BOOTSTRAP_TENANT_EMAIL", "admin@example.com"),
		BootstrapAPIKey:      os.Getenv("APP_BOOTSTRAP_API_KEY"),
	}

	if v := os.Getenv("APP_SEND_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.SendTimeout = time.Duration(secs) * time.Second
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
