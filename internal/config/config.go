package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/peereval-api/internal/models"
)

// Config holds runtime configuration values for the dispute API.
type Config struct {
	AppName               string
	AppEnv                string
	AppPort               string
	DatabaseURL           string
	RedisURL              string
	NATSURL               string
	JWTSecret             string
	StatsCacheTTL         time.Duration
	NotificationChannel   string
	NotificationKeepAlive time.Duration
	KafkaBrokers          []string
	KafkaTopic            string
	FlagStaleAfter        time.Duration
	FlagReminderCron      string
	MarksDefaultMax       float64
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AuditEnabled reports whether dispute events should be streamed to Kafka.
func (c Config) AuditEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

// Load reads configuration values from PEEREVAL_* environment variables and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PEEREVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Peer Evaluation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("stats.cache_ttl", "30s")
	v.SetDefault("notification.channel", "peereval")
	v.SetDefault("notification.keepalive", "30s")
	v.SetDefault("kafka.topic", "peereval.disputes")
	v.SetDefault("flag.stale_after", "72h")
	v.SetDefault("flag.reminder_cron", "0 9 * * *")
	v.SetDefault("marks.default_max", models.DefaultMaxMarksPerQuestion)

	statsTTL, err := parseDuration(v, "stats.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "notification.keepalive")
	if err != nil {
		return Config{}, err
	}
	staleAfter, err := parseDuration(v, "flag.stale_after")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		JWTSecret:             v.GetString("jwt.secret"),
		StatsCacheTTL:         statsTTL,
		NotificationChannel:   v.GetString("notification.channel"),
		NotificationKeepAlive: keepAlive,
		KafkaBrokers:          splitList(v.GetString("kafka.brokers")),
		KafkaTopic:            strings.TrimSpace(v.GetString("kafka.topic")),
		FlagStaleAfter:        staleAfter,
		FlagReminderCron:      strings.TrimSpace(v.GetString("flag.reminder_cron")),
		MarksDefaultMax:       v.GetFloat64("marks.default_max"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.MarksDefaultMax <= 0 {
		return Config{}, fmt.Errorf("marks default max must be positive, got %v", cfg.MarksDefaultMax)
	}
	if cfg.FlagStaleAfter <= 0 {
		return Config{}, fmt.Errorf("flag stale window must be positive, got %s", cfg.FlagStaleAfter)
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return duration, nil
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
