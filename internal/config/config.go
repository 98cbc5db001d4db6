package config

import (
	"fmt"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	SMTPHost     string `env:"SMTP_HOST,required=true"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM,required=true"`

	ChatBotToken string `env:"CHAT_BOT_TOKEN,required=true"`

	ScanIntervalSec   int    `env:"SCAN_INTERVAL_SEC,default=15"`
	ScanLimit         int    `env:"SCAN_LIMIT,default=200"`
	RegenerationCron  string `env:"REGENERATION_CRON,default=0 0 1 1 *"`
	RateLimitPerSec   int    `env:"RATE_LIMIT_PER_SEC,default=20"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=8"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
