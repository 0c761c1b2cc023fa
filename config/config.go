package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"modbot/model"
)

// Load reads config.yaml via viper, with environment variables (loaded
// from .env when present) overriding secrets.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("database_path", "data/modbot.db")
	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.BotToken = token
	}
	if webhook := os.Getenv("AUDIT_WEBHOOK_URL"); webhook != "" {
		cfg.AuditWebhookURL = webhook
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}
	if cfg.GuildID == "" {
		return nil, fmt.Errorf("guild_id is not set")
	}
	return cfg, nil
}
