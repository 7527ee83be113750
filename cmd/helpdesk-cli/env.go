package main

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cliEnv is the subset of the server settings each command needs. Unlike the server
// config nothing is required up front; commands check what they use.
type cliEnv struct {
	DatabaseURL           string        `env:"DATABASE_URL"`
	TelegramBotToken      string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAPIBaseURL    string        `env:"TELEGRAM_API_BASE_URL" envDefault:"https://api.telegram.org"`
	TelegramWebhookSecret string        `env:"TELEGRAM_WEBHOOK_SECRET"`
	TelegramTimeout       time.Duration `env:"TELEGRAM_TIMEOUT" envDefault:"10s"`
	Timezone              string        `env:"HELPDESK_TIMEZONE" envDefault:"Europe/Moscow"`
}

func loadEnv() (*cliEnv, error) {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
	cfg := &cliEnv{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func cliLogger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}
