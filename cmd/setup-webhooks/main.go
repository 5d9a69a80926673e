package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"tourism_assistant/internal/adapters/observability"
	"tourism_assistant/internal/adapters/telegram"
	"tourism_assistant/internal/shared"
)

func main() {
	_ = godotenv.Load()
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	appURL := flag.String("app-url", os.Getenv("APP_URL"), "public base URL of the deployed API")
	flag.Parse()

	base := strings.TrimRight(strings.TrimSpace(*appURL), "/")
	if base == "" {
		log.Fatal().Msg("app url is required (-app-url or APP_URL)")
	}

	if cfg.TelegramToken == "" {
		log.Warn().Msg("TELEGRAM_TOKEN is empty, skipping telegram webhook")
	} else {
		tg, err := telegram.New(cfg.TelegramBase, cfg.TelegramToken, 10*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram client")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err = tg.SetWebhook(ctx, base+"/telegram/webhook", cfg.TelegramSecret)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("telegram setWebhook failed")
		}
		log.Info().Str("url", base+"/telegram/webhook").Bool("secret", cfg.TelegramSecret != "").Msg("telegram webhook set")
	}

	fmt.Printf(`
Twilio WhatsApp webhook setup:
1. Open the Twilio Console
2. Go to Messaging > Settings > WhatsApp Sandbox
3. Set "When a message comes in" to: %s/whatsapp/webhook
4. Use HTTP POST
`, base)
}
