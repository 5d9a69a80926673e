package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"tourism_assistant/internal/adapters/huggingface"
	server "tourism_assistant/internal/adapters/http_server"
	"tourism_assistant/internal/adapters/makcorps"
	"tourism_assistant/internal/adapters/observability"
	openaiad "tourism_assistant/internal/adapters/openai"
	redisad "tourism_assistant/internal/adapters/redis"
	"tourism_assistant/internal/adapters/telegram"
	"tourism_assistant/internal/app"
	"tourism_assistant/internal/domain"
	"tourism_assistant/internal/shared"
)

func main() {
	envErr := godotenv.Load()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if envErr != nil {
		log.Debug().Msg("no .env file, using process environment")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// search
	var provider domain.HotelProvider
	if !cfg.UseSimulation {
		mc, err := makcorps.New(cfg.MakCorpsBase, cfg.MakCorpsKey, cfg.SearchRPS, cfg.SearchTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("makcorps client")
		}
		provider = mc
	}
	opts := app.SearchOptions{
		Simulated:     cfg.UseSimulation,
		AllowFallback: cfg.AllowFallback,
		Timeout:       cfg.SearchTimeout,
		CacheTTL:      cfg.CacheTTL,
	}
	if cfg.RedisAddr != "" && !cfg.UseSimulation {
		cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := cache.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, search cache disabled")
			_ = cache.Close()
		} else {
			defer cache.Close()
			opts.Cache = cache
		}
	}
	search := app.NewSearchService(provider, opts)

	// generation
	llm, err := newModel(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.LLMProvider).Msg("language model client")
	}
	assistant := app.NewAssistant(search, app.NewComposer(llm, cfg.LLMMaxTokens, cfg.LLMTemperature, cfg.LLMTimeout), nil)

	// channels
	h := &server.Handlers{
		Assistant:      assistant,
		TelegramSecret: cfg.TelegramSecret,
		Model:          cfg.LLMModel,
		SearchMode:     cfg.SearchMode(),
	}
	if cfg.TelegramToken != "" {
		tg, err := telegram.New(cfg.TelegramBase, cfg.TelegramToken, 10*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram client")
		}
		h.Messenger = tg
	}

	// http
	srv := server.New(server.Options{
		Timeout:     cfg.SearchTimeout + cfg.LLMTimeout + 5*time.Second,
		CORSOrigins: cfg.CORSOrigins,
	})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("search_mode", cfg.SearchMode()).
			Str("llm_provider", cfg.LLMProvider).
			Str("model", cfg.LLMModel).
			Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	stop()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

func newModel(cfg shared.Config) (domain.LanguageModel, error) {
	switch cfg.LLMProvider {
	case "huggingface":
		return huggingface.New(cfg.HFBase, cfg.LLMModel, cfg.HFKey, cfg.LLMRPS, cfg.LLMTimeout)
	case "openai":
		return openaiad.New(cfg.OpenAIBase, cfg.OpenAIKey, cfg.LLMModel, cfg.LLMRPS, cfg.LLMTimeout)
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.LLMProvider)
}
