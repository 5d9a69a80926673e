package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	CORSOrigins []string

	MakCorpsBase  string
	MakCorpsKey   string
	UseSimulation bool
	AllowFallback bool
	SearchTimeout time.Duration
	SearchRPS     int

	LLMProvider    string // huggingface|openai
	LLMModel       string
	HFBase         string
	HFKey          string
	OpenAIBase     string
	OpenAIKey      string
	LLMTimeout     time.Duration
	LLMRPS         int
	LLMMaxTokens   int
	LLMTemperature float64

	RedisAddr string
	RedisPass string
	RedisDB   int
	CacheTTL  time.Duration

	TelegramToken  string
	TelegramBase   string
	TelegramSecret string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Int("default", def).Msg("invalid integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":7860"),
		MetricsAddr: env("METRICS_ADDR", ""),
		CORSOrigins: strings.Split(env("CORS_ALLOWED_ORIGINS", "*"), ","),

		MakCorpsBase:  env("MAKCORPS_BASE_URL", "https://api.makcorps.com"),
		MakCorpsKey:   env("MAKCORPS_API_KEY", ""),
		UseSimulation: envBool("USE_SIMULATION", true),
		AllowFallback: envBool("SEARCH_FALLBACK", true),
		SearchTimeout: time.Duration(atoi("SEARCH_TIMEOUT_SECONDS", 15)) * time.Second,
		SearchRPS:     atoi("SEARCH_RPS", 5),

		LLMProvider:    strings.ToLower(env("LLM_PROVIDER", "huggingface")),
		LLMModel:       env("LLM_MODEL", "ArsenKe/MT5_large_finetuned_chatbot"),
		HFBase:         env("HUGGINGFACE_BASE_URL", "https://api-inference.huggingface.co"),
		HFKey:          env("HUGGINGFACE_API_KEY", ""),
		OpenAIBase:     env("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIKey:      env("OPENAI_API_KEY", ""),
		LLMTimeout:     time.Duration(atoi("LLM_TIMEOUT_SECONDS", 90)) * time.Second,
		LLMRPS:         atoi("LLM_RPS", 3),
		LLMMaxTokens:   atoi("LLM_MAX_TOKENS", 200),
		LLMTemperature: envFloat("LLM_TEMPERATURE", 0.7),

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		TelegramToken:  env("TELEGRAM_TOKEN", ""),
		TelegramBase:   env("TELEGRAM_API_BASE", "https://api.telegram.org"),
		TelegramSecret: env("TELEGRAM_WEBHOOK_SECRET", ""),
	}
	if c.MakCorpsKey == "" && !c.UseSimulation {
		log.Warn().Msg("MAKCORPS_API_KEY is empty, falling back to simulation mode")
		c.UseSimulation = true
	}
	if c.TelegramToken == "" {
		log.Warn().Msg("TELEGRAM_TOKEN is empty, telegram replies are disabled")
	}
	return c
}

// Validate reports settings that would make the assistant unable to answer.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "huggingface":
		if c.HFKey == "" {
			return fmt.Errorf("HUGGINGFACE_API_KEY is required for LLM_PROVIDER=huggingface")
		}
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for LLM_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.SearchTimeout <= 0 || c.LLMTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// SearchMode is "simulated" or "live".
func (c Config) SearchMode() string {
	if c.UseSimulation {
		return "simulated"
	}
	return "live"
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn().Str("key", k).Float64("default", def).Msg("invalid float, using default")
	}
	return def
}
