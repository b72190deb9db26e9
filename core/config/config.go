package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultChannelMap is the compiled-in community -> report channel table.
// Format: "guild:channel" pairs separated by commas.
const DefaultChannelMap = "145457131640848384:335451227028717568," + // bot testing server
	"238666723824238602:1315930244682743839" // progdisc

// DefaultSelfID is the bot's own user id, used to ignore its own messages.
const DefaultSelfID = "1314997214866571284"

type Config struct {
	Discord    DiscordConfig
	LLM        LLMConfig
	Moderation ModerationConfig
	OTel       OTelConfig
	Admin      AdminConfig
	Env        string
	NodeID     int64
}

type DiscordConfig struct {
	Token string
}

type LLMConfig struct {
	Provider   string // "openai" or "anthropic"
	APIKey     string
	BaseURL    string // Optional: OpenAI-compatible server serving the model
	Model      string
	MaxRetries int
	Timeout    time.Duration // Per-classification bound; 0 disables
	Serialize  bool          // Queue classifications one at a time for backends without concurrent inference
}

type ModerationConfig struct {
	SelfID        string
	ChannelMap    map[string]string // guild id -> report channel id
	SummaryLimit  int               // grapheme clusters
	ReportTimeout time.Duration
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	SampleRatio    float64
	ExportLogs     bool
}

type AdminConfig struct {
	Port string // empty disables the admin server
}

type ServiceType string

const (
	ServiceTypeBot      ServiceType = "bot"
	ServiceTypeEvaluate ServiceType = "evaluate"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.bot for the live bot
//   - .env.evaluate for the offline evaluation harness
//
// Falls back to .env if service-specific file doesn't exist.
// Any error here is a start-up failure: the process must not run half configured.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("MODBOT_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	channelMap, err := ParseChannelMap(getEnv("MODBOT_CHANNEL_MAP", DefaultChannelMap))
	if err != nil {
		return Config{}, fmt.Errorf("MODBOT_CHANNEL_MAP: %w", err)
	}

	cfg := Config{
		Env:    getEnv("MODBOT_ENV", "development"),
		NodeID: getEnvInt64("MODBOT_NODE_ID", 1),
		Discord: DiscordConfig{
			Token: getEnv("DISCORD_TOKEN", ""),
		},
		LLM: LLMConfig{
			Provider:   getEnv("LLM_PROVIDER", "openai"),
			APIKey:     getEnv("LLM_API_KEY", ""),
			BaseURL:    getEnv("LLM_BASE_URL", ""),
			Model:      getEnv("LLM_MODEL", "meta-llama/Llama-3.2-3B-Instruct"),
			MaxRetries: getEnvInt("LLM_MAX_RETRIES", 2),
			Timeout:    getEnvDuration("CLASSIFY_TIMEOUT", 30*time.Second),
			Serialize:  getEnvBool("LLM_SERIALIZE", false),
		},
		Moderation: ModerationConfig{
			SelfID:        getEnv("MODBOT_SELF_ID", DefaultSelfID),
			ChannelMap:    channelMap,
			SummaryLimit:  getEnvInt("REPORT_SUMMARY_LIMIT", 512),
			ReportTimeout: getEnvDuration("REPORT_TIMEOUT", 10*time.Second),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "modbot"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
			ExportLogs:     getEnvBool("OTEL_EXPORT_LOGS", true),
		},
		Admin: AdminConfig{
			Port: getEnv("ADMIN_PORT", "8080"),
		},
	}

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("LLM_API_KEY is required")
	}

	if cfg.LLM.Provider != "openai" && cfg.LLM.Provider != "anthropic" {
		return Config{}, fmt.Errorf("LLM_PROVIDER must be openai or anthropic, got %q", cfg.LLM.Provider)
	}

	if cfg.Moderation.SummaryLimit <= 0 {
		return Config{}, fmt.Errorf("REPORT_SUMMARY_LIMIT must be positive")
	}

	if serviceType == ServiceTypeBot && cfg.Discord.Token == "" {
		return Config{}, fmt.Errorf("DISCORD_TOKEN is required")
	}

	return cfg, nil
}

// ParseChannelMap parses "guild:channel,guild:channel". Ids must be numeric
// snowflakes; duplicate guilds and an empty table are rejected.
func ParseChannelMap(s string) (map[string]string, error) {
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		guild, channel, ok := strings.Cut(pair, ":")
		guild, channel = strings.TrimSpace(guild), strings.TrimSpace(channel)
		if !ok || !isSnowflake(guild) || !isSnowflake(channel) {
			return nil, fmt.Errorf("invalid entry %q, want guild_id:channel_id", pair)
		}
		if _, dup := result[guild]; dup {
			return nil, fmt.Errorf("duplicate guild %s", guild)
		}
		result[guild] = channel
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("no channel mappings configured")
	}
	return result, nil
}

func isSnowflake(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c AdminConfig) Enabled() bool {
	return c.Port != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
