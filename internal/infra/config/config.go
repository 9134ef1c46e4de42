package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	FAQ       FAQConfig       `yaml:"faq"`
	Chat      ChatConfig      `yaml:"chat"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address         string          `yaml:"address"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	AllowedOrigins  []string        `yaml:"allowedOrigins"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
	Retry           RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains ChatGPT/OpenAI compatible settings.
type LLMConfig struct {
	APIKey      string         `yaml:"apiKey"`
	BaseURL     string         `yaml:"baseUrl"`
	Model       string         `yaml:"model"`
	Temperature float32        `yaml:"temperature"`
	MaxTokens   int            `yaml:"maxTokens"`
	Retry       LLMRetryConfig `yaml:"retry"`
}

// LLMRetryConfig bounds the outbound completion call.
type LLMRetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	MaxDelay    time.Duration `yaml:"maxDelay"`
	Timeout     time.Duration `yaml:"timeout"`
}

// EmbeddingConfig lists embedding providers in fallback order.
type EmbeddingConfig struct {
	Providers     []string            `yaml:"providers"`
	Timeout       time.Duration       `yaml:"timeout"`
	Cohere        ProviderCredentials `yaml:"cohere"`
	HuggingFace   ProviderCredentials `yaml:"huggingface"`
	OpenAI        OpenAIEmbedding     `yaml:"openai"`
	Deterministic DeterministicConfig `yaml:"deterministic"`
}

// ProviderCredentials holds a hosted embedding API's key and model.
type ProviderCredentials struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseUrl"`
}

// OpenAIEmbedding reuses the llm credentials.
type OpenAIEmbedding struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// DeterministicConfig sizes the offline hash embedder.
type DeterministicConfig struct {
	Dimensions int `yaml:"dimensions"`
}

// FAQConfig controls FAQ retrieval, caching and storage.
type FAQConfig struct {
	TopK         int            `yaml:"topK"`
	CacheTTL     time.Duration  `yaml:"cacheTtl"`
	CacheTimeout time.Duration  `yaml:"cacheTimeout"`
	EmbedTimeout time.Duration  `yaml:"embedTimeout"`
	LoadTimeout  time.Duration  `yaml:"loadTimeout"`
	MemoryCache  bool           `yaml:"memoryCache"`
	SeedOnStart  bool           `yaml:"seedOnStart"`
	Redis        RedisConfig    `yaml:"redis"`
	Postgres     PostgresConfig `yaml:"postgres"`
	Corpus       CorpusConfig   `yaml:"corpus"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// CorpusConfig points the seeder at a corpus. Empty means the built-in one.
type CorpusConfig struct {
	Path   string       `yaml:"path"`
	Object ObjectConfig `yaml:"object"`
}

// ObjectConfig locates a corpus in S3-compatible storage.
type ObjectConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Key       string `yaml:"key"`
}

// Enabled reports whether an object corpus is configured.
func (o ObjectConfig) Enabled() bool {
	return o.Bucket != "" && o.Key != ""
}

// ChatConfig tunes the conversation flow.
type ChatConfig struct {
	MaxMessageLength int            `yaml:"maxMessageLength"`
	HistoryLimit     int            `yaml:"historyLimit"`
	HistoryTokens    int            `yaml:"historyTokens"`
	SuggestionLimit  int            `yaml:"suggestionLimit"`
	SystemPrompt     string         `yaml:"systemPrompt"`
	Postgres         PostgresConfig `yaml:"postgres"`
}

// Load reads .env, then a YAML file, then environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setDuration(&cfg.HTTP.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")
	setBool(&cfg.HTTP.Retry.Enabled, "HTTP_RETRY_ENABLED")
	setInt(&cfg.HTTP.Retry.MaxAttempts, "HTTP_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.HTTP.Retry.BaseBackoff, "HTTP_RETRY_BASE_BACKOFF")

	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	setInt(&cfg.LLM.MaxTokens, "LLM_MAX_TOKENS")
	setInt(&cfg.LLM.Retry.MaxAttempts, "LLM_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.LLM.Retry.Timeout, "LLM_TIMEOUT")

	if v := os.Getenv("EMBEDDING_PROVIDERS"); v != "" {
		cfg.Embedding.Providers = splitList(v)
	}
	setDuration(&cfg.Embedding.Timeout, "EMBEDDING_TIMEOUT")
	setString(&cfg.Embedding.Cohere.APIKey, "COHERE_API_KEY")
	setString(&cfg.Embedding.Cohere.Model, "COHERE_EMBEDDING_MODEL")
	setString(&cfg.Embedding.HuggingFace.APIKey, "HUGGINGFACE_API_KEY")
	setString(&cfg.Embedding.HuggingFace.Model, "HF_EMBEDDING_MODEL")
	setString(&cfg.Embedding.OpenAI.Model, "OPENAI_EMBEDDING_MODEL")
	setInt(&cfg.Embedding.Deterministic.Dimensions, "DETERMINISTIC_EMBEDDING_DIMENSIONS")

	setInt(&cfg.FAQ.TopK, "FAQ_TOP_K")
	setDuration(&cfg.FAQ.CacheTTL, "FAQ_CACHE_TTL")
	setDuration(&cfg.FAQ.CacheTimeout, "FAQ_CACHE_TIMEOUT")
	setDuration(&cfg.FAQ.EmbedTimeout, "FAQ_EMBED_TIMEOUT")
	setDuration(&cfg.FAQ.LoadTimeout, "FAQ_LOAD_TIMEOUT")
	setBool(&cfg.FAQ.MemoryCache, "FAQ_MEMORY_CACHE")
	setBool(&cfg.FAQ.SeedOnStart, "FAQ_SEED_ON_START")
	setBool(&cfg.FAQ.Redis.Enabled, "FAQ_REDIS_ENABLED")
	setString(&cfg.FAQ.Redis.Addr, "FAQ_REDIS_ADDR")
	setString(&cfg.FAQ.Postgres.DSN, "FAQ_POSTGRES_DSN")
	setInt32(&cfg.FAQ.Postgres.MaxConns, "FAQ_POSTGRES_MAX_CONNS")
	setInt32(&cfg.FAQ.Postgres.MinConns, "FAQ_POSTGRES_MIN_CONNS")
	setString(&cfg.FAQ.Corpus.Path, "FAQ_CORPUS_PATH")
	setString(&cfg.FAQ.Corpus.Object.Endpoint, "FAQ_CORPUS_ENDPOINT")
	setString(&cfg.FAQ.Corpus.Object.AccessKey, "FAQ_CORPUS_ACCESS_KEY")
	setString(&cfg.FAQ.Corpus.Object.SecretKey, "FAQ_CORPUS_SECRET_KEY")
	setString(&cfg.FAQ.Corpus.Object.Bucket, "FAQ_CORPUS_BUCKET")
	setString(&cfg.FAQ.Corpus.Object.Region, "FAQ_CORPUS_REGION")
	setString(&cfg.FAQ.Corpus.Object.Key, "FAQ_CORPUS_KEY")

	setInt(&cfg.Chat.MaxMessageLength, "MAX_MESSAGE_LENGTH")
	setInt(&cfg.Chat.HistoryLimit, "MESSAGE_HISTORY_LIMIT")
	setInt(&cfg.Chat.HistoryTokens, "CHAT_HISTORY_TOKENS")
	setInt(&cfg.Chat.SuggestionLimit, "CHAT_SUGGESTION_LIMIT")
	setString(&cfg.Chat.SystemPrompt, "CHAT_SYSTEM_PROMPT")
	setString(&cfg.Chat.Postgres.DSN, "CHAT_POSTGRES_DSN")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = int32(parsed)
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:3000"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/chat/message",
				},
			},
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   500,
			Retry: LLMRetryConfig{
				MaxAttempts: 3,
				BaseDelay:   time.Second,
				MaxDelay:    10 * time.Second,
				Timeout:     30 * time.Second,
			},
		},
		Embedding: EmbeddingConfig{
			Providers: []string{"cohere", "huggingface"},
			Timeout:   30 * time.Second,
			Cohere: ProviderCredentials{
				Model: "embed-english-v3.0",
			},
			HuggingFace: ProviderCredentials{
				Model: "sentence-transformers/all-MiniLM-L6-v2",
			},
			OpenAI: OpenAIEmbedding{
				Model: "text-embedding-3-small",
			},
			Deterministic: DeterministicConfig{
				Dimensions: 256,
			},
		},
		FAQ: FAQConfig{
			TopK:         3,
			CacheTTL:     time.Hour,
			CacheTimeout: 2 * time.Second,
			EmbedTimeout: 30 * time.Second,
			LoadTimeout:  10 * time.Second,
			MemoryCache:  true,
			SeedOnStart:  true,
			Redis: RedisConfig{
				Enabled: false,
				Prefix:  "supportdesk",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
				MinConns: 0,
			},
		},
		Chat: ChatConfig{
			MaxMessageLength: 2000,
			HistoryLimit:     10,
			HistoryTokens:    2000,
			SuggestionLimit:  4,
		},
	}
}

var knownProviders = map[string]struct{}{
	"cohere":        {},
	"huggingface":   {},
	"openai":        {},
	"deterministic": {},
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if c.LLM.MaxTokens < 0 {
		return errors.New("llm.maxTokens cannot be negative")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	for _, name := range c.Embedding.Providers {
		if _, ok := knownProviders[strings.ToLower(name)]; !ok {
			return fmt.Errorf("embedding.providers: unknown provider %q", name)
		}
	}
	if c.FAQ.TopK <= 0 {
		return errors.New("faq.topK must be positive")
	}
	if c.FAQ.CacheTTL < 0 {
		return errors.New("faq.cacheTtl cannot be negative")
	}
	if c.FAQ.CacheTimeout < 0 || c.FAQ.EmbedTimeout < 0 || c.FAQ.LoadTimeout < 0 {
		return errors.New("faq timeouts cannot be negative")
	}
	if c.FAQ.Redis.Enabled && strings.TrimSpace(c.FAQ.Redis.Addr) == "" {
		return errors.New("faq.redis.addr cannot be empty when redis cache is enabled")
	}
	if c.Chat.MaxMessageLength <= 0 {
		return errors.New("chat.maxMessageLength must be positive")
	}
	if c.Chat.HistoryLimit < 0 {
		return errors.New("chat.historyLimit cannot be negative")
	}
	return nil
}
