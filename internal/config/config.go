package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string
	LogLevel string

	DataDir     string
	CatalogPath string

	PostgresDSN string

	NATSURL            string
	NATSRebuildSubject string
	NATSRebuiltSubject string

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	RerankProvider    string
	OpenAIBaseURL     string
	OpenAIAPIKey      string
	OpenAIModel       string
	RerankTimeout     time.Duration
	RerankTemperature float64
	RerankMaxTokens   int

	VectorBackend    string
	QdrantURL        string
	QdrantCollection string
	BadgerPath       string

	SearchResultLimit int
	SemanticTopK      int
	SearchWorkers     int
	EmbedBatchSize    int

	SerpAPIURL   string
	SerpAPIKey   string
	OfferCountry string
	OfferTimeout time.Duration
	OfferWorkers int

	TMDBAPIURL    string
	TMDBAPIToken  string
	TMDBMaxPages  int
	TMDBRateRPS   float64
	TMDBRateBurst int

	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int

	WorkerMetricsPort string

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	BreakerEnabled      bool
}

// Load reads configuration from the environment. When CONFIG_FILE names a
// flat YAML map of the same keys, its values fill in keys the environment
// leaves empty.
func Load() (Config, error) {
	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}
	return src.load(), nil
}

func (s source) load() Config {
	return Config{
		APIPort:  s.mustEnv("API_PORT", "8080"),
		LogLevel: s.mustEnv("LOG_LEVEL", "info"),

		DataDir:     s.mustEnv("DATA_DIR", "./data"),
		CatalogPath: s.mustEnv("CATALOG_PATH", "tmdb_movies_full_credits.json"),

		PostgresDSN: s.mustEnv("POSTGRES_DSN", ""),

		NATSURL:            s.mustEnv("NATS_URL", ""),
		NATSRebuildSubject: s.mustEnv("NATS_REBUILD_SUBJECT", "catalog.rebuild"),
		NATSRebuiltSubject: s.mustEnv("NATS_REBUILT_SUBJECT", "catalog.rebuilt"),

		OllamaURL:        s.mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   s.mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: s.mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		RerankProvider:    s.mustEnv("RERANK_PROVIDER", "ollama"),
		OpenAIBaseURL:     s.mustEnv("OPENAI_BASE_URL", ""),
		OpenAIAPIKey:      s.mustEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       s.mustEnv("OPENAI_MODEL", "gpt-4o-mini"),
		RerankTimeout:     s.mustEnvDuration("RERANK_TIMEOUT", 60*time.Second),
		RerankTemperature: s.mustEnvFloat("RERANK_TEMPERATURE", 0.7),
		RerankMaxTokens:   s.mustEnvInt("RERANK_MAX_TOKENS", 1024),

		VectorBackend:    s.mustEnv("VECTOR_BACKEND", "qdrant"),
		QdrantURL:        s.mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: s.mustEnv("QDRANT_COLLECTION", "movies"),
		BadgerPath:       s.mustEnv("BADGER_PATH", "./data/vectors"),

		SearchResultLimit: s.mustEnvInt("SEARCH_RESULT_LIMIT", 5),
		SemanticTopK:      s.mustEnvInt("SEMANTIC_TOP_K", 15),
		SearchWorkers:     s.mustEnvInt("SEARCH_WORKERS", 8),
		EmbedBatchSize:    s.mustEnvInt("EMBED_BATCH_SIZE", 20),

		SerpAPIURL:   s.mustEnv("SERPAPI_URL", "https://serpapi.com"),
		SerpAPIKey:   s.mustEnv("SERPAPI_KEY", ""),
		OfferCountry: s.mustEnv("OFFER_COUNTRY", "United States"),
		OfferTimeout: s.mustEnvDuration("OFFER_TIMEOUT", 15*time.Second),
		OfferWorkers: s.mustEnvInt("OFFER_WORKERS", 5),

		TMDBAPIURL:    s.mustEnv("TMDB_API_URL", "https://api.themoviedb.org/3"),
		TMDBAPIToken:  s.mustEnv("TMDB_API_TOKEN", ""),
		TMDBMaxPages:  s.mustEnvInt("TMDB_MAX_PAGES", 5),
		TMDBRateRPS:   s.mustEnvFloat("TMDB_RATE_RPS", 20),
		TMDBRateBurst: s.mustEnvInt("TMDB_RATE_BURST", 5),

		APIRateLimitRPS:   s.mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: s.mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:    s.mustEnvInt("API_MAX_IN_FLIGHT", 32),

		WorkerMetricsPort: s.mustEnv("WORKER_METRICS_PORT", "9090"),

		RetryMaxAttempts:    s.mustEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoff: s.mustEnvDuration("RETRY_INITIAL_BACKOFF", 200*time.Millisecond),
		BreakerEnabled:      s.mustEnvBool("BREAKER_ENABLED", true),
	}
}

// source resolves a key from the environment first, then the optional file.
type source struct {
	file map[string]string
}

func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	values := make(map[string]string, len(decoded))
	for key, value := range decoded {
		if value == nil {
			continue
		}
		values[key] = fmt.Sprint(value)
	}
	return values, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("15s") and bare seconds ("15").
func (s source) mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
