package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int               `json:"port"`
	LogConfig   logger.LogConfig  `json:"log_config"`
	API         APIConfig         `json:"api"`
	AI          AIConfig          `json:"ai"`
	Ingest      IngestConfig      `json:"ingest"`
	Retrieval   RetrievalConfig   `json:"retrieval"`
	Scoring     ScoringConfig     `json:"scoring"`
	Session     SessionConfig     `json:"session"`
	VectorStore VectorStoreConfig `json:"vector_store"`
	FileStore   FileStoreConfig   `json:"file_store"`
	Database    DatabaseConfig    `json:"database"`
	Events      EventsConfig      `json:"events"`
}

type APIConfig struct {
	APIKeys           []string `json:"api_keys"`
	APIKeyHashes      []string `json:"api_key_hashes"`
	CORSOrigins       []string `json:"cors_origins"`
	UploadRateLimitMs int      `json:"upload_rate_limit_ms"`
	MaxUploadBytes    int64    `json:"max_upload_bytes"`
}

type ProviderConfig struct {
	Name     string      `json:"name"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Generator            []ProviderConfig `json:"generator"`
	Embedder             []ProviderConfig `json:"embedder"`
	TimeoutSeconds       int              `json:"timeout"`
	GenerativeRetries    *int             `json:"generative_retries"`
	EmbedCacheSize       int              `json:"embed_cache_size"`
	EmbedCacheTTLMinutes int              `json:"embed_cache_ttl_minutes"`
	PersistEmbedCache    bool             `json:"persist_embed_cache"`
}

type IngestConfig struct {
	ChunkSize        int     `json:"chunk_size"`
	ChunkOverlap     float64 `json:"chunk_overlap"`
	MaxDocuments     int     `json:"max_documents"`
	MaxDocumentBytes int64   `json:"max_document_bytes"`
	MaxTotalChunks   int     `json:"max_total_chunks"`
	EmbedConcurrency int     `json:"embed_concurrency"`
}

type RetrievalConfig struct {
	MaxAttempts    int `json:"max_attempts"`
	TimeoutSeconds int `json:"timeout"`
	BackoffMs      int `json:"backoff_ms"`
}

type ScoringConfig struct {
	TopK            int     `json:"top_k"`
	MinRelevance    float64 `json:"min_relevance"`
	EvidenceCeiling float64 `json:"evidence_ceiling"`
}

type SessionConfig struct {
	Store          string      `json:"store"`
	Data           interface{} `json:"data"`
	RetentionHours int         `json:"retention_hours"`
	EvictionCron   string      `json:"eviction_cron"`
	MaxSessions    int         `json:"max_sessions"`
}

type VectorStoreConfig struct {
	Type string `json:"type"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

func (c DatabaseConfig) Enabled() bool {
	return c.DSN != "" || c.Host != ""
}

type EventsConfig struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config suitable for offline runs: memory stores and the
// local hashing embedder.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.normalize()
	return cfg
}

func (c *Config) normalize() error {
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.API.UploadRateLimitMs == 0 {
		c.API.UploadRateLimitMs = 1000
	}
	if c.API.MaxUploadBytes == 0 {
		c.API.MaxUploadBytes = 100 << 20
	}

	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 60
	}
	if c.AI.GenerativeRetries == nil {
		retries := 1
		c.AI.GenerativeRetries = &retries
	}
	if *c.AI.GenerativeRetries < 0 || *c.AI.GenerativeRetries > 1 {
		return fmt.Errorf("ai.generative_retries must be 0 or 1")
	}
	if c.AI.EmbedCacheSize == 0 {
		c.AI.EmbedCacheSize = 4096
	}
	if c.AI.EmbedCacheTTLMinutes == 0 {
		c.AI.EmbedCacheTTLMinutes = 60
	}
	if len(c.AI.Embedder) == 0 {
		c.AI.Embedder = []ProviderConfig{{Name: "local", Provider: "local"}}
	}
	for i, p := range c.AI.Generator {
		if strings.TrimSpace(p.Provider) == "" {
			return fmt.Errorf("ai.generator[%d].provider is required", i)
		}
	}
	for i, p := range c.AI.Embedder {
		if strings.TrimSpace(p.Provider) == "" {
			return fmt.Errorf("ai.embedder[%d].provider is required", i)
		}
	}

	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Ingest.ChunkOverlap == 0 {
		c.Ingest.ChunkOverlap = 0.15
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= 1 {
		return fmt.Errorf("ingest.chunk_overlap must be in [0,1)")
	}
	if c.Ingest.MaxDocuments == 0 {
		c.Ingest.MaxDocuments = 20
	}
	if c.Ingest.MaxDocumentBytes == 0 {
		c.Ingest.MaxDocumentBytes = 20 << 20
	}
	if c.Ingest.MaxTotalChunks == 0 {
		c.Ingest.MaxTotalChunks = 2000
	}
	if c.Ingest.EmbedConcurrency == 0 {
		c.Ingest.EmbedConcurrency = 4
	}

	if c.Retrieval.MaxAttempts == 0 {
		c.Retrieval.MaxAttempts = 3
	}
	if c.Retrieval.TimeoutSeconds == 0 {
		c.Retrieval.TimeoutSeconds = 30
	}
	if c.Retrieval.BackoffMs == 0 {
		c.Retrieval.BackoffMs = 500
	}

	if c.Scoring.TopK == 0 {
		c.Scoring.TopK = 8
	}
	if c.Scoring.MinRelevance == 0 {
		c.Scoring.MinRelevance = 0.2
	}
	if c.Scoring.EvidenceCeiling == 0 {
		c.Scoring.EvidenceCeiling = 4.0
	}
	if c.Scoring.EvidenceCeiling < 0 || c.Scoring.EvidenceCeiling > 10 {
		return fmt.Errorf("scoring.evidence_ceiling must be in [0,10]")
	}

	if c.Session.Store == "" {
		c.Session.Store = "memory"
	}
	if c.Session.RetentionHours == 0 {
		c.Session.RetentionHours = 24
	}
	if c.Session.EvictionCron == "" {
		c.Session.EvictionCron = "*/10 * * * *"
	}
	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = 1000
	}

	if c.VectorStore.Type == "" {
		c.VectorStore.Type = "memory"
	}
	switch c.VectorStore.Type {
	case "memory":
	case "pgvector":
		if !c.Database.Enabled() {
			return fmt.Errorf("database is required for pgvector vector store")
		}
	default:
		return fmt.Errorf("vector_store.type must be memory or pgvector")
	}
	if c.Session.Store == "postgres" && !c.Database.Enabled() {
		return fmt.Errorf("database is required for postgres session store")
	}
	if c.AI.PersistEmbedCache && !c.Database.Enabled() {
		return fmt.Errorf("database is required for persist_embed_cache")
	}

	if c.FileStore.Type == "" {
		c.FileStore.Type = "none"
	}

	if c.Events.Type == "" {
		c.Events.Type = "noop"
	}
	switch c.Events.Type {
	case "noop":
	case "nats":
		if c.Events.URL == "" {
			return fmt.Errorf("events.url is required for nats")
		}
		if c.Events.Subject == "" {
			c.Events.Subject = "readiness.sessions"
		}
	default:
		return fmt.Errorf("events.type must be noop or nats")
	}
	return nil
}
