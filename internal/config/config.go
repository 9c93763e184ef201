package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"deskmate"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"deskmate"`

	// Corpus layout. Source documents live in DocsDir; the vector index
	// persists under IndexDir and survives restarts.
	DocsDir   string `envconfig:"DOCS_DIR" default:"./data/docs"`
	IndexDir  string `envconfig:"INDEX_DIR" default:"./data/index"`
	OutputDir string `envconfig:"OUTPUT_DIR" default:"./data/out"`

	// VectorBackend selects the index implementation: "chromem" (embedded,
	// on-disk) or "weaviate" (remote).
	VectorBackend  string `envconfig:"VECTOR_BACKEND" default:"chromem"`
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	// EmbedBackend selects the embedding model: "gemini" (remote) or
	// "ollama" (local). Switching backends requires a full re-ingestion;
	// vectors from different models must never be mixed in one index.
	EmbedBackend     string `envconfig:"EMBED_BACKEND" default:"gemini"`
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY"`
	GeminiChatModel  string `envconfig:"GEMINI_CHAT_MODEL" default:"gemini-2.0-flash"`
	GeminiEmbedModel string `envconfig:"GEMINI_EMBED_MODEL" default:"gemini-embedding-001"`
	OllamaURL        string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	OllamaEmbedModel string `envconfig:"OLLAMA_EMBED_MODEL" default:"nomic-embed-text"`

	ChunkSize      int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap   int `envconfig:"CHUNK_OVERLAP" default:"200"`
	EmbedBatchSize int `envconfig:"EMBED_BATCH_SIZE" default:"64"`
	SearchTopK     int `envconfig:"SEARCH_TOP_K" default:"10"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	ServerPort      int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	MigrationPath   string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Per-capability timeout for agent tool invocations.
	ToolTimeoutSeconds int `envconfig:"TOOL_TIMEOUT_SECONDS" default:"30"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may come from the shell instead; a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DocsDir == "" {
		return fmt.Errorf("%w: DOCS_DIR", ErrMissingRequired)
	}
	if c.IndexDir == "" {
		return fmt.Errorf("%w: INDEX_DIR", ErrMissingRequired)
	}
	switch c.VectorBackend {
	case "chromem", "weaviate":
	default:
		return fmt.Errorf("unknown VECTOR_BACKEND %q (want chromem or weaviate)", c.VectorBackend)
	}
	switch c.EmbedBackend {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("unknown EMBED_BACKEND %q (want gemini or ollama)", c.EmbedBackend)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}
