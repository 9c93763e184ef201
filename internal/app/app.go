// Package app wires configuration, storage, adapters and features into
// a running service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"

	"deskmate/features/agent"
	"deskmate/features/chat"
	"deskmate/features/document"
	"deskmate/features/run"
	"deskmate/features/stats"
	"deskmate/internal/adapter/gemini"
	"deskmate/internal/adapter/ollama"
	"deskmate/internal/config"
	"deskmate/internal/docwriter"
	"deskmate/internal/ingest"
	"deskmate/internal/middleware"
	"deskmate/internal/retrieval"
	"deskmate/internal/settings"
	"deskmate/internal/vector"
	"deskmate/internal/worker"
)

// Embedder is the surface shared by the ingestion pipeline and retrieval.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type App struct {
	Handler         http.Handler
	DocumentService *document.Service
	IngestConsumer  *worker.IngestConsumer

	port     int
	docsDir  string
	pipeline *ingest.Pipeline
	runs     worker.RunRecorder
}

func New(
	ctx context.Context,
	cfg *config.Config,
	db *sql.DB,
	vecStore vector.Store,
	producer *nsq.Producer,
	logger *slog.Logger,
) (*App, error) {

	// Feature: Settings
	settingsRepo := settings.NewPostgresRepo(db)
	settingsService := settings.NewService(settingsRepo)
	if err := settingsService.Seed(ctx, cfg.GeminiAPIKey, cfg.SearchTopK); err != nil {
		slog.Warn("failed to seed settings", "error", err)
	}
	settingsHandler := settings.NewHandler(settingsService)

	// The key stored in settings wins over the environment; the settings
	// row was just seeded from the environment when it was empty.
	apiKey := cfg.GeminiAPIKey
	topK := cfg.SearchTopK
	if set, err := settingsService.Get(ctx); err == nil {
		if set.GeminiAPIKey != "" {
			apiKey = set.GeminiAPIKey
		}
		if set.SearchTopK > 0 {
			topK = set.SearchTopK
		}
	} else {
		slog.Warn("failed to fetch settings, using environment values", "error", err)
	}

	embedder, err := newEmbedder(ctx, cfg, apiKey)
	if err != nil {
		return nil, fmt.Errorf("embedder init error: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, apiKey, cfg.GeminiChatModel)
	if err != nil {
		return nil, fmt.Errorf("chat model init error: %w", err)
	}

	// Feature: Documents
	docRepo := document.NewPostgresRepo(db)
	documentService := document.NewService(docRepo, producer, cfg.DocsDir)
	documentHandler := document.NewHandler(documentService, int(cfg.MaxUploadSizeMB))

	// Ingestion. The guard is shared with retrieval: the NSQ consumer runs
	// rebuilds on its own goroutine while the HTTP server keeps serving
	// /chat, so queries must wait out an in-progress wipe-and-rebuild.
	indexGuard := &sync.RWMutex{}
	pipeline := ingest.NewPipeline(vecStore, embedder, documentService, ingest.Options{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		BatchSize:    cfg.EmbedBatchSize,
		Guard:        indexGuard,
	})

	runRepo := run.NewPostgresRepo(db)
	runHandler := run.NewHandler(runRepo)
	runs := &runRecorderAdapter{repo: runRepo}
	ingestConsumer := worker.NewIngestConsumer(pipeline, runs, cfg.DocsDir)

	// Feature: Retrieval
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore, topK, indexGuard, queryLogger)

	// Feature: Agent & Chat
	registry := agent.NewRegistry()
	capabilities := []agent.Capability{
		agent.KnowledgeBaseTool(retrievalService, topK),
		agent.WebSearchTool(nil, ""),
		agent.TodaysDateTool(nil),
		agent.CreateDocumentTool(docwriter.NewWriter(cfg.OutputDir)),
	}
	for _, c := range capabilities {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("tool registration error: %w", err)
		}
	}

	toolTimeout := time.Duration(cfg.ToolTimeoutSeconds) * time.Second
	agentService := agent.NewService(chatModel, registry, "", toolTimeout)
	chatHandler := chat.NewHandler(agentService)

	// Feature: Stats
	statsHandler := stats.NewHandler(docRepo, vecStore)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(documentHandler.Upload)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(documentHandler.List)))
	mux.Handle("DELETE /documents/{id}", middleware.CorrelationID(enableCORS(documentHandler.Delete)))
	mux.Handle("POST /ingest", middleware.CorrelationID(enableCORS(documentHandler.TriggerIngest)))

	mux.Handle("GET /runs", middleware.CorrelationID(enableCORS(runHandler.List)))
	mux.Handle("GET /runs/latest", middleware.CorrelationID(enableCORS(runHandler.Latest)))
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.Handle("GET /settings", middleware.CorrelationID(enableCORS(settingsHandler.GetSettings)))
	mux.Handle("PUT /settings", middleware.CorrelationID(enableCORS(settingsHandler.UpdateSettings)))

	mux.Handle("POST /chat", middleware.CorrelationID(enableCORS(chatHandler.Chat)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:         mux,
		DocumentService: documentService,
		IngestConsumer:  ingestConsumer,
		port:            cfg.ServerPort,
		docsDir:         cfg.DocsDir,
		pipeline:        pipeline,
		runs:            runs,
	}, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config, apiKey string) (Embedder, error) {
	if cfg.EmbedBackend == "ollama" {
		return ollama.NewEmbedder(cfg.OllamaURL, cfg.OllamaEmbedModel), nil
	}
	return gemini.NewEmbedder(ctx, apiKey, cfg.GeminiEmbedModel)
}

// Reingest rebuilds the index synchronously and records the run. Used by
// the CLI path; the HTTP path goes through NSQ instead.
func (a *App) Reingest(ctx context.Context) (*ingest.Report, error) {
	report, err := a.pipeline.Run(ctx, a.docsDir)
	if recErr := a.runs.Record(ctx, report, err); recErr != nil {
		slog.WarnContext(ctx, "failed to record ingestion run", "error", recErr)
	}
	return report, err
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type runRecorderAdapter struct {
	repo run.Repository
}

func (a *runRecorderAdapter) Record(ctx context.Context, report *ingest.Report, runErr error) error {
	return a.repo.Save(ctx, run.FromReport(report, runErr))
}
