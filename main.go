package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nsqio/go-nsq"

	"deskmate/internal/app"
	"deskmate/internal/config"
	"deskmate/internal/ingest"
	"deskmate/internal/logger"
)

func main() {
	reingest := flag.Bool("reingest", false, "rebuild the vector index from the document directory and exit")
	flag.Parse()

	// Initialize structured logger
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("failed to bootstrap", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	a, err := app.New(ctx, cfg, deps.DB, deps.VectorStore, deps.NSQProducer, log)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	if *reingest {
		report, err := a.Reingest(ctx)
		if report != nil {
			fmt.Print(formatReport(report))
		}
		if err != nil {
			slog.Error("reingestion failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Ingest Consumer
	// MaxInFlight 1: a rebuild wipes the index first, so runs must never overlap.
	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxInFlight = 1
	consumer, err := nsq.NewConsumer(config.TopicIngestRequest, config.ChannelIngest, nsqCfg)
	if err != nil {
		slog.Error("failed to create NSQ consumer", "error", err)
		os.Exit(1)
	}
	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		return a.IngestConsumer.HandleMessage(m)
	}))
	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		slog.Error("failed to connect to NSQLookupd", "error", err)
	} else {
		slog.Info("NSQ ingest consumer connected")
	}
	defer consumer.Stop()

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// formatReport renders an ingestion report for the console, one line per
// failed file after the summary.
func formatReport(r *ingest.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed %d files, wrote %d chunks in %s\n",
		r.FilesProcessed, r.ChunksWritten, r.Duration.Round(time.Millisecond))
	for _, fe := range r.Errors {
		fmt.Fprintf(&b, "  failed %s: %s\n", fe.File, fe.Err)
	}
	return b.String()
}
