package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/courserag/config"
	"github.com/mohammad-safakhou/courserag/internal/index"
	"github.com/mohammad-safakhou/courserag/internal/ingest"
	"github.com/mohammad-safakhou/courserag/internal/rag"
	"github.com/mohammad-safakhou/courserag/internal/server"
	"github.com/mohammad-safakhou/courserag/internal/telemetry"
	anthropic_provider "github.com/mohammad-safakhou/courserag/provider/anthropic"
	openai_provider "github.com/mohammad-safakhou/courserag/provider/openai"
	"github.com/mohammad-safakhou/courserag/session"
	"github.com/mohammad-safakhou/courserag/session/inmemory"
	redis_session "github.com/mohammad-safakhou/courserag/session/redis"
	"github.com/mohammad-safakhou/courserag/tools"
)

func main() {
	var cfgPath string

	root := &cobra.Command{Use: "courserag"}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Ingest the docs folder and run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	var clearExisting bool
	ingestCmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Ingest a course document or a folder of documents into the index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			path := cfg.Ingest.DocsDir
			if len(args) == 1 {
				path = args[0]
			}
			return runIngest(cmd.Context(), cfg, path, clearExisting)
		},
	}
	ingestCmd.Flags().BoolVar(&clearExisting, "clear", false, "clear the existing index before ingesting")

	root.AddCommand(serve, ingestCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildIndex(cfg *config.Config) (*index.Hybrid, error) {
	embedder := openai_provider.NewClient(cfg.Embedding)
	return index.NewHybrid(embedder, index.Options{
		ConfidenceFloor: cfg.Search.ConfidenceFloor,
		SnapshotPath:    cfg.Ingest.IndexPath,
		Logger:          telemetry.NewLogger("INDEX"),
	})
}

func buildSessions(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch session.StoreType(cfg.Session.Backend) {
	case session.RedisStore:
		return redis_session.NewStore(ctx, cfg.Session.Redis, cfg.Session.MaxHistory)
	default:
		return inmemory.NewStore(cfg.Session.MaxHistory), nil
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	idx, err := buildIndex(cfg)
	if err != nil {
		return err
	}

	chunker := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	ingestor := ingest.NewIngestor(idx, chunker, telemetry.NewLogger("INGEST"))
	if cfg.Ingest.DocsDir != "" {
		if _, err := os.Stat(cfg.Ingest.DocsDir); err == nil {
			res, err := ingestor.IngestFolder(ctx, cfg.Ingest.DocsDir, false)
			if err != nil {
				return fmt.Errorf("startup ingestion: %w", err)
			}
			if res.CoursesAdded > 0 {
				if err := idx.SaveSnapshot(); err != nil {
					return err
				}
			}
		}
	}

	sessions, err := buildSessions(ctx, cfg)
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewSearchTool(idx, cfg.Search.MaxResults)); err != nil {
		return err
	}
	if err := registry.Register(tools.NewOutlineTool(idx)); err != nil {
		return err
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)
	completer := anthropic_provider.NewClient(cfg.LLM)
	generator := rag.NewGenerator(completer, registry, tele, telemetry.NewLogger("RAG"))
	pipeline := rag.NewPipeline(generator, sessions, tele, telemetry.NewLogger("QUERY"))

	e := server.New(server.Deps{
		Query:    pipeline,
		Index:    idx,
		Sessions: sessions,
		Logger:   telemetry.NewLogger("HTTP"),
	})
	return e.Start(cfg.Server.Address)
}

func runIngest(ctx context.Context, cfg *config.Config, path string, clearExisting bool) error {
	idx, err := buildIndex(cfg)
	if err != nil {
		return err
	}
	chunker := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	ingestor := ingest.NewIngestor(idx, chunker, telemetry.NewLogger("INGEST"))

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		course, chunks, err := ingestor.IngestDocument(ctx, path, string(raw))
		if err != nil {
			return err
		}
		if err := idx.SaveSnapshot(); err != nil {
			return err
		}
		fmt.Printf("added course %q (%d chunks)\n", course.Title, chunks)
		return nil
	}

	res, err := ingestor.IngestFolder(ctx, path, clearExisting)
	if err != nil {
		return err
	}
	if err := idx.SaveSnapshot(); err != nil {
		return err
	}
	fmt.Printf("courses added: %d, skipped: %d, chunks: %d, failures: %d\n",
		res.CoursesAdded, res.CoursesSkipped, res.ChunksAdded, res.Failures)
	return nil
}
