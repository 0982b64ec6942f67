package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/oceanward/reefguide/api"
	"github.com/oceanward/reefguide/db"
	"github.com/oceanward/reefguide/internal/chat"
	"github.com/oceanward/reefguide/internal/config"
	"github.com/oceanward/reefguide/internal/database"
	"github.com/oceanward/reefguide/internal/embed"
	"github.com/oceanward/reefguide/internal/llm"
	"github.com/oceanward/reefguide/internal/log"
	"github.com/oceanward/reefguide/internal/retrieval"
	"github.com/oceanward/reefguide/internal/session"
	"github.com/oceanward/reefguide/internal/vectorstore"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := db.Migrate(cfg.PostgresURL()); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		pool, err := database.New(ctx, cfg.PostgresConnectionString(), logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		server, err := buildServer(ctx, cfg, pool, logger)
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}
		return server.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// buildServer wires the request path: embedder, vector store,
// retrieval, sessions, model provider, orchestrator.
func buildServer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger log.Logger) (*api.Server, error) {
	embedder, err := embed.NewGemini(ctx, cfg.GeminiAPIKey, cfg.EmbedderModel, cfg.EmbedderDimension, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	store := vectorstore.New(pool, cfg.EmbedderDimension, logger)
	retriever := retrieval.New(embedder, store, logger)
	sessions := session.New(pool, cfg.SessionTTL, cfg.MaxHistoryEntries, logger)

	provider, err := llm.NewRegistry().Provider(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create model provider: %w", err)
	}

	orchestrator := chat.New(sessions, retriever, provider, chat.Options{
		MaxMessageLength: cfg.MaxMessageLength,
		TopK:             cfg.RetrievalTopK,
		MinSimilarity:    float64(cfg.RetrievalMinSimilarity),
	}, logger)

	return api.NewServer(orchestrator, sessions, pool, logger, cfg.IsProduction()), nil
}
