package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/oceanward/reefguide/db"
	"github.com/oceanward/reefguide/internal/chunk"
	"github.com/oceanward/reefguide/internal/database"
	"github.com/oceanward/reefguide/internal/embed"
	"github.com/oceanward/reefguide/internal/ingest"
	"github.com/oceanward/reefguide/internal/vectorstore"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <content-dir>",
	Short: "Load markdown documents into the knowledge base",
	Long: `Ingest walks a directory of markdown documents, splits them into
chunks, embeds each chunk, and stores the vectors for retrieval.

Documents already in the knowledge base are skipped by content path;
use --force to re-chunk and replace them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		ctx := cmd.Context()

		// One ingestion run at a time per machine.
		lockPath := filepath.Join(os.TempDir(), "reefguide-ingest.lock")
		lock := flock.New(lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire ingest lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another ingestion run holds %s", lockPath)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn("failed to release ingest lock", "error", err)
			}
		}()

		if err := db.Migrate(cfg.PostgresURL()); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		pool, err := database.New(ctx, cfg.PostgresConnectionString(), logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		embedder, err := embed.NewGemini(ctx, cfg.GeminiAPIKey, cfg.EmbedderModel, cfg.EmbedderDimension, logger)
		if err != nil {
			return fmt.Errorf("create embedder: %w", err)
		}

		store := vectorstore.New(pool, cfg.EmbedderDimension, logger)
		pipeline := ingest.New(embedder, store, chunk.Options{
			MinTokens:    cfg.ChunkMinTokens,
			TargetTokens: cfg.ChunkTargetTokens,
			MaxTokens:    cfg.ChunkMaxTokens,
		}, logger)

		result, err := pipeline.Run(ctx, os.DirFS(args[0]), ingestForce)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"ingested %d files (%d chunks), skipped %d, failed %d in %s\n",
			result.FilesAdded, result.ChunksAdded, result.FilesSkipped,
			result.FilesFailed, result.Duration.Round(time.Millisecond))
		if result.FilesFailed > 0 {
			return fmt.Errorf("%d files failed to ingest", result.FilesFailed)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "replace documents already in the knowledge base")
	rootCmd.AddCommand(ingestCmd)
}
