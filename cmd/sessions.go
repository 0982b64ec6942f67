package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oceanward/reefguide/internal/database"
	"github.com/oceanward/reefguide/internal/session"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List live conversation sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		ctx := cmd.Context()

		pool, err := database.New(ctx, cfg.PostgresConnectionString(), logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		store := session.New(pool, cfg.SessionTTL, cfg.MaxHistoryEntries, logger)
		sessions, err := store.List(ctx, sessionsLimit)
		if err != nil {
			return err
		}

		if len(sessions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no live sessions")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  created=%s  expires=%s  messages=%d\n",
				s.ID,
				s.CreatedAt.Format("2006-01-02 15:04"),
				s.ExpiresAt.Format("2006-01-02 15:04"),
				len(s.History))
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 50, "maximum sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}
