package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/acme-edu/recording-pipeline/internal/config"
	"github.com/acme-edu/recording-pipeline/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger("")

			cfg, err := config.LoadOrDefault(flagConfigPath, logger)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			st, err := store.New(cmd.Context(), cfg.Database.Path, logger)
			if err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			return st.Close()
		},
	}
}
