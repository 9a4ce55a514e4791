package admin

import (
	"fmt"

	"github.com/frontline-hq/frontline/internal/config"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runMigrations(cfg.DatabaseURL)
		},
	}
}
