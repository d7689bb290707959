package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/store"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete client activity older than the retention window from a persistent store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("purge"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		removed, err := st.Purge(ctx, time.Now().Add(-store.Retention))
		if err != nil {
			return err
		}

		zap.L().Info("purged client activity",
			zap.String("driver", cfg.Store.Driver),
			zap.Int("removed", removed),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d activity records older than %s\n", removed, store.Retention)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}
