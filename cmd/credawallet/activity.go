package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jask/credawallet/internal/database"
	"github.com/jask/credawallet/internal/database/repository"
)

func init() {
	var kind, status string
	var limit int

	activityCmd := &cobra.Command{
		Use:   "activity",
		Short: "List journaled deposits and sends",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openJournal()
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := repository.NewActivityRepo(db).List(cmd.Context(), repository.ActivityFilters{Kind: kind, Status: status, Limit: limit})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UPDATED\tKIND\tAMOUNT\tSTATUS\tTARGET\tTX")
			for _, a := range list {
				fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
					a.UpdatedAt.Local().Format("2006-01-02 15:04"), a.Kind, a.Amount, a.Asset, a.Status, deref(a.TargetAddress), deref(a.TxID))
			}
			return w.Flush()
		},
	}
	activityCmd.Flags().StringVar(&kind, "kind", "", "only deposit or send")
	activityCmd.Flags().StringVar(&status, "status", "", "only submitted, confirmed or failed")
	activityCmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")

	activityCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the local activity journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openJournal()
			if err != nil {
				return err
			}
			defer db.Close()
			return repository.NewActivityRepo(db).Reset(cmd.Context())
		},
	})
	rootCmd.AddCommand(activityCmd)
}

func openJournal() (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database.Open(cfg.Database.Path)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
