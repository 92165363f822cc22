package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/store/postgres"
	foundrysync "github.com/alfredjeanlab/foundry/internal/sync"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every record as JSONL straight from the database",
	Long: `Write every record as JSONL straight from the database (FOUNDRY_DATABASE_URL
or DATABASE_URL). The first line is a header with counts; each following line
is {"type":"record","resource":...,"data":...}.`,
	GroupID:           "system",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbURL, _ := cmd.Flags().GetString("database-url")
		if dbURL == "" {
			return fmt.Errorf("no database; pass --database-url or set FOUNDRY_DATABASE_URL")
		}
		store, err := postgres.New(dbURL, false)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := foundrysync.ExportJSONL(cmd.Context(), store, model.Catalog(), cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		return nil
	},
}

func init() {
	dbURL := os.Getenv("FOUNDRY_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	exportCmd.Flags().String("database-url", dbURL, "PostgreSQL connection URL")
}
