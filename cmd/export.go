/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tablehop/apiserver/config"
	"github.com/tablehop/apiserver/internal/db"
	"github.com/tablehop/apiserver/internal/services"
	"github.com/tablehop/apiserver/internal/storage"
	"github.com/tablehop/apiserver/internal/store"
)

var exportTimeout time.Duration

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Snapshot restaurants and reservations to object storage",
	Long: `Writes a tar.gz archive of restaurants.json and reservations.json to the
configured object storage (STORAGE_BACKEND) and prints the object key and
SHA-256 of the archive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		ctx := cmd.Context()
		if exportTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, exportTimeout)
			defer cancel()
		}

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}

		exporter := services.NewExportService(
			store.NewRestaurantRepository(dbConn),
			store.NewReservationRepository(dbConn),
			objects,
		)
		bundle, err := exporter.Export(ctx)
		if err != nil {
			return err
		}
		logger.Info(ctx, "export written",
			"bucket", objects.Bucket(),
			"key", bundle.ObjectKey,
			"sha256", bundle.SHA256,
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 5*time.Minute, "abort the export after this long (0 disables)")
}
