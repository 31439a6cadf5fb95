/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tablehop/apiserver/config"
	"github.com/tablehop/apiserver/internal/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tablehop",
	Short: "Restaurant reservation backend",
	Long: `tablehop serves the restaurant reservation API and its supporting jobs.

	tablehop server       run the HTTP API
	tablehop migrate up   apply the database schema
	tablehop notify       consume reservation events
	tablehop export       snapshot the catalog to object storage
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *logging.SlogLogger {
	return logging.New(os.Stderr, cfg.LogLevel)
}
