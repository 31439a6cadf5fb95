/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tablehop/apiserver/config"
	"github.com/tablehop/apiserver/internal/mq"
	"github.com/tablehop/apiserver/internal/notify"
)

// notifyCmd represents the notify command
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Consume reservation events and notify guests",
	Long: `Subscribes to the reservation channel on the configured broker
(MQ_BACKEND) and sends a confirmation or cancellation for every event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not set")
		}
		defer func() {
			if err := broker.Close(); err != nil {
				logger.Warn(ctx, "close mq", "error", err)
			}
		}()

		worker := notify.NewWorker(broker, cfg.MQ.Channel, notify.NewLogNotifier(logger), logger)
		if err := worker.Run(ctx); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}
