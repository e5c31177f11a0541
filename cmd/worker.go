package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cbt-marketplace/apiserver/config"
	"github.com/cbt-marketplace/apiserver/internal/db"
	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/mq"
	"github.com/cbt-marketplace/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes marketplace events from the broker",
	Long: `Consumes marketplace events published by the API server and keeps
derived data, such as institution psychologist counts, up to date.
Requires MQ_BACKEND to be set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := config.LoadConfig()
		logger := slog.Default()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is required to run the worker")
		}
		defer queue.Close()

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		consumer := events.NewConsumer(store.NewInstitutionRepository(dbConn), logger)
		logger.Info("consuming events", "backend", cfg.MQ.Backend, "channel", queue.Channel())
		if err := queue.Subscribe(ctx, consumer.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe: %w", err)
		}
		logger.Info("worker stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
