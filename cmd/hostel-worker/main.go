package main

import (
	"context"
	"errors"
	"os"
	"time"

	"hostel/internal/amqp"
	"hostel/internal/cli"
	applog "hostel/internal/log"
	gsheet "hostel/internal/sheets/google"
	"hostel/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil, applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(bootLogger.Slog())
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("Starting hostel-worker")

	mirror, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:     cfg.GoogleSpreadsheetID,
		ReservationsSheet: cfg.ReservationsSheet,
		ExpensesSheet:     cfg.ExpensesSheet,
		CredentialsJSON:   cfg.GoogleServiceAccountJSON,
		CredentialsFile:   cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(applog.ComponentAMQP).Slog())
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}

	mw := worker.NewMirrorWorker(mirror, logger.Slog())

	consumed := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger.Slog(), 30*time.Second, func(ctx context.Context) {
		// Let the in-flight message finish before the channel goes away.
		select {
		case <-consumed:
		case <-ctx.Done():
		}
		if err := client.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err.Error())
		}
	})

	go func() {
		defer close(consumed)
		err := client.ConsumeRecordChanges(ctx, mw.Handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err.Error())
		}
	}()

	logger.Info("Consuming record changes", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
