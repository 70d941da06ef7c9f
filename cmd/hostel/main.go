package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"hostel/internal/backend"
	"hostel/internal/cli"
	"hostel/internal/core"
	apphttp "hostel/internal/http"
	applog "hostel/internal/log"
	"hostel/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil, applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootLogger.Slog())
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	policy, err := cfg.FeePolicy()
	if err != nil {
		logger.Error("Invalid fee configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid time zone", applog.FieldError, err.Error())
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog()).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", applog.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	rooms := cfg.RoomSet()
	ids := core.NewIDGenerator(nil)
	svc := apphttp.Services{
		Bookings:  services.NewBookingService(result.Store, rooms, ids, result.Publisher, logger.WithComponent(applog.ComponentBooking).Slog()),
		Expenses:  services.NewExpenseService(result.Store, ids, result.Publisher, logger.WithComponent(applog.ComponentExpense).Slog()),
		Dashboard: services.NewDashboardService(result.Store, policy, rooms, loc, logger.WithComponent(applog.ComponentDashboard).Slog()),
	}

	// Listing both tables raises the id floor above every stored id.
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if _, _, err := svc.Bookings.List(seedCtx); err != nil {
		logger.Warn("Could not read reservations at startup", applog.FieldError, err.Error())
	}
	if _, _, err := svc.Expenses.List(seedCtx); err != nil {
		logger.Warn("Could not read expenses at startup", applog.FieldError, err.Error())
	}
	seedCancel()

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger)

	ctx, done := cli.GracefulShutdown(logger.Slog(), 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err.Error())
		}
	})

	logger.Info("Starting hostel server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"rooms", len(rooms),
		"timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		_ = result.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
