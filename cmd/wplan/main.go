package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/amqp"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/auth"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/cli"
	apphttp "github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/http"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/importer"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/services"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitStorage(logger, cfg)
	defer repo.Close()

	mapping := importer.DefaultColumnMapping()
	if cfg.ColumnMappingPath != "" {
		var err error
		mapping, err = importer.LoadColumnMapping(cfg.ColumnMappingPath)
		if err != nil {
			logger.Error("Failed to load column mapping", "error", err, "path", cfg.ColumnMappingPath)
			os.Exit(1)
		}
	}

	// AMQP is optional; without a broker imports still work, only the
	// forecast worker stays idle.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	// The shared-sheet source is optional; without Google credentials
	// only the upload endpoint imports invoices.
	var invoiceSource services.InvoiceSource
	if cfg.SheetsConfigured() {
		sheetClient, err := google.NewFromConfig(context.Background(), cfg, mapping)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets source", "error", err)
			os.Exit(1)
		}
		invoiceSource = sheetClient
		logger.Info("Google Sheets invoice source initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	}

	authenticator := auth.New(repo, cfg.DemoMode, cfg.DemoUserID)
	planning := services.NewPlanningService(importer.NewWithMapping(repo, mapping), publisher)
	dashboard := services.NewDashboardService(repo)

	srv := apphttp.NewServer(":"+cfg.Port, repo, authenticator, planning, dashboard, invoiceSource, cfg.MaxUploadBytes)
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting wplan server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"demo_mode", cfg.DemoMode)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
