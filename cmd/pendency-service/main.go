package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiscaldesk/pendency-service/internal/auth"
	"github.com/fiscaldesk/pendency-service/internal/config"
	"github.com/fiscaldesk/pendency-service/internal/db"
	"github.com/fiscaldesk/pendency-service/internal/excel"
	httphandler "github.com/fiscaldesk/pendency-service/internal/http"
	"github.com/fiscaldesk/pendency-service/internal/http/middleware"
	"github.com/fiscaldesk/pendency-service/internal/logger"
	"github.com/fiscaldesk/pendency-service/internal/mailer"
	"github.com/fiscaldesk/pendency-service/internal/pdf"
	"github.com/fiscaldesk/pendency-service/internal/repository"
	"github.com/fiscaldesk/pendency-service/internal/scheduler"
	"github.com/fiscaldesk/pendency-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	pendencyRepo := repository.NewPendencyRepository(database)
	reportRepo := repository.NewReportRepository(database)
	contractRepo := repository.NewContractRepository(database)
	userRepo := repository.NewUserRepository(database)
	ledgerRepo := repository.NewLedgerRepository(database)
	settingsRepo := repository.NewSettingsRepository(database)

	smtpTransport := mailer.NewSMTPTransport(cfg.SMTP)
	mail := mailer.New(smtpTransport, cfg.Scheduler.BulkSendPerMinute, log)
	queue := mailer.NewQueue(mail, cfg.Scheduler.QueueBatchSize, log)

	pendencyService := service.NewPendencyService(pendencyRepo, reportRepo, contractRepo, userRepo, mail, queue, log)
	generatorService := service.NewGeneratorService(contractRepo, pendencyRepo, settingsRepo, userRepo, mail, log)
	reminderService := service.NewReminderService(pendencyRepo, contractRepo, userRepo, settingsRepo, queue, log)
	escalationService := service.NewEscalationService(pendencyRepo, contractRepo, userRepo, settingsRepo, mail, log)
	milestoneService := service.NewMilestoneService(contractRepo, userRepo, ledgerRepo, settingsRepo, mail, log)
	settingsService := service.NewSettingsService(settingsRepo)
	exportService := service.NewExportService(pendencyRepo, contractRepo, excel.NewGenerator(), pdf.NewGenerator())

	jobs, err := scheduler.New(cfg.Scheduler, reminderService, escalationService, milestoneService, queue, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build scheduler")
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(pendencyService, generatorService, settingsService, exportService, smtpTransport, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{Addr: addr, Handler: router}

	jobs.Start()
	log.Info().Str("addr", addr).Msg("starting pendency service")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	jobs.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
