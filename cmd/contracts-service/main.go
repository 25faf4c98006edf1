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

	"github.com/nurpe/freight-contracts/internal/auth"
	"github.com/nurpe/freight-contracts/internal/config"
	"github.com/nurpe/freight-contracts/internal/db"
	"github.com/nurpe/freight-contracts/internal/excel"
	httphandler "github.com/nurpe/freight-contracts/internal/http"
	"github.com/nurpe/freight-contracts/internal/http/middleware"
	"github.com/nurpe/freight-contracts/internal/logger"
	"github.com/nurpe/freight-contracts/internal/repository"
	"github.com/nurpe/freight-contracts/internal/service"
	"github.com/nurpe/freight-contracts/internal/telemetry"
	"github.com/nurpe/freight-contracts/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init telemetry")
	}

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	directoryRepo := repository.NewDirectoryRepository(database)
	partnershipRepo := repository.NewPartnershipRepository(database)
	contractRepo := repository.NewContractRepository(database)
	agreementRepo := repository.NewAgreementRepository(database)
	tariffRepo := repository.NewTariffRepository(database)
	lookupRepo := repository.NewLookupRepository(database)

	validator := workflow.New()
	editPolicy := service.TariffEditPolicy(cfg.Tariffs.EditPolicy)

	contractService := service.NewContractService(contractRepo, directoryRepo, partnershipRepo, excel.NewGenerator())
	agreementService := service.NewAgreementService(contractRepo, agreementRepo, directoryRepo, validator)
	tariffService := service.NewTariffService(agreementRepo, tariffRepo, directoryRepo, validator, editPolicy)
	resolver := service.NewPriceResolver(lookupRepo, directoryRepo)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contractService, agreementService, tariffService, resolver, editPolicy, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.CORSAllowedOrigins, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting contracts service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("telemetry shutdown failed")
	}
}
