package main

import (
	"context"

	authservice "github.com/papertrade/funds/internal/application/auth"
	"github.com/papertrade/funds/internal/application/fundsservice"
	"github.com/papertrade/funds/internal/events/kafka"
	"github.com/papertrade/funds/internal/infrastructure/database"
	"github.com/papertrade/funds/internal/repositories/accountrepo"
	"github.com/papertrade/funds/internal/repositories/balancerepo"
	"github.com/papertrade/funds/internal/repositories/ledgerrepo"
	"github.com/papertrade/funds/internal/repositories/revocationrepo"
	"github.com/papertrade/funds/internal/server"
	"github.com/papertrade/funds/internal/server/websocket"
	"github.com/papertrade/funds/pkg/config"
	"github.com/papertrade/funds/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log = logger.NewWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		TimeFormat: cfg.Logger.TimeFormat,
		Pretty:     cfg.Logger.Pretty,
	})

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	accountRepo := accountrepo.New(db, log)
	balanceRepo := balancerepo.New(db, log)
	ledgerRepo := ledgerrepo.New(db, log)
	revocationRepo := revocationrepo.New(db, log)

	wsHub := websocket.NewWsHub(log)
	go wsHub.Run()

	var publisher fundsservice.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := kafka.NewPublisher(cfg.Kafka, log)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	fundsService := fundsservice.New(
		accountRepo,
		balanceRepo,
		ledgerRepo,
		publisher,
		wsHub,
		cfg.Ledger,
		log,
	)

	authService := authservice.NewAuthService(cfg, log, revocationRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go authService.StartRevocationJanitor(ctx)

	srv := server.New(cfg, fundsService, authService, log, wsHub)
	srv.Start()
}
