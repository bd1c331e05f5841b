package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang-stock-trader/internal/trader/admission"
	"golang-stock-trader/internal/trader/broker"
	"golang-stock-trader/internal/trader/config"
	"golang-stock-trader/internal/trader/events"
	"golang-stock-trader/internal/trader/ledger"
	"golang-stock-trader/internal/trader/repository"
	"golang-stock-trader/internal/trader/service"
	"golang-stock-trader/internal/trader/strategy"
	"golang-stock-trader/internal/trader/surge"
	"golang-stock-trader/pkg/logger"
	"golang-stock-trader/pkg/postgres"
	"golang-stock-trader/pkg/redis"
	"golang-stock-trader/pkg/telegram"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the trading service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Trading Service", zap.String("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize Telegram notifier
	var telegramNotifier telegram.Notifier
	if cfg.Telegram.Enabled {
		telegramNotifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", zap.Error(err))
		}
	}

	// Initialize repositories
	tradeRepo := repository.NewTradeRepository(db.DB)
	signalRepo := repository.NewTradeSignalRepository(db.DB)

	// The paper broker stands in for the venue adapter; it fills everything
	// immediately at the requested price.
	paperBroker := broker.NewPaperBroker(cfg.Trading.InitialBalance)
	orders := admission.NewController(cfg.Admission, paperBroker, appLogger)

	// Seed the ledger from the venue through the admission controller, so
	// startup queries respect the same rate limits as everything else.
	positionLedger := ledger.NewLedger(cfg.Risk, appLogger)
	balance, err := orders.GetBalance(ctx)
	if err != nil {
		appLogger.Fatal("Failed to query starting balance", zap.Error(err))
	}
	if err := positionLedger.SetInitialBalance(balance); err != nil {
		appLogger.Fatal("Failed to seed ledger balance", zap.Error(err))
	}
	holdings, err := orders.GetHoldings(ctx)
	if err != nil {
		appLogger.Fatal("Failed to query holdings", zap.Error(err))
	}
	positionLedger.RestoreHoldings(holdings)

	orchestrator := service.NewOrchestrator(service.Deps{
		Config:     cfg,
		Logger:     appLogger,
		Ledger:     positionLedger,
		Detector:   surge.NewDetector(cfg.Surge, appLogger),
		Engine:     strategy.NewConsensusEngine(cfg.Consensus, appLogger),
		Orders:     orders,
		Publisher:  events.NewPublisher(redisClient, cfg.Redis.StreamMaxLen, appLogger),
		Notifier:   telegramNotifier,
		TradeRepo:  tradeRepo,
		SignalRepo: signalRepo,
		Session:    service.NewKRXSession(),
	})
	orchestrator.Start(ctx)

	appLogger.Info("Trading service started. Waiting for market data...")

	// Wait for interrupt signal to gracefully shut down the service
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down trading service...")
	cancel()
	appLogger.Info("Trading service stopped.")
}

func main() {
	rootCmd := &cobra.Command{Use: "trading-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-trader.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing trading-service CLI: %s\n", err)
		os.Exit(1)
	}
}
