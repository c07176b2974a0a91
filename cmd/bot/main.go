package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/okx_trade_hook/internal/config"
	"github.com/vitos/okx_trade_hook/internal/infrastructure/exchange"
	"github.com/vitos/okx_trade_hook/internal/infrastructure/logger"
	"github.com/vitos/okx_trade_hook/internal/infrastructure/storage"
	"github.com/vitos/okx_trade_hook/internal/metrics"
	"github.com/vitos/okx_trade_hook/internal/notify"
	"github.com/vitos/okx_trade_hook/internal/usecase"
	"github.com/vitos/okx_trade_hook/internal/web"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Notifications
	var channels []notify.Notifier
	if cfg.Notify.ServerChanToken != "" {
		channels = append(channels, notify.NewServerChan(cfg.Notify.ServerChanToken))
	}
	if cfg.Notify.TelegramBotToken != "" {
		channels = append(channels, notify.NewTelegram(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID))
	}
	var notifier notify.Notifier = notify.Nop{}
	if len(channels) > 0 {
		notifier = notify.NewMulti(channels...)
	}

	recorder := metrics.NewRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Init Accounts: one gateway, order service and trailing monitor
	// per configured account.
	services := make(map[string]*usecase.OrderService, len(cfg.Accounts))
	var fallback *usecase.OrderService
	interval := time.Duration(cfg.Monitor.IntervalMs) * time.Millisecond

	for _, ac := range cfg.Accounts {
		adapter := exchange.NewOKXAdapter(ac.APIKey, ac.APISecret, ac.Passphrase, ac.RESTEndpoint, ac.Simulated)
		sizer := usecase.NewContractSizer(adapter)
		if err := sizer.LoadInstruments(ctx); err != nil {
			log.Fatal("Failed to load instruments",
				zap.String("account", ac.Name),
				zap.Error(err))
		}

		acct := &usecase.Account{
			Key:      ac.APIKey,
			Name:     ac.Name,
			Gateway:  adapter,
			Store:    store,
			Sizer:    sizer,
			Notifier: notifier,
			Logger:   log,
			Metrics:  recorder,
		}

		svc := usecase.NewOrderService(acct)
		services[ac.APIKey] = svc
		if fallback == nil {
			fallback = svc
		}

		monitor := usecase.NewTrailingMonitor(acct, interval)
		go monitor.Run(ctx)

		log.Info("Account initialized",
			zap.String("account", ac.Name),
			zap.Bool("simulated", ac.Simulated))
	}

	// 6. Start Web Server
	srv := web.NewServer(cfg.Server.Host, cfg.Server.Port, services, fallback, cfg.Server.IPWhiteList, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	// 7. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Web server shutdown failed", zap.Error(err))
	}
}
