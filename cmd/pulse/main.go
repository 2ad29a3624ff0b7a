package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"

	"github.com/intraday-pulse/pulse/configs"
	"github.com/intraday-pulse/pulse/internal/feed"
	"github.com/intraday-pulse/pulse/internal/hub"
	"github.com/intraday-pulse/pulse/internal/market"
	"github.com/intraday-pulse/pulse/internal/optionchain"
	"github.com/intraday-pulse/pulse/internal/scheduler"
	"github.com/intraday-pulse/pulse/internal/server/handler"
	"github.com/intraday-pulse/pulse/internal/server/repository"
	"github.com/intraday-pulse/pulse/internal/server/router"
	"github.com/intraday-pulse/pulse/internal/server/service"
	"github.com/intraday-pulse/pulse/internal/storage"
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

func main() {
	logger := newLogger()
	cfg := configs.AppLoad()

	session, err := market.NewSession(cfg.Market.StartTime, cfg.Market.EndTime, cfg.Market.Timezone)
	if err != nil {
		logger.Fatalf("Invalid market session config: %v", err)
	}

	store, err := storage.NewClickHouseStorage(cfg.DBDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer store.Close()

	db, err := gorm.Open(clickhouse.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		logger.Fatalf("Failed to open read connection: %v", err)
	}

	priceStore := market.NewPriceStore()
	eventHub := hub.NewHub(logger)

	var journal *feed.Journal
	if cfg.Journal.Enabled {
		journal, err = feed.NewJournal(cfg.Journal.Broker, cfg.Journal.Topic, logger)
		if err != nil {
			logger.Fatalf("Failed to create tick journal: %v", err)
		}
		defer journal.Close()
	}

	feedClient := feed.NewClient(feed.Config{
		URL:            cfg.Feed.URL,
		AuthToken:      cfg.Feed.AuthToken,
		ReconnectDelay: time.Duration(cfg.Feed.ReconnectDelaySeconds) * time.Second,
	}, cfg.Symbols, session, priceStore, eventHub, journal, logger)

	var spotSource optionchain.SpotSource = optionchain.NewStoreSpotSource(priceStore)
	if cfg.Chain.SpotAPIURL != "" {
		spotSource = optionchain.NewHTTPSpotSource(cfg.Chain.SpotAPIURL)
	}

	engine := optionchain.NewEngine(
		spotSource,
		optionchain.NewChainSource(cfg.Chain.APIKey, cfg.Chain.APIBaseURL, logger),
		cfg.Chain.SpotFallback,
		cfg.Chain.StrikeDepth,
		logger,
	)

	snapshotScheduler := scheduler.NewSnapshotScheduler(session, priceStore, store,
		cfg.Symbols, time.Duration(cfg.Market.SnapshotIntervalMinutes)*time.Minute, logger)
	sessionMonitor := scheduler.NewSessionMonitor(session, eventHub, time.Minute, logger)
	chainScheduler := scheduler.NewChainScheduler(engine, store, eventHub, session,
		cfg.Symbols, time.Duration(cfg.Chain.FetchIntervalMinutes)*time.Minute,
		!cfg.Chain.FetchOutsideHours, logger)

	repo := repository.NewGormSnapshotRepository(db)
	marketHandler := handler.NewMarketHandler(
		service.NewMarketService(priceStore, session, feedClient, repo))
	chainHandler := handler.NewChainHandler(
		service.NewChainService(repo, chainScheduler))

	engineRouter := router.NewRouter(&router.Config{
		MarketHandler: marketHandler,
		ChainHandler:  chainHandler,
		Hub:           eventHub,
		Logger:        logger,
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: engineRouter,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		feedClient.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		snapshotScheduler.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sessionMonitor.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		chainScheduler.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		retention := time.Duration(cfg.Chain.RetentionDays) * 24 * time.Hour
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := store.PruneChainSnapshots(ctx, time.Now().Add(-retention)); err != nil {
					logger.Errorf("Chain snapshot prune failed: %v", err)
				}
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Infof("HTTP server listening on :%s", cfg.ServerPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown failed: %v", err)
	}

	wg.Wait()
	logger.Info("Shutdown complete")
}
