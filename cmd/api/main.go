package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"cross-exchange-crypto-arbitrage/internal/catalog"
	"cross-exchange-crypto-arbitrage/internal/domain"
	"cross-exchange-crypto-arbitrage/internal/feed"
	"cross-exchange-crypto-arbitrage/internal/gateway"
	lunogw "cross-exchange-crypto-arbitrage/internal/gateway/luno"
	"cross-exchange-crypto-arbitrage/internal/gateway/paper"
	"cross-exchange-crypto-arbitrage/internal/membership"
	"cross-exchange-crypto-arbitrage/internal/metrics"
	"cross-exchange-crypto-arbitrage/internal/platform/config"
	"cross-exchange-crypto-arbitrage/internal/platform/logger"
	"cross-exchange-crypto-arbitrage/internal/pricecache"
	"cross-exchange-crypto-arbitrage/internal/registry"
	"cross-exchange-crypto-arbitrage/internal/server"
	"cross-exchange-crypto-arbitrage/internal/spread"
	"cross-exchange-crypto-arbitrage/internal/trade"
)

func gracefulShutdown(fiberServer *server.FiberServer, cancel context.CancelFunc, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")
	cancel()

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := fiberServer.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLogger := logger.Get()
	cfg := config.GetConfig()

	store := catalog.NewWithDSN(cfg.Catalog.DSN)
	defer store.Close()

	cache := pricecache.New(pricecache.Options{
		Addr: cfg.Redis.Addr, DB: cfg.Redis.DB, Password: cfg.Redis.Password,
	})
	defer cache.Close()

	index := membership.New(membership.Options{
		Addr: cfg.Redis.Addr, DB: cfg.Redis.DB, Password: cfg.Redis.Password,
	})
	defer index.Close()

	exchanges, err := store.GetExchangesArray(ctx)
	if err != nil {
		log.Fatalf("failed to load exchange roster: %v", err)
	}

	registries := make(map[string]*registry.Registry)
	gateways := make(map[string]gateway.Gateway)
	for _, info := range exchanges {
		exCfg, ok := cfg.Exchange[info.ID]
		if ok && !exCfg.Enabled {
			continue
		}

		reg, err := registry.Load(ctx, store, info.ID)
		if err != nil {
			// A registry load failure makes this exchange unusable but must
			// not crash the process.
			var loadErr *domain.RegistryLoadError
			if errors.As(err, &loadErr) {
				appLogger.Error("Exchange uninitializable", zap.String("exchange", info.ID), zap.Error(err))
				continue
			}
			log.Fatalf("unexpected registry error: %v", err)
		}
		registries[info.ID] = reg

		switch info.ID {
		case "luno":
			gateways[info.ID] = lunogw.New(info.ApiKey, info.Secret)
		default:
			gateways[info.ID] = paper.New(info.ID)
		}
	}

	coordinator := trade.New(trade.Deps{
		Registries: registries,
		Gateways:   gateways,
		Membership: index,
		Store:      store,
	})

	engine := spread.NewEngine(store, cache)
	if err := engine.BuildCombinations(ctx); err != nil {
		log.Fatalf("failed to build exchange combinations: %v", err)
	}

	spreadInterval := time.Duration(cfg.Spread.IntervalSeconds) * time.Second
	if spreadInterval <= 0 {
		spreadInterval = 10 * time.Second
	}
	watcher := spread.NewWatcher(ctx, engine, spreadInterval, cfg.Spread.AlertThreshold, cfg.Discord.WebhookUrl)
	go watcher.Start()

	feedInterval := time.Duration(cfg.Feed.IntervalSeconds) * time.Second
	if feedInterval <= 0 {
		feedInterval = 15 * time.Second
	}
	poller := feed.NewPoller(ctx, registries, gateways, cache, feedInterval)
	go poller.Start()

	metrics.Serve(ctx, cfg.Metrics.Addr, appLogger)

	fiberServer := server.New(store, coordinator, watcher)
	fiberServer.RegisterFiberRoutes()

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	go func() {
		port := cfg.Port
		if portEnv, err := strconv.Atoi(os.Getenv("PORT")); err == nil && portEnv != 0 {
			port = portEnv
		}
		err := fiberServer.Listen(fmt.Sprintf(":%d", port))
		if err != nil {
			panic(fmt.Sprintf("http server error: %s", err))
		}
	}()

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(fiberServer, cancel, done)

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")
}
