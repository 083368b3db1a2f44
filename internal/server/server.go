package server

import (
	"github.com/gofiber/fiber/v2"

	"cross-exchange-crypto-arbitrage/internal/catalog"
	"cross-exchange-crypto-arbitrage/internal/spread"
	"cross-exchange-crypto-arbitrage/internal/trade"
)

type FiberServer struct {
	*fiber.App

	db          catalog.Service
	coordinator *trade.Coordinator
	watcher     *spread.Watcher
}

func New(db catalog.Service, coordinator *trade.Coordinator, watcher *spread.Watcher) *FiberServer {
	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader: "cross-exchange-crypto-arbitrage",
			AppName:      "cross-exchange-crypto-arbitrage",
		}),

		db:          db,
		coordinator: coordinator,
		watcher:     watcher,
	}

	return server
}
