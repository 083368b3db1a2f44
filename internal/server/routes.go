package server

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"cross-exchange-crypto-arbitrage/internal/domain"
)

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Get("/health", s.healthHandler)
	s.App.Get("/spreads", s.spreadsHandler)

	s.App.Post("/orders", s.createOrderHandler)
	s.App.Get("/orders/:id", s.fetchOrderHandler)
	s.App.Delete("/orders/:id", s.cancelOrderHandler)
	s.App.Post("/withdrawals", s.withdrawHandler)

	s.App.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.App.Get("/ws/spreads", websocket.New(s.spreadStreamHandler))
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	return c.JSON(s.db.Health())
}

func (s *FiberServer) spreadsHandler(c *fiber.Ctx) error {
	return c.JSON(s.watcher.Latest())
}

type createOrderRequest struct {
	Exchange string  `json:"exchange"`
	Pair     string  `json:"pair"`
	Type     string  `json:"type"`
	Side     string  `json:"side"`
	Amount   float64 `json:"amount"`
	Price    float64 `json:"price"`
}

// Order operations reply 200 with a success flag; a failed operation is a
// result, not an HTTP error.
func (s *FiberServer) createOrderHandler(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result := s.coordinator.CreateOrder(c.Context(), req.Exchange, req.Pair,
		domain.OrderType(req.Type), domain.OrderSide(req.Side), req.Amount, req.Price)
	return c.JSON(result)
}

func (s *FiberServer) fetchOrderHandler(c *fiber.Ctx) error {
	result := s.coordinator.FetchOrder(c.Context(),
		c.Query("exchange"), c.Params("id"), c.Query("pair"), domain.OrderSide(c.Query("side")))
	return c.JSON(result)
}

func (s *FiberServer) cancelOrderHandler(c *fiber.Ctx) error {
	result := s.coordinator.CancelOrder(c.Context(),
		c.Query("exchange"), c.Params("id"), c.Query("pair"), domain.OrderSide(c.Query("side")))
	return c.JSON(result)
}

type withdrawRequest struct {
	Exchange string  `json:"exchange"`
	Coin     string  `json:"coin"`
	Amount   float64 `json:"amount"`
	Address  string  `json:"address"`
	Tag      string  `json:"tag"`
}

func (s *FiberServer) withdrawHandler(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result := s.coordinator.Withdraw(c.Context(), req.Exchange, req.Coin,
		req.Amount, req.Address, req.Tag)
	return c.JSON(result)
}

// spreadStreamHandler pushes each newly computed cycle to the client until
// the connection drops.
func (s *FiberServer) spreadStreamHandler(c *websocket.Conn) {
	subscriber := s.watcher.Subscribe()
	defer s.watcher.Unsubscribe(subscriber)

	for cycle := range subscriber {
		if err := c.WriteJSON(cycle); err != nil {
			return
		}
	}
}
