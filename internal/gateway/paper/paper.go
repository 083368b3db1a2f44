package paper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cross-exchange-crypto-arbitrage/internal/domain"
	"cross-exchange-crypto-arbitrage/internal/gateway"
)

// Gateway is an in-memory stand-in used for dry runs and tests. Orders are
// accepted immediately and tracked until canceled.
type Gateway struct {
	name string

	mu      sync.Mutex
	orders  map[string]*paperOrder
	tickers map[string]gateway.Ticker

	// VerifyURL, when set, is attached to every withdrawal so the
	// confirmation hop can be exercised.
	VerifyURL string
}

type paperOrder struct {
	id      string
	pair    string
	side    domain.OrderSide
	amount  float64
	price   float64
	status  domain.OrderStatus
	filled  float64
	created time.Time
}

func New(name string) *Gateway {
	return &Gateway{
		name:    name,
		orders:  make(map[string]*paperOrder),
		tickers: make(map[string]gateway.Ticker),
	}
}

func (g *Gateway) Name() string {
	return g.name
}

// SetTicker seeds the quote returned by FetchTicker for a native pair.
func (g *Gateway) SetTicker(nativePair string, ticker gateway.Ticker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tickers[nativePair] = ticker
}

func (g *Gateway) CreateOrder(ctx context.Context, nativePair string, orderType domain.OrderType, side domain.OrderSide, amount, price float64) (gateway.OrderInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order := &paperOrder{
		id:      uuid.NewString(),
		pair:    nativePair,
		side:    side,
		amount:  amount,
		price:   price,
		status:  domain.StatusOpen,
		created: time.Now(),
	}
	g.orders[order.id] = order

	return gateway.OrderInfo{Success: true, OrderID: order.id, Status: domain.StatusOpen}, nil
}

func (g *Gateway) CancelOrder(ctx context.Context, id, nativePair string, side domain.OrderSide) (gateway.OrderInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[id]
	if !ok {
		return gateway.OrderInfo{Info: "order not found"}, nil
	}
	order.status = domain.StatusCanceled

	return gateway.OrderInfo{Success: true, OrderID: id, Status: domain.StatusCanceled}, nil
}

func (g *Gateway) FetchOrder(ctx context.Context, id, nativePair string, side domain.OrderSide) (gateway.OrderInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[id]
	if !ok {
		return gateway.OrderInfo{Info: "order not found"}, nil
	}

	filled := order.filled
	original := order.amount
	return gateway.OrderInfo{
		Success:     true,
		OrderID:     order.id,
		Status:      order.status,
		AmtFilled:   &filled,
		AmtOriginal: &original,
	}, nil
}

func (g *Gateway) Withdraw(ctx context.Context, nativeCoin string, amount float64, address, tag string) (gateway.WithdrawInfo, error) {
	return gateway.WithdrawInfo{
		Success:   true,
		ID:        uuid.NewString(),
		VerifyURL: g.VerifyURL,
	}, nil
}

func (g *Gateway) FetchTicker(ctx context.Context, nativePair string) (gateway.Ticker, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ticker, ok := g.tickers[nativePair]
	if !ok {
		return gateway.Ticker{}, &domain.OpError{Kind: domain.KindGateway, Detail: "no ticker for " + nativePair}
	}
	return ticker, nil
}

// Forget drops an order so a later FetchOrder fails, simulating exchanges
// that age completed orders out of their live query window.
func (g *Gateway) Forget(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.orders, id)
}
