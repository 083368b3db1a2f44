package gateway

import (
	"context"
	"time"

	"cross-exchange-crypto-arbitrage/internal/domain"
)

// OrderInfo is the exchange-native order response, normalized to a flat
// shape. Success false with Info set means the exchange rejected or could not
// resolve the request without transport failing.
type OrderInfo struct {
	Success     bool
	OrderID     string
	Status      domain.OrderStatus
	AmtFilled   *float64
	AmtOriginal *float64
	Info        string
}

// WithdrawInfo is the exchange-native withdrawal response. Some exchanges
// return a verification URL that must be confirmed out-of-band before the
// withdrawal executes.
type WithdrawInfo struct {
	Success   bool
	ID        string
	VerifyURL string
	Info      string
}

// Ticker is a single top-of-book quote.
type Ticker struct {
	Bid       float64
	Ask       float64
	Volume24h float64
	Time      time.Time
}

// Gateway executes wire calls against one exchange. All identifiers crossing
// this boundary are exchange-native; canonical translation happens in the
// coordinator. One implementation exists per exchange, held in a plain map
// keyed by exchange id.
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, nativePair string, orderType domain.OrderType, side domain.OrderSide, amount, price float64) (OrderInfo, error)
	CancelOrder(ctx context.Context, id, nativePair string, side domain.OrderSide) (OrderInfo, error)
	FetchOrder(ctx context.Context, id, nativePair string, side domain.OrderSide) (OrderInfo, error)
	Withdraw(ctx context.Context, nativeCoin string, amount float64, address, tag string) (WithdrawInfo, error)
	FetchTicker(ctx context.Context, nativePair string) (Ticker, error)
}
