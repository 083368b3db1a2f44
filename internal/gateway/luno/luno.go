package luno

import (
	"context"
	"time"

	"github.com/luno/luno-go"
	"github.com/luno/luno-go/decimal"

	"cross-exchange-crypto-arbitrage/internal/domain"
	"cross-exchange-crypto-arbitrage/internal/gateway"
	"cross-exchange-crypto-arbitrage/internal/platform/logger"
)

var Logger = logger.Get()

// Gateway executes orders and withdrawals against Luno through the official
// SDK, which handles signing and transport.
type Gateway struct {
	lunoClient luno.Client
}

func New(id string, secret string) *Gateway {
	lunoClient := luno.NewClient()
	lunoClient.SetAuth(id, secret)

	Logger.Info("Luno client created")

	return &Gateway{lunoClient: *lunoClient}
}

func (g *Gateway) Name() string {
	return "luno"
}

func (g *Gateway) CreateOrder(ctx context.Context, nativePair string, orderType domain.OrderType, side domain.OrderSide, amount, price float64) (gateway.OrderInfo, error) {
	if orderType == domain.Market {
		req := luno.PostMarketOrderRequest{
			Pair: nativePair,
			Type: luno.OrderTypeBuy,
		}
		if side == domain.Sell {
			req.Type = luno.OrderTypeSell
			req.BaseVolume = decimal.NewFromFloat64(amount, -8)
		} else {
			req.CounterVolume = decimal.NewFromFloat64(amount, -8)
		}
		res, err := g.lunoClient.PostMarketOrder(ctx, &req)
		if err != nil {
			return gateway.OrderInfo{}, err
		}
		return gateway.OrderInfo{Success: true, OrderID: res.OrderId, Status: domain.StatusOpen}, nil
	}

	req := luno.PostLimitOrderRequest{
		Pair:   nativePair,
		Type:   luno.OrderTypeBid,
		Price:  decimal.NewFromFloat64(price, -8),
		Volume: decimal.NewFromFloat64(amount, -8),
	}
	if side == domain.Sell {
		req.Type = luno.OrderTypeAsk
	}
	res, err := g.lunoClient.PostLimitOrder(ctx, &req)
	if err != nil {
		return gateway.OrderInfo{}, err
	}
	return gateway.OrderInfo{Success: true, OrderID: res.OrderId, Status: domain.StatusOpen}, nil
}

func (g *Gateway) CancelOrder(ctx context.Context, id, nativePair string, side domain.OrderSide) (gateway.OrderInfo, error) {
	res, err := g.lunoClient.StopOrder(ctx, &luno.StopOrderRequest{OrderId: id})
	if err != nil {
		return gateway.OrderInfo{}, err
	}
	if !res.Success {
		return gateway.OrderInfo{Info: "order could not be stopped"}, nil
	}
	return gateway.OrderInfo{Success: true, OrderID: id, Status: domain.StatusCanceled}, nil
}

func (g *Gateway) FetchOrder(ctx context.Context, id, nativePair string, side domain.OrderSide) (gateway.OrderInfo, error) {
	res, err := g.lunoClient.GetOrder(ctx, &luno.GetOrderRequest{Id: id})
	if err != nil {
		return gateway.OrderInfo{}, err
	}

	filled := res.Base.Float64()
	original := res.LimitVolume.Float64()
	status := domain.StatusOpen
	if res.State == luno.OrderStateComplete {
		// Luno reports COMPLETE for both filled and canceled orders; a
		// complete order with nothing filled was canceled.
		if filled == 0 {
			status = domain.StatusCanceled
		} else {
			status = domain.StatusClosed
		}
	}

	return gateway.OrderInfo{
		Success:     true,
		OrderID:     res.OrderId,
		Status:      status,
		AmtFilled:   &filled,
		AmtOriginal: &original,
	}, nil
}

func (g *Gateway) Withdraw(ctx context.Context, nativeCoin string, amount float64, address, tag string) (gateway.WithdrawInfo, error) {
	req := luno.SendRequest{
		Address:     address,
		Amount:      decimal.NewFromFloat64(amount, -8),
		Currency:    nativeCoin,
		Description: tag,
	}
	res, err := g.lunoClient.Send(ctx, &req)
	if err != nil {
		return gateway.WithdrawInfo{}, err
	}
	if !res.Success {
		return gateway.WithdrawInfo{Info: "send rejected"}, nil
	}
	return gateway.WithdrawInfo{Success: true, ID: res.WithdrawalId}, nil
}

func (g *Gateway) FetchTicker(ctx context.Context, nativePair string) (gateway.Ticker, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := g.lunoClient.GetTicker(ctx, &luno.GetTickerRequest{Pair: nativePair})
	if err != nil {
		return gateway.Ticker{}, err
	}

	return gateway.Ticker{
		Bid:       res.Bid.Float64(),
		Ask:       res.Ask.Float64(),
		Volume24h: res.Rolling24HourVolume.Float64(),
		Time:      time.Time(res.Timestamp),
	}, nil
}
