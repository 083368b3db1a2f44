package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cross-exchange-crypto-arbitrage/internal/domain"
	"cross-exchange-crypto-arbitrage/internal/gateway"
	"cross-exchange-crypto-arbitrage/internal/metrics"
	"cross-exchange-crypto-arbitrage/internal/platform/logger"
	"cross-exchange-crypto-arbitrage/internal/pricecache"
	"cross-exchange-crypto-arbitrage/internal/registry"
)

var Logger = logger.Get()

// Poller keeps the price cache warm: on every tick it asks each exchange's
// gateway for the ticker of every canonical pair the exchange supports and
// writes the batch to the cache. A failing exchange or pair is logged and
// skipped; it never stalls the other exchanges.
type Poller struct {
	registries map[string]*registry.Registry
	gateways   map[string]gateway.Gateway
	cache      *pricecache.Cache
	interval   time.Duration
	ticker     *time.Ticker
	ctx        context.Context
}

func NewPoller(ctx context.Context, registries map[string]*registry.Registry, gateways map[string]gateway.Gateway, cache *pricecache.Cache, interval time.Duration) *Poller {
	return &Poller{
		ctx:        ctx,
		registries: registries,
		gateways:   gateways,
		cache:      cache,
		interval:   interval,
	}
}

func (poller *Poller) Start() {
	poller.ticker = time.NewTicker(poller.interval)
	defer poller.ticker.Stop()

	Logger.Info("Start polling tickers every " + poller.interval.String())

	// Run immediately first time
	poller.RunOnce()

	// Then run on ticker
	for {
		select {
		case <-poller.ctx.Done():
			Logger.Info("Stop polling tickers")
			return
		case <-poller.ticker.C:
			poller.RunOnce()
		}
	}
}

// RunOnce polls every exchange once.
func (poller *Poller) RunOnce() {
	for exchange, gw := range poller.gateways {
		reg, ok := poller.registries[exchange]
		if !ok {
			continue // uninitializable exchange, registry load failed at startup
		}
		poller.pollExchange(exchange, gw, reg)
	}
}

func (poller *Poller) pollExchange(exchange string, gw gateway.Gateway, reg *registry.Registry) {
	var prices []domain.Price
	for _, symbol := range reg.CanonPairs() {
		native, ok := reg.CanonicalToNativePair(symbol)
		if !ok {
			continue
		}

		ticker, err := gw.FetchTicker(poller.ctx, native)
		if err != nil {
			Logger.Error("Failed to fetch ticker",
				zap.String("exchange", exchange), zap.String("pair", symbol), zap.Error(err))
			continue
		}

		tickTime := ticker.Time
		if tickTime.IsZero() {
			tickTime = time.Now()
		}

		prices = append(prices, domain.Price{
			Exchange:  exchange,
			Symbol:    symbol,
			Bid:       ticker.Bid,
			Ask:       ticker.Ask,
			Volume24h: ticker.Volume24h,
			Time:      tickTime,
		})
	}

	if len(prices) == 0 {
		return
	}
	if err := poller.cache.SetPrices(poller.ctx, prices); err != nil {
		Logger.Error("Failed to write prices to cache",
			zap.String("exchange", exchange), zap.Error(err))
		return
	}
	metrics.FeedPrices.Add(float64(len(prices)))
}
