package spread

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"cross-exchange-crypto-arbitrage/internal/catalog"
	"cross-exchange-crypto-arbitrage/internal/domain"
	"cross-exchange-crypto-arbitrage/internal/platform/logger"
	"cross-exchange-crypto-arbitrage/internal/pricecache"
)

var Logger = logger.Get()

// Combination is one unordered pair of exchanges annotated with the
// canonical trading pairs both support.
type Combination struct {
	ExchangeA   string
	ExchangeB   string
	SharedPairs []string
}

// Cycle is the output of one spread computation: every record derives from
// the same price snapshot, taken once at invocation start.
type Cycle struct {
	SortedSpreads []domain.SpreadRecord          `json:"sortedSpreads"`
	Lookup        map[string]domain.SpreadRecord `json:"lookup"`
	PriceLookup   map[string]domain.Price        `json:"priceLookup"`
	AsOf          time.Time                      `json:"asOf"`
}

// Engine computes, for every pair of exchanges sharing at least one
// canonical trading pair, the best arbitrage direction and magnitude.
type Engine struct {
	store catalog.Service
	cache *pricecache.Cache

	exchanges []string
	combos    []Combination
}

func NewEngine(store catalog.Service, cache *pricecache.Cache) *Engine {
	return &Engine{store: store, cache: cache}
}

// BuildCombinations loads the exchange roster and the shared canonical pairs
// for every unordered exchange pair. The result is cached on the engine;
// call again when the roster changes.
func (e *Engine) BuildCombinations(ctx context.Context) error {
	infos, err := e.store.GetExchangesArray(ctx)
	if err != nil {
		return err
	}

	exchanges := make([]string, 0, len(infos))
	for _, info := range infos {
		exchanges = append(exchanges, info.ID)
	}

	var combos []Combination
	for i := 0; i < len(exchanges); i++ {
		for j := i + 1; j < len(exchanges); j++ {
			shared, err := e.store.GetCommonTickers(ctx, exchanges[i], exchanges[j])
			if err != nil {
				return err
			}
			combos = append(combos, Combination{
				ExchangeA:   exchanges[i],
				ExchangeB:   exchanges[j],
				SharedPairs: shared,
			})
		}
	}

	e.exchanges = exchanges
	e.combos = combos
	Logger.Info("Built exchange combinations",
		zap.Int("exchanges", len(exchanges)), zap.Int("combinations", len(combos)))
	return nil
}

// Combinations returns the cached combination table.
func (e *Engine) Combinations() []Combination {
	return e.combos
}

// Compute takes one full price snapshot and derives a ranked spread list
// from it. A missing price for one exchange/pair skips that record only;
// nothing short of the snapshot read itself failing aborts the cycle.
func (e *Engine) Compute(ctx context.Context) (Cycle, error) {
	prices, err := e.cache.GetAllPrices(ctx)
	if err != nil {
		return Cycle{}, err
	}

	cycle := Cycle{
		Lookup:      make(map[string]domain.SpreadRecord),
		PriceLookup: make(map[string]domain.Price, len(prices)),
		AsOf:        time.Now(),
	}
	for _, price := range prices {
		cycle.PriceLookup[price.Key()] = price
	}

	for _, combo := range e.combos {
		for _, pair := range combo.SharedPairs {
			priceA, okA := cycle.PriceLookup[combo.ExchangeA+":"+pair]
			priceB, okB := cycle.PriceLookup[combo.ExchangeB+":"+pair]
			if !okA || !okB {
				continue // no live price, not an error
			}

			record, ok := computeSpread(priceA, priceB, pair)
			if !ok {
				Logger.Warn("Skipping spread with unusable prices",
					zap.String("exchangeA", combo.ExchangeA),
					zap.String("exchangeB", combo.ExchangeB),
					zap.String("pair", pair))
				continue
			}

			cycle.SortedSpreads = append(cycle.SortedSpreads, record)
			cycle.Lookup[record.LookupKey()] = record
		}
	}

	// Stable sort keeps emission order for equal spreads, so repeated sorts
	// of the same cycle are deterministic.
	sort.SliceStable(cycle.SortedSpreads, func(i, j int) bool {
		return cycle.SortedSpreads[i].PercentSpread > cycle.SortedSpreads[j].PercentSpread
	})

	return cycle, nil
}

// computeSpread derives the best direction between two live prices for the
// same canonical pair. Reports false when either ask is unusable.
func computeSpread(priceA, priceB domain.Price, pair string) (domain.SpreadRecord, bool) {
	if priceA.Ask <= 0 || priceB.Ask <= 0 {
		return domain.SpreadRecord{}, false
	}

	buyASellB := (priceB.Bid - priceA.Ask) / priceA.Ask
	buyBSellA := (priceA.Bid - priceB.Ask) / priceB.Ask

	record := domain.SpreadRecord{
		ExchangeA:     priceA.Exchange,
		ExchangeB:     priceB.Exchange,
		Pair:          pair,
		PercentSpread: buyASellB,
		LowestVolume:  priceA.Volume24h,
		DeltaTime:     priceA.Time.Sub(priceB.Time).Abs(),
	}
	if priceB.Volume24h < priceA.Volume24h {
		record.LowestVolume = priceB.Volume24h
	}
	if buyBSellA > record.PercentSpread {
		record.PercentSpread = buyBSellA
	}

	// Exact equality resolves to buy-on-B/sell-on-A.
	if buyASellB > buyBSellA {
		record.BuyExchange = priceA.Exchange
		record.SellExchange = priceB.Exchange
		record.Ask = priceA.Ask
		record.Bid = priceB.Bid
		record.BuyTime = priceA.Time
		record.SellTime = priceB.Time
	} else {
		record.BuyExchange = priceB.Exchange
		record.SellExchange = priceA.Exchange
		record.Ask = priceB.Ask
		record.Bid = priceA.Bid
		record.BuyTime = priceB.Time
		record.SellTime = priceA.Time
	}

	return record, true
}
