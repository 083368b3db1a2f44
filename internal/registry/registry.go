package registry

import (
	"context"
	"sort"

	"cross-exchange-crypto-arbitrage/internal/catalog"
	"cross-exchange-crypto-arbitrage/internal/domain"
	"cross-exchange-crypto-arbitrage/internal/platform/logger"
)

var Logger = logger.Get()

// Registry translates between the canonical vocabulary and one exchange's
// native spelling of coins and trading pairs. All four maps are populated in
// one pass at load time and never mutated afterwards, so concurrent reads
// need no locking. A reload means building a new Registry.
type Registry struct {
	exchange string

	nativeToCanonCoin map[string]string
	canonToNativeCoin map[string]string
	nativeToCanonPair map[string]string
	canonToNativePair map[string]string
}

// Load builds the registry for one exchange from the catalog store. Returns
// a *domain.RegistryLoadError when the store is unreachable; the exchange is
// then unusable and downstream translation lookups fail fast.
func Load(ctx context.Context, store catalog.Service, exchangeID string) (*Registry, error) {
	pairs, err := store.GetPairMapForExchange(ctx, exchangeID)
	if err != nil {
		return nil, &domain.RegistryLoadError{Exchange: exchangeID, Err: err}
	}
	coins, err := store.GetCoinMapForExchange(ctx, exchangeID)
	if err != nil {
		return nil, &domain.RegistryLoadError{Exchange: exchangeID, Err: err}
	}

	r := &Registry{
		exchange:          exchangeID,
		nativeToCanonCoin: make(map[string]string, len(coins)),
		canonToNativeCoin: make(map[string]string, len(coins)),
		nativeToCanonPair: make(map[string]string, len(pairs)),
		canonToNativePair: make(map[string]string, len(pairs)),
	}

	for _, row := range pairs {
		r.nativeToCanonPair[row.CoinMap] = row.Symbol
		r.canonToNativePair[row.Symbol] = row.CoinMap
	}
	for _, row := range coins {
		r.nativeToCanonCoin[row.CoinMap] = row.Symbol
		r.canonToNativeCoin[row.Symbol] = row.CoinMap
	}

	Logger.Info("Loaded canonical registry for " + exchangeID)
	return r, nil
}

func (r *Registry) Exchange() string {
	return r.exchange
}

func (r *Registry) NativeToCanonicalCoin(nativeID string) (string, bool) {
	code, ok := r.nativeToCanonCoin[nativeID]
	return code, ok
}

func (r *Registry) CanonicalToNativeCoin(code string) (string, bool) {
	nativeID, ok := r.canonToNativeCoin[code]
	return nativeID, ok
}

func (r *Registry) NativeToCanonicalPair(nativeID string) (string, bool) {
	symbol, ok := r.nativeToCanonPair[nativeID]
	return symbol, ok
}

func (r *Registry) CanonicalToNativePair(symbol string) (string, bool) {
	nativeID, ok := r.canonToNativePair[symbol]
	return nativeID, ok
}

// CanonPairs returns the exchange's canonical trading pairs, sorted.
func (r *Registry) CanonPairs() []string {
	pairs := make([]string, 0, len(r.canonToNativePair))
	for symbol := range r.canonToNativePair {
		pairs = append(pairs, symbol)
	}
	sort.Strings(pairs)
	return pairs
}

// CanonCoins returns the exchange's canonical coin codes, sorted.
func (r *Registry) CanonCoins() []string {
	coins := make([]string, 0, len(r.canonToNativeCoin))
	for code := range r.canonToNativeCoin {
		coins = append(coins, code)
	}
	sort.Strings(coins)
	return coins
}
