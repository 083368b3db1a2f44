package pricecache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cross-exchange-crypto-arbitrage/internal/domain"
	"cross-exchange-crypto-arbitrage/internal/platform/logger"
)

// Live tickers age out quickly so a stale exchange never poisons a spread
// cycle for long.
const priceTTL = 20 * time.Second

var Logger = logger.Get()

// Cache is the low-latency price store. Keys follow the
// prices:<symbol>:<exchange> convention.
type Cache struct {
	rdb *redis.Client
}

type Options struct {
	Addr     string
	DB       int
	Password string
}

func New(opts Options) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Password: opts.Password,
	})
	return &Cache{rdb: rdb}
}

// NewFromClient wraps an existing client; used by tests running against
// miniredis.
func NewFromClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func key(symbol, exchange string) string {
	return "prices:" + symbol + ":" + exchange
}

// SetPrices writes a batch of tickers in one pipeline, each with the short
// TTL applied.
func (c *Cache) SetPrices(ctx context.Context, prices []domain.Price) error {
	pipe := c.rdb.Pipeline()
	for _, price := range prices {
		payload, err := json.Marshal(price)
		if err != nil {
			return err
		}
		k := key(price.Symbol, price.Exchange)
		pipe.Set(ctx, k, payload, 0)
		pipe.Expire(ctx, k, priceTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// GetAllPrices reads every live price entry. Entries that fail to decode are
// skipped, not fatal.
func (c *Cache) GetAllPrices(ctx context.Context) ([]domain.Price, error) {
	keys, err := c.rdb.Keys(ctx, "prices:*").Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	prices := make([]domain.Price, 0, len(vals))
	for i, val := range vals {
		raw, ok := val.(string)
		if !ok {
			continue // expired between KEYS and MGET
		}
		var price domain.Price
		if err := json.Unmarshal([]byte(raw), &price); err != nil {
			Logger.Warn("Skipping undecodable price entry", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		prices = append(prices, price)
	}
	return prices, nil
}

// GetPrice reads a single exchange/pair ticker. A missing entry returns
// (zero, false, nil) rather than an error.
func (c *Cache) GetPrice(ctx context.Context, exchange, symbol string) (domain.Price, bool, error) {
	raw, err := c.rdb.Get(ctx, key(symbol, exchange)).Result()
	if err == redis.Nil {
		return domain.Price{}, false, nil
	}
	if err != nil {
		return domain.Price{}, false, err
	}
	var price domain.Price
	if err := json.Unmarshal([]byte(raw), &price); err != nil {
		return domain.Price{}, false, err
	}
	return price, true, nil
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
