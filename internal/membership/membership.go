package membership

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Kind scopes a membership set to the event it records.
type Kind string

const (
	NewOrder      Kind = "new_order"
	CanceledOrder Kind = "canceled_order"
)

// Index is the append-only record of order ids known to have been created or
// canceled, used as secondary evidence when a direct status fetch is
// unreliable. Ids are added and never removed; concurrent adds to the same
// set are commutative so no coordination is needed beyond Redis's atomic
// SADD.
type Index struct {
	rdb *redis.Client
}

type Options struct {
	Addr     string
	DB       int
	Password string
}

func New(opts Options) *Index {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Password: opts.Password,
	})
	return &Index{rdb: rdb}
}

// NewFromClient wraps an existing client; used by tests running against
// miniredis.
func NewFromClient(rdb *redis.Client) *Index {
	return &Index{rdb: rdb}
}

// SetKey builds the exchange:kind:pair:side set name.
func SetKey(exchange string, kind Kind, pair, side string) string {
	return exchange + ":" + string(kind) + ":" + pair + ":" + side
}

func (i *Index) Add(ctx context.Context, setKey, memberID string) error {
	return i.rdb.SAdd(ctx, setKey, memberID).Err()
}

func (i *Index) IsMember(ctx context.Context, setKey, memberID string) (bool, error) {
	return i.rdb.SIsMember(ctx, setKey, memberID).Result()
}

func (i *Index) Members(ctx context.Context, setKey string) ([]string, error) {
	return i.rdb.SMembers(ctx, setKey).Result()
}

func (i *Index) Close() error {
	return i.rdb.Close()
}
