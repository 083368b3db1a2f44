package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MapRow is one row of the pair_map or coin_map table: the exchange-native
// spelling and its canonical counterpart.
type MapRow struct {
	CoinMap string // native identifier
	Symbol  string // canonical identifier
}

// ExchangeInfo holds the credentials needed to construct a gateway.
type ExchangeInfo struct {
	ID       string
	ApiKey   string
	Secret   string
	Password string
}

// Trade is a completed or attempted order persisted to the trade ledger.
type Trade struct {
	Exchange string
	OrderID  string
	Pair     string
	Side     string
	Type     string
	Amount   float64
	Price    float64
	Time     time.Time
}

type Service interface {
	GetPairMapForExchange(ctx context.Context, exchangeID string) ([]MapRow, error)
	GetCoinMapForExchange(ctx context.Context, exchangeID string) ([]MapRow, error)
	GetExchangesArray(ctx context.Context) ([]ExchangeInfo, error)
	GetCommonTickers(ctx context.Context, exchangeA, exchangeB string) ([]string, error)
	InsertExchange(ctx context.Context, info ExchangeInfo) error
	InsertPairMap(ctx context.Context, exchangeID string, row MapRow) error
	InsertCoinMap(ctx context.Context, exchangeID string, row MapRow) error
	SaveTrade(ctx context.Context, trade Trade) error
	Health() map[string]string
	Close() error
}

type service struct {
	db *sql.DB
}

var dburl = os.Getenv("DB_URL")

func New() Service {
	if dburl == "" {
		dburl = "catalog.db"
	}
	return NewWithDSN(dburl)
}

func NewWithDSN(dsn string) Service {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		// This will not be a connection error, but a DSN parse error or
		// another initialization error.
		log.Fatal(err)
	}

	s := &service{db: db}
	if err := s.migrate(); err != nil {
		log.Fatal(err)
	}
	return s
}

func (s *service) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			api_key TEXT NOT NULL DEFAULT '',
			secret TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS pair_map (
			exchange TEXT NOT NULL,
			coin_map TEXT NOT NULL,
			symbol TEXT NOT NULL,
			PRIMARY KEY (exchange, coin_map)
		)`,
		`CREATE TABLE IF NOT EXISTS coin_map (
			exchange TEXT NOT NULL,
			coin_map TEXT NOT NULL,
			symbol TEXT NOT NULL,
			PRIMARY KEY (exchange, coin_map)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exchange TEXT NOT NULL,
			order_id TEXT NOT NULL,
			pair TEXT NOT NULL,
			side TEXT NOT NULL,
			type TEXT NOT NULL,
			amount REAL NOT NULL,
			price REAL NOT NULL,
			time DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pair_map_exchange ON pair_map (exchange)`,
		`CREATE INDEX IF NOT EXISTS idx_coin_map_exchange ON coin_map (exchange)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("catalog migration failed: %w", err)
		}
	}
	return nil
}

func (s *service) GetPairMapForExchange(ctx context.Context, exchangeID string) ([]MapRow, error) {
	return s.queryMap(ctx, "SELECT coin_map, symbol FROM pair_map WHERE exchange = ?", exchangeID)
}

func (s *service) GetCoinMapForExchange(ctx context.Context, exchangeID string) ([]MapRow, error) {
	return s.queryMap(ctx, "SELECT coin_map, symbol FROM coin_map WHERE exchange = ?", exchangeID)
}

func (s *service) queryMap(ctx context.Context, query string, exchangeID string) ([]MapRow, error) {
	rows, err := s.db.QueryContext(ctx, query, exchangeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MapRow
	for rows.Next() {
		var row MapRow
		if err := rows.Scan(&row.CoinMap, &row.Symbol); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *service) GetExchangesArray(ctx context.Context) ([]ExchangeInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, api_key, secret, password FROM exchanges")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ExchangeInfo
	for rows.Next() {
		var info ExchangeInfo
		if err := rows.Scan(&info.ID, &info.ApiKey, &info.Secret, &info.Password); err != nil {
			return nil, err
		}
		result = append(result, info)
	}
	return result, rows.Err()
}

// GetCommonTickers returns every canonical pair both exchanges list in
// pair_map, each exactly once.
func (s *service) GetCommonTickers(ctx context.Context, exchangeA, exchangeB string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT a.symbol FROM pair_map a
		 JOIN pair_map b ON a.symbol = b.symbol
		 WHERE a.exchange = ? AND b.exchange = ?
		 ORDER BY a.symbol`, exchangeA, exchangeB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		result = append(result, symbol)
	}
	return result, rows.Err()
}

func (s *service) InsertExchange(ctx context.Context, info ExchangeInfo) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO exchanges (id, api_key, secret, password) VALUES (?, ?, ?, ?)`,
		info.ID, info.ApiKey, info.Secret, info.Password)
	return err
}

func (s *service) InsertPairMap(ctx context.Context, exchangeID string, row MapRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pair_map (exchange, coin_map, symbol) VALUES (?, ?, ?)`,
		exchangeID, row.CoinMap, row.Symbol)
	return err
}

func (s *service) InsertCoinMap(ctx context.Context, exchangeID string, row MapRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO coin_map (exchange, coin_map, symbol) VALUES (?, ?, ?)`,
		exchangeID, row.CoinMap, row.Symbol)
	return err
}

func (s *service) SaveTrade(ctx context.Context, trade Trade) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (exchange, order_id, pair, side, type, amount, price, time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.Exchange, trade.OrderID, trade.Pair, trade.Side, trade.Type,
		trade.Amount, trade.Price, trade.Time)
	return err
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["open_connections"] = fmt.Sprintf("%d", s.db.Stats().OpenConnections)
	return stats
}

func (s *service) Close() error {
	log.Printf("Disconnected from database: %s", dburl)
	return s.db.Close()
}
