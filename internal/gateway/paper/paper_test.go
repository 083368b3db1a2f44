package paper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-exchange-crypto-arbitrage/internal/domain"
	"cross-exchange-crypto-arbitrage/internal/gateway"
)

func TestOrderLifecycle(t *testing.T) {
	g := New("paper")
	ctx := context.Background()

	created, err := g.CreateOrder(ctx, "ADABTC", domain.Limit, domain.Buy, 84, 0.0000119)
	require.NoError(t, err)
	require.True(t, created.Success)
	require.NotEmpty(t, created.OrderID)
	assert.Equal(t, domain.StatusOpen, created.Status)

	fetched, err := g.FetchOrder(ctx, created.OrderID, "ADABTC", domain.Buy)
	require.NoError(t, err)
	require.True(t, fetched.Success)
	assert.Equal(t, domain.StatusOpen, fetched.Status)
	require.NotNil(t, fetched.AmtOriginal)
	assert.Equal(t, 84.0, *fetched.AmtOriginal)

	canceled, err := g.CancelOrder(ctx, created.OrderID, "ADABTC", domain.Buy)
	require.NoError(t, err)
	require.True(t, canceled.Success)

	fetched, err = g.FetchOrder(ctx, created.OrderID, "ADABTC", domain.Buy)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, fetched.Status)
}

func TestFetchUnknownOrder(t *testing.T) {
	g := New("paper")

	info, err := g.FetchOrder(context.Background(), "no-such-id", "ADABTC", domain.Buy)
	require.NoError(t, err)
	assert.False(t, info.Success)
}

func TestForgetDropsOrder(t *testing.T) {
	g := New("paper")
	ctx := context.Background()

	created, err := g.CreateOrder(ctx, "BTCUSDT", domain.Market, domain.Sell, 0.5, 0)
	require.NoError(t, err)

	g.Forget(created.OrderID)

	info, err := g.FetchOrder(ctx, created.OrderID, "BTCUSDT", domain.Sell)
	require.NoError(t, err)
	assert.False(t, info.Success)
}

func TestTickerSeeding(t *testing.T) {
	g := New("paper")
	ctx := context.Background()

	_, err := g.FetchTicker(ctx, "BTCUSDT")
	require.Error(t, err)

	want := gateway.Ticker{Bid: 10000, Ask: 10010, Volume24h: 1200, Time: time.Now()}
	g.SetTicker("BTCUSDT", want)

	got, err := g.FetchTicker(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWithdrawCarriesVerifyURL(t *testing.T) {
	g := New("paper")
	g.VerifyURL = "https://example.com/confirm?code=abc"

	info, err := g.Withdraw(context.Background(), "ADA", 10, "addr", "")
	require.NoError(t, err)
	require.True(t, info.Success)
	assert.Equal(t, "https://example.com/confirm?code=abc", info.VerifyURL)
	assert.NotEmpty(t, info.ID)
}
