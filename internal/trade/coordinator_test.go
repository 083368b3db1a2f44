package trade

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cross-exchange-crypto-arbitrage/internal/catalog"
	"cross-exchange-crypto-arbitrage/internal/domain"
	"cross-exchange-crypto-arbitrage/internal/gateway"
	"cross-exchange-crypto-arbitrage/internal/membership"
	"cross-exchange-crypto-arbitrage/internal/registry"
)

type fakeGateway struct {
	createInfo gateway.OrderInfo
	createErr  error
	cancelInfo gateway.OrderInfo
	cancelErr  error
	fetchInfo  gateway.OrderInfo
	fetchErr   error
	wdInfo     gateway.WithdrawInfo
	wdErr      error

	createCalls int
	fetchCalls  int
}

func (f *fakeGateway) Name() string { return "binance" }

func (f *fakeGateway) CreateOrder(ctx context.Context, nativePair string, orderType domain.OrderType, side domain.OrderSide, amount, price float64) (gateway.OrderInfo, error) {
	f.createCalls++
	return f.createInfo, f.createErr
}

func (f *fakeGateway) CancelOrder(ctx context.Context, id, nativePair string, side domain.OrderSide) (gateway.OrderInfo, error) {
	return f.cancelInfo, f.cancelErr
}

func (f *fakeGateway) FetchOrder(ctx context.Context, id, nativePair string, side domain.OrderSide) (gateway.OrderInfo, error) {
	f.fetchCalls++
	return f.fetchInfo, f.fetchErr
}

func (f *fakeGateway) Withdraw(ctx context.Context, nativeCoin string, amount float64, address, tag string) (gateway.WithdrawInfo, error) {
	return f.wdInfo, f.wdErr
}

func (f *fakeGateway) FetchTicker(ctx context.Context, nativePair string) (gateway.Ticker, error) {
	return gateway.Ticker{}, errors.New("not implemented")
}

type fixture struct {
	coordinator *Coordinator
	gw          *fakeGateway
	index       *membership.Index
	mr          *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := catalog.NewWithDSN("file:" + t.Name() + "?mode=memory&cache=shared")
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.InsertPairMap(ctx, "binance", catalog.MapRow{CoinMap: "ADABTC", Symbol: "ADA/BTC"}))
	require.NoError(t, store.InsertCoinMap(ctx, "binance", catalog.MapRow{CoinMap: "ADA", Symbol: "ADA"}))
	require.NoError(t, store.InsertCoinMap(ctx, "binance", catalog.MapRow{CoinMap: "BTC", Symbol: "BTC"}))

	reg, err := registry.Load(ctx, store, "binance")
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	index := membership.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { index.Close() })

	gw := &fakeGateway{}
	coordinator := New(Deps{
		Registries: map[string]*registry.Registry{"binance": reg},
		Gateways:   map[string]gateway.Gateway{"binance": gw},
		Membership: index,
	})

	return &fixture{coordinator: coordinator, gw: gw, index: index, mr: mr}
}

func TestCreateOrderSuccessRecordsMembership(t *testing.T) {
	f := newFixture(t)
	f.gw.createInfo = gateway.OrderInfo{Success: true, OrderID: "20759607", Status: domain.StatusOpen}

	result := f.coordinator.CreateOrder(context.Background(), "binance", "ADA/BTC",
		domain.Limit, domain.Buy, 84, 0.0000119)

	require.True(t, result.Success)
	assert.Equal(t, "20759607", result.OrderID)
	assert.Equal(t, "ADA/BTC", result.Symbol)
	assert.Equal(t, "binance", result.Exchange)

	known, err := f.index.IsMember(context.Background(),
		membership.SetKey("binance", membership.NewOrder, "ADA/BTC", "buy"), "20759607")
	require.NoError(t, err)
	assert.True(t, known)
}

func TestCreateOrderInvalidType(t *testing.T) {
	f := newFixture(t)

	result := f.coordinator.CreateOrder(context.Background(), "binance", "ADA/BTC",
		"stop", domain.Buy, 84, 0.0000119)

	require.False(t, result.Success)
	assert.Equal(t, domain.KindInvalidOrderParams, result.Err.Kind)
	assert.Zero(t, f.gw.createCalls)
}

// A limit order with a non-finite price must fail before anything leaves the
// process: no gateway call, no membership write.
func TestCreateOrderLimitPriceNaN(t *testing.T) {
	f := newFixture(t)

	result := f.coordinator.CreateOrder(context.Background(), "binance", "ADA/BTC",
		domain.Limit, domain.Buy, 84, math.NaN())

	require.False(t, result.Success)
	assert.Equal(t, domain.KindInvalidOrderParams, result.Err.Kind)
	assert.Zero(t, f.gw.createCalls)

	members, err := f.index.Members(context.Background(),
		membership.SetKey("binance", membership.NewOrder, "ADA/BTC", "buy"))
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestCreateOrderUnknownExchange(t *testing.T) {
	f := newFixture(t)

	result := f.coordinator.CreateOrder(context.Background(), "cryptopia", "ADA/BTC",
		domain.Limit, domain.Buy, 84, 0.0000119)

	require.False(t, result.Success)
	assert.Equal(t, domain.KindUnknownExchange, result.Err.Kind)
}

func TestCreateOrderUnsupportedPair(t *testing.T) {
	f := newFixture(t)

	result := f.coordinator.CreateOrder(context.Background(), "binance", "DOGE/BTC",
		domain.Limit, domain.Buy, 3000, 0.00000041)

	require.False(t, result.Success)
	assert.Equal(t, domain.KindUnsupportedPair, result.Err.Kind)
	assert.Zero(t, f.gw.createCalls)
}

func TestCancelOrderRecordsMembership(t *testing.T) {
	f := newFixture(t)
	f.gw.cancelInfo = gateway.OrderInfo{Success: true, OrderID: "20759607"}

	result := f.coordinator.CancelOrder(context.Background(), "binance", "20759607", "ADA/BTC", domain.Sell)
	require.True(t, result.Success)

	canceled, err := f.index.IsMember(context.Background(),
		membership.SetKey("binance", membership.CanceledOrder, "ADA/BTC", "sell"), "20759607")
	require.NoError(t, err)
	assert.True(t, canceled)
}

func TestFetchOrderDirectFetchIsAuthoritative(t *testing.T) {
	f := newFixture(t)
	filled := 84.0
	original := 84.0
	f.gw.fetchInfo = gateway.OrderInfo{
		Success: true, OrderID: "20759607", Status: domain.StatusOpen,
		AmtFilled: &filled, AmtOriginal: &original,
	}

	// Membership evidence exists but must not override a successful fetch.
	require.NoError(t, f.index.Add(context.Background(),
		membership.SetKey("binance", membership.CanceledOrder, "ADA/BTC", "buy"), "20759607"))

	result := f.coordinator.FetchOrder(context.Background(), "binance", "20759607", "ADA/BTC", domain.Buy)
	require.True(t, result.Success)
	assert.Equal(t, domain.StatusOpen, result.Status)
	require.NotNil(t, result.AmtFilled)
	assert.Equal(t, 84.0, *result.AmtFilled)
}

func TestFetchOrderUnknownIdSurfacesRawFailure(t *testing.T) {
	f := newFixture(t)
	f.gw.fetchErr = errors.New("order does not exist")

	result := f.coordinator.FetchOrder(context.Background(), "binance", "999", "ADA/BTC", domain.Buy)
	require.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, domain.KindGateway, result.Err.Kind)
}

func TestFetchOrderFallsBackToClosed(t *testing.T) {
	f := newFixture(t)
	f.gw.fetchErr = errors.New("order aged out of the live query window")
	require.NoError(t, f.index.Add(context.Background(),
		membership.SetKey("binance", membership.NewOrder, "ADA/BTC", "buy"), "20759607"))

	result := f.coordinator.FetchOrder(context.Background(), "binance", "20759607", "ADA/BTC", domain.Buy)
	require.True(t, result.Success)
	assert.Equal(t, domain.StatusClosed, result.Status)
	assert.Equal(t, "20759607", result.OrderID)
	assert.Nil(t, result.AmtFilled)
	assert.Nil(t, result.AmtOriginal)
}

func TestFetchOrderFallsBackToCanceled(t *testing.T) {
	f := newFixture(t)
	f.gw.fetchInfo = gateway.OrderInfo{Info: "ORDER_NOT_OPEN"}
	ctx := context.Background()
	require.NoError(t, f.index.Add(ctx,
		membership.SetKey("binance", membership.NewOrder, "ADA/BTC", "buy"), "20759607"))
	require.NoError(t, f.index.Add(ctx,
		membership.SetKey("binance", membership.CanceledOrder, "ADA/BTC", "buy"), "20759607"))

	result := f.coordinator.FetchOrder(ctx, "binance", "20759607", "ADA/BTC", domain.Buy)
	require.True(t, result.Success)
	assert.Equal(t, domain.StatusCanceled, result.Status)
	assert.Nil(t, result.AmtFilled)
}

func TestFetchOrderMembershipReadFailure(t *testing.T) {
	f := newFixture(t)
	f.mr.Close() // membership index unreachable

	result := f.coordinator.FetchOrder(context.Background(), "binance", "20759607", "ADA/BTC", domain.Buy)
	require.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, domain.KindStore, result.Err.Kind)
	assert.Zero(t, f.gw.fetchCalls)
}

func TestWithdrawSuccess(t *testing.T) {
	f := newFixture(t)
	f.gw.wdInfo = gateway.WithdrawInfo{Success: true, ID: "wd-1"}

	result := f.coordinator.Withdraw(context.Background(), "binance", "ADA", 84.12, "DdzFFz...", "")
	require.True(t, result.Success)
	assert.Equal(t, "wd-1", result.ID)
	assert.Equal(t, "ADA", result.Coin)
}

func TestWithdrawUnsupportedCoin(t *testing.T) {
	f := newFixture(t)

	result := f.coordinator.Withdraw(context.Background(), "binance", "DOGE", 5000, "D6pTdd...", "")
	require.False(t, result.Success)
	assert.Equal(t, domain.KindUnsupportedCoin, result.Err.Kind)
}

type confirmCall struct {
	code string
	coin string
}

func confirmServer(t *testing.T, outcomes []bool, calls *[]confirmCall) *httptest.Server {
	t.Helper()
	i := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		*calls = append(*calls, confirmCall{code: r.FormValue("code"), coin: r.FormValue("coin")})
		success := outcomes[i]
		if i < len(outcomes)-1 {
			i++
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": success})
	}))
}

func TestWithdrawConfirmsVerificationLink(t *testing.T) {
	f := newFixture(t)
	var calls []confirmCall
	server := confirmServer(t, []bool{true}, &calls)
	defer server.Close()
	f.coordinator.confirmURL = server.URL

	f.gw.wdInfo = gateway.WithdrawInfo{
		Success: true, ID: "wd-2",
		VerifyURL: "https://example.com/confirm?c=&code=abc123",
	}

	result := f.coordinator.Withdraw(context.Background(), "binance", "ADA", 10, "addr", "")
	require.True(t, result.Success)
	require.Len(t, calls, 1)
	assert.Equal(t, "abc123", calls[0].code) // code is the last =-segment of the URL
	assert.Equal(t, "ADA", calls[0].coin)
}

func TestWithdrawConfirmRetriesOnce(t *testing.T) {
	f := newFixture(t)
	var calls []confirmCall
	server := confirmServer(t, []bool{false, true}, &calls)
	defer server.Close()
	f.coordinator.confirmURL = server.URL

	f.gw.wdInfo = gateway.WithdrawInfo{Success: true, ID: "wd-3", VerifyURL: "https://x/y?code=zz"}

	result := f.coordinator.Withdraw(context.Background(), "binance", "ADA", 10, "addr", "")
	require.True(t, result.Success)
	assert.Len(t, calls, 2)
}

func TestWithdrawConfirmFailsTwice(t *testing.T) {
	f := newFixture(t)
	var calls []confirmCall
	server := confirmServer(t, []bool{false, false}, &calls)
	defer server.Close()
	f.coordinator.confirmURL = server.URL

	f.gw.wdInfo = gateway.WithdrawInfo{Success: true, ID: "wd-4", VerifyURL: "https://x/y?code=zz"}

	result := f.coordinator.Withdraw(context.Background(), "binance", "ADA", 10, "addr", "")
	require.False(t, result.Success)
	assert.Equal(t, domain.KindGateway, result.Err.Kind)
	assert.Len(t, calls, 2)
}
