package quoter_test

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"portal-swap/pkg/client"
	"portal-swap/pkg/currency"
	"portal-swap/pkg/quoter"
	"portal-swap/pkg/trade"
)

var (
	tokenA = currency.NewToken(currency.ChainEthereum,
		common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), 18, "AAA")
	tokenB = currency.NewToken(currency.ChainEthereum,
		common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"), 6, "BBB")
)

func amountOf(raw int64) currency.Amount {
	return currency.NewAmount(tokenA, big.NewInt(raw))
}

// quoteServer mocks the aggregation service, recording portal requests by
// sellAmount and optionally holding selected responses until released.
type quoteServer struct {
	mu            sync.Mutex
	portalCalls   []string
	delay         map[string]chan struct{}
	shouldApprove bool
	approvalDelay time.Duration
}

func newQuoteServer() *quoteServer {
	return &quoteServer{delay: make(map[string]chan struct{})}
}

func (s *quoteServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/portal"):
			sellAmount := r.URL.Query().Get("sellAmount")
			s.mu.Lock()
			s.portalCalls = append(s.portalCalls, sellAmount)
			gate := s.delay[sellAmount]
			s.mu.Unlock()
			if gate != nil {
				<-gate
			}
			json.NewEncoder(w).Encode(client.PortalResponse{
				Context: client.PortalContext{
					SellAmount:   sellAmount,
					MinBuyAmount: "98000000",
				},
				Tx: &client.PortalTx{
					Data:  "0xdeadbeef",
					To:    "0x1111111111111111111111111111111111111111",
					From:  "0x2222222222222222222222222222222222222222",
					Value: &client.BigNumberJSON{},
				},
			})
		case strings.HasPrefix(r.URL.Path, "/approval"):
			s.mu.Lock()
			shouldApprove := s.shouldApprove
			delay := s.approvalDelay
			s.mu.Unlock()
			if delay > 0 {
				time.Sleep(delay)
			}
			json.NewEncoder(w).Encode(client.ApprovalResponse{
				Context: client.ApprovalContext{
					ShouldApprove: shouldApprove,
					Target:        "0x5555555555555555555555555555555555555555",
				},
			})
		default:
			json.NewEncoder(w).Encode(client.PriceResponse{})
		}
	})
}

func (s *quoteServer) portalCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.portalCalls)
}

func (s *quoteServer) delayFor(sellAmount string) chan struct{} {
	gate := make(chan struct{})
	s.mu.Lock()
	s.delay[sellAmount] = gate
	s.mu.Unlock()
	return gate
}

func newTestQuoter(t *testing.T, srv *httptest.Server, opts ...quoter.Option) *quoter.Quoter {
	t.Helper()
	c := client.New(srv.URL)
	opts = append([]quoter.Option{
		quoter.WithIntervals(5*time.Millisecond, time.Hour, time.Hour),
	}, opts...)
	q := quoter.New(c, opts...)
	t.Cleanup(q.Close)
	return q
}

func waitForTrade(t *testing.T, q *quoter.Quoter, amount *currency.Amount, other *currency.Currency, slippage currency.Percent, want trade.State) quoter.BestTrade {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var best quoter.BestTrade
	for time.Now().Before(deadline) {
		best = q.GetTrade(trade.ExactInput, amount, other, slippage)
		if best.State == want {
			return best
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, want, best.State)
	return best
}

func TestEndToEndValidQuote(t *testing.T) {
	ms := newQuoteServer()
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv)
	amount := amountOf(100)
	slippage := currency.PercentFromBips(50)

	best := waitForTrade(t, q, &amount, &tokenB, slippage, trade.StateValid)
	require.NotNil(t, best.Trade)
	require.Equal(t, "100", best.Trade.InputAmount().RawString())
	require.True(t, best.Trade.InputAmount().Currency().Equal(tokenA))
	require.Equal(t, "98000000", best.Trade.OutputAmount().RawString())
	require.True(t, best.Trade.OutputAmount().Currency().Equal(tokenB))
}

func TestEqualCurrenciesInvalidAndNoRequest(t *testing.T) {
	ms := newQuoteServer()
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv)
	amount := amountOf(100)
	slippage := currency.PercentFromBips(50)

	for i := 0; i < 5; i++ {
		best := q.GetTrade(trade.ExactInput, &amount, &tokenA, slippage)
		require.Equal(t, trade.StateInvalid, best.State)
		require.Nil(t, best.Trade)
		time.Sleep(10 * time.Millisecond)
	}
	require.Zero(t, ms.portalCallCount())
}

func TestMissingCurrencyInvalid(t *testing.T) {
	ms := newQuoteServer()
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv)
	amount := amountOf(100)
	slippage := currency.PercentFromBips(50)

	best := q.GetTrade(trade.ExactInput, &amount, nil, slippage)
	require.Equal(t, trade.StateInvalid, best.State)
	best = q.GetTrade(trade.ExactInput, nil, &tokenB, slippage)
	require.Equal(t, trade.StateInvalid, best.State)
	require.Zero(t, ms.portalCallCount())
}

func TestExactOutputUnsupported(t *testing.T) {
	ms := newQuoteServer()
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv)
	amount := currency.NewAmount(tokenB, big.NewInt(100))
	slippage := currency.PercentFromBips(50)

	best := q.GetTrade(trade.ExactOutput, &amount, &tokenA, slippage)
	require.Equal(t, trade.StateInvalid, best.State)
	require.Zero(t, ms.portalCallCount())
}

func TestDebounceBurstReachesNetworkOnce(t *testing.T) {
	ms := newQuoteServer()
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv, quoter.WithIntervals(60*time.Millisecond, time.Hour, time.Hour))
	slippage := currency.PercentFromBips(50)

	// the first value bypasses the quiescence window
	first := amountOf(1)
	q.GetTrade(trade.ExactInput, &first, &tokenB, slippage)

	// a burst of changes inside the window never reaches the network
	for i := int64(2); i <= 20; i++ {
		amount := amountOf(i)
		q.GetTrade(trade.ExactInput, &amount, &tokenB, slippage)
		time.Sleep(time.Millisecond)
	}

	final := amountOf(100)
	deadline := time.Now().Add(2 * time.Second)
	for {
		best := q.GetTrade(trade.ExactInput, &final, &tokenB, slippage)
		if best.State == trade.StateValid && best.Trade.InputAmount().RawString() == "100" {
			break
		}
		require.True(t, time.Now().Before(deadline), "settled quote not observed")
		time.Sleep(5 * time.Millisecond)
	}

	ms.mu.Lock()
	calls := append([]string(nil), ms.portalCalls...)
	ms.mu.Unlock()

	require.Equal(t, []string{"1", "100"}, calls)
}

func TestNativeInputApprovalAlwaysValid(t *testing.T) {
	ms := newQuoteServer()
	ms.shouldApprove = true
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv)
	account := common.HexToAddress("0x4444444444444444444444444444444444444444")
	q.SetAccount(&account)

	eth, err := currency.Native(currency.ChainEthereum)
	require.NoError(t, err)
	amount := currency.NewAmount(eth, big.NewInt(100))

	for i := 0; i < 5; i++ {
		state := q.GetApprovalState(&eth, &tokenB, &amount)
		require.True(t, state.IsApproved)
		require.Equal(t, trade.StateValid, state.State)
		require.Nil(t, state.Spender)
		time.Sleep(5 * time.Millisecond)
	}
}

func TestApprovalResolvesSpender(t *testing.T) {
	ms := newQuoteServer()
	ms.shouldApprove = true
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv)
	account := common.HexToAddress("0x4444444444444444444444444444444444444444")
	q.SetAccount(&account)

	amount := amountOf(100)

	deadline := time.Now().Add(2 * time.Second)
	var state quoter.ApprovalState
	for time.Now().Before(deadline) {
		state = q.GetApprovalState(&tokenA, &tokenB, &amount)
		if state.State == trade.StateValid {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, trade.StateValid, state.State)
	require.False(t, state.IsApproved)
	require.NotNil(t, state.Spender)
	require.Equal(t, common.HexToAddress("0x5555555555555555555555555555555555555555"), *state.Spender)
}

func TestApprovalOptimisticWhileLoading(t *testing.T) {
	ms := newQuoteServer()
	ms.approvalDelay = 50 * time.Millisecond
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv)
	account := common.HexToAddress("0x4444444444444444444444444444444444444444")
	q.SetAccount(&account)

	amount := amountOf(100)
	state := q.GetApprovalState(&tokenA, &tokenB, &amount)
	require.Equal(t, trade.StateLoading, state.State)
	require.True(t, state.IsApproved)
}

func TestApprovalWithoutAccountInvalid(t *testing.T) {
	ms := newQuoteServer()
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv)
	amount := amountOf(100)

	state := q.GetApprovalState(&tokenA, &tokenB, &amount)
	require.False(t, state.IsApproved)
	require.Equal(t, trade.StateInvalid, state.State)
}

func TestStalenessReportsSyncingNeverLoading(t *testing.T) {
	ms := newQuoteServer()
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv)
	slippage := currency.PercentFromBips(50)

	first := amountOf(100)
	best := waitForTrade(t, q, &first, &tokenB, slippage, trade.StateValid)
	oldInput := best.Trade.InputAmount().RawString()

	// the replacement quote hangs at the server until released
	gate := ms.delayFor("200")
	second := amountOf(200)

	sawSyncing := false
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		best = q.GetTrade(trade.ExactInput, &second, &tokenB, slippage)
		require.NotEqual(t, trade.StateLoading, best.State)
		require.NotNil(t, best.Trade)
		if best.State == trade.StateSyncing {
			sawSyncing = true
			require.Equal(t, oldInput, best.Trade.InputAmount().RawString())
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, sawSyncing)

	close(gate)
	best = waitForTrade(t, q, &second, &tokenB, slippage, trade.StateValid)
	require.Equal(t, "200", best.Trade.InputAmount().RawString())
}

func TestNoRouteFoundOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"no route"}`))
	}))
	defer srv.Close()

	q := newTestQuoter(t, srv)
	amount := amountOf(100)
	slippage := currency.PercentFromBips(50)

	waitForTrade(t, q, &amount, &tokenB, slippage, trade.StateNoRouteFound)
}

func TestMalformedQuoteInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// a quote without a transaction payload cannot become a trade
		json.NewEncoder(w).Encode(client.PortalResponse{
			Context: client.PortalContext{SellAmount: "100", MinBuyAmount: "98000000"},
		})
	}))
	defer srv.Close()

	q := newTestQuoter(t, srv)
	amount := amountOf(100)
	slippage := currency.PercentFromBips(50)

	waitForTrade(t, q, &amount, &tokenB, slippage, trade.StateInvalid)
}

func TestHiddenWindowWithholdsRequests(t *testing.T) {
	ms := newQuoteServer()
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	q := newTestQuoter(t, srv)
	q.SetWindowVisible(false)

	amount := amountOf(100)
	slippage := currency.PercentFromBips(50)

	for i := 0; i < 5; i++ {
		best := q.GetTrade(trade.ExactInput, &amount, &tokenB, slippage)
		require.Equal(t, trade.StateNoRouteFound, best.State)
		time.Sleep(10 * time.Millisecond)
	}
	require.Zero(t, ms.portalCallCount())

	q.SetWindowVisible(true)
	waitForTrade(t, q, &amount, &tokenB, slippage, trade.StateValid)
}

func TestMetricsObserved(t *testing.T) {
	ms := newQuoteServer()
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	var mu sync.Mutex
	keys := map[string]int{}
	sink := sinkFunc(func(key string, value float64, unit string) {
		mu.Lock()
		keys[key]++
		mu.Unlock()
	})

	q := newTestQuoter(t, srv, quoter.WithMetrics(sink))
	amount := amountOf(100)
	slippage := currency.PercentFromBips(50)

	waitForTrade(t, q, &amount, &tokenB, slippage, trade.StateValid)

	mu.Lock()
	defer mu.Unlock()
	require.Positive(t, keys["quote_fetch_latency"])
}

type sinkFunc func(key string, value float64, unit string)

func (f sinkFunc) PutMetric(key string, value float64, unit string) { f(key, value, unit) }
