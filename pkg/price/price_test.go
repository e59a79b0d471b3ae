package price_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"portal-swap/pkg/client"
	"portal-swap/pkg/currency"
	"portal-swap/pkg/price"
)

var weth = currency.NewToken(currency.ChainEthereum,
	common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), 18, "WETH")

// priceServer serves the token fiat-price endpoint with a mutable quote.
type priceServer struct {
	requests atomic.Int64

	mu    sync.Mutex
	quote float64
}

func (s *priceServer) set(quote float64) {
	s.mu.Lock()
	s.quote = quote
	s.mu.Unlock()
}

func (s *priceServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.mu.Lock()
		quote := s.quote
		s.mu.Unlock()
		json.NewEncoder(w).Encode(client.PriceResponse{
			Tokens: []client.TokenPrice{{Symbol: "WETH", Price: quote}},
		})
	})
}

func newTestSource(t *testing.T, srv *httptest.Server) *price.Source {
	t.Helper()
	s := price.NewSource(client.New(srv.URL),
		price.WithCadence(10*time.Millisecond, time.Hour))
	t.Cleanup(s.Close)
	return s
}

func waitForPrice(t *testing.T, s *price.Source, c *currency.Currency) *currency.Price {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p := s.PriceOf(c); p != nil {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.FailNow(t, "price never resolved")
	return nil
}

func TestReferenceCurrencyPerChain(t *testing.T) {
	for chainID, symbol := range map[uint64]string{
		currency.ChainEthereum: "USDC",
		currency.ChainPolygon:  "USDC",
		currency.ChainArbitrum: "USDC",
		currency.ChainOptimism: "DAI",
	} {
		c, ok := price.ReferenceCurrency(chainID)
		require.True(t, ok)
		require.Equal(t, symbol, c.Symbol())
	}

	_, ok := price.ReferenceCurrency(56)
	require.False(t, ok)
}

func TestStablecoinPricesAtUnitWithoutNetwork(t *testing.T) {
	ms := &priceServer{}
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	s := newTestSource(t, srv)
	stable, ok := price.ReferenceCurrency(currency.ChainEthereum)
	require.True(t, ok)

	p := s.PriceOf(&stable)
	require.NotNil(t, p)

	one := currency.NewAmount(stable, common.Big1)
	out, err := p.Quote(one)
	require.NoError(t, err)
	require.Equal(t, "1", out.RawString())

	require.Same(t, p, s.PriceOf(&stable))
	require.Zero(t, ms.requests.Load())
}

func TestPriceOfUnsupportedChainIsNil(t *testing.T) {
	ms := &priceServer{}
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	s := newTestSource(t, srv)
	exotic := currency.NewToken(56,
		common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc"), 18, "CCC")
	require.Nil(t, s.PriceOf(&exotic))
	require.Nil(t, s.PriceOf(nil))
}

func TestPricePointerStableWhileRateUnchanged(t *testing.T) {
	ms := &priceServer{}
	ms.set(2000)
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	s := newTestSource(t, srv)
	p1 := waitForPrice(t, s, &weth)

	// several poll cycles with an unchanged rate keep the same pointer
	before := ms.requests.Load()
	deadline := time.Now().Add(2 * time.Second)
	for ms.requests.Load() < before+3 {
		require.True(t, time.Now().Before(deadline), "polling stalled")
		require.Same(t, p1, s.PriceOf(&weth))
		time.Sleep(5 * time.Millisecond)
	}
	require.Same(t, p1, s.PriceOf(&weth))

	ms.set(2100)
	var p2 *currency.Price
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p2 = s.PriceOf(&weth)
		if p2 != p1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NotSame(t, p1, p2)
	require.False(t, p1.Equal(*p2))
}

func TestValueOfConvertsIntoReference(t *testing.T) {
	ms := &priceServer{}
	ms.set(2000)
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	s := newTestSource(t, srv)
	waitForPrice(t, s, &weth)

	half, err := currency.ParseAmount("0.5", weth)
	require.NoError(t, err)
	v := s.ValueOf(&half)
	require.NotNil(t, v)
	require.Equal(t, "1000", v.Decimal().String())
	require.Equal(t, "USDC", v.Currency().Symbol())
}

func TestValueOfUnknownPriceIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := newTestSource(t, srv)
	amt := currency.NewAmount(weth, common.Big1)
	require.Nil(t, s.ValueOf(&amt))
	require.Nil(t, s.ValueOf(nil))
}

func TestClosedSourceStopsResolving(t *testing.T) {
	ms := &priceServer{}
	ms.set(2000)
	srv := httptest.NewServer(ms.handler())
	defer srv.Close()

	s := price.NewSource(client.New(srv.URL),
		price.WithCadence(10*time.Millisecond, time.Hour))
	waitForPrice(t, s, &weth)
	s.Close()

	other := currency.NewToken(currency.ChainEthereum,
		common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd"), 18, "DDD")
	require.Nil(t, s.PriceOf(&other))
}
