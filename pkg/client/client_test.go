package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"portal-swap/pkg/client"
)

func hexBig(t *testing.T, s string) hexutil.Big {
	t.Helper()
	var b hexutil.Big
	require.NoError(t, b.UnmarshalText([]byte(s)))
	return b
}

func TestGetPortalRequestShape(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode(client.PortalResponse{
			Context: client.PortalContext{
				SellAmount:   "100",
				MinBuyAmount: "98000000",
			},
			Tx: &client.PortalTx{
				Data:  "0xdeadbeef",
				To:    "0x1111111111111111111111111111111111111111",
				From:  "0x2222222222222222222222222222222222222222",
				Value: &client.BigNumberJSON{Type: "BigNumber", Hex: hexBig(t, "0x0")},
			},
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	resp, err := c.GetPortal(context.Background(), client.PortalArgs{
		TokenInAddress:     common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		TokenInChainID:     1,
		TokenOutAddress:    common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		TokenOutChainID:    1,
		Amount:             "100",
		TakerAddress:       common.Address{},
		SlippagePercentage: "0.005",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Tx)
	require.Equal(t, "98000000", resp.Context.MinBuyAmount)

	require.Equal(t, "/portal/ethereum", gotPath)
	require.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", gotQuery["sellToken"])
	require.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", gotQuery["buyToken"])
	require.Equal(t, "1", gotQuery["sellTokenNetwork"])
	require.Equal(t, "1", gotQuery["buyTokenNetwork"])
	require.Equal(t, "100", gotQuery["sellAmount"])
	require.Equal(t, "0x0000000000000000000000000000000000000000", gotQuery["takerAddress"])
	require.Equal(t, "0.005", gotQuery["slippagePercentage"])
	require.Equal(t, "false", gotQuery["validate"])
}

func TestChainNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(client.ApprovalResponse{})
	}))
	defer srv.Close()
	c := client.New(srv.URL)

	for chainID, network := range map[uint64]string{1: "ethereum", 137: "polygon", 42161: "arbitrum", 10: "optimism"} {
		name, err := client.ChainName(chainID)
		require.NoError(t, err)
		require.Equal(t, network, name)
	}

	_, err := c.GetApproval(context.Background(), client.ApprovalArgs{TokenInChainID: 56})
	require.Error(t, err)
	require.Contains(t, err.Error(), "56")
}

func TestErrorBodyDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"insufficient liquidity"}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.GetPortal(context.Background(), client.PortalArgs{TokenInChainID: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "insufficient liquidity")
	require.Contains(t, err.Error(), "400")
}

func TestErrorBodyNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.GetPrice(context.Background(), client.PriceArgs{ChainID: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestBigNumberJSONDecoding(t *testing.T) {
	var tx client.PortalTx
	err := json.Unmarshal([]byte(`{
		"data": "0x00",
		"to": "0x1111111111111111111111111111111111111111",
		"from": "0x2222222222222222222222222222222222222222",
		"value": {"type": "BigNumber", "hex": "0x0de0b6b3a7640000"},
		"gasLimit": {"type": "BigNumber", "hex": "0x5208"}
	}`), &tx)
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", tx.Value.Int().String())
	require.Equal(t, "21000", tx.GasLimit.Int().String())

	var missing *client.BigNumberJSON
	require.Equal(t, "0", missing.Int().String())
}

func TestPortalContextProtocolIDTag(t *testing.T) {
	var ctx client.PortalContext
	err := json.Unmarshal([]byte(`{"protcolId":"uniswap-v3"}`), &ctx)
	require.NoError(t, err)
	require.Equal(t, "uniswap-v3", ctx.ProtocolID)
}

func TestRequestKeysDiffer(t *testing.T) {
	base := client.PortalArgs{TokenInChainID: 1, TokenOutChainID: 1, Amount: "100", SlippagePercentage: "0.005"}
	other := base
	other.Amount = "200"
	require.NotEqual(t, base.Key(), other.Key())
	require.Equal(t, base.Key(), base.Key())
}

func TestGetAccountRequestShape(t *testing.T) {
	var gotPath, gotOwner string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotOwner = r.URL.Query().Get("ownerAddress")
		json.NewEncoder(w).Encode(client.AccountResponse{
			Balances: []client.Balance{{Symbol: "WETH", Balance: 1.5}},
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	resp, err := c.GetAccount(context.Background(), client.AccountArgs{
		ChainID:      137,
		OwnerAddress: common.HexToAddress("0x3333333333333333333333333333333333333333"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Balances, 1)
	require.Equal(t, "/account/polygon", gotPath)
	require.Equal(t, "0x3333333333333333333333333333333333333333", gotOwner)
}
