package client

import (
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BigNumberJSON is the ethers-style big-number encoding used by the
// aggregation service: {"type":"BigNumber","hex":"0x1234"}.
type BigNumberJSON struct {
	Type string      `json:"type"`
	Hex  hexutil.Big `json:"hex"`
}

// Int returns the decoded integer, zero when the value is absent.
func (b *BigNumberJSON) Int() *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.Hex.ToInt())
}

// PortalArgs are the query arguments for the swap-quote endpoint. All fields
// are required; absence of any upstream input means no PortalArgs value is
// formed at all (see quoter).
type PortalArgs struct {
	TokenInAddress     common.Address
	TokenInChainID     uint64
	TokenInDecimals    uint8
	TokenInSymbol      string
	TokenOutAddress    common.Address
	TokenOutChainID    uint64
	TokenOutDecimals   uint8
	TokenOutSymbol     string
	Amount             string
	TakerAddress       common.Address
	SlippagePercentage string
	Validate           bool
	Partner            common.Address
}

func (a PortalArgs) values() url.Values {
	q := url.Values{}
	q.Set("sellToken", strings.ToLower(a.TokenInAddress.Hex()))
	q.Set("sellTokenNetwork", strconv.FormatUint(a.TokenInChainID, 10))
	q.Set("buyToken", strings.ToLower(a.TokenOutAddress.Hex()))
	q.Set("buyTokenNetwork", strconv.FormatUint(a.TokenOutChainID, 10))
	q.Set("sellAmount", a.Amount)
	q.Set("takerAddress", strings.ToLower(a.TakerAddress.Hex()))
	q.Set("partner", strings.ToLower(a.Partner.Hex()))
	q.Set("validate", strconv.FormatBool(a.Validate))
	q.Set("slippagePercentage", a.SlippagePercentage)
	return q
}

// Key is the content-derived identity of the request, used by the query
// layer to cache and to detect superseded requests.
func (a PortalArgs) Key() string {
	return "portal/" + strconv.FormatUint(a.TokenInChainID, 10) + "?" + a.values().Encode()
}

// ApprovalArgs are the query arguments for the approval endpoint.
type ApprovalArgs struct {
	TokenInAddress  common.Address
	TokenInChainID  uint64
	TokenOutAddress common.Address
	TokenOutChainID uint64
	Amount          string
	TakerAddress    common.Address
}

func (a ApprovalArgs) values() url.Values {
	q := url.Values{}
	q.Set("sellToken", strings.ToLower(a.TokenInAddress.Hex()))
	q.Set("sellTokenNetwork", strconv.FormatUint(a.TokenInChainID, 10))
	q.Set("buyToken", strings.ToLower(a.TokenOutAddress.Hex()))
	q.Set("buyTokenNetwork", strconv.FormatUint(a.TokenOutChainID, 10))
	q.Set("sellAmount", a.Amount)
	q.Set("takerAddress", strings.ToLower(a.TakerAddress.Hex()))
	return q
}

// Key is the content-derived identity of the request.
func (a ApprovalArgs) Key() string {
	return "approval/" + strconv.FormatUint(a.TokenInChainID, 10) + "?" + a.values().Encode()
}

// PriceArgs are the query arguments for the token fiat-price endpoint.
type PriceArgs struct {
	ChainID      uint64
	TokenAddress common.Address
}

// Key is the content-derived identity of the request.
func (a PriceArgs) Key() string {
	return "tokens/" + strconv.FormatUint(a.ChainID, 10) + "/" + strings.ToLower(a.TokenAddress.Hex())
}

// AccountArgs are the query arguments for the balances endpoint.
type AccountArgs struct {
	ChainID      uint64
	OwnerAddress common.Address
}

// PortalContext is the quote context block of a portal response.
type PortalContext struct {
	Network           string `json:"network"`
	ProtocolID        string `json:"protcolId"`
	TakerAddress      string `json:"takerAddress"`
	SellToken         string `json:"sellToken"`
	SellAmount        string `json:"sellAmount"`
	IntermediateToken string `json:"intermediateToken"`
	BuyToken          string `json:"buyToken"`
	MinBuyAmount      string `json:"minBuyAmount"`
	BuyAmount         string `json:"buyAmount"`
	Target            string `json:"target"`
	Partner           string `json:"partner"`
	Value             string `json:"value"`
	GasLimit          string `json:"gasLimit,omitempty"`
}

// PortalTx is the raw transaction payload of a portal response.
type PortalTx struct {
	Data     string         `json:"data"`
	To       string         `json:"to"`
	From     string         `json:"from"`
	GasLimit *BigNumberJSON `json:"gasLimit,omitempty"`
	Value    *BigNumberJSON `json:"value"`
}

// PortalResponse is an executable swap quote. Treated as immutable once
// received.
type PortalResponse struct {
	Context PortalContext `json:"context"`
	Tx      *PortalTx     `json:"tx"`
}

// ApprovalContext is the context block of an approval response.
type ApprovalContext struct {
	Network        string `json:"network"`
	Allowance      string `json:"allowance"`
	ApprovalAmount string `json:"approvalAmount"`
	ShouldApprove  bool   `json:"shouldApprove"`
	Target         string `json:"target"`
	GasLimit       string `json:"gasLimit"`
}

// ApprovalTx is a pre-built approval transaction, present when the spender
// still needs authorization.
type ApprovalTx struct {
	Data     string         `json:"data"`
	To       string         `json:"to"`
	From     string         `json:"from"`
	GasLimit *BigNumberJSON `json:"gasLimit,omitempty"`
}

// ApprovalResponse describes the spender-approval requirement for a quote.
type ApprovalResponse struct {
	Context ApprovalContext `json:"context"`
	Tx      *ApprovalTx     `json:"tx,omitempty"`
}

// TokenPrice is one entry of a token fiat-price response.
type TokenPrice struct {
	Address string  `json:"address,omitempty"`
	Symbol  string  `json:"symbol,omitempty"`
	Price   float64 `json:"price"`
}

// PriceResponse is the token fiat-price response.
type PriceResponse struct {
	Tokens []TokenPrice `json:"tokens"`
}

// Balance is one asset balance of an account.
type Balance struct {
	Name       string  `json:"name"`
	Symbol     string  `json:"symbol"`
	Address    string  `json:"address"`
	Decimals   uint8   `json:"decimals"`
	Balance    float64 `json:"balance"`
	RawBalance string  `json:"rawBalance"`
}

// AccountResponse is the balances response for an owner address.
type AccountResponse struct {
	Balances []Balance `json:"balances"`
}
