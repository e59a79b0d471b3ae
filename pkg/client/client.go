// Package client implements the read-only HTTP surface of the Portals
// aggregation service: swap quotes, approval requirements, token fiat
// prices and account balances. Requests perform zero automatic retries; a
// transport failure is returned to the caller immediately and liveness
// comes from the polling cadence upstream.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production aggregation service.
const DefaultBaseURL = "https://api.portals.fi/v1"

// Client calls the aggregation service.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for the given base URL. An empty base URL selects
// the production service.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetPortal fetches an executable swap quote.
func (c *Client) GetPortal(ctx context.Context, args PortalArgs) (*PortalResponse, error) {
	network, err := ChainName(args.TokenInChainID)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("network", network).Str("sellAmount", args.Amount).Msg("fetching portal quote")

	var resp PortalResponse
	if err := c.get(ctx, "portal/"+network, args.values(), &resp); err != nil {
		return nil, fmt.Errorf("failed to get portal quote: %w", err)
	}
	return &resp, nil
}

// GetApproval fetches the spender-approval requirement for a quote.
func (c *Client) GetApproval(ctx context.Context, args ApprovalArgs) (*ApprovalResponse, error) {
	network, err := ChainName(args.TokenInChainID)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("network", network).Msg("fetching approval data")

	var resp ApprovalResponse
	if err := c.get(ctx, "approval/"+network, args.values(), &resp); err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	return &resp, nil
}

// GetPrice fetches the fiat price of a token by contract address.
func (c *Client) GetPrice(ctx context.Context, args PriceArgs) (*PriceResponse, error) {
	network, err := ChainName(args.ChainID)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("addresses", strings.ToLower(args.TokenAddress.Hex()))

	var resp PriceResponse
	if err := c.get(ctx, "tokens/"+network, q, &resp); err != nil {
		return nil, fmt.Errorf("failed to get token price: %w", err)
	}
	return &resp, nil
}

// GetAccount fetches the asset balances of an owner address.
func (c *Client) GetAccount(ctx context.Context, args AccountArgs) (*AccountResponse, error) {
	network, err := ChainName(args.ChainID)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("ownerAddress", strings.ToLower(args.OwnerAddress.Hex()))

	var resp AccountResponse
	if err := c.get(ctx, "account/"+network, q, &resp); err != nil {
		return nil, fmt.Errorf("failed to get account balances: %w", err)
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + "/" + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	return nil
}

// decodeError extracts the service's error message from a non-2xx body so
// callers see something more useful than a bare status code.
func (c *Client) decodeError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(body) == 0 {
		return fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	var errorResp map[string]any
	if jsonErr := json.Unmarshal(body, &errorResp); jsonErr == nil {
		if message, ok := errorResp["message"].(string); ok {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, message)
		}
		if errs, ok := errorResp["errors"]; ok {
			return fmt.Errorf("API error (status %d): %v", resp.StatusCode, errs)
		}
	}
	return fmt.Errorf("API error (status %d): %s", resp.StatusCode, strconv.Quote(string(body)))
}
