// Package tokens provides a small persistent token registry so commands
// can refer to assets by symbol instead of contract address.
package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"portal-swap/pkg/currency"
)

const (
	DefaultRegistryFileName = ".portal-swap-tokens.json"
)

// Entry is one registered token.
type Entry struct {
	Symbol   string `json:"symbol"`
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Native   bool   `json:"native,omitempty"`
}

// Registry handles persistence of known tokens, keyed by chain and symbol.
type Registry struct {
	filePath string
	mu       sync.RWMutex
	entries  map[string]Entry
}

type registryFile struct {
	Tokens []Entry `json:"tokens"`
}

// NewRegistry opens the registry at filePath, defaulting to a dotfile in
// the home directory. A missing file starts the registry from the built-in
// seed set.
func NewRegistry(filePath string) (*Registry, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultRegistryFileName)
	}

	r := &Registry{
		filePath: filePath,
		entries:  make(map[string]Entry),
	}
	r.seed()

	if err := r.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load token registry: %w", err)
		}
	}

	return r, nil
}

// seed installs the natives, wrapped natives and reference stablecoins of
// every supported chain.
func (r *Registry) seed() {
	seeds := []Entry{
		{Symbol: "ETH", ChainID: currency.ChainEthereum, Decimals: 18, Native: true},
		{Symbol: "MATIC", ChainID: currency.ChainPolygon, Decimals: 18, Native: true},
		{Symbol: "ETH", ChainID: currency.ChainArbitrum, Decimals: 18, Native: true},
		{Symbol: "ETH", ChainID: currency.ChainOptimism, Decimals: 18, Native: true},

		{Symbol: "WETH", ChainID: currency.ChainEthereum, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
		{Symbol: "WMATIC", ChainID: currency.ChainPolygon, Address: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", Decimals: 18},
		{Symbol: "WETH", ChainID: currency.ChainArbitrum, Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Decimals: 18},
		{Symbol: "WETH", ChainID: currency.ChainOptimism, Address: "0x4200000000000000000000000000000000000006", Decimals: 18},

		{Symbol: "USDC", ChainID: currency.ChainEthereum, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		{Symbol: "USDC", ChainID: currency.ChainPolygon, Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Decimals: 6},
		{Symbol: "USDC", ChainID: currency.ChainArbitrum, Address: "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8", Decimals: 6},
		{Symbol: "DAI", ChainID: currency.ChainOptimism, Address: "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", Decimals: 18},

		{Symbol: "DAI", ChainID: currency.ChainEthereum, Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18},
		{Symbol: "USDT", ChainID: currency.ChainEthereum, Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
		{Symbol: "WBTC", ChainID: currency.ChainEthereum, Address: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", Decimals: 8},
	}
	for _, e := range seeds {
		r.entries[entryKey(e.ChainID, e.Symbol)] = e
	}
}

func entryKey(chainID uint64, symbol string) string {
	return fmt.Sprintf("%d/%s", chainID, strings.ToUpper(strings.TrimSpace(symbol)))
}

// load reads tokens from the registry file, merging over the seed set.
func (r *Registry) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal token registry: %w", err)
	}

	for _, e := range file.Tokens {
		r.entries[entryKey(e.ChainID, e.Symbol)] = e
	}

	return nil
}

// save writes the registry to its file.
func (r *Registry) save() error {
	r.mu.RLock()
	file := registryFile{Tokens: make([]Entry, 0, len(r.entries))}
	for _, e := range r.entries {
		file.Tokens = append(file.Tokens, e)
	}
	r.mu.RUnlock()

	sort.Slice(file.Tokens, func(i, j int) bool {
		if file.Tokens[i].ChainID != file.Tokens[j].ChainID {
			return file.Tokens[i].ChainID < file.Tokens[j].ChainID
		}
		return file.Tokens[i].Symbol < file.Tokens[j].Symbol
	})

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token registry: %w", err)
	}

	dir := filepath.Dir(r.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := r.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write token registry: %w", err)
	}

	if err := os.Rename(tempFile, r.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Add registers a token and persists the registry.
func (r *Registry) Add(e Entry) error {
	if e.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !e.Native && !common.IsHexAddress(e.Address) {
		return fmt.Errorf("invalid token address %q", e.Address)
	}

	r.mu.Lock()
	r.entries[entryKey(e.ChainID, e.Symbol)] = e
	r.mu.Unlock()

	return r.save()
}

// Remove deletes a token and persists the registry.
func (r *Registry) Remove(chainID uint64, symbol string) error {
	key := entryKey(chainID, symbol)

	r.mu.Lock()
	if _, exists := r.entries[key]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("token '%s' not found on chain %d", symbol, chainID)
	}
	delete(r.entries, key)
	r.mu.Unlock()

	return r.save()
}

// Resolve looks a symbol up on a chain and returns it as a currency.
func (r *Registry) Resolve(chainID uint64, symbol string) (currency.Currency, error) {
	r.mu.RLock()
	e, exists := r.entries[entryKey(chainID, symbol)]
	r.mu.RUnlock()

	if !exists {
		return currency.Currency{}, fmt.Errorf("unknown token '%s' on chain %d", symbol, chainID)
	}
	if e.Native {
		return currency.Native(chainID)
	}
	return currency.NewToken(e.ChainID, common.HexToAddress(e.Address), e.Decimals, e.Symbol), nil
}

// List returns all tokens on a chain, sorted by symbol. chainID 0 lists
// every chain.
func (r *Registry) List(chainID uint64) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if chainID != 0 && e.ChainID != chainID {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ChainID != entries[j].ChainID {
			return entries[i].ChainID < entries[j].ChainID
		}
		return entries[i].Symbol < entries[j].Symbol
	})

	return entries
}

// Count returns the number of registered tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// GetFilePath returns the registry file path.
func (r *Registry) GetFilePath() string {
	return r.filePath
}
