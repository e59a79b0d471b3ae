package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// QuoteRequest is a parsed quote command.
type QuoteRequest struct {
	Amount   string
	TokenIn  string
	TokenOut string
}

// ParseQuoteCommand parses a natural language quote command
// Examples:
//   - "quote 1 ETH to USDC"
//   - "1.5 WETH to DAI"
//   - "100 USDC to WBTC"
func ParseQuoteCommand(command string) (*QuoteRequest, error) {
	// Normalize the command
	command = strings.TrimSpace(strings.ToUpper(command))

	// Remove the word "QUOTE" if present at the beginning
	command = strings.TrimPrefix(command, "QUOTE ")

	// Pattern: <amount> <source_token> TO <dest_token>
	// Matches: "1 ETH TO USDC", "1.5 WETH TO DAI", "100.25 USDC TO WBTC"
	pattern := regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

	matches := pattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid quote command format. Expected: 'quote <amount> <token> to <token>' (e.g., 'quote 1 ETH to USDC')")
	}

	return &QuoteRequest{
		Amount:   matches[1],
		TokenIn:  matches[2],
		TokenOut: matches[3],
	}, nil
}

// ValidateQuoteRequest validates that a quote request has all required fields
func ValidateQuoteRequest(req *QuoteRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if req.TokenIn == "" {
		return fmt.Errorf("source token is required")
	}
	if req.TokenOut == "" {
		return fmt.Errorf("destination token is required")
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	// Convert to uppercase for consistency
	return strings.TrimSpace(strings.ToUpper(symbol))
}
