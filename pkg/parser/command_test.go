package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"portal-swap/pkg/parser"
)

func TestParseQuoteCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    parser.QuoteRequest
	}{
		{"with quote prefix", "quote 1 ETH to USDC", parser.QuoteRequest{Amount: "1", TokenIn: "ETH", TokenOut: "USDC"}},
		{"without prefix", "1.5 WETH to DAI", parser.QuoteRequest{Amount: "1.5", TokenIn: "WETH", TokenOut: "DAI"}},
		{"lowercase tokens", "quote 100 usdc to wbtc", parser.QuoteRequest{Amount: "100", TokenIn: "USDC", TokenOut: "WBTC"}},
		{"surrounding whitespace", "  quote 2 ETH to USDT  ", parser.QuoteRequest{Amount: "2", TokenIn: "ETH", TokenOut: "USDT"}},
		{"decimal amount", "0.25 WBTC to WETH", parser.QuoteRequest{Amount: "0.25", TokenIn: "WBTC", TokenOut: "WETH"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.ParseQuoteCommand(tt.command)
			require.NoError(t, err)
			require.Equal(t, tt.want, *got)
		})
	}
}

func TestParseQuoteCommandInvalid(t *testing.T) {
	invalid := []string{
		"",
		"quote",
		"quote ETH to USDC",
		"quote 1 ETH",
		"quote 1 ETH USDC",
		"quote -1 ETH to USDC",
		"quote 1 ETH to USDC extra",
	}

	for _, command := range invalid {
		_, err := parser.ParseQuoteCommand(command)
		require.Error(t, err, "command %q", command)
	}
}

func TestValidateQuoteRequest(t *testing.T) {
	require.NoError(t, parser.ValidateQuoteRequest(&parser.QuoteRequest{Amount: "1", TokenIn: "ETH", TokenOut: "USDC"}))
	require.Error(t, parser.ValidateQuoteRequest(&parser.QuoteRequest{TokenIn: "ETH", TokenOut: "USDC"}))
	require.Error(t, parser.ValidateQuoteRequest(&parser.QuoteRequest{Amount: "1", TokenOut: "USDC"}))
	require.Error(t, parser.ValidateQuoteRequest(&parser.QuoteRequest{Amount: "1", TokenIn: "ETH"}))
}

func TestNormalizeTokenSymbol(t *testing.T) {
	require.Equal(t, "ETH", parser.NormalizeTokenSymbol(" eth "))
	require.Equal(t, "USDC", parser.NormalizeTokenSymbol("usdc"))
}
