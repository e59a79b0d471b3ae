package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "portal-swap",
	Short: "A CLI for quoting EVM token swaps through the Portals aggregation API",
	Long: `portal-swap is a command-line tool that quotes token swaps on EVM chains
through the Portals aggregation API. It keeps quotes live while you watch,
tracks spender approvals and prices tokens against each chain's stablecoin.

Examples:
  portal-swap quote 1 ETH to USDC
  portal-swap quote 100 USDC to WBTC --account 0x123... --slippage-bips 30
  portal-swap price WETH
  portal-swap balances 0x123...
  portal-swap tokens`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func newLogger(verbose bool, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}
