package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"portal-swap/config"
	"portal-swap/pkg/client"
	"portal-swap/pkg/price"
	"portal-swap/pkg/tokens"
)

var priceChainID uint64

var priceCmd = &cobra.Command{
	Use:   "price <token>",
	Short: "Show a token's price in the chain's reference stablecoin",
	Long: `Show a token's fiat-reference price: the token is priced against the
chain's designated stablecoin (USDC, or DAI on Optimism), whose unit
stands in for one US dollar.

Examples:
  portal-swap price WETH
  portal-swap price WBTC --chain 1
  portal-swap price WMATIC --chain 137`,
	Args: cobra.ExactArgs(1),
	Run:  runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)

	priceCmd.Flags().Uint64Var(&priceChainID, "chain", 0, "Chain ID (default from config)")
}

func runPrice(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	chainID := cfg.ChainID
	if priceChainID != 0 {
		chainID = priceChainID
	}

	registry, err := tokens.NewRegistry(cfg.TokenFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	token, err := registry.Resolve(chainID, args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	log := newLogger(verbose, cfg.LogLevel)
	apiClient := client.New(cfg.BaseURL,
		client.WithLogger(log),
		client.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)

	source := price.NewSource(apiClient, price.WithLogger(log))
	defer source.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching price..."
		s.Start()
	}

	deadline := time.Now().Add(cfg.RequestTimeout + time.Second)
	var p = source.PriceOf(&token)
	for p == nil && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		p = source.PriceOf(&token)
	}

	if !jsonOutput {
		s.Stop()
	}

	if p == nil {
		printError(fmt.Errorf("no price available for %s on chain %d", token.Symbol(), chainID))
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"token":      token.Symbol(),
			"chain_id":   chainID,
			"price":      p.Rate().String(),
			"stablecoin": p.QuoteCurrency().Symbol(),
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Printf("\n  1 %s = %s %s (~$%s)\n\n",
		color.YellowString(token.Symbol()),
		p.Rate().StringFixed(4),
		color.YellowString(p.QuoteCurrency().Symbol()),
		p.Rate().StringFixed(2))
}
