package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"portal-swap/config"
	"portal-swap/pkg/client"
	"portal-swap/pkg/currency"
	"portal-swap/pkg/metrics"
	"portal-swap/pkg/parser"
	"portal-swap/pkg/quoter"
	"portal-swap/pkg/tokens"
	"portal-swap/pkg/trade"
)

var (
	quoteChainID  uint64
	quoteAccount  string
	slippageBips  int64
	validateSwap  bool
	watchQuote    bool
	metricsListen string
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Quote a token swap",
	Long: `Quote a token swap through the Portals aggregation API.

The quote refreshes automatically while the command runs. Without an
account the zero address is used as the taker and no approval is checked.

Examples:
  portal-swap quote 1 ETH to USDC
  portal-swap quote 100 USDC to WBTC --account 0x123... --slippage-bips 30
  portal-swap quote 0.5 WETH to DAI --chain 137 --watch`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().Uint64Var(&quoteChainID, "chain", 0, "Chain ID (default from config)")
	quoteCmd.Flags().StringVar(&quoteAccount, "account", "", "Taker address (optional)")
	quoteCmd.Flags().Int64Var(&slippageBips, "slippage-bips", -1, "Slippage tolerance in basis points (default from config)")
	quoteCmd.Flags().BoolVar(&validateSwap, "validate", false, "Ask the service to simulate the swap (requires approval)")
	quoteCmd.Flags().BoolVarP(&watchQuote, "watch", "w", false, "Keep the quote live until interrupted")
	quoteCmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

func runQuote(cmd *cobra.Command, args []string) {
	commandStr := strings.Join(args, " ")
	quoteReq, err := parser.ParseQuoteCommand(commandStr)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	chainID := cfg.ChainID
	if quoteChainID != 0 {
		chainID = quoteChainID
	}
	bips := cfg.SlippageBips
	if slippageBips >= 0 {
		bips = slippageBips
	}
	account := cfg.Account
	if quoteAccount != "" {
		account = quoteAccount
	}

	registry, err := tokens.NewRegistry(cfg.TokenFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	tokenIn, err := registry.Resolve(chainID, quoteReq.TokenIn)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	tokenOut, err := registry.Resolve(chainID, quoteReq.TokenOut)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	amount, err := currency.ParseAmount(quoteReq.Amount, tokenIn)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	log := newLogger(verbose, cfg.LogLevel)
	apiClient := client.New(cfg.BaseURL,
		client.WithLogger(log),
		client.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)

	opts := []quoter.Option{
		quoter.WithLogger(log),
		quoter.WithValidation(validateSwap || cfg.Validate),
	}
	listen := cfg.MetricsListen
	if metricsListen != "" {
		listen = metricsListen
	}
	if listen != "" {
		opts = append(opts, quoter.WithMetrics(metrics.NewSink()))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(listen, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	q := quoter.New(apiClient, opts...)
	defer q.Close()

	if account != "" {
		if !common.IsHexAddress(account) {
			printError(fmt.Errorf("invalid account address %q", account))
			os.Exit(1)
		}
		addr := common.HexToAddress(account)
		q.SetAccount(&addr)
	}

	slippage := currency.PercentFromBips(bips)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	var lastShown trade.Trade
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			if !jsonOutput {
				s.Stop()
				fmt.Println("\nStopped.")
			}
			return
		case <-ticker.C:
		}

		best := q.GetTrade(trade.ExactInput, &amount, &tokenOut, slippage)

		switch best.State {
		case trade.StateLoading:
			continue

		case trade.StateSyncing:
			// keep showing the last good quote while it refreshes
			continue

		case trade.StateNoRouteFound:
			if !jsonOutput {
				s.Stop()
			}
			printError(fmt.Errorf("no route found for %s %s to %s", quoteReq.Amount, quoteReq.TokenIn, quoteReq.TokenOut))
			os.Exit(1)

		case trade.StateInvalid:
			if !jsonOutput {
				s.Stop()
			}
			printError(fmt.Errorf("quote request is not valid"))
			os.Exit(1)

		case trade.StateValid:
			if !jsonOutput {
				s.Stop()
			}
			if lastShown == nil || !lastShown.OutputAmount().Equal(best.Trade.OutputAmount()) {
				if jsonOutput {
					printQuoteJSON(best.Trade, q, slippage)
				} else {
					displayQuote(best.Trade, q, slippage)
				}
				lastShown = best.Trade
			}
			if !watchQuote {
				return
			}
			if !jsonOutput {
				s.Suffix = " Watching quote..."
				s.Start()
			}
		}
	}
}

func printQuoteJSON(t trade.Trade, q *quoter.Quoter, slippage currency.Percent) {
	in := t.InputAmount()
	out := t.OutputAmount()
	minOut := t.MinimumAmountOut()

	output := map[string]interface{}{
		"input_amount":   in.Decimal().String(),
		"input_token":    in.Currency().Symbol(),
		"output_amount":  out.Decimal().String(),
		"output_token":   out.Currency().Symbol(),
		"minimum_output": minOut.Decimal().String(),
		"rate":           t.ExecutionPrice().Rate().String(),
		"slippage":       slippage.String(),
		"status":         "quote_generated",
	}
	if v := q.Prices().ValueOf(&out); v != nil {
		output["output_value_usd"] = v.Decimal().String()
	}
	jsonData, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(jsonData))
}

func displayQuote(t trade.Trade, q *quoter.Quoter, slippage currency.Percent) {
	in := t.InputAmount()
	out := t.OutputAmount()
	minOut := t.MinimumAmountOut()

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s\n", in.Decimal(), color.YellowString(in.Currency().Symbol()))
	fmt.Printf("  To:                ~%s %s\n", out.Decimal(), color.YellowString(out.Currency().Symbol()))
	fmt.Printf("  Minimum Received:  %s %s\n", minOut.Decimal(), color.YellowString(minOut.Currency().Symbol()))
	fmt.Printf("  Rate:              1 %s = %s %s\n", in.Currency().Symbol(), t.ExecutionPrice().Rate(), out.Currency().Symbol())
	fmt.Printf("  Slippage:          %s\n", slippage)

	if v := q.Prices().ValueOf(&out); v != nil {
		fmt.Printf("  Output Value:      ~$%s\n", v.Decimal().StringFixed(2))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
