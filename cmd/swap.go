package cmd

import (
	"bufio"
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"portal-swap/config"
	"portal-swap/pkg/client"
	"portal-swap/pkg/currency"
	"portal-swap/pkg/parser"
	"portal-swap/pkg/quoter"
	"portal-swap/pkg/tokens"
	"portal-swap/pkg/trade"
	"portal-swap/pkg/wallet"
)

var (
	swapChainID   uint64
	swapSlippage  int64
	swapRPCURL    string
	swapKeyEnv    string
	swapRecipient string
	swapDeadline  time.Duration
	noConfirm     bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Quote and execute a token swap",
	Long: `Quote a token swap and execute it on chain.

The private key is read from the environment variable named by --key-env,
never from a flag. The recipient defaults to your own address.

Examples:
  portal-swap swap 1 WETH to USDC --rpc-url https://eth.llamarpc.com
  portal-swap swap 100 USDC to DAI --rpc-url ... --recipient 0x456...
  portal-swap swap 0.5 WETH to WBTC --rpc-url ... --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runExecuteSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().Uint64Var(&swapChainID, "chain", 0, "Chain ID (default from config)")
	swapCmd.Flags().Int64Var(&swapSlippage, "slippage-bips", -1, "Slippage tolerance in basis points (default from config)")
	swapCmd.Flags().StringVar(&swapRPCURL, "rpc-url", "", "RPC endpoint of the chain (REQUIRED)")
	swapCmd.Flags().StringVar(&swapKeyEnv, "key-env", "PORTAL_SWAP_PRIVATE_KEY", "Environment variable holding the signing key")
	swapCmd.Flags().StringVar(&swapRecipient, "recipient", "", "Recipient address (default: your own address)")
	swapCmd.Flags().DurationVar(&swapDeadline, "deadline", 20*time.Minute, "Transaction deadline")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runExecuteSwap(cmd *cobra.Command, args []string) {
	commandStr := strings.Join(args, " ")
	quoteReq, err := parser.ParseQuoteCommand(commandStr)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	chainID := cfg.ChainID
	if swapChainID != 0 {
		chainID = swapChainID
	}
	bips := cfg.SlippageBips
	if swapSlippage >= 0 {
		bips = swapSlippage
	}

	if swapRPCURL == "" {
		printError(fmt.Errorf("--rpc-url is required to execute a swap"))
		os.Exit(1)
	}
	privateKey := os.Getenv(swapKeyEnv)
	if privateKey == "" {
		printError(fmt.Errorf("no signing key found in $%s", swapKeyEnv))
		os.Exit(1)
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

	w, err := wallet.New(swapRPCURL, privateKey, chainID, wallet.WithLogger(log))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer w.Close()
	account := w.Address()

	apiClient := client.New(cfg.BaseURL,
		client.WithLogger(log),
		client.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)
	q := quoter.New(apiClient, quoter.WithLogger(log))
	defer q.Close()
	q.SetAccount(&account)

	slippage := currency.PercentFromBips(bips)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quote..."
	s.Start()

	best := waitForQuote(q, &amount, &tokenOut, slippage)
	s.Stop()

	switch best.State {
	case trade.StateValid, trade.StateSyncing:
	case trade.StateNoRouteFound:
		printError(fmt.Errorf("no route found for %s %s to %s", quoteReq.Amount, quoteReq.TokenIn, quoteReq.TokenOut))
		os.Exit(1)
	default:
		printError(fmt.Errorf("quote request is not valid"))
		os.Exit(1)
	}

	approval := q.GetApprovalState(&tokenIn, &tokenOut, &amount)
	if approval.State == trade.StateValid && !approval.IsApproved {
		printError(fmt.Errorf("spender %s is not approved for %s; approve it first", approval.Spender.Hex(), tokenIn.Symbol()))
		os.Exit(1)
	}

	displayQuote(best.Trade, q, slippage)

	if !noConfirm && !confirmSwap() {
		fmt.Println("\nSwap cancelled.")
		os.Exit(0)
	}

	portalsTrade, ok := best.Trade.(*trade.PortalsTrade)
	if !ok {
		printError(fmt.Errorf("trade is not executable"))
		os.Exit(1)
	}

	var recipient trade.Recipient
	if swapRecipient != "" {
		if !common.IsHexAddress(swapRecipient) {
			printError(fmt.Errorf("invalid recipient address %q", swapRecipient))
			os.Exit(1)
		}
		resolved := common.HexToAddress(swapRecipient)
		input := swapRecipient
		recipient = trade.Recipient{Input: &input, Resolved: &resolved}
	}

	deadline := new(big.Int).SetInt64(time.Now().Add(swapDeadline).Unix())
	result := trade.ResolveCallback(trade.CallbackParams{
		Trade:     portalsTrade,
		Account:   &account,
		ChainID:   chainID,
		Recipient: recipient,
		Deadline:  deadline,
		Submit:    w.Submit,
	})
	if result.State != trade.CallbackValid {
		printError(fmt.Errorf("swap cannot be executed: %v", result.Err))
		os.Exit(1)
	}

	s.Suffix = " Sending transaction..."
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), swapDeadline)
	defer cancel()
	hash, err := result.Execute(ctx)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Swap submitted!")
	fmt.Printf("  Transaction: %s\n", color.CyanString(hash.Hex()))

	s.Suffix = " Waiting for confirmation..."
	s.Start()
	mined, err := w.WaitMined(ctx, hash)
	s.Stop()
	if err != nil {
		printError(fmt.Errorf("confirmation not observed: %w", err))
		os.Exit(1)
	}
	if !mined {
		printError(fmt.Errorf("transaction %s reverted", hash.Hex()))
		os.Exit(1)
	}
	color.Green("\n✓ Swap confirmed!\n")
}

// waitForQuote re-evaluates the quoter until it leaves the loading state.
func waitForQuote(q *quoter.Quoter, amount *currency.Amount, tokenOut *currency.Currency, slippage currency.Percent) quoter.BestTrade {
	for {
		best := q.GetTrade(trade.ExactInput, amount, tokenOut, slippage)
		if best.State != trade.StateLoading {
			return best
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
