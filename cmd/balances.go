package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"portal-swap/config"
	"portal-swap/pkg/client"
)

var balancesChainID uint64

var balancesCmd = &cobra.Command{
	Use:   "balances <address>",
	Short: "List an address's token balances",
	Long: `List the token balances the aggregation service knows for an address.

Examples:
  portal-swap balances 0x123...
  portal-swap balances 0x123... --chain 137`,
	Args: cobra.ExactArgs(1),
	Run:  runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)

	balancesCmd.Flags().Uint64Var(&balancesChainID, "chain", 0, "Chain ID (default from config)")
}

func runBalances(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if !common.IsHexAddress(args[0]) {
		printError(fmt.Errorf("invalid address %q", args[0]))
		os.Exit(1)
	}
	owner := common.HexToAddress(args[0])

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	chainID := cfg.ChainID
	if balancesChainID != 0 {
		chainID = balancesChainID
	}

	log := newLogger(verbose, cfg.LogLevel)
	apiClient := client.New(cfg.BaseURL,
		client.WithLogger(log),
		client.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching balances..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	resp, err := apiClient.GetAccount(ctx, client.AccountArgs{ChainID: chainID, OwnerAddress: owner})

	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(resp.Balances, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayBalances(owner, resp.Balances)
}

func displayBalances(owner common.Address, balances []client.Balance) {
	if len(balances) == 0 {
		fmt.Println("\nNo balances found.")
		return
	}

	sorted := make([]client.Balance, len(balances))
	copy(sorted, balances)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Balance > sorted[j].Balance
	})

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TOKEN BALANCES")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\n  Address: %s\n\n", color.CyanString(owner.Hex()))

	for _, b := range sorted {
		address := b.Address
		if len(address) > 40 {
			address = address[:37] + "..."
		}
		fmt.Printf("  %-10s  %18.6f  %s\n",
			color.YellowString(b.Symbol),
			b.Balance,
			color.HiBlackString(address))
	}

	fmt.Printf("\nTotal: %d tokens\n\n", len(sorted))
}
