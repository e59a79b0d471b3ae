package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"portal-swap/config"
	"portal-swap/pkg/tokens"
)

var (
	filterChain  uint64
	filterSymbol string
	addToken     string
	removeToken  string
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List registered tokens",
	Long: `List the tokens known to the local registry. Quote commands resolve
symbols through this registry.

Examples:
  portal-swap list-tokens
  portal-swap list-tokens --chain 137
  portal-swap list-tokens --symbol USDC
  portal-swap list-tokens --add 1:LINK:0x514910771AF9Ca656af840dff83E8264EcF986CA:18
  portal-swap list-tokens --remove 1:LINK`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().Uint64Var(&filterChain, "chain", 0, "Filter by chain ID")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	tokensCmd.Flags().StringVar(&addToken, "add", "", "Register a token as <chain>:<symbol>:<address>:<decimals>")
	tokensCmd.Flags().StringVar(&removeToken, "remove", "", "Remove a token as <chain>:<symbol>")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	registry, err := tokens.NewRegistry(cfg.TokenFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if addToken != "" {
		entry, err := parseTokenSpec(addToken)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if err := registry.Add(entry); err != nil {
			printError(err)
			os.Exit(1)
		}
		fmt.Printf("\nRegistered %s on chain %d.\n\n", entry.Symbol, entry.ChainID)
		return
	}

	if removeToken != "" {
		parts := strings.SplitN(removeToken, ":", 2)
		if len(parts) != 2 {
			printError(fmt.Errorf("invalid token reference %q, expected <chain>:<symbol>", removeToken))
			os.Exit(1)
		}
		var chainID uint64
		if _, err := fmt.Sscanf(parts[0], "%d", &chainID); err != nil {
			printError(fmt.Errorf("invalid chain id %q", parts[0]))
			os.Exit(1)
		}
		if err := registry.Remove(chainID, parts[1]); err != nil {
			printError(err)
			os.Exit(1)
		}
		fmt.Printf("\nRemoved %s from chain %d.\n\n", strings.ToUpper(parts[1]), chainID)
		return
	}

	entries := registry.List(filterChain)
	if filterSymbol != "" {
		var filtered []tokens.Entry
		for _, e := range entries {
			if strings.Contains(strings.ToUpper(e.Symbol), strings.ToUpper(filterSymbol)) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayTokens(entries)
}

func parseTokenSpec(spec string) (tokens.Entry, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 4 {
		return tokens.Entry{}, fmt.Errorf("invalid token spec %q, expected <chain>:<symbol>:<address>:<decimals>", spec)
	}
	var entry tokens.Entry
	if _, err := fmt.Sscanf(parts[0], "%d", &entry.ChainID); err != nil {
		return tokens.Entry{}, fmt.Errorf("invalid chain id %q", parts[0])
	}
	entry.Symbol = strings.ToUpper(parts[1])
	entry.Address = parts[2]
	if _, err := fmt.Sscanf(parts[3], "%d", &entry.Decimals); err != nil {
		return tokens.Entry{}, fmt.Errorf("invalid decimals %q", parts[3])
	}
	return entry, nil
}

func displayTokens(entries []tokens.Entry) {
	if len(entries) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            REGISTERED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	// Group tokens by chain
	byChain := make(map[uint64][]tokens.Entry)
	chains := make([]uint64, 0)
	for _, e := range entries {
		if _, seen := byChain[e.ChainID]; !seen {
			chains = append(chains, e.ChainID)
		}
		byChain[e.ChainID] = append(byChain[e.ChainID], e)
	}

	for _, chain := range chains {
		color.Cyan("\nCHAIN %d", chain)
		fmt.Println(strings.Repeat("-", 90))

		for _, e := range byChain[chain] {
			address := e.Address
			if e.Native {
				address = "(native)"
			}
			fmt.Printf("  %-10s  %2d decimals  %s\n",
				color.YellowString(e.Symbol),
				e.Decimals,
				color.HiBlackString(address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d chains\n\n", len(entries), len(chains))
}
