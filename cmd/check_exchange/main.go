package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/okx_trade_hook/internal/config"
	"github.com/vitos/okx_trade_hook/internal/infrastructure/exchange"
)

// Connectivity check: verifies every configured account can sign
// requests and read its positions and balance.
func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := false
	for _, ac := range cfg.Accounts {
		fmt.Printf("=== Account %s (simulated=%v) ===\n", ac.Name, ac.Simulated)
		adapter := exchange.NewOKXAdapter(ac.APIKey, ac.APISecret, ac.Passphrase, ac.RESTEndpoint, ac.Simulated)

		instruments, err := adapter.GetInstruments(ctx, "SWAP")
		if err != nil {
			fmt.Printf("  ❌ GetInstruments: %v\n", err)
			failed = true
		} else {
			fmt.Printf("  ✅ GetInstruments: %d swap instruments\n", len(instruments))
		}

		balance, err := adapter.GetBalance(ctx, "USDT")
		if err != nil {
			fmt.Printf("  ❌ GetBalance: %v\n", err)
			failed = true
		} else {
			fmt.Printf("  ✅ GetBalance: %.2f USDT available\n", balance)
		}

		positions, err := adapter.GetPositions(ctx, "")
		if err != nil {
			fmt.Printf("  ❌ GetPositions: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("  ✅ GetPositions: %d open\n", len(positions))
		for _, p := range positions {
			fmt.Printf("    - %s: %v contracts @ %v (uplRatio %v, lever %d)\n",
				p.InstID, p.Contracts, p.AvgPrice, p.UplRatio, p.Leverage)
		}
	}

	if failed {
		os.Exit(1)
	}
}
