package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/okx_trade_hook/internal/config"
	"github.com/vitos/okx_trade_hook/internal/infrastructure/storage"
)

// Dumps the symbol records of every configured account.
func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	for _, ac := range cfg.Accounts {
		records, err := store.Load(ctx, ac.APIKey)
		if err != nil {
			fmt.Printf("Failed to load records for %s: %v\n", ac.Name, err)
			os.Exit(1)
		}

		fmt.Printf("=== Account %s: %d records ===\n", ac.Name, len(records))
		for symbol, r := range records {
			fmt.Printf("- %s: entry=%v tp=%v sl=%v lever=%d ordId=%q attachOid=%q\n",
				symbol, r.EntryPrice, r.TPPrice, r.SLPrice, r.Leverage, r.OrdID, r.AttachOID)
			if r.BoolTrailStop {
				fmt.Printf("  trail stop: activation=%v callback=%v active=%v high=%v low=%v\n",
					r.TrailStopActivation, r.TrailStopCallback, r.ActiveTrailStop,
					r.TrailStopHighestPrice, r.TrailStopLowestPrice)
			} else {
				fmt.Printf("  tiers: t1=%v/%v t2=%v/%v t3=%v/%v applied=%d slip=%v\n",
					r.TrailProfit, r.TrailProfit1Percent,
					r.TrailProfit2Activation, r.TrailProfit2Percent,
					r.TrailProfit3Activation, r.TrailProfit3Percent,
					r.TrailProfitType, r.TrailProfitSlip)
			}
		}
	}
}
