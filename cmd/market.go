package cmd

import (
	"strings"

	"termpool/core"
	"termpool/internal/termpool"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var addMarketCmd = &cobra.Command{
	Use:     "add-market",
	Aliases: []string{"am"},
	Short:   "add market",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		defer database.Close()

		marketStore := provideMarketStore(database)

		symbol, e := cmd.Flags().GetString("symbol")
		if e != nil || symbol == "" {
			panic("invalid symbol")
		}
		assetID, e := cmd.Flags().GetString("asset")
		if e != nil || assetID == "" {
			panic("invalid asset id")
		}
		decimals, _ := cmd.Flags().GetInt32("decimals")
		cap, _ := cmd.Flags().GetString("cap")

		market := &core.Market{
			AssetID:              assetID,
			Symbol:               strings.ToUpper(symbol),
			Decimals:             decimals,
			SmartPoolCap:         decimal.RequireFromString(cap),
			ReserveFactor:        decimal.RequireFromString("0.1"),
			CollateralFactor:     decimal.RequireFromString("0.5"),
			LiquidationIncentive: decimal.RequireFromString("0.05"),
			CloseFactor:          decimal.RequireFromString("0.5"),
			SeizeShare:           decimal.RequireFromString("0.028"),
			PenaltyRate:          decimal.RequireFromString("0.000000001585"),
			BaseRate:             decimal.RequireFromString("0.02"),
			Multiplier:           decimal.RequireFromString("0.2"),
			JumpMultiplier:       decimal.RequireFromString("2"),
			Kink:                 decimal.RequireFromString("0.7"),
			MaxFuturePools:       termpool.DefaultMaxFuturePools,
		}

		err := database.Tx(func(tx *db.DB) error {
			return marketStore.Save(ctx, tx, market)
		})
		if err != nil {
			cmd.PrintErrln("save market error:", err)
			return
		}

		cmd.Println("market added:", market.Symbol)
	},
}

var listMarketsCmd = &cobra.Command{
	Use:     "markets",
	Aliases: []string{"lm"},
	Short:   "list markets",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		defer database.Close()

		markets, err := provideMarketStore(database).All(ctx)
		if err != nil {
			cmd.PrintErrln("list markets error:", err)
			return
		}

		for _, m := range markets {
			cmd.Printf("%s\t%s\tprice=%s\tcap=%s\tborrowed=%s\n",
				m.Symbol, m.AssetID, m.Price, m.SmartPoolCap, m.SmartPoolBorrowed)
		}
	},
}

func init() {
	rootCmd.AddCommand(addMarketCmd)
	rootCmd.AddCommand(listMarketsCmd)

	addMarketCmd.Flags().String("symbol", "", "market symbol")
	addMarketCmd.Flags().String("asset", "", "underlying asset id")
	addMarketCmd.Flags().Int32("decimals", 8, "token decimals")
	addMarketCmd.Flags().String("cap", "0", "smart pool cap in raw units")
}
