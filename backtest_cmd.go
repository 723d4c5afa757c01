package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"kline/backtest"
	"kline/config"
	"kline/store"
)

// runBacktest 离线回测：从ClickHouse取K线，跑完输出JSON
func runBacktest(appCfg *config.Config, btConfigPath, outPath string) error {
	cfg, err := backtest.LoadRunConfig(btConfigPath)
	if err != nil {
		return err
	}
	if cfg.Start.IsZero() || cfg.End.IsZero() {
		return fmt.Errorf("backtest.start and backtest.end are required")
	}

	st, err := store.Open(store.Options{
		Addr:     appCfg.CHAddr,
		Database: appCfg.CHDatabase,
		Username: appCfg.CHUser,
		Password: appCfg.CHPassword,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	set, err := st.GetDailyKLine(ctx,
		cfg.Code,
		cfg.Start.Format("2006-01-02"),
		cfg.End.Format("2006-01-02"),
		cfg.AdjType,
	)
	if err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = set.StockInfo.Name
	}

	bars := backtest.BarsFromKLines(set.KLines)
	signals, err := backtest.GenerateSignals(bars, cfg.StrategyID, cfg.StrategyParams)
	if err != nil {
		return err
	}
	log.Printf("[BT] %s %s 共%d根K线, %d个信号\n", cfg.Code, cfg.StrategyID, len(bars), len(signals))

	result := backtest.RunBacktest(bars, signals, cfg)
	result.AttachBenchmark(backtest.BuyHold(bars, cfg.InitialCapital))

	if outPath == "" {
		return backtest.WriteResultJSON(os.Stdout, result)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	return backtest.WriteResultJSON(f, result)
}
