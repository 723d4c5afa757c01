package backtest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kline/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backtest.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRunConfig(t *testing.T) {
	path := writeConfig(t, `
backtest:
  code: "600000.SH"
  start: "2023-01-01"
  end: "2023-12-31"
  adj_type: "after"
  initial_capital: 200000
  position_ratio: 0.5
strategy:
  id: "kdj"
  params:
    n: 14
    oversold: 25
`)

	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Code != "600000.SH" || cfg.AdjType != model.AdjAfter {
		t.Fatalf("cfg = %#v", cfg)
	}
	if cfg.InitialCapital != 200000 || cfg.PositionRatio != 0.5 {
		t.Fatalf("capital/ratio = %v/%v", cfg.InitialCapital, cfg.PositionRatio)
	}
	if cfg.StrategyID != "kdj" || cfg.StrategyParams["n"] != 14 {
		t.Fatalf("strategy = %s %#v", cfg.StrategyID, cfg.StrategyParams)
	}
	// untouched fields keep their defaults
	if cfg.CommissionRate != 0.0003 || cfg.TaxRate != 0.001 || cfg.MinCommission != 5 {
		t.Fatalf("frictions = %#v", cfg)
	}
}

func TestLoadRunConfigRequiresCode(t *testing.T) {
	path := writeConfig(t, "backtest:\n  start: \"2023-01-01\"\n")
	if _, err := LoadRunConfig(path); err == nil {
		t.Fatal("expected error for missing code")
	}
}

func TestLoadRunConfigUnknownStrategy(t *testing.T) {
	path := writeConfig(t, `
backtest:
  code: "600000.SH"
strategy:
  id: "turtle"
`)
	_, err := LoadRunConfig(path)
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("err = %v, want ErrUnknownStrategy", err)
	}
}

func TestLoadRunConfigBadDate(t *testing.T) {
	path := writeConfig(t, `
backtest:
  code: "600000.SH"
  start: "01/02/2023"
`)
	if _, err := LoadRunConfig(path); err == nil {
		t.Fatal("expected error for bad date")
	}
}

func TestBarsFromKLinesDropsBadDates(t *testing.T) {
	klines := []model.KLine{
		{Date: "2024-01-02", Open: 10, Close: 10.5, High: 11, Low: 9.8, Volume: 1000},
		{Date: "not-a-date", Open: 10, Close: 10, High: 10, Low: 10},
		{Date: "2024-01-03", Open: 10.5, Close: 10.8, High: 11, Low: 10.2, Volume: 1200},
	}
	bars := BarsFromKLines(klines)
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	if bars[0].Close != 10.5 || bars[1].Close != 10.8 {
		t.Fatalf("bars = %#v", bars)
	}
}
