package backtest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"kline/model"
)

type YAMLConfig struct {
	Backtest struct {
		Code           string  `yaml:"code"`
		Name           string  `yaml:"name"`
		Start          string  `yaml:"start"`
		End            string  `yaml:"end"`
		AdjType        string  `yaml:"adj_type"`
		InitialCapital float64 `yaml:"initial_capital"`
		PositionRatio  float64 `yaml:"position_ratio"`
		CommissionRate float64 `yaml:"commission_rate"`
		TaxRate        float64 `yaml:"tax_rate"`
		MinCommission  float64 `yaml:"min_commission"`
		RiskFreeRate   float64 `yaml:"risk_free_rate"`
	} `yaml:"backtest"`

	Strategy struct {
		ID     string         `yaml:"id"`
		Params map[string]any `yaml:"params"`
	} `yaml:"strategy"`
}

// RunConfig is everything one backtest run needs besides the bars.
type RunConfig struct {
	Code    string
	Name    string
	Start   time.Time
	End     time.Time
	AdjType model.AdjType

	InitialCapital float64
	PositionRatio  float64
	CommissionRate float64
	TaxRate        float64
	MinCommission  float64
	RiskFreeRate   float64

	StrategyID     string
	StrategyParams map[string]any
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		AdjType:        model.AdjAfter,
		InitialCapital: 100000,
		PositionRatio:  0.8,
		CommissionRate: 0.0003,
		TaxRate:        0.001,
		MinCommission:  5,
		RiskFreeRate:   0.03,
		StrategyID:     "ma_cross",
	}
}

func LoadRunConfig(path string) (RunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("read config: %w", err)
	}

	var yc YAMLConfig
	if err := yaml.Unmarshal(raw, &yc); err != nil {
		return RunConfig{}, fmt.Errorf("parse yaml: %w", err)
	}

	cfg := DefaultRunConfig()

	if yc.Backtest.Code == "" {
		return RunConfig{}, fmt.Errorf("backtest.code is required")
	}
	cfg.Code = yc.Backtest.Code
	cfg.Name = yc.Backtest.Name

	if yc.Backtest.AdjType != "" {
		adj := model.AdjType(yc.Backtest.AdjType)
		if !adj.Valid() {
			return RunConfig{}, fmt.Errorf("invalid backtest.adj_type: %s", yc.Backtest.AdjType)
		}
		cfg.AdjType = adj
	}
	if yc.Backtest.InitialCapital > 0 {
		cfg.InitialCapital = yc.Backtest.InitialCapital
	}
	if yc.Backtest.PositionRatio > 0 && yc.Backtest.PositionRatio <= 1 {
		cfg.PositionRatio = yc.Backtest.PositionRatio
	}
	if yc.Backtest.CommissionRate > 0 {
		cfg.CommissionRate = yc.Backtest.CommissionRate
	}
	if yc.Backtest.TaxRate > 0 {
		cfg.TaxRate = yc.Backtest.TaxRate
	}
	if yc.Backtest.MinCommission > 0 {
		cfg.MinCommission = yc.Backtest.MinCommission
	}
	if yc.Backtest.RiskFreeRate > 0 {
		cfg.RiskFreeRate = yc.Backtest.RiskFreeRate
	}

	if yc.Backtest.Start != "" {
		t, err := time.ParseInLocation(dateLayout, yc.Backtest.Start, time.Local)
		if err != nil {
			return RunConfig{}, fmt.Errorf("invalid backtest.start: %w", err)
		}
		cfg.Start = t
	}
	if yc.Backtest.End != "" {
		t, err := time.ParseInLocation(dateLayout, yc.Backtest.End, time.Local)
		if err != nil {
			return RunConfig{}, fmt.Errorf("invalid backtest.end: %w", err)
		}
		cfg.End = t
	}

	if yc.Strategy.ID != "" {
		cfg.StrategyID = yc.Strategy.ID
	}
	if StrategyName(cfg.StrategyID) == "" {
		return RunConfig{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, cfg.StrategyID)
	}
	cfg.StrategyParams = yc.Strategy.Params

	return cfg, nil
}

// BarsFromKLines converts stored K-lines into backtest bars. The store
// returns them deduplicated and ascending; rows with unparseable dates
// are dropped.
func BarsFromKLines(klines []model.KLine) []Bar {
	bars := make([]Bar, 0, len(klines))
	for _, k := range klines {
		t, err := time.ParseInLocation(dateLayout, k.Date, time.Local)
		if err != nil {
			continue
		}
		bars = append(bars, Bar{
			Time:   t,
			Open:   k.Open,
			High:   k.High,
			Low:    k.Low,
			Close:  k.Close,
			Volume: k.Volume,
			Amount: k.Amount,
		})
	}
	return bars
}
