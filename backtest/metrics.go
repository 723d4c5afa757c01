package backtest

import "math"

const tradingDaysPerYear = 252

// Metrics are the aggregate performance statistics of one run.
// Percentages are rounded to 2 decimals at this reporting boundary.
type Metrics struct {
	TotalReturn     float64 `json:"total_return"`      // %
	AnnualReturn    float64 `json:"annual_return"`     // %
	MaxDrawdown     float64 `json:"max_drawdown"`      // %
	SharpeRatio     float64 `json:"sharpe_ratio"`
	WinRate         float64 `json:"win_rate"`          // %
	ProfitLossRatio float64 `json:"profit_loss_ratio"`
	TotalTrades     int     `json:"total_trades"`
	WinTrades       int     `json:"win_trades"`
	LossTrades      int     `json:"loss_trades"`

	BuyHoldReturn *float64 `json:"buy_hold_return,omitempty"` // %
	ExcessReturn  *float64 `json:"excess_return,omitempty"`   // %
}

// ComputeMetrics derives the performance statistics from the daily
// records and trade log of a completed run. riskFreeRate is annual;
// <= 0 falls back to 3%.
func ComputeMetrics(records []DailyRecord, trades []Trade, initialCapital, riskFreeRate float64) Metrics {
	if riskFreeRate <= 0 {
		riskFreeRate = 0.03
	}

	totalBuys := 0
	for _, t := range trades {
		if t.Action == SignalBuy {
			totalBuys++
		}
	}

	pairs := pairTrades(trades)
	winTrades := 0
	totalProfit, totalLoss := 0.0, 0.0
	for _, p := range pairs {
		if p.profit > 0 {
			winTrades++
			totalProfit += p.profit
		} else {
			totalLoss += -p.profit
		}
	}

	m := Metrics{
		TotalReturn:  totalReturn(records, initialCapital),
		AnnualReturn: annualReturn(records, initialCapital),
		MaxDrawdown:  maxDrawdown(records),
		SharpeRatio:  sharpeRatio(records, riskFreeRate),
		TotalTrades:  totalBuys,
		WinTrades:    winTrades,
		LossTrades:   totalBuys - winTrades,
	}
	if totalBuys > 0 {
		m.WinRate = float64(winTrades) / float64(totalBuys) * 100
	}
	if totalLoss > 0 {
		m.ProfitLossRatio = totalProfit / totalLoss
	}

	m.TotalReturn = round2(m.TotalReturn)
	m.AnnualReturn = round2(m.AnnualReturn)
	m.MaxDrawdown = round2(m.MaxDrawdown)
	m.SharpeRatio = round2(m.SharpeRatio)
	m.WinRate = round2(m.WinRate)
	m.ProfitLossRatio = round2(m.ProfitLossRatio)
	return m
}

func totalReturn(records []DailyRecord, initialCapital float64) float64 {
	if len(records) == 0 || initialCapital <= 0 {
		return 0
	}
	final := records[len(records)-1].TotalValue
	return (final - initialCapital) / initialCapital * 100
}

func annualReturn(records []DailyRecord, initialCapital float64) float64 {
	if len(records) < 2 || initialCapital <= 0 {
		return 0
	}
	years := float64(len(records)) / tradingDaysPerYear
	if years <= 0 {
		return 0
	}
	final := records[len(records)-1].TotalValue
	return (math.Pow(final/initialCapital, 1/years) - 1) * 100
}

func maxDrawdown(records []DailyRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	peak := records[0].TotalValue
	maxDD := 0.0
	for _, r := range records {
		if r.TotalValue > peak {
			peak = r.TotalValue
		}
		if peak > 0 {
			dd := (peak - r.TotalValue) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio annualizes the mean daily excess return over the
// population standard deviation of daily returns. Zero when fewer than
// two records exist or the returns have no variance.
func sharpeRatio(records []DailyRecord, riskFreeRate float64) float64 {
	if len(records) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		prev := records[i-1].TotalValue
		if prev == 0 {
			return 0
		}
		returns = append(returns, (records[i].TotalValue-prev)/prev)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	dailyRF := riskFreeRate / tradingDaysPerYear
	return (mean - dailyRF) / std * math.Sqrt(tradingDaysPerYear)
}

type tradePair struct {
	buy    Trade
	sell   Trade
	profit float64
}

// pairTrades matches each sell against the oldest unmatched buy of the
// same code (FIFO). Pair profit nets out both commissions. Kept
// per-code even though a run only ever trades one instrument.
func pairTrades(trades []Trade) []tradePair {
	open := make(map[string][]Trade)
	var pairs []tradePair

	for _, t := range trades {
		switch t.Action {
		case SignalBuy:
			open[t.Code] = append(open[t.Code], t)
		case SignalSell:
			queue := open[t.Code]
			if len(queue) == 0 {
				continue
			}
			buy := queue[0]
			open[t.Code] = queue[1:]
			profit := (t.Price-buy.Price)*float64(t.Shares) - t.Commission - buy.Commission
			pairs = append(pairs, tradePair{buy: buy, sell: t, profit: profit})
		}
	}
	return pairs
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
