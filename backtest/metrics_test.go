package backtest

import (
	"math"
	"testing"
)

func records(values ...float64) []DailyRecord {
	out := make([]DailyRecord, len(values))
	for i, v := range values {
		out[i] = DailyRecord{Date: "2024-01-02", Cash: v, TotalValue: v}
	}
	return out
}

func TestTotalReturn(t *testing.T) {
	m := ComputeMetrics(records(100000, 100188.8), nil, 100000, 0.03)
	if m.TotalReturn != 0.19 {
		t.Fatalf("total return = %v, want 0.19", m.TotalReturn)
	}
}

func TestMaxDrawdown(t *testing.T) {
	m := ComputeMetrics(records(100, 120, 90, 110), nil, 100, 0.03)
	// peak 120 -> trough 90 = 25%
	if m.MaxDrawdown != 25 {
		t.Fatalf("max drawdown = %v, want 25", m.MaxDrawdown)
	}
	if m.MaxDrawdown < 0 || m.MaxDrawdown > 100 {
		t.Fatalf("drawdown out of range: %v", m.MaxDrawdown)
	}
}

func TestMaxDrawdownMonotonicRiseIsZero(t *testing.T) {
	m := ComputeMetrics(records(100, 110, 120), nil, 100, 0.03)
	if m.MaxDrawdown != 0 {
		t.Fatalf("max drawdown = %v, want 0", m.MaxDrawdown)
	}
}

func TestSharpeZeroVarianceIsZero(t *testing.T) {
	// identical +10% daily returns -> stdev 0
	m := ComputeMetrics(records(100, 110, 121), nil, 100, 0.03)
	if m.SharpeRatio != 0 {
		t.Fatalf("sharpe = %v, want 0 on zero variance", m.SharpeRatio)
	}
}

func TestSharpeKnownValue(t *testing.T) {
	// returns: +10%, -5%
	recs := records(100, 110, 104.5)
	m := ComputeMetrics(recs, nil, 100, 0.03)

	mean := (0.10 - 0.05) / 2
	variance := (math.Pow(0.10-mean, 2) + math.Pow(-0.05-mean, 2)) / 2
	want := (mean - 0.03/252) / math.Sqrt(variance) * math.Sqrt(252)
	want = math.Round(want*100) / 100
	if math.Abs(m.SharpeRatio-want) > 0.01 {
		t.Fatalf("sharpe = %v, want %v", m.SharpeRatio, want)
	}
}

func TestAnnualReturnNeedsTwoRecords(t *testing.T) {
	m := ComputeMetrics(records(100000), nil, 100000, 0.03)
	if m.AnnualReturn != 0 {
		t.Fatalf("annual return = %v, want 0 for single record", m.AnnualReturn)
	}
}

func tradePairFixture() []Trade {
	return []Trade{
		{Date: "2024-01-02", Code: "600000.SH", Action: SignalBuy, Price: 10, Shares: 100, Amount: 1000, Commission: 5},
		{Date: "2024-01-10", Code: "600000.SH", Action: SignalSell, Price: 12, Shares: 100, Amount: 1200, Commission: 6.2},
		{Date: "2024-02-02", Code: "600000.SH", Action: SignalBuy, Price: 12, Shares: 100, Amount: 1200, Commission: 5},
		{Date: "2024-02-10", Code: "600000.SH", Action: SignalSell, Price: 11, Shares: 100, Amount: 1100, Commission: 6.1},
	}
}

func TestFIFOPairing(t *testing.T) {
	pairs := pairTrades(tradePairFixture())
	if len(pairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(pairs))
	}
	// (12-10)*100 - 6.2 - 5 = 188.8
	if !almostEqual(pairs[0].profit, 188.8) {
		t.Fatalf("pair 0 profit = %v, want 188.8", pairs[0].profit)
	}
	// (11-12)*100 - 6.1 - 5 = -111.1
	if !almostEqual(pairs[1].profit, -111.1) {
		t.Fatalf("pair 1 profit = %v, want -111.1", pairs[1].profit)
	}
}

func TestFIFOPairingIgnoresUnmatchedSell(t *testing.T) {
	trades := []Trade{
		{Code: "600000.SH", Action: SignalSell, Price: 12, Shares: 100, Commission: 6.2},
	}
	if pairs := pairTrades(trades); len(pairs) != 0 {
		t.Fatalf("pairs = %d, want 0", len(pairs))
	}
}

func TestWinRateAndProfitLossRatio(t *testing.T) {
	m := ComputeMetrics(records(100000, 100100), tradePairFixture(), 100000, 0.03)

	if m.TotalTrades != 2 || m.WinTrades != 1 || m.LossTrades != 1 {
		t.Fatalf("trade counts = %d/%d/%d, want 2/1/1", m.TotalTrades, m.WinTrades, m.LossTrades)
	}
	if m.WinRate != 50 {
		t.Fatalf("win rate = %v, want 50", m.WinRate)
	}
	// 188.8 / 111.1 = 1.6993... -> 1.7
	if m.ProfitLossRatio != 1.7 {
		t.Fatalf("profit/loss ratio = %v, want 1.7", m.ProfitLossRatio)
	}
}

func TestProfitLossRatioNoLosersIsZero(t *testing.T) {
	trades := tradePairFixture()[:2]
	m := ComputeMetrics(records(100000, 100100), trades, 100000, 0.03)
	if m.ProfitLossRatio != 0 {
		t.Fatalf("profit/loss ratio = %v, want 0 with no losing pairs", m.ProfitLossRatio)
	}
	if m.WinRate != 100 {
		t.Fatalf("win rate = %v, want 100", m.WinRate)
	}
}

func TestMetricsEmptyRun(t *testing.T) {
	m := ComputeMetrics(nil, nil, 100000, 0.03)
	if m.TotalReturn != 0 || m.MaxDrawdown != 0 || m.SharpeRatio != 0 || m.WinRate != 0 {
		t.Fatalf("expected all-zero metrics, got %#v", m)
	}
}
