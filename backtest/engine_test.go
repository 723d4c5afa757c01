package backtest

import (
	"math"
	"testing"
	"time"
)

func testConfig() EngineConfig {
	return EngineConfig{
		Code:           "600000.SH",
		Name:           "浦发银行",
		InitialCapital: 100000,
		CommissionRate: 0.0003,
		TaxRate:        0.001,
		MinCommission:  5,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestBuyAppliesMinCommission(t *testing.T) {
	e := NewEngine(testConfig())

	if !e.Buy("2024-01-02", 10, 100, "test") {
		t.Fatal("buy rejected")
	}
	// commission = max(1000*0.0003, 5) = 5
	if !almostEqual(e.Cash(), 98995) {
		t.Fatalf("cash = %v, want 98995", e.Cash())
	}
	pos := e.Position()
	if pos == nil || pos.Shares != 100 || pos.AvgCost != 10 {
		t.Fatalf("position = %#v", pos)
	}
}

func TestSellRoundTrip(t *testing.T) {
	e := NewEngine(testConfig())
	e.Buy("2024-01-02", 10, 100, "open")

	if !e.Sell("2024-01-03", 12, 0, "close") {
		t.Fatal("sell rejected")
	}
	// sell commission = max(1200*0.0003, 5) + 1200*0.001 = 6.2
	if !almostEqual(e.Cash(), 100188.8) {
		t.Fatalf("cash = %v, want 100188.8", e.Cash())
	}
	if e.HasPosition() {
		t.Fatalf("expected flat after full sell, got %#v", e.Position())
	}
	if len(e.Trades()) != 2 {
		t.Fatalf("trades = %d, want 2", len(e.Trades()))
	}
}

func TestBuyRejectedOnInsufficientCash(t *testing.T) {
	cfg := testConfig()
	cfg.InitialCapital = 1000
	e := NewEngine(cfg)

	// 100 shares at 10 costs 1000 + 5 commission > 1000
	if e.Buy("2024-01-02", 10, 100, "test") {
		t.Fatal("expected rejection")
	}
	if e.Cash() != 1000 || e.HasPosition() || len(e.Trades()) != 0 {
		t.Fatalf("state changed on rejected buy: cash=%v pos=%v trades=%d",
			e.Cash(), e.Position(), len(e.Trades()))
	}
}

func TestBuyFloorsToWholeLots(t *testing.T) {
	e := NewEngine(testConfig())

	if e.Buy("2024-01-02", 10, 99, "test") {
		t.Fatal("sub-lot order should be rejected")
	}
	if !e.Buy("2024-01-02", 10, 150, "test") {
		t.Fatal("buy rejected")
	}
	if e.Position().Shares != 100 {
		t.Fatalf("shares = %d, want 100", e.Position().Shares)
	}
}

func TestBuyWeightedAverageCost(t *testing.T) {
	e := NewEngine(testConfig())
	e.Buy("2024-01-02", 10, 100, "open")
	e.Buy("2024-01-03", 20, 100, "add")

	pos := e.Position()
	if pos.Shares != 200 || !almostEqual(pos.AvgCost, 15) {
		t.Fatalf("position = %#v, want 200 shares at avg 15", pos)
	}
}

func TestPartialSellKeepsAvgCost(t *testing.T) {
	e := NewEngine(testConfig())
	e.Buy("2024-01-02", 10, 200, "open")

	if !e.Sell("2024-01-03", 11, 100, "trim") {
		t.Fatal("sell rejected")
	}
	pos := e.Position()
	if pos == nil || pos.Shares != 100 || pos.AvgCost != 10 {
		t.Fatalf("position = %#v, want 100 shares at avg 10", pos)
	}
	if !almostEqual(pos.CostBasis(), 1000) {
		t.Fatalf("cost basis = %v, want 1000", pos.CostBasis())
	}
}

func TestSellRejectedBeyondHolding(t *testing.T) {
	e := NewEngine(testConfig())
	e.Buy("2024-01-02", 10, 100, "open")

	if e.Sell("2024-01-03", 11, 200, "too much") {
		t.Fatal("expected rejection selling more than held")
	}
	if e.Position().Shares != 100 {
		t.Fatalf("holding changed on rejected sell: %#v", e.Position())
	}
}

func makeBars(closes []float64) []Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{
			Time:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 10000,
		}
	}
	return bars
}

func TestRunBacktestSnapshotInvariant(t *testing.T) {
	bars := makeBars([]float64{10, 11, 12, 11, 10, 11, 12})
	signals := []Signal{
		{Time: bars[1].Time, Action: SignalBuy, Reason: "buy"},
		{Time: bars[4].Time, Action: SignalSell, Reason: "sell"},
	}

	cfg := DefaultRunConfig()
	cfg.Code = "600000.SH"
	res := RunBacktest(bars, signals, cfg)

	if len(res.DailyRecords) != len(bars) {
		t.Fatalf("records = %d, want %d", len(res.DailyRecords), len(bars))
	}
	for _, r := range res.DailyRecords {
		if !almostEqual(r.TotalValue, r.Cash+r.MarketValue) {
			t.Fatalf("%s: total %v != cash %v + mv %v", r.Date, r.TotalValue, r.Cash, r.MarketValue)
		}
	}
	for _, tr := range res.Trades {
		if tr.Shares <= 0 || tr.Shares%100 != 0 {
			t.Fatalf("trade shares %d not a positive lot multiple", tr.Shares)
		}
	}
	if len(res.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(res.Trades))
	}
}

func TestRunBacktestBuyOnlyWhenFlat(t *testing.T) {
	bars := makeBars([]float64{10, 11, 12, 13})
	signals := []Signal{
		{Time: bars[1].Time, Action: SignalBuy, Reason: "first"},
		{Time: bars[2].Time, Action: SignalBuy, Reason: "second"},
	}

	cfg := DefaultRunConfig()
	cfg.Code = "600000.SH"
	res := RunBacktest(bars, signals, cfg)

	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1 (second buy skipped while holding)", len(res.Trades))
	}
	if res.Trades[0].Reason != "first" {
		t.Fatalf("executed trade = %#v", res.Trades[0])
	}
}

func TestRunBacktestDuplicateSignalsSameDate(t *testing.T) {
	bars := makeBars([]float64{10, 11, 12})
	signals := []Signal{
		{Time: bars[1].Time, Action: SignalBuy, Reason: "first"},
		{Time: bars[1].Time, Action: SignalSell, Reason: "dup"},
		{Time: bars[2].Time, Action: SignalSell, Reason: "close"},
	}

	cfg := DefaultRunConfig()
	cfg.Code = "600000.SH"
	res := RunBacktest(bars, signals, cfg)

	// the duplicate on bars[1] is dropped, the close on bars[2] still fires
	if len(res.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(res.Trades))
	}
	if res.Trades[0].Reason != "first" || res.Trades[1].Reason != "close" {
		t.Fatalf("trades = %#v", res.Trades)
	}
}

func TestBuyHoldBenchmark(t *testing.T) {
	bars := makeBars([]float64{10, 12})
	curve, ret := BuyHold(bars, 100000)

	// floor(100000*0.999/10/100)*100 = 9900 shares
	if len(curve) != 2 || curve[0].Value != 99000 || curve[1].Value != 118800 {
		t.Fatalf("curve = %#v", curve)
	}
	if !almostEqual(ret, 18.8) {
		t.Fatalf("return = %v, want 18.8", ret)
	}
}
