package backtest

import "time"

type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Amount float64
}

type SignalAction string

const (
	SignalBuy  SignalAction = "buy"
	SignalSell SignalAction = "sell"
)

type Signal struct {
	Time   time.Time
	Action SignalAction
	Reason string
}

// Position is the single open lot of the traded instrument. Shares is
// always a non-negative multiple of the 100-share lot.
type Position struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Shares    int64   `json:"shares"`
	AvgCost   float64 `json:"avg_price"`
	LastPrice float64 `json:"current_price"`
}

func (p *Position) MarketValue() float64 {
	return float64(p.Shares) * p.LastPrice
}

func (p *Position) CostBasis() float64 {
	return float64(p.Shares) * p.AvgCost
}

func (p *Position) UnrealizedPnL() float64 {
	return p.MarketValue() - p.CostBasis()
}

type Trade struct {
	Date       string       `json:"date"`
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	Action     SignalAction `json:"action"`
	Price      float64      `json:"price"`
	Shares     int64        `json:"shares"`
	Amount     float64      `json:"amount"`
	Commission float64      `json:"commission"`
	Reason     string       `json:"reason"`
}

// DailyRecord is one end-of-session account snapshot.
type DailyRecord struct {
	Date        string  `json:"date"`
	Cash        float64 `json:"cash"`
	MarketValue float64 `json:"market_value"`
	TotalValue  float64 `json:"total_value"`
}

type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Result is the immutable outcome of one backtest run.
type Result struct {
	StockCode      string         `json:"stock_code"`
	StockName      string         `json:"stock_name"`
	StartDate      string         `json:"start_date"`
	EndDate        string         `json:"end_date"`
	StrategyName   string         `json:"strategy_name"`
	StrategyParams map[string]any `json:"strategy_params"`
	InitialCapital float64        `json:"initial_capital"`
	FinalCapital   float64        `json:"final_capital"`
	Metrics        Metrics        `json:"metrics"`
	Trades         []Trade        `json:"trades"`
	DailyRecords   []DailyRecord  `json:"daily_records"`
	EquityCurve    []Point        `json:"equity_curve"`
	BuyHoldCurve   []Point        `json:"buy_hold_curve,omitempty"`
}

// AttachBenchmark adds the buy-and-hold comparison to a completed
// result: benchmark curve, its return, and the strategy's excess over it.
func (r *Result) AttachBenchmark(curve []Point, buyHoldReturn float64) {
	r.BuyHoldCurve = curve
	bh := round2(buyHoldReturn)
	excess := round2(r.Metrics.TotalReturn - buyHoldReturn)
	r.Metrics.BuyHoldReturn = &bh
	r.Metrics.ExcessReturn = &excess
}

const dateLayout = "2006-01-02"
