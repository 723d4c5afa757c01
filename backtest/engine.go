package backtest

import (
	"encoding/json"
	"io"
	"math"
)

// EngineConfig carries the trading frictions for one run. Rates are
// fractions, not percentages: the A-share defaults are 0.03% commission
// with a 5 yuan minimum and 0.1% stamp tax on sells.
type EngineConfig struct {
	Code           string
	Name           string
	InitialCapital float64
	CommissionRate float64
	TaxRate        float64
	MinCommission  float64
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.InitialCapital <= 0 {
		c.InitialCapital = 100000
	}
	if c.CommissionRate <= 0 {
		c.CommissionRate = 0.0003
	}
	if c.TaxRate <= 0 {
		c.TaxRate = 0.001
	}
	if c.MinCommission <= 0 {
		c.MinCommission = 5
	}
	return c
}

// Engine simulates a single-instrument cash account: one optional
// position, append-only trade and daily-record logs. Rejected orders
// return false and leave the state untouched.
type Engine struct {
	cfg  EngineConfig
	cash float64
	pos  *Position

	trades  []Trade
	records []DailyRecord
}

func NewEngine(cfg EngineConfig) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{cfg: cfg, cash: cfg.InitialCapital}
}

func (e *Engine) Cash() float64          { return e.cash }
func (e *Engine) Position() *Position    { return e.pos }
func (e *Engine) HasPosition() bool      { return e.pos != nil }
func (e *Engine) Trades() []Trade        { return e.trades }
func (e *Engine) Records() []DailyRecord { return e.records }

// Commission computes the friction on a trade of the given gross
// amount; sells additionally pay stamp tax on the full amount.
func (e *Engine) Commission(amount float64, isSell bool) float64 {
	commission := amount * e.cfg.CommissionRate
	if commission < e.cfg.MinCommission {
		commission = e.cfg.MinCommission
	}
	if isSell {
		commission += amount * e.cfg.TaxRate
	}
	return commission
}

// Buy opens or adds to the position. Shares are floored to whole lots;
// the order is rejected when that leaves zero shares or when amount
// plus commission exceeds available cash.
func (e *Engine) Buy(date string, price float64, shares int64, reason string) bool {
	shares = shares / 100 * 100
	if shares <= 0 || price <= 0 {
		return false
	}

	amount := price * float64(shares)
	commission := e.Commission(amount, false)
	if amount+commission > e.cash {
		return false
	}

	e.cash -= amount + commission

	if e.pos != nil {
		// Weighted-average cost across the merged lot.
		newShares := e.pos.Shares + shares
		newCost := e.pos.CostBasis() + amount
		e.pos.Shares = newShares
		e.pos.AvgCost = newCost / float64(newShares)
		e.pos.LastPrice = price
	} else {
		e.pos = &Position{
			Code:      e.cfg.Code,
			Name:      e.cfg.Name,
			Shares:    shares,
			AvgCost:   price,
			LastPrice: price,
		}
	}

	e.trades = append(e.trades, Trade{
		Date:       date,
		Code:       e.cfg.Code,
		Name:       e.cfg.Name,
		Action:     SignalBuy,
		Price:      price,
		Shares:     shares,
		Amount:     amount,
		Commission: commission,
		Reason:     reason,
	})
	return true
}

// Sell closes part or all of the position. shares <= 0 sells everything.
// The size is floored to whole lots and must not exceed the holding.
func (e *Engine) Sell(date string, price float64, shares int64, reason string) bool {
	if e.pos == nil || price <= 0 {
		return false
	}
	if shares <= 0 {
		shares = e.pos.Shares
	}
	shares = shares / 100 * 100
	if shares == 0 || shares > e.pos.Shares {
		return false
	}

	amount := price * float64(shares)
	commission := e.Commission(amount, true)
	e.cash += amount - commission

	if shares == e.pos.Shares {
		e.pos = nil
	} else {
		e.pos.Shares -= shares
	}

	e.trades = append(e.trades, Trade{
		Date:       date,
		Code:       e.cfg.Code,
		Name:       e.cfg.Name,
		Action:     SignalSell,
		Price:      price,
		Shares:     shares,
		Amount:     amount,
		Commission: commission,
		Reason:     reason,
	})
	return true
}

// UpdatePrice marks the open position to the latest close.
func (e *Engine) UpdatePrice(price float64) {
	if e.pos != nil {
		e.pos.LastPrice = price
	}
}

// RecordDaily appends the end-of-session snapshot. total = cash + market
// value holds for every record.
func (e *Engine) RecordDaily(date string) {
	mv := 0.0
	if e.pos != nil {
		mv = e.pos.MarketValue()
	}
	e.records = append(e.records, DailyRecord{
		Date:        date,
		Cash:        e.cash,
		MarketValue: mv,
		TotalValue:  e.cash + mv,
	})
}

// TotalValue is current cash plus marked position value.
func (e *Engine) TotalValue() float64 {
	if e.pos == nil {
		return e.cash
	}
	return e.cash + e.pos.MarketValue()
}

// RunBacktest replays the signal sequence over the bar sequence in date
// order. Per session: mark to the close, execute at most one signal
// dated that session at the close price, then record the snapshot.
// Buys fire only when flat and size floor(cash*ratio/price) to whole
// lots; sells always close the full position.
func RunBacktest(bars []Bar, signals []Signal, cfg RunConfig) *Result {
	engine := NewEngine(EngineConfig{
		Code:           cfg.Code,
		Name:           cfg.Name,
		InitialCapital: cfg.InitialCapital,
		CommissionRate: cfg.CommissionRate,
		TaxRate:        cfg.TaxRate,
		MinCommission:  cfg.MinCommission,
	})

	idx := 0
	for _, bar := range bars {
		date := bar.Time.Format(dateLayout)
		engine.UpdatePrice(bar.Close)

		for idx < len(signals) && signals[idx].Time.Before(bar.Time) {
			idx++
		}
		if idx < len(signals) && signals[idx].Time.Equal(bar.Time) {
			sig := signals[idx]
			idx++
			// A strategy emits at most one signal per session; drop any extras.
			for idx < len(signals) && signals[idx].Time.Equal(bar.Time) {
				idx++
			}

			switch sig.Action {
			case SignalBuy:
				if !engine.HasPosition() {
					shares := int64(math.Floor(engine.Cash()*cfg.PositionRatio/bar.Close/100)) * 100
					engine.Buy(date, bar.Close, shares, sig.Reason)
				}
			case SignalSell:
				if engine.HasPosition() {
					engine.Sell(date, bar.Close, 0, sig.Reason)
				}
			}
		}

		engine.RecordDaily(date)
	}

	records := engine.Records()
	equity := make([]Point, len(records))
	for i, r := range records {
		equity[i] = Point{Date: r.Date, Value: r.TotalValue}
	}

	res := &Result{
		StockCode:      cfg.Code,
		StockName:      cfg.Name,
		StrategyName:   StrategyName(cfg.StrategyID),
		StrategyParams: cfg.StrategyParams,
		InitialCapital: engine.cfg.InitialCapital,
		FinalCapital:   engine.TotalValue(),
		Metrics:        ComputeMetrics(records, engine.Trades(), engine.cfg.InitialCapital, cfg.RiskFreeRate),
		Trades:         engine.Trades(),
		DailyRecords:   records,
		EquityCurve:    equity,
	}
	if len(bars) > 0 {
		res.StartDate = bars[0].Time.Format(dateLayout)
		res.EndDate = bars[len(bars)-1].Time.Format(dateLayout)
	}
	return res
}

func WriteResultJSON(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// BuyHold computes the buy-and-hold benchmark: spend ~the full capital
// (less a fee haircut) on whole lots at the first close and hold.
// Returns the value curve and the final return percentage.
func BuyHold(bars []Bar, initialCapital float64) ([]Point, float64) {
	if len(bars) == 0 || initialCapital <= 0 {
		return nil, 0
	}
	shares := int64(initialCapital*0.999/bars[0].Close/100) * 100
	curve := make([]Point, len(bars))
	for i, bar := range bars {
		curve[i] = Point{
			Date:  bar.Time.Format(dateLayout),
			Value: float64(shares) * bar.Close,
		}
	}
	final := curve[len(curve)-1].Value
	return curve, (final - initialCapital) / initialCapital * 100
}
