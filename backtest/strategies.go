package backtest

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"kline/indicator"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrNoData          = errors.New("no kline data")
)

// The strategy table is closed: five identifiers, each with its own
// parameter struct, dispatched through GenerateSignals. Signals are
// produced by scanning consecutive bar pairs for a crossing condition
// and are skipped while either side of the comparison is warming up.

type MACrossParams struct {
	FastPeriod int `yaml:"fast_period" json:"fast_period"`
	SlowPeriod int `yaml:"slow_period" json:"slow_period"`
}

func (p MACrossParams) withDefaults() MACrossParams {
	if p.FastPeriod <= 0 {
		p.FastPeriod = 5
	}
	if p.SlowPeriod <= 0 {
		p.SlowPeriod = 20
	}
	return p
}

type MACDParams struct {
	Fast   int `yaml:"fast" json:"fast"`
	Slow   int `yaml:"slow" json:"slow"`
	Signal int `yaml:"signal" json:"signal"`
}

func (p MACDParams) withDefaults() MACDParams {
	if p.Fast <= 0 {
		p.Fast = 12
	}
	if p.Slow <= 0 {
		p.Slow = 26
	}
	if p.Signal <= 0 {
		p.Signal = 9
	}
	return p
}

type KDJParams struct {
	N          int     `yaml:"n" json:"n"`
	M1         int     `yaml:"m1" json:"m1"`
	M2         int     `yaml:"m2" json:"m2"`
	Oversold   float64 `yaml:"oversold" json:"oversold"`
	Overbought float64 `yaml:"overbought" json:"overbought"`
}

func (p KDJParams) withDefaults() KDJParams {
	if p.N <= 0 {
		p.N = 9
	}
	if p.M1 <= 0 {
		p.M1 = 3
	}
	if p.M2 <= 0 {
		p.M2 = 3
	}
	if p.Oversold <= 0 {
		p.Oversold = 20
	}
	if p.Overbought <= 0 {
		p.Overbought = 80
	}
	return p
}

type RSIParams struct {
	Period     int     `yaml:"period" json:"period"`
	Oversold   float64 `yaml:"oversold" json:"oversold"`
	Overbought float64 `yaml:"overbought" json:"overbought"`
}

func (p RSIParams) withDefaults() RSIParams {
	if p.Period <= 0 {
		p.Period = 14
	}
	if p.Oversold <= 0 {
		p.Oversold = 30
	}
	if p.Overbought <= 0 {
		p.Overbought = 70
	}
	return p
}

type BOLLParams struct {
	N int     `yaml:"n" json:"n"`
	K float64 `yaml:"k" json:"k"`
}

func (p BOLLParams) withDefaults() BOLLParams {
	if p.N <= 0 {
		p.N = 20
	}
	if p.K <= 0 {
		p.K = 2
	}
	return p
}

// GenerateSignals runs the identified strategy over the bar sequence.
// params may be nil; missing fields take the documented defaults.
func GenerateSignals(bars []Bar, id string, params map[string]any) ([]Signal, error) {
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	switch id {
	case "ma_cross":
		var p MACrossParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return maCrossSignals(bars, p.withDefaults()), nil
	case "macd":
		var p MACDParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return macdSignals(bars, p.withDefaults()), nil
	case "kdj":
		var p KDJParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return kdjSignals(bars, p.withDefaults()), nil
	case "rsi":
		var p RSIParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return rsiSignals(bars, p.withDefaults()), nil
	case "boll":
		var p BOLLParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return bollSignals(bars, p.withDefaults()), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, id)
	}
}

// decodeParams maps the loose request params onto a typed struct by
// round-tripping through yaml.
func decodeParams(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal strategy params: %w", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse strategy params: %w", err)
	}
	return nil
}

func closePrices(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// maCrossSignals: buy when the fast MA crosses above the slow MA, sell
// on the cross back below.
func maCrossSignals(bars []Bar, p MACrossParams) []Signal {
	closes := closePrices(bars)
	ma := indicator.MA(closes, p.FastPeriod, p.SlowPeriod)
	fast := ma[fmt.Sprintf("ma%d", p.FastPeriod)]
	slow := ma[fmt.Sprintf("ma%d", p.SlowPeriod)]

	var signals []Signal
	for i := 1; i < len(bars); i++ {
		if !fast.Valid(i-1) || !slow.Valid(i-1) || !fast.Valid(i) || !slow.Valid(i) {
			continue
		}
		if fast[i-1] <= slow[i-1] && fast[i] > slow[i] {
			signals = append(signals, Signal{
				Time:   bars[i].Time,
				Action: SignalBuy,
				Reason: fmt.Sprintf("MA%d上穿MA%d", p.FastPeriod, p.SlowPeriod),
			})
		} else if fast[i-1] >= slow[i-1] && fast[i] < slow[i] {
			signals = append(signals, Signal{
				Time:   bars[i].Time,
				Action: SignalSell,
				Reason: fmt.Sprintf("MA%d下穿MA%d", p.FastPeriod, p.SlowPeriod),
			})
		}
	}
	return signals
}

// macdSignals: the histogram flipping sign marks the DIF/DEA cross.
func macdSignals(bars []Bar, p MACDParams) []Signal {
	_, _, hist := indicator.MACD(closePrices(bars), p.Fast, p.Slow, p.Signal)

	var signals []Signal
	for i := 1; i < len(bars); i++ {
		if !hist.Valid(i-1) || !hist.Valid(i) {
			continue
		}
		if hist[i-1] <= 0 && hist[i] > 0 {
			signals = append(signals, Signal{Time: bars[i].Time, Action: SignalBuy, Reason: "MACD金叉"})
		} else if hist[i-1] >= 0 && hist[i] < 0 {
			signals = append(signals, Signal{Time: bars[i].Time, Action: SignalSell, Reason: "MACD死叉"})
		}
	}
	return signals
}

// kdjSignals: J crossing K out of the oversold/overbought zones.
func kdjSignals(bars []Bar, p KDJParams) []Signal {
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}
	k, _, j := indicator.KDJ(highs, lows, closePrices(bars), p.N, p.M1, p.M2)

	var signals []Signal
	for i := 1; i < len(bars); i++ {
		if !k.Valid(i-1) || !j.Valid(i-1) || !k.Valid(i) || !j.Valid(i) {
			continue
		}
		if j[i-1] < p.Oversold && j[i-1] <= k[i-1] && j[i] > k[i] {
			signals = append(signals, Signal{
				Time:   bars[i].Time,
				Action: SignalBuy,
				Reason: fmt.Sprintf("KDJ超卖反弹(J=%.1f)", j[i]),
			})
		} else if j[i-1] > p.Overbought && j[i-1] >= k[i-1] && j[i] < k[i] {
			signals = append(signals, Signal{
				Time:   bars[i].Time,
				Action: SignalSell,
				Reason: fmt.Sprintf("KDJ超买回落(J=%.1f)", j[i]),
			})
		}
	}
	return signals
}

// rsiSignals: RSI re-crossing the oversold line from below buys, the
// overbought line from above sells.
func rsiSignals(bars []Bar, p RSIParams) []Signal {
	rsi := indicator.RSI(closePrices(bars), p.Period)

	var signals []Signal
	for i := 1; i < len(bars); i++ {
		if !rsi.Valid(i-1) || !rsi.Valid(i) {
			continue
		}
		if rsi[i-1] < p.Oversold && rsi[i] >= p.Oversold {
			signals = append(signals, Signal{
				Time:   bars[i].Time,
				Action: SignalBuy,
				Reason: fmt.Sprintf("RSI超卖反弹(RSI=%.1f)", rsi[i]),
			})
		} else if rsi[i-1] > p.Overbought && rsi[i] <= p.Overbought {
			signals = append(signals, Signal{
				Time:   bars[i].Time,
				Action: SignalSell,
				Reason: fmt.Sprintf("RSI超买回落(RSI=%.1f)", rsi[i]),
			})
		}
	}
	return signals
}

// bollSignals: close rebounding off the lower band buys, falling back
// off the upper band sells.
func bollSignals(bars []Bar, p BOLLParams) []Signal {
	closes := closePrices(bars)
	_, upper, lower := indicator.BOLL(closes, p.N, p.K)

	var signals []Signal
	for i := 1; i < len(bars); i++ {
		if !upper.Valid(i-1) || !lower.Valid(i-1) || !upper.Valid(i) || !lower.Valid(i) {
			continue
		}
		if closes[i-1] <= lower[i-1] && closes[i] > lower[i] {
			signals = append(signals, Signal{Time: bars[i].Time, Action: SignalBuy, Reason: "触及布林下轨反弹"})
		} else if closes[i-1] >= upper[i-1] && closes[i] < upper[i] {
			signals = append(signals, Signal{Time: bars[i].Time, Action: SignalSell, Reason: "触及布林上轨回落"})
		}
	}
	return signals
}
