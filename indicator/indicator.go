package indicator

import (
	"fmt"
	"math"

	"kline/model"
)

// SMA is the arithmetic mean of the trailing period closes. Positions
// 0..period-2 are warm-up.
func SMA(values []float64, period int) Series {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA is the exponential moving average with smoothing 2/(span+1), seeded
// by the first value. No warm-up: every position is defined.
func EMA(values []float64, span int) Series {
	return ewm(values, 2.0/float64(span+1))
}

// ewm is an exponentially weighted mean seeded by the first value:
// y[0] = x[0], y[i] = (1-alpha)*y[i-1] + alpha*x[i].
func ewm(values []float64, alpha float64) Series {
	out := make(Series, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = (1-alpha)*out[i-1] + alpha*v
	}
	return out
}

// MA computes simple moving averages for the given periods, keyed
// "ma5", "ma10" and so on. Values are rounded to 2 decimals.
func MA(closes []float64, periods ...int) map[string]Series {
	if len(periods) == 0 {
		periods = []int{5, 10, 20, 60}
	}
	out := make(map[string]Series, len(periods))
	for _, p := range periods {
		out[fmt.Sprintf("ma%d", p)] = SMA(closes, p).rounded(round2)
	}
	return out
}

// MACD computes DIF = EMA(fast) - EMA(slow), DEA = EMA(DIF, signal) and
// HIST = 2*(DIF-DEA). Components are rounded to 4 decimals.
func MACD(closes []float64, fast, slow, signal int) (dif, dea, hist Series) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	dif = make(Series, len(closes))
	for i := range closes {
		dif[i] = emaFast[i] - emaSlow[i]
	}
	dea = EMA(dif, signal)

	hist = make(Series, len(closes))
	for i := range closes {
		hist[i] = 2 * (dif[i] - dea[i])
	}
	return dif.rounded(round4), dea.rounded(round4), hist.rounded(round4)
}

// KDJ computes the stochastic oscillator. RSV is 50 while the n-bar
// window is warming up and whenever the window range is zero. K and D
// are exponential smoothings with center-of-mass m1-1 and m2-1
// (alpha = 1/m1, 1/m2), J = 3K - 2D. Rounded to 2 decimals.
func KDJ(highs, lows, closes []float64, n, m1, m2 int) (k, d, j Series) {
	rsv := make(Series, len(closes))
	for i := range closes {
		if i < n-1 {
			rsv[i] = 50
			continue
		}
		hh := highs[i]
		ll := lows[i]
		for w := i - n + 1; w < i; w++ {
			hh = math.Max(hh, highs[w])
			ll = math.Min(ll, lows[w])
		}
		if hh == ll {
			rsv[i] = 50
			continue
		}
		rsv[i] = (closes[i] - ll) / (hh - ll) * 100
	}

	k = ewm(rsv, 1/float64(m1))
	d = ewm(k, 1/float64(m2))
	j = make(Series, len(closes))
	for i := range closes {
		j[i] = 3*k[i] - 2*d[i]
	}
	return k.rounded(round2), d.rounded(round2), j.rounded(round2)
}

// RSI computes the relative strength index over the trailing period
// price deltas. Positions 0..period-1 are warm-up. When the average
// loss is zero the ratio degenerates: RSI is 100 if there were gains
// and 50 on a perfectly flat window.
func RSI(closes []float64, period int) Series {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}
	for i := period; i < len(closes); i++ {
		gain, loss := 0.0, 0.0
		for w := i - period + 1; w <= i; w++ {
			delta := closes[w] - closes[w-1]
			if delta > 0 {
				gain += delta
			} else {
				loss -= delta
			}
		}
		gain /= float64(period)
		loss /= float64(period)

		switch {
		case loss == 0 && gain == 0:
			out[i] = 50
		case loss == 0:
			out[i] = 100
		default:
			rs := gain / loss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out.rounded(round2)
}

// BOLL computes Bollinger bands: mid = SMA(n), upper/lower = mid ± k
// sample standard deviations. Rounded to 2 decimals.
func BOLL(closes []float64, n int, k float64) (mid, upper, lower Series) {
	mid = SMA(closes, n)
	std := nanSeries(len(closes))
	if n >= 2 && len(closes) >= n {
		for i := n - 1; i < len(closes); i++ {
			mean := mid[i]
			ss := 0.0
			for w := i - n + 1; w <= i; w++ {
				dev := closes[w] - mean
				ss += dev * dev
			}
			std[i] = math.Sqrt(ss / float64(n-1))
		}
	}

	upper = make(Series, len(closes))
	lower = make(Series, len(closes))
	for i := range closes {
		upper[i] = mid[i] + k*std[i]
		lower[i] = mid[i] - k*std[i]
	}
	return mid.rounded(round2), upper.rounded(round2), lower.rounded(round2)
}

// Compute evaluates the named indicator groups over a K-line sequence
// with their default parameters, keyed the way the web client expects:
// {"ma": {"ma5": [...]}, "macd": {"dif": [...]}, ...}.
func Compute(klines []model.KLine, names []string) (map[string]map[string]Series, error) {
	if len(klines) == 0 {
		return nil, fmt.Errorf("no kline data")
	}

	closes := make([]float64, len(klines))
	highs := make([]float64, len(klines))
	lows := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
		highs[i] = k.High
		lows[i] = k.Low
	}

	out := make(map[string]map[string]Series, len(names))
	for _, name := range names {
		switch name {
		case "ma":
			out["ma"] = MA(closes)
		case "macd":
			dif, dea, hist := MACD(closes, 12, 26, 9)
			out["macd"] = map[string]Series{"dif": dif, "dea": dea, "macd": hist}
		case "kdj":
			k, d, j := KDJ(highs, lows, closes, 9, 3, 3)
			out["kdj"] = map[string]Series{"k": k, "d": d, "j": j}
		case "rsi":
			out["rsi"] = map[string]Series{
				"rsi6":  RSI(closes, 6),
				"rsi12": RSI(closes, 12),
				"rsi24": RSI(closes, 24),
			}
		case "boll":
			mid, upper, lower := BOLL(closes, 20, 2)
			out["boll"] = map[string]Series{"mid": mid, "upper": upper, "lower": lower}
		default:
			return nil, fmt.Errorf("unknown indicator: %s", name)
		}
	}
	return out, nil
}

func nanSeries(n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
