package indicator

import (
	"math"
	"strconv"
)

// Series is an indicator value sequence aligned index-for-index with the
// bar sequence it was computed from. NaN marks a warm-up position where
// not enough history exists; it marshals to JSON null.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(s)*8+2)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'f', -1, 64)
	}
	buf = append(buf, ']')
	return buf, nil
}

// Valid reports whether the value at i exists (not warm-up).
func (s Series) Valid(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

func (s Series) rounded(round func(float64) float64) Series {
	out := make(Series, len(s))
	for i, v := range s {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = round(v)
	}
	return out
}
