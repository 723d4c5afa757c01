package model

// KLine 单只股票一个交易日的日K线数据
type KLine struct {
	Date   string  `json:"date"`   // 交易日 YYYY-MM-DD
	Open   float64 `json:"open"`   // 开盘价
	Close  float64 `json:"close"`  // 收盘价
	High   float64 `json:"high"`   // 最高价
	Low    float64 `json:"low"`    // 最低价
	Volume float64 `json:"volume"` // 成交量（股）
	Amount float64 `json:"amount"` // 成交额（元）
}

// Change 计算当日涨跌额
func (k *KLine) Change() float64 {
	return k.Close - k.Open
}

// ChangePercent 计算当日涨跌幅
func (k *KLine) ChangePercent() float64 {
	if k.Open == 0 {
		return 0
	}
	return (k.Close - k.Open) / k.Open * 100
}

// StockInfo 股票基本信息
type StockInfo struct {
	Code string `json:"code"` // 股票代码 (600000.SH)
	Name string `json:"name"` // 股票名称
}

// KLineSet 一次查询返回的K线集合
type KLineSet struct {
	StockInfo StockInfo `json:"stock_info"`
	KLines    []KLine   `json:"klines"`
	Count     int       `json:"count"`
}

// AdjType 复权类型
type AdjType string

const (
	AdjNone   AdjType = "none"   // 不复权
	AdjBefore AdjType = "before" // 前复权
	AdjAfter  AdjType = "after"  // 后复权
)

// Valid 是否为已知复权类型
func (a AdjType) Valid() bool {
	switch a {
	case AdjNone, AdjBefore, AdjAfter:
		return true
	}
	return false
}
