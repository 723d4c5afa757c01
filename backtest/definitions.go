package backtest

// ParamDef 策略参数定义（供前端渲染参数表单）
type ParamDef struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Type    string  `json:"type"`
	Default any     `json:"default"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Step    float64 `json:"step,omitempty"`
}

// StrategyDefinition 策略定义
type StrategyDefinition struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Params      []ParamDef `json:"params"`
}

// StrategyDefinitions 返回全部可用策略及其参数表
func StrategyDefinitions() []StrategyDefinition {
	return []StrategyDefinition{
		{
			ID:          "ma_cross",
			Name:        "MA均线交叉",
			Description: "快线上穿慢线买入，下穿卖出",
			Params: []ParamDef{
				{Name: "fast_period", Label: "快线周期", Type: "number", Default: 5, Min: 2, Max: 60},
				{Name: "slow_period", Label: "慢线周期", Type: "number", Default: 20, Min: 5, Max: 120},
			},
		},
		{
			ID:          "macd",
			Name:        "MACD策略",
			Description: "MACD金叉买入，死叉卖出",
			Params: []ParamDef{
				{Name: "fast", Label: "快线EMA周期", Type: "number", Default: 12, Min: 5, Max: 30},
				{Name: "slow", Label: "慢线EMA周期", Type: "number", Default: 26, Min: 10, Max: 60},
				{Name: "signal", Label: "信号线周期", Type: "number", Default: 9, Min: 3, Max: 20},
			},
		},
		{
			ID:          "kdj",
			Name:        "KDJ策略",
			Description: "KDJ超卖反弹买入，超买回落卖出",
			Params: []ParamDef{
				{Name: "n", Label: "RSV周期", Type: "number", Default: 9, Min: 3, Max: 30},
				{Name: "m1", Label: "K平滑周期", Type: "number", Default: 3, Min: 1, Max: 10},
				{Name: "m2", Label: "D平滑周期", Type: "number", Default: 3, Min: 1, Max: 10},
				{Name: "oversold", Label: "超卖线", Type: "number", Default: 20, Min: 10, Max: 40},
				{Name: "overbought", Label: "超买线", Type: "number", Default: 80, Min: 60, Max: 90},
			},
		},
		{
			ID:          "rsi",
			Name:        "RSI策略",
			Description: "RSI超卖反弹买入，超买回落卖出",
			Params: []ParamDef{
				{Name: "period", Label: "RSI周期", Type: "number", Default: 14, Min: 5, Max: 30},
				{Name: "oversold", Label: "超卖线", Type: "number", Default: 30, Min: 20, Max: 40},
				{Name: "overbought", Label: "超买线", Type: "number", Default: 70, Min: 60, Max: 80},
			},
		},
		{
			ID:          "boll",
			Name:        "布林带策略",
			Description: "价格触及下轨反弹买入，触及上轨回落卖出",
			Params: []ParamDef{
				{Name: "n", Label: "均线周期", Type: "number", Default: 20, Min: 10, Max: 60},
				{Name: "k", Label: "标准差倍数", Type: "number", Default: 2, Min: 1, Max: 3, Step: 0.1},
			},
		},
	}
}

// StrategyName 返回策略显示名，未知策略返回空串
func StrategyName(id string) string {
	for _, def := range StrategyDefinitions() {
		if def.ID == id {
			return def.Name
		}
	}
	return ""
}
