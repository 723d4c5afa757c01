package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"kline/backtest"
	"kline/cache"
	"kline/indicator"
	"kline/model"
	"kline/store"
)

// Handler API处理器
type Handler struct {
	store *store.Store
	cache *cache.Cache
}

// NewHandler 创建处理器
func NewHandler(st *store.Store, c *cache.Cache) *Handler {
	return &Handler{store: st, cache: c}
}

// KLineResponse K线查询响应
type KLineResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    *model.KLineSet `json:"data"`
}

// GetKLine 查询日K线数据
func (h *Handler) GetKLine(c *gin.Context) {
	code := c.Query("code")
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	adjType := model.AdjType(c.DefaultQuery("adj_type", string(model.AdjNone)))

	if code == "" || startDate == "" || endDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code、start_date、end_date不能为空"})
		return
	}
	if !adjType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未知复权类型: " + string(adjType)})
		return
	}

	ctx := c.Request.Context()
	cacheKey := fmt.Sprintf("kline:%s:day:%s:%s:%s", code, startDate, endDate, adjType)

	var resp KLineResponse
	if h.cache != nil && h.cache.Get(ctx, cacheKey, &resp) {
		c.JSON(http.StatusOK, resp)
		return
	}

	set, err := h.store.GetDailyKLine(ctx, code, startDate, endDate, adjType)
	if err != nil {
		if errors.Is(err, store.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器错误: " + err.Error()})
		return
	}

	resp = KLineResponse{Code: 0, Message: "success", Data: set}
	if h.cache != nil {
		h.cache.Set(ctx, cacheKey, resp, cache.TTLForEndDate(endDate))
	}
	c.JSON(http.StatusOK, resp)
}

// GetIndicators 查询技术指标
func (h *Handler) GetIndicators(c *gin.Context) {
	code := c.Query("code")
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	adjType := model.AdjType(c.DefaultQuery("adj_type", string(model.AdjNone)))
	names := strings.Split(c.DefaultQuery("indicators", "ma,macd,kdj,rsi,boll"), ",")

	if code == "" || startDate == "" || endDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code、start_date、end_date不能为空"})
		return
	}
	if !adjType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未知复权类型: " + string(adjType)})
		return
	}

	ctx := c.Request.Context()

	set, err := h.store.GetDailyKLine(ctx, code, startDate, endDate, adjType)
	if err != nil {
		if errors.Is(err, store.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器错误: " + err.Error()})
		return
	}

	result, err := indicator.Compute(set.KLines, names)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"stock_info": set.StockInfo,
			"dates":      klineDates(set.KLines),
			"indicators": result,
		},
	})
}

// SearchStocks 搜索股票
func (h *Handler) SearchStocks(c *gin.Context) {
	keyword := c.Query("keyword")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	items, err := h.store.SearchStocks(c.Request.Context(), keyword, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器错误: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"count": len(items),
		"data":  items,
	})
}

// GetStrategies 获取策略列表
func (h *Handler) GetStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    backtest.StrategyDefinitions(),
	})
}

// BacktestRequest 回测请求
type BacktestRequest struct {
	Code           string         `json:"code" binding:"required"`
	StartDate      string         `json:"start_date" binding:"required"`
	EndDate        string         `json:"end_date" binding:"required"`
	StrategyID     string         `json:"strategy_id" binding:"required"`
	StrategyParams map[string]any `json:"strategy_params"`
	InitialCapital float64        `json:"initial_capital"`
	PositionRatio  float64        `json:"position_ratio"`
}

// RunBacktest 执行回测
func (h *Handler) RunBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	cfg := backtest.DefaultRunConfig()
	cfg.Code = req.Code
	cfg.StrategyID = req.StrategyID
	cfg.StrategyParams = req.StrategyParams
	if req.InitialCapital > 0 {
		cfg.InitialCapital = req.InitialCapital
	}
	if req.PositionRatio > 0 && req.PositionRatio <= 1 {
		cfg.PositionRatio = req.PositionRatio
	}

	ctx := c.Request.Context()

	// 回测统一使用后复权价格
	set, err := h.store.GetDailyKLine(ctx, req.Code, req.StartDate, req.EndDate, model.AdjAfter)
	if err != nil {
		if errors.Is(err, store.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": "没有找到K线数据"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器错误: " + err.Error()})
		return
	}
	cfg.Name = set.StockInfo.Name

	bars := backtest.BarsFromKLines(set.KLines)
	signals, err := backtest.GenerateSignals(bars, cfg.StrategyID, cfg.StrategyParams)
	if err != nil {
		if errors.Is(err, backtest.ErrUnknownStrategy) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器错误: " + err.Error()})
		return
	}

	result := backtest.RunBacktest(bars, signals, cfg)
	result.AttachBenchmark(backtest.BuyHold(bars, cfg.InitialCapital))

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    result,
	})
}

// GetStatus 获取服务状态
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	dbOK := h.store.Ping(ctx) == nil
	cacheOK := h.cache != nil && h.cache.Ping(ctx) == nil

	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"clickhouse": dbOK,
			"redis":      cacheOK,
			"strategies": len(backtest.StrategyDefinitions()),
		},
	})
}

func klineDates(klines []model.KLine) []string {
	dates := make([]string, len(klines))
	for i, k := range klines {
		dates[i] = k.Date
	}
	return dates
}
