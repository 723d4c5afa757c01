package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kline/cache"
	"kline/store"
)

// Server HTTP服务器
type Server struct {
	engine *gin.Engine
	server *http.Server
	store  *store.Store
	cache  *cache.Cache
}

// NewServer 创建服务器。cache可以为nil（缓存关闭时直连数据库）。
func NewServer(st *store.Store, c *cache.Cache, port int) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(loggerMiddleware())

	s := &Server{
		engine: engine,
		store:  st,
		cache:  c,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: engine,
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	handler := NewHandler(s.store, s.cache)

	api := s.engine.Group("/api")
	{
		// K线与指标
		api.GET("/kline/data", handler.GetKLine)
		api.GET("/kline/indicators", handler.GetIndicators)

		// 股票搜索
		api.GET("/stocks", handler.SearchStocks)

		// 量化回测
		api.GET("/backtest/strategies", handler.GetStrategies)
		api.POST("/backtest/run", handler.RunBacktest)

		// 服务状态
		api.GET("/status", handler.GetStatus)
	}

	// 健康检查
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Start 启动服务器
func (s *Server) Start() error {
	log.Printf("[API] 服务启动在 http://localhost%s\n", s.server.Addr)
	log.Println("[API] 可用接口:")
	log.Println("  GET  /api/kline/data           - 查询日K线")
	log.Println("  GET  /api/kline/indicators     - 查询技术指标")
	log.Println("  GET  /api/stocks               - 搜索股票")
	log.Println("  GET  /api/backtest/strategies  - 策略列表")
	log.Println("  POST /api/backtest/run         - 执行回测")
	log.Println("  GET  /api/status               - 服务状态")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// loggerMiddleware 日志中间件
func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		log.Printf("[API] %s %s %d %v\n", c.Request.Method, path, status, latency)
	}
}

// corsMiddleware CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
