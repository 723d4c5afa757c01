package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kline/api"
	"kline/cache"
	"kline/config"
	"kline/store"
)

var (
	configPath     string
	port           int
	backtestMode   bool
	backtestConfig string
	backtestOut    string
)

func main() {
	flag.StringVar(&configPath, "config", "", "配置文件路径(YAML格式)")
	flag.IntVar(&port, "port", 0, "HTTP服务端口(覆盖配置文件)")
	flag.BoolVar(&backtestMode, "backtest", false, "运行日线回测并退出")
	flag.StringVar(&backtestConfig, "bt-config", "backtest.yaml", "回测配置文件路径(YAML格式)")
	flag.StringVar(&backtestOut, "bt-out", "", "回测输出JSON文件路径(默认stdout)")
	flag.Parse()

	cfg := config.GetConfig(configPath)
	if port > 0 {
		cfg.Port = port
	}

	if backtestMode {
		if err := runBacktest(cfg, backtestConfig, backtestOut); err != nil {
			log.Printf("[ERROR] 回测失败: %v\n", err)
			os.Exit(1)
		}
		return
	}

	log.Println("=== K线量化回测服务 ===")

	st, err := store.Open(store.Options{
		Addr:     cfg.CHAddr,
		Database: cfg.CHDatabase,
		Username: cfg.CHUser,
		Password: cfg.CHPassword,
	})
	if err != nil {
		log.Printf("[ERROR] ClickHouse连接失败: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// 缓存连不上不影响服务，只是每次都落库查询
	dataCache, err := cache.New(cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Printf("[WARN] Redis连接失败，缓存已关闭: %v\n", err)
		dataCache = nil
	} else {
		defer dataCache.Close()
	}

	server := api.NewServer(st, dataCache, cfg.Port)
	go func() {
		if err := server.Start(); err != nil {
			log.Printf("[ERROR] HTTP服务启动失败: %v\n", err)
		}
	}()

	// 等待退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("\n正在关闭服务...")
	if err := server.Shutdown(); err != nil {
		log.Printf("[ERROR] 关闭服务失败: %v\n", err)
	}
}
