package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache Redis JSON缓存。读写失败只记日志不报错，缓存缺失等同未命中。
type Cache struct {
	client *redis.Client
}

// Options Redis连接配置
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New 建立Redis连接并探活
func New(opts Options) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[CACHE] 已连接Redis: %s/%d\n", opts.Addr, opts.DB)
	return &Cache{client: client}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get 读取缓存并反序列化到out，返回是否命中
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		log.Printf("[CACHE] 读取失败 %s: %v\n", key, err)
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("[CACHE] 反序列化失败 %s: %v\n", key, err)
		return false
	}
	return true
}

// Set 序列化并写入缓存
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("[CACHE] 序列化失败 %s: %v\n", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("[CACHE] 写入失败 %s: %v\n", key, err)
	}
}

// Delete 删除缓存
func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Printf("[CACHE] 删除失败 %s: %v\n", key, err)
	}
}

// TTLForEndDate 根据数据截止日期决定缓存时长：
// 历史数据缓存更久，当日数据很快过期。
func TTLForEndDate(endDate string) time.Duration {
	end, err := time.ParseInLocation("2006-01-02", endDate, time.Local)
	if err != nil {
		return time.Hour
	}
	daysAgo := int(time.Since(end).Hours() / 24)
	switch {
	case daysAgo > 30:
		return 24 * time.Hour
	case daysAgo > 1:
		return time.Hour
	default:
		return 5 * time.Minute
	}
}
