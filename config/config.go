package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// YAMLConfig YAML配置文件结构
type YAMLConfig struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	ClickHouse struct {
		Addr     string `yaml:"addr"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"clickhouse"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Config 服务配置
type Config struct {
	// HTTP 服务端口
	Port int

	// ClickHouse 行情库
	CHAddr     string
	CHDatabase string
	CHUser     string
	CHPassword string

	// Redis 缓存
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultConfig 默认配置
var DefaultConfig = Config{
	Port:       8000,
	CHAddr:     "localhost:19000",
	CHDatabase: "stock",
	CHUser:     "default",
	CHPassword: "",
	RedisAddr:  "localhost:6379",
	RedisDB:    0,
}

// LoadFromFile 从YAML文件加载配置
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var yamlConfig YAMLConfig
	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	config := DefaultConfig

	if yamlConfig.Server.Port > 0 {
		config.Port = yamlConfig.Server.Port
	}
	if yamlConfig.ClickHouse.Addr != "" {
		config.CHAddr = yamlConfig.ClickHouse.Addr
	}
	if yamlConfig.ClickHouse.Database != "" {
		config.CHDatabase = yamlConfig.ClickHouse.Database
	}
	if yamlConfig.ClickHouse.User != "" {
		config.CHUser = yamlConfig.ClickHouse.User
	}
	if yamlConfig.ClickHouse.Password != "" {
		config.CHPassword = yamlConfig.ClickHouse.Password
	}
	if yamlConfig.Redis.Addr != "" {
		config.RedisAddr = yamlConfig.Redis.Addr
	}
	if yamlConfig.Redis.Password != "" {
		config.RedisPassword = yamlConfig.Redis.Password
	}
	if yamlConfig.Redis.DB > 0 {
		config.RedisDB = yamlConfig.Redis.DB
	}

	return &config, nil
}

// GetConfig 获取配置 (优先级: 配置文件 > 环境变量 > 默认值)
func GetConfig(configPath string) *Config {
	config := DefaultConfig

	if configPath != "" {
		if cfg, err := LoadFromFile(configPath); err == nil {
			config = *cfg
		} else {
			fmt.Printf("警告: 无法加载配置文件 %s: %v\n", configPath, err)
		}
	}

	// 环境变量覆盖配置文件
	if v := os.Getenv("KLINE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Port = port
		}
	}
	if v := os.Getenv("CH_ADDR"); v != "" {
		config.CHAddr = v
	}
	if v := os.Getenv("CH_DATABASE"); v != "" {
		config.CHDatabase = v
	}
	if v := os.Getenv("CH_USER"); v != "" {
		config.CHUser = v
	}
	if v := os.Getenv("CH_PASSWORD"); v != "" {
		config.CHPassword = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		config.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil && db >= 0 {
			config.RedisDB = db
		}
	}

	return &config
}
