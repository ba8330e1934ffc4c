package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Market    MarketConfig
	Redis     RedisConfig
	Storage   StorageConfig
	OpenAI    OpenAIConfig
	Assistant AssistantConfig
	Orders    OrdersConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 对话存储数据库配置（Postgres）
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// MarketConfig 商城数据库配置（MySQL，只读）
// 用于库存导出和订单工具的用户令牌查询
type MarketConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig 上下文文档存储配置
type StorageConfig struct {
	Type      string // local, minio
	LocalPath string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// AssistantConfig 助手生命周期配置
type AssistantConfig struct {
	Name              string
	InstructionPath   string
	ContextDir        string   // file_search 上下文目录
	InterpreterDir    string   // code_interpreter 上下文目录
	ScrapeURLs        []string // 启动时抓取的页面
	VectorStoreDays   int      // vector store 过期天数
	RunTimeout        int      // 单次 run 的轮询超时（秒）
	PollInterval      int      // 轮询间隔（毫秒）
	RefreshInterval   int      // 资源轮换周期（小时）
	InventoryEnabled  bool     // 是否导出商城库存作为上下文
	StorageContextDir string   // 对象存储中的上下文前缀，空则不拉取
}

// OrdersConfig 订单 API 配置
type OrdersConfig struct {
	APIURL     string
	ProxyToken string
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("VELOBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// validate 校验必填项，缺失即启动失败
func (c *Config) validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.apiKey is required")
	}
	if c.Assistant.InstructionPath == "" {
		return fmt.Errorf("assistant.instructionPath is required")
	}
	return nil
}

// GetDSN 获取对话库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetDSN 获取商城库连接字符串
func (c *MarketConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "velobot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "velobot")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Market
	v.SetDefault("market.host", "localhost")
	v.SetDefault("market.port", 3306)
	v.SetDefault("market.user", "reader")
	v.SetDefault("market.dbname", "marketplace")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Storage
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.localPath", "./data/context")

	// OpenAI
	// 空默认值保证纯环境变量运行时键可被绑定
	v.SetDefault("openai.apiKey", "")
	v.SetDefault("openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 30)

	// Assistant
	v.SetDefault("assistant.name", "Velobot Assistant")
	v.SetDefault("assistant.instructionPath", "")
	v.SetDefault("assistant.contextDir", "./context")
	v.SetDefault("assistant.interpreterDir", "./context_interpreter")
	v.SetDefault("assistant.vectorStoreDays", 7)
	v.SetDefault("assistant.runTimeout", 60)
	v.SetDefault("assistant.pollInterval", 1000)
	v.SetDefault("assistant.refreshInterval", 24)
	v.SetDefault("assistant.inventoryEnabled", false)
}
