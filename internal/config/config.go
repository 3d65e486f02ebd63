package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// 扫描策略
const (
	ScanPolicyDefault     = "default"      // 只扫描默认品种
	ScanPolicyWide        = "wide"         // 始终扫描更大的品种范围
	ScanPolicyUltraWindow = "ultra_window" // 极速模式窗口期内扩大扫描范围
)

// 存储驱动
const (
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

// Config 应用配置结构
type Config struct {
	Exchange    ExchangeConfig    `mapstructure:"exchange" yaml:"exchange"`
	Trading     TradingConfig     `mapstructure:"trading" yaml:"trading"`
	Mode        ModeConfig        `mapstructure:"mode" yaml:"mode"`
	Signal      SignalConfig      `mapstructure:"signal" yaml:"signal"`
	Market      MarketConfig      `mapstructure:"market" yaml:"market"`
	Storage     StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Redis       RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Postgres    PostgresConfig    `mapstructure:"postgres" yaml:"postgres"`
	SecretStore SecretStoreConfig `mapstructure:"secret_store" yaml:"secret_store"`
	System      SystemConfig      `mapstructure:"system" yaml:"system"`
}

// ExchangeConfig 交易所(Hyperliquid)配置
type ExchangeConfig struct {
	LiveTrading           bool    `mapstructure:"live_trading" yaml:"live_trading"`
	BaseURL               string  `mapstructure:"base_url" yaml:"base_url"`
	MinOrderValue         float64 `mapstructure:"min_order_value" yaml:"min_order_value"`
	AgentPrivateKey       string  `mapstructure:"agent_private_key" yaml:"-"` // 只从环境变量读取
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// TradingConfig 交易周期配置
type TradingConfig struct {
	TickIntervalSeconds  int      `mapstructure:"tick_interval_seconds" yaml:"tick_interval_seconds"`
	DefaultSymbols       []string `mapstructure:"default_symbols" yaml:"default_symbols"`
	ScanPolicy           string   `mapstructure:"scan_policy" yaml:"scan_policy"`
	WideScanSize         int      `mapstructure:"wide_scan_size" yaml:"wide_scan_size"`
	SymbolConcurrency    int      `mapstructure:"symbol_concurrency" yaml:"symbol_concurrency"`
	AccountConcurrency   int      `mapstructure:"account_concurrency" yaml:"account_concurrency"`
	SignalTimeframe      string   `mapstructure:"signal_timeframe" yaml:"signal_timeframe"`
	ConfidenceThreshold  float64  `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	PriceHistorySize     int      `mapstructure:"price_history_size" yaml:"price_history_size"`
	SignalTimeoutSeconds int      `mapstructure:"signal_timeout_seconds" yaml:"signal_timeout_seconds"`
	EquityTimeoutSeconds int      `mapstructure:"equity_timeout_seconds" yaml:"equity_timeout_seconds"`
	OrderTimeoutSeconds  int      `mapstructure:"order_timeout_seconds" yaml:"order_timeout_seconds"`
	StoreTimeoutSeconds  int      `mapstructure:"store_timeout_seconds" yaml:"store_timeout_seconds"`
	TickLockEnabled      bool     `mapstructure:"tick_lock_enabled" yaml:"tick_lock_enabled"`

	LateOrderTimeoutSeconds int  `mapstructure:"late_order_timeout_seconds" yaml:"late_order_timeout_seconds"` // 下单超时后等待最终结果
	EnforceRewardToRisk     bool `mapstructure:"enforce_reward_to_risk" yaml:"enforce_reward_to_risk"`         // 盈亏比低于品种分级要求时不下单
}

// ModeConfig 风险模式配置
type ModeConfig struct {
	LowBalanceThreshold float64  `mapstructure:"low_balance_threshold" yaml:"low_balance_threshold"`
	MinOrderUSD         float64  `mapstructure:"min_order_usd" yaml:"min_order_usd"`
	LowBalanceSymbols   []string `mapstructure:"low_balance_symbols" yaml:"low_balance_symbols"`
	UltraGoal           float64  `mapstructure:"ultra_goal" yaml:"ultra_goal"`
	UltraStartCapital   float64  `mapstructure:"ultra_start_capital" yaml:"ultra_start_capital"`
	UltraWindowHours    float64  `mapstructure:"ultra_window_hours" yaml:"ultra_window_hours"`
	UltraStart          string   `mapstructure:"ultra_start" yaml:"ultra_start"` // RFC3339，为空时使用进程启动时间
	UltraMarginFraction float64  `mapstructure:"ultra_margin_fraction" yaml:"ultra_margin_fraction"`
	UltraLeverage       int      `mapstructure:"ultra_leverage" yaml:"ultra_leverage"`
}

// SignalConfig 信号服务配置
type SignalConfig struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`
	APIKey            string  `mapstructure:"api_key" yaml:"-"`
	Model             string  `mapstructure:"model" yaml:"model"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	MockProbability   float64 `mapstructure:"mock_probability" yaml:"mock_probability"`
}

// MarketConfig 行情推送配置
type MarketConfig struct {
	Enabled               bool   `mapstructure:"enabled" yaml:"enabled"`
	WSURL                 string `mapstructure:"ws_url" yaml:"ws_url"`
	PingIntervalSeconds   int    `mapstructure:"ping_interval_seconds" yaml:"ping_interval_seconds"`
	ReconnectDelaySeconds int    `mapstructure:"reconnect_delay_seconds" yaml:"reconnect_delay_seconds"`
	PollIntervalSeconds   int    `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"` // 推送关闭时轮询中间价的间隔
}

// StorageConfig 账户存储配置
type StorageConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	URL       string `mapstructure:"url" yaml:"-"` // 设置后优先于host/port
	Host      string `mapstructure:"host" yaml:"host"`
	Port      int    `mapstructure:"port" yaml:"port"`
	Password  string `mapstructure:"password" yaml:"-"`
	DB        int    `mapstructure:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// PostgresConfig PostgreSQL配置
type PostgresConfig struct {
	URL            string `mapstructure:"url" yaml:"-"` // 设置后优先于其他字段
	Host           string `mapstructure:"host" yaml:"host"`
	Port           int    `mapstructure:"port" yaml:"port"`
	Database       string `mapstructure:"database" yaml:"database"`
	User           string `mapstructure:"user" yaml:"user"`
	Password       string `mapstructure:"password" yaml:"-"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections"`
	SSLMode        string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
}

// SecretStoreConfig 代理钱包私钥存储配置
type SecretStoreConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Path          string `mapstructure:"path" yaml:"path"`
	EncryptionKey string `mapstructure:"encryption_key" yaml:"-"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	LogDir        string `mapstructure:"log_dir" yaml:"log_dir"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups" yaml:"log_max_backups"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days" yaml:"log_max_age_days"`
	LogCompress   bool   `mapstructure:"log_compress" yaml:"log_compress"`
}

// TickInterval 周期间隔
func (t TradingConfig) TickInterval() time.Duration {
	return time.Duration(t.TickIntervalSeconds) * time.Second
}

// UltraWindow 极速模式窗口时长
func (m ModeConfig) UltraWindow() time.Duration {
	return time.Duration(m.UltraWindowHours * float64(time.Hour))
}

// UltraStartTime 解析极速模式起始时间，未配置时返回fallback
func (m ModeConfig) UltraStartTime(fallback time.Time) (time.Time, error) {
	if m.UltraStart == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, m.UltraStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析极速模式起始时间失败: %w", err)
	}
	return t, nil
}

// DSN 生成PostgreSQL连接串
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode, p.MaxConnections)
}

// LoadConfig 从文件加载配置
func LoadConfig(filePath string) (*Config, error) {
	// 使用Viper读取配置
	v := viper.New()
	v.SetConfigFile(filePath)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 绑定环境变量，如CYCLE_SIGNAL_API_KEY
	v.SetEnvPrefix("CYCLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := applyEnvOverrides(v); err != nil {
		return nil, err
	}

	// 在默认配置的基础上解析，文件中未出现的字段保留默认值
	config := GetDefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 验证配置有效性
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return config, nil
}

// applyEnvOverrides 特定环境变量映射，如果存在这些环境变量则优先使用
func applyEnvOverrides(v *viper.Viper) error {
	if live := os.Getenv("LIVE_TRADING"); live != "" {
		v.Set("exchange.live_trading", live == "true")
	}
	if key := os.Getenv("AGENT_PRIVATE_KEY"); key != "" {
		v.Set("exchange.agent_private_key", key)
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		v.Set("signal.provider", provider)
	}
	if apiKey := os.Getenv("AI_API_KEY"); apiKey != "" {
		v.Set("signal.api_key", apiKey)
	} else if geminiKey := os.Getenv("GEMINI_AI_API_KEY"); geminiKey != "" {
		v.Set("signal.api_key", geminiKey)
	}
	// MIN_ORDER_VALUE为旧名称，两者都设置时MIN_ORDER优先
	for _, name := range []string{"MIN_ORDER_VALUE", "MIN_ORDER"} {
		minOrder := os.Getenv(name)
		if minOrder == "" {
			continue
		}
		value, err := strconv.ParseFloat(minOrder, 64)
		if err != nil {
			return fmt.Errorf("%s格式错误: %w", name, err)
		}
		v.Set("mode.min_order_usd", value)
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		v.Set("redis.enabled", true)
		v.Set("redis.url", redisURL)
	}
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		v.Set("storage.driver", StorageDriverPostgres)
		v.Set("postgres.url", databaseURL)
	}
	if secretKey := os.Getenv("SECRET_STORE_KEY"); secretKey != "" {
		v.Set("secret_store.encryption_key", secretKey)
	}
	return nil
}

// LoadConfigFromYAML 不经过环境变量，直接从yaml文件加载
func LoadConfigFromYAML(filePath string) (*Config, error) {
	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return config, nil
}

// validateConfig 验证配置有效性
func validateConfig(config *Config) error {
	if config.Exchange.BaseURL == "" {
		return fmt.Errorf("交易所地址不能为空")
	}
	if config.Exchange.MinOrderValue <= 0 {
		return fmt.Errorf("交易所最小下单金额必须大于0")
	}

	// 验证周期参数
	t := config.Trading
	if t.TickIntervalSeconds <= 0 {
		return fmt.Errorf("周期间隔必须大于0")
	}
	if len(t.DefaultSymbols) == 0 {
		return fmt.Errorf("默认品种列表不能为空")
	}
	switch t.ScanPolicy {
	case ScanPolicyDefault, ScanPolicyWide, ScanPolicyUltraWindow:
	default:
		return fmt.Errorf("无效的扫描策略: %s", t.ScanPolicy)
	}
	if t.SymbolConcurrency <= 0 || t.AccountConcurrency <= 0 {
		return fmt.Errorf("并发数必须大于0")
	}
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold >= 1 {
		return fmt.Errorf("置信度阈值必须在0到1之间")
	}
	if t.SignalTimeoutSeconds <= 0 || t.EquityTimeoutSeconds <= 0 || t.OrderTimeoutSeconds <= 0 || t.StoreTimeoutSeconds <= 0 || t.LateOrderTimeoutSeconds <= 0 {
		return fmt.Errorf("外部调用超时必须大于0")
	}

	// 验证风险模式参数
	m := config.Mode
	if m.LowBalanceThreshold < 0 {
		return fmt.Errorf("低余额阈值不能为负")
	}
	if m.MinOrderUSD <= 0 {
		return fmt.Errorf("最小下单金额必须大于0")
	}
	if m.UltraGoal <= m.UltraStartCapital {
		return fmt.Errorf("极速模式目标必须大于起始资金")
	}
	if m.UltraMarginFraction <= 0 || m.UltraMarginFraction > 1 {
		return fmt.Errorf("极速模式保证金比例必须在0到1之间")
	}
	if m.UltraLeverage < 1 {
		return fmt.Errorf("极速模式杠杆必须大于等于1")
	}
	if _, err := m.UltraStartTime(time.Now()); err != nil {
		return err
	}

	// 验证信号服务
	switch config.Signal.Provider {
	case "gemini", "openai", "claude", "mock":
	default:
		return fmt.Errorf("不支持的信号服务: %s", config.Signal.Provider)
	}

	// 验证存储
	switch config.Storage.Driver {
	case StorageDriverSQLite:
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLite路径不能为空")
		}
	case StorageDriverPostgres:
		if config.Postgres.URL == "" && config.Postgres.Host == "" {
			return fmt.Errorf("PostgreSQL未配置")
		}
	default:
		return fmt.Errorf("不支持的存储驱动: %s", config.Storage.Driver)
	}

	// 验证Redis配置
	if config.Redis.Enabled && config.Redis.URL == "" {
		if config.Redis.Host == "" {
			return fmt.Errorf("Redis主机不能为空")
		}
		if config.Redis.Port <= 0 || config.Redis.Port > 65535 {
			return fmt.Errorf("无效的Redis端口")
		}
	}
	if config.Trading.TickLockEnabled && !config.Redis.Enabled {
		return fmt.Errorf("周期锁依赖Redis")
	}

	if !config.Market.Enabled && config.Market.PollIntervalSeconds <= 0 {
		return fmt.Errorf("关闭行情推送时轮询间隔必须大于0")
	}

	if config.SecretStore.Enabled && config.SecretStore.Path == "" {
		return fmt.Errorf("密钥存储路径不能为空")
	}

	return nil
}

// GetDefaultConfig 获取默认配置
func GetDefaultConfig() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			LiveTrading:           false,
			BaseURL:               "https://api.hyperliquid.xyz",
			MinOrderValue:         10,
			RequestTimeoutSeconds: 10,
		},
		Trading: TradingConfig{
			TickIntervalSeconds:  10,
			DefaultSymbols:       []string{"BTC", "ETH", "SOL"},
			ScanPolicy:           ScanPolicyUltraWindow,
			WideScanSize:         20,
			SymbolConcurrency:    4,
			AccountConcurrency:   8,
			SignalTimeframe:      "15m",
			ConfidenceThreshold:  0.8,
			PriceHistorySize:     50,
			SignalTimeoutSeconds: 20,
			EquityTimeoutSeconds: 5,
			OrderTimeoutSeconds:  10,
			StoreTimeoutSeconds:  5,

			LateOrderTimeoutSeconds: 60,
		},
		Mode: ModeConfig{
			LowBalanceThreshold: 20,
			MinOrderUSD:         15,
			LowBalanceSymbols:   []string{"BTC"},
			UltraGoal:           200,
			UltraStartCapital:   15,
			UltraWindowHours:    12,
			UltraMarginFraction: 0.05,
			UltraLeverage:       20,
		},
		Signal: SignalConfig{
			Provider:          "gemini",
			Model:             "gemini-2.0-flash",
			RequestsPerMinute: 30,
			MockProbability:   0.1,
		},
		Market: MarketConfig{
			Enabled:               true,
			WSURL:                 "wss://api.hyperliquid.xyz/ws",
			PingIntervalSeconds:   50,
			ReconnectDelaySeconds: 5,
			PollIntervalSeconds:   10,
		},
		Storage: StorageConfig{
			Driver:     StorageDriverSQLite,
			SQLitePath: "./data/cycle.db",
		},
		Redis: RedisConfig{
			Enabled:   false,
			Host:      "localhost",
			Port:      6379,
			DB:        0,
			KeyPrefix: "cycle:",
		},
		Postgres: PostgresConfig{
			Host:           "localhost",
			Port:           5432,
			Database:       "cycle",
			User:           "postgres",
			MaxConnections: 10,
			SSLMode:        "disable",
		},
		SecretStore: SecretStoreConfig{
			Enabled: false,
			Path:    "./data/secrets",
		},
		System: SystemConfig{
			LogLevel:      "INFO",
			LogDir:        "./logs",
			LogMaxSizeMB:  100,
			LogMaxBackups: 7,
			LogMaxAgeDays: 30,
			LogCompress:   true,
		},
	}
}

// SaveConfigToFile 将配置保存到文件，敏感字段不会写出
func SaveConfigToFile(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
