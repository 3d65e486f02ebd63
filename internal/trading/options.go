package trading

import (
	"time"

	"github.com/life2you_mini/cycle/internal/config"
)

// EngineOptions 交易周期参数
type EngineOptions struct {
	TickInterval        time.Duration
	DefaultSymbols      []string
	ScanPolicy          string
	WideScanSize        int
	SymbolConcurrency   int
	AccountConcurrency  int
	Timeframe           string
	ConfidenceThreshold float64
	PriceHistorySize    int
	MinOrderValue       float64 // 交易所最低下单金额(美元)

	// 外部调用超时
	SignalTimeout time.Duration
	EquityTimeout time.Duration
	OrderTimeout  time.Duration
	StoreTimeout  time.Duration

	// 下单超时后等待最终结果的时间
	LateOrderTimeout time.Duration

	// 信号盈亏比低于品种分级要求时跳过
	EnforceRewardToRisk bool
}

// DefaultEngineOptions 默认参数
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		TickInterval:        10 * time.Second,
		DefaultSymbols:      []string{"BTC", "ETH", "SOL"},
		ScanPolicy:          config.ScanPolicyUltraWindow,
		WideScanSize:        20,
		SymbolConcurrency:   4,
		AccountConcurrency:  8,
		Timeframe:           "15m",
		ConfidenceThreshold: 0.8,
		PriceHistorySize:    50,
		MinOrderValue:       10,
		SignalTimeout:       20 * time.Second,
		EquityTimeout:       5 * time.Second,
		OrderTimeout:        10 * time.Second,
		StoreTimeout:        5 * time.Second,
		LateOrderTimeout:    time.Minute,
	}
}

// OptionsFromConfig 由配置生成引擎参数
func OptionsFromConfig(cfg *config.Config) EngineOptions {
	t := cfg.Trading
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }

	return EngineOptions{
		TickInterval:        t.TickInterval(),
		DefaultSymbols:      t.DefaultSymbols,
		ScanPolicy:          t.ScanPolicy,
		WideScanSize:        t.WideScanSize,
		SymbolConcurrency:   t.SymbolConcurrency,
		AccountConcurrency:  t.AccountConcurrency,
		Timeframe:           t.SignalTimeframe,
		ConfidenceThreshold: t.ConfidenceThreshold,
		PriceHistorySize:    t.PriceHistorySize,
		MinOrderValue:       cfg.Exchange.MinOrderValue,
		SignalTimeout:       seconds(t.SignalTimeoutSeconds),
		EquityTimeout:       seconds(t.EquityTimeoutSeconds),
		OrderTimeout:        seconds(t.OrderTimeoutSeconds),
		StoreTimeout:        seconds(t.StoreTimeoutSeconds),
		LateOrderTimeout:    seconds(t.LateOrderTimeoutSeconds),
		EnforceRewardToRisk: t.EnforceRewardToRisk,
	}
}

// withDefaults 补全未设置的参数
func (o EngineOptions) withDefaults() EngineOptions {
	d := DefaultEngineOptions()
	if o.TickInterval <= 0 {
		o.TickInterval = d.TickInterval
	}
	if len(o.DefaultSymbols) == 0 {
		o.DefaultSymbols = d.DefaultSymbols
	}
	if o.ScanPolicy == "" {
		o.ScanPolicy = d.ScanPolicy
	}
	if o.WideScanSize <= 0 {
		o.WideScanSize = d.WideScanSize
	}
	if o.SymbolConcurrency <= 0 {
		o.SymbolConcurrency = d.SymbolConcurrency
	}
	if o.AccountConcurrency <= 0 {
		o.AccountConcurrency = d.AccountConcurrency
	}
	if o.Timeframe == "" {
		o.Timeframe = d.Timeframe
	}
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if o.PriceHistorySize <= 0 {
		o.PriceHistorySize = d.PriceHistorySize
	}
	if o.MinOrderValue <= 0 {
		o.MinOrderValue = d.MinOrderValue
	}
	if o.SignalTimeout <= 0 {
		o.SignalTimeout = d.SignalTimeout
	}
	if o.EquityTimeout <= 0 {
		o.EquityTimeout = d.EquityTimeout
	}
	if o.OrderTimeout <= 0 {
		o.OrderTimeout = d.OrderTimeout
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = d.StoreTimeout
	}
	if o.LateOrderTimeout <= 0 {
		o.LateOrderTimeout = d.LateOrderTimeout
	}
	return o
}
