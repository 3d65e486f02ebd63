package models

import (
	"strings"
	"time"
)

// 账户状态
const (
	AccountStatusTrading = "trading"
	AccountStatusPaused  = "paused"
)

// 交易方向
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// 下单方向
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// TimeInForceGTC 挂单直到撤销
const TimeInForceGTC = "Gtc"

// 交易记录状态
const (
	TradeStatusOpen   = "open"
	TradeStatusClosed = "closed"
	TradeStatusFailed = "failed"
)

// Account 交易账户
type Account struct {
	ID            int64     `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	AgentWallet   string    `json:"agent_wallet"` // 代理钱包地址，作为执行凭证的引用
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// TradingEnabled 账户是否允许交易
func (a *Account) TradingEnabled() bool {
	return a.Status == AccountStatusTrading
}

// EquityAddress 查询权益使用的地址，优先使用代理钱包
func (a *Account) EquityAddress() string {
	if a.AgentWallet != "" {
		return a.AgentWallet
	}
	return a.WalletAddress
}

// RegimeKind 风险模式类型
type RegimeKind string

const (
	RegimeStandard        RegimeKind = "standard"
	RegimeLowBalanceSafe  RegimeKind = "low_balance_safe"
	RegimeUltraAggressive RegimeKind = "ultra_aggressive"
)

// Regime 账户在当前周期的风险模式，每个周期重新计算，不持久化
type Regime struct {
	Kind RegimeKind `json:"kind"`

	// 以下字段仅在极速模式下有意义
	TargetEquity float64       `json:"target_equity,omitempty"`
	ProgressPct  float64       `json:"progress_pct,omitempty"`
	Remaining    time.Duration `json:"remaining,omitempty"`
}

// SizingPolicy 仓位策略
type SizingPolicy struct {
	NotionalUSD           float64  `json:"notional_usd"`
	Leverage              int      `json:"leverage"`
	MaxConcurrentTrades   int      `json:"max_concurrent_trades"`
	EligibleSymbols       []string `json:"eligible_symbols"` // 为空表示不限制
	ConfirmationsRequired int      `json:"confirmations_required"`

	// 止盈止损以入场价的倍数表示，0表示未设置
	TakeProfit1 float64 `json:"take_profit_1"`
	TakeProfit2 float64 `json:"take_profit_2"`
	StopLoss    float64 `json:"stop_loss"`
}

// AllowsSymbol 策略是否允许交易该品种
func (p *SizingPolicy) AllowsSymbol(symbol string) bool {
	if len(p.EligibleSymbols) == 0 {
		return true
	}
	for _, s := range p.EligibleSymbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

// TradeSignal 外部分析给出的交易信号
type TradeSignal struct {
	Symbol        string   `json:"symbol"`
	Signal        bool     `json:"signal"`
	Direction     string   `json:"direction,omitempty"`
	Entry         float64  `json:"entry,omitempty"`
	StopLoss      float64  `json:"sl,omitempty"`
	TakeProfit1   float64  `json:"tp1,omitempty"`
	TakeProfit2   float64  `json:"tp2,omitempty"`
	Confidence    float64  `json:"confidence,omitempty"`
	Confirmations []string `json:"confirmations,omitempty"`
	Reasoning     string   `json:"reasoning,omitempty"`
}

// IsLong 是否做多
func (s *TradeSignal) IsLong() bool {
	return strings.EqualFold(s.Direction, DirectionLong)
}

// OrderRequest 下单请求，每个账户每个周期单独构造
type OrderRequest struct {
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Size        float64 `json:"size"`
	LimitPrice  float64 `json:"limit_price"`
	TimeInForce string  `json:"time_in_force"`
	ReduceOnly  bool    `json:"reduce_only"`
	Leverage    int     `json:"leverage"`
}

// Notional 订单名义价值
func (r *OrderRequest) Notional() float64 {
	return r.Size * r.LimitPrice
}

// TradeRecord 已确认订单的持久化记录
type TradeRecord struct {
	ID           string    `json:"id"`
	AccountID    int64     `json:"account_id"`
	Symbol       string    `json:"symbol"`
	Direction    string    `json:"direction"`
	EntryPrice   float64   `json:"entry_price"`
	Size         float64   `json:"size"`
	TP1          float64   `json:"tp1"`
	TP2          float64   `json:"tp2"`
	SL           float64   `json:"sl"`
	Status       string    `json:"status"`
	VenueOrderID string    `json:"venue_order_id"`
	CreatedAt    time.Time `json:"created_at"`
}
