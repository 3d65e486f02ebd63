package risk

import (
	"github.com/shopspring/decimal"

	"github.com/life2you_mini/cycle/internal/models"
)

// SizingParams 仓位计算参数
type SizingParams struct {
	MinOrderUSD       float64  // 低余额模式固定下单金额
	LowBalanceSymbols []string // 低余额模式允许的品种

	UltraMarginFraction float64 // 极速模式每笔保证金占权益比例
	UltraLeverage       int
}

var defaultSizingParams = SizingParams{
	MinOrderUSD:         15,
	LowBalanceSymbols:   []string{"BTC"},
	UltraMarginFraction: 0.05,
	UltraLeverage:       20,
}

// 标准模式按权益的1/10下单
var standardDivisor = decimal.NewFromInt(10)

// PositionSizer 根据风险模式计算仓位策略
type PositionSizer struct {
	params SizingParams
}

// NewPositionSizer 创建仓位计算器
func NewPositionSizer(params SizingParams) *PositionSizer {
	return &PositionSizer{params: params}
}

// ComputeSizing 计算仓位策略，不检查交易所最小下单金额
func (p *PositionSizer) ComputeSizing(regime models.Regime, equity float64) models.SizingPolicy {
	eq := decimal.NewFromFloat(equity)
	if eq.IsNegative() {
		eq = decimal.Zero
	}

	switch regime.Kind {
	case models.RegimeLowBalanceSafe:
		symbols := make([]string, len(p.params.LowBalanceSymbols))
		copy(symbols, p.params.LowBalanceSymbols)
		return models.SizingPolicy{
			NotionalUSD:           nonNegative(decimal.NewFromFloat(p.params.MinOrderUSD)),
			Leverage:              1,
			MaxConcurrentTrades:   1,
			EligibleSymbols:       symbols,
			ConfirmationsRequired: 2,
			TakeProfit1:           1.015,
			StopLoss:              0.99,
		}

	case models.RegimeUltraAggressive:
		leverage := p.params.UltraLeverage
		if leverage < 1 {
			leverage = 1
		}
		notional := eq.
			Mul(decimal.NewFromFloat(p.params.UltraMarginFraction)).
			Mul(decimal.NewFromInt(int64(leverage)))
		return models.SizingPolicy{
			NotionalUSD:           nonNegative(notional),
			Leverage:              leverage,
			MaxConcurrentTrades:   3,
			ConfirmationsRequired: 1,
			TakeProfit1:           1.008,
			TakeProfit2:           1.015,
			StopLoss:              0.996,
		}

	default:
		// 确认数由品种分级决定
		return models.SizingPolicy{
			NotionalUSD: nonNegative(eq.Div(standardDivisor)),
			Leverage:    1,
		}
	}
}

func nonNegative(d decimal.Decimal) float64 {
	if d.IsNegative() {
		return 0
	}
	return d.InexactFloat64()
}
