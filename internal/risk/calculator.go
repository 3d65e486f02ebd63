package risk

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/life2you_mini/cycle/internal/models"
)

// 下单数量保留的小数位
const sizePrecision = 8

// CalculateOrderSize 计算下单数量(基础资产单位) = 名义价值 / 入场价
func CalculateOrderSize(notionalUSD, entryPrice float64) float64 {
	if entryPrice <= 0 || notionalUSD <= 0 {
		return 0
	}
	size := decimal.NewFromFloat(notionalUSD).
		Div(decimal.NewFromFloat(entryPrice)).
		Truncate(sizePrecision)
	return size.InexactFloat64()
}

// BelowMinimum 名义价值(美元)是否低于交易所最低下单金额
// 在换算数量之前检查，数量截断不影响结果
func BelowMinimum(notionalUSD, minOrderValue float64) bool {
	return decimal.NewFromFloat(notionalUSD).LessThan(decimal.NewFromFloat(minOrderValue))
}

// ApplyPriceMultiplier 按倍数计算止盈止损价
// 多仓直接乘以倍数，空仓按相同距离反向
func ApplyPriceMultiplier(entryPrice, multiplier float64, long bool) float64 {
	if multiplier == 0 {
		return 0
	}
	entry := decimal.NewFromFloat(entryPrice)
	m := decimal.NewFromFloat(multiplier)
	if !long {
		m = decimal.NewFromInt(2).Sub(m)
	}
	return entry.Mul(m).InexactFloat64()
}

// CalculateRewardToRisk 计算盈亏比，止损距离为0时返回0
func CalculateRewardToRisk(entryPrice, takeProfit, stopLoss float64) float64 {
	risk := math.Abs(entryPrice - stopLoss)
	if risk == 0 || takeProfit == 0 {
		return 0
	}
	return math.Abs(takeProfit-entryPrice) / risk
}

// ResolveExitLevels 确定止盈止损价：优先使用信号给出的价格，缺失时按策略倍数推算
func ResolveExitLevels(signal *models.TradeSignal, policy *models.SizingPolicy) (tp1, tp2, sl float64) {
	long := signal.IsLong()

	tp1 = signal.TakeProfit1
	if tp1 == 0 {
		tp1 = ApplyPriceMultiplier(signal.Entry, policy.TakeProfit1, long)
	}
	tp2 = signal.TakeProfit2
	if tp2 == 0 {
		tp2 = ApplyPriceMultiplier(signal.Entry, policy.TakeProfit2, long)
	}
	sl = signal.StopLoss
	if sl == 0 {
		sl = ApplyPriceMultiplier(signal.Entry, policy.StopLoss, long)
	}
	return tp1, tp2, sl
}
