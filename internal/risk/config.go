package risk

import (
	"time"

	"github.com/life2you_mini/cycle/internal/config"
)

// ThresholdsFromConfig 由配置生成模式阈值，未设置的字段使用默认值
func ThresholdsFromConfig(cfg config.ModeConfig, ultraStart time.Time) ModeThresholds {
	th := defaultModeThresholds
	th.UltraStart = ultraStart
	if cfg.LowBalanceThreshold > 0 {
		th.LowBalanceThreshold = cfg.LowBalanceThreshold
	}
	if cfg.UltraGoal > 0 {
		th.UltraGoal = cfg.UltraGoal
	}
	if cfg.UltraStartCapital > 0 {
		th.UltraStartCapital = cfg.UltraStartCapital
	}
	if w := cfg.UltraWindow(); w > 0 {
		th.UltraWindow = w
	}
	return th
}

// SizingParamsFromConfig 由配置生成仓位参数
func SizingParamsFromConfig(cfg config.ModeConfig) SizingParams {
	params := defaultSizingParams
	if cfg.MinOrderUSD > 0 {
		params.MinOrderUSD = cfg.MinOrderUSD
	}
	if len(cfg.LowBalanceSymbols) > 0 {
		params.LowBalanceSymbols = cfg.LowBalanceSymbols
	}
	if cfg.UltraMarginFraction > 0 {
		params.UltraMarginFraction = cfg.UltraMarginFraction
	}
	if cfg.UltraLeverage > 0 {
		params.UltraLeverage = cfg.UltraLeverage
	}
	return params
}
