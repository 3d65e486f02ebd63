package risk

import (
	"time"

	"github.com/life2you_mini/cycle/internal/models"
)

// ModeThresholds 风险模式阈值
type ModeThresholds struct {
	LowBalanceThreshold float64 // 权益小于等于此值进入低余额模式

	UltraGoal         float64       // 极速模式目标权益
	UltraStartCapital float64       // 极速模式起始资金，用于计算进度
	UltraStart        time.Time     // 极速模式窗口起点
	UltraWindow       time.Duration // 极速模式窗口时长
}

// 默认阈值，窗口起点由调用方设置
var defaultModeThresholds = ModeThresholds{
	LowBalanceThreshold: 20,
	UltraGoal:           200,
	UltraStartCapital:   15,
	UltraWindow:         12 * time.Hour,
}

// ModeSelector 根据账户权益选择风险模式
type ModeSelector struct {
	thresholds ModeThresholds
}

// NewModeSelector 创建模式选择器
func NewModeSelector(thresholds ModeThresholds) *ModeSelector {
	return &ModeSelector{thresholds: thresholds}
}

// InUltraWindow 当前时间是否处于极速模式窗口内
func (s *ModeSelector) InUltraWindow(now time.Time) bool {
	start := s.thresholds.UltraStart
	return !now.Before(start) && now.Before(start.Add(s.thresholds.UltraWindow))
}

// SelectRegime 按优先级判断：极速模式 > 低余额模式 > 标准模式
func (s *ModeSelector) SelectRegime(equity float64, now time.Time) models.Regime {
	if equity < 0 {
		equity = 0
	}

	th := s.thresholds
	if equity < th.UltraGoal && s.InUltraWindow(now) {
		return models.Regime{
			Kind:         models.RegimeUltraAggressive,
			TargetEquity: th.UltraGoal,
			ProgressPct:  s.ultraProgress(equity),
			Remaining:    th.UltraStart.Add(th.UltraWindow).Sub(now),
		}
	}

	if equity <= th.LowBalanceThreshold {
		return models.Regime{Kind: models.RegimeLowBalanceSafe}
	}

	return models.Regime{Kind: models.RegimeStandard}
}

// ultraProgress 极速模式完成进度(百分比)，不低于0
func (s *ModeSelector) ultraProgress(equity float64) float64 {
	span := s.thresholds.UltraGoal - s.thresholds.UltraStartCapital
	if span <= 0 {
		return 0
	}
	progress := (equity - s.thresholds.UltraStartCapital) / span * 100
	if progress < 0 {
		return 0
	}
	return progress
}
