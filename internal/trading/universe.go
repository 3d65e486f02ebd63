package trading

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/config"
	"github.com/life2you_mini/cycle/internal/risk"
)

type scanTarget struct {
	Symbol string
	Tier   risk.Tier
}

// scanSymbols 按扫描策略决定本周期的候选品种
func (e *Engine) scanSymbols(now time.Time) []string {
	wide := false
	switch e.opts.ScanPolicy {
	case config.ScanPolicyWide:
		wide = true
	case config.ScanPolicyUltraWindow:
		wide = e.deps.Modes.InUltraWindow(now)
	}

	universe := e.getUniverse()
	if !wide || len(universe) == 0 {
		return e.opts.DefaultSymbols
	}
	if len(universe) > e.opts.WideScanSize {
		universe = universe[:e.opts.WideScanSize]
	}
	return universe
}

// scanTargets 候选品种按分级过滤，成交额获取失败时只保留固定分级的品种
func (e *Engine) scanTargets(ctx context.Context, now time.Time) []scanTarget {
	symbols := e.scanSymbols(now)

	var volumes map[string]float64
	if needsVolumes(symbols) {
		volCtx, cancel := context.WithTimeout(ctx, e.opts.EquityTimeout)
		v, err := e.deps.Venue.AssetVolumes(volCtx)
		cancel()
		if err != nil {
			e.logger.Warn("获取品种成交额失败，只扫描固定分级品种", zap.Error(err))
		}
		volumes = v
	}

	targets := make([]scanTarget, 0, len(symbols))
	for _, symbol := range symbols {
		tier, ok := risk.ClassifyTier(symbol, volumes[symbol])
		if !ok {
			continue
		}
		targets = append(targets, scanTarget{Symbol: symbol, Tier: tier})
	}
	return targets
}

func needsVolumes(symbols []string) bool {
	for _, s := range symbols {
		if !risk.IsFixedTier(s) {
			return true
		}
	}
	return false
}

// feedSymbols 需要订阅盘口和成交的品种
func (e *Engine) feedSymbols() []string {
	symbols := append([]string(nil), e.opts.DefaultSymbols...)
	if e.opts.ScanPolicy == config.ScanPolicyDefault {
		return symbols
	}

	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		seen[strings.ToUpper(s)] = true
	}
	universe := e.getUniverse()
	if len(universe) > e.opts.WideScanSize {
		universe = universe[:e.opts.WideScanSize]
	}
	for _, s := range universe {
		if !seen[strings.ToUpper(s)] {
			seen[strings.ToUpper(s)] = true
			symbols = append(symbols, s)
		}
	}
	return symbols
}
