package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/life2you_mini/cycle/internal/models"
)

func TestPositionSizer_ComputeSizing(t *testing.T) {
	sizer := NewPositionSizer(defaultSizingParams)

	tests := []struct {
		name         string
		regime       models.RegimeKind
		equity       float64
		notional     float64
		leverage     int
		maxTrades    int
		symbols      []string
		confirmation int
	}{
		{name: "低余额-固定金额", regime: models.RegimeLowBalanceSafe, equity: 15, notional: 15, leverage: 1, maxTrades: 1, symbols: []string{"BTC"}, confirmation: 2},
		{name: "低余额-权益为0仍为固定金额", regime: models.RegimeLowBalanceSafe, equity: 0, notional: 15, leverage: 1, maxTrades: 1, symbols: []string{"BTC"}, confirmation: 2},
		{name: "极速-保证金5%乘20倍", regime: models.RegimeUltraAggressive, equity: 100, notional: 100, leverage: 20, maxTrades: 3, confirmation: 1},
		{name: "极速-15美元", regime: models.RegimeUltraAggressive, equity: 15, notional: 15, leverage: 20, maxTrades: 3, confirmation: 1},
		{name: "标准-权益十分之一", regime: models.RegimeStandard, equity: 1000, notional: 100, leverage: 1},
		{name: "标准-负权益不产生负金额", regime: models.RegimeStandard, equity: -50, notional: 0, leverage: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := sizer.ComputeSizing(models.Regime{Kind: tt.regime}, tt.equity)
			assert.InDelta(t, tt.notional, policy.NotionalUSD, 1e-9)
			assert.Equal(t, tt.leverage, policy.Leverage)
			assert.Equal(t, tt.maxTrades, policy.MaxConcurrentTrades)
			assert.Equal(t, tt.confirmation, policy.ConfirmationsRequired)
			if tt.symbols == nil {
				assert.Empty(t, policy.EligibleSymbols)
			} else {
				assert.Equal(t, tt.symbols, policy.EligibleSymbols)
			}
		})
	}
}

func TestPositionSizer_NeverNegative(t *testing.T) {
	sizer := NewPositionSizer(defaultSizingParams)
	kinds := []models.RegimeKind{models.RegimeStandard, models.RegimeLowBalanceSafe, models.RegimeUltraAggressive}

	for _, kind := range kinds {
		for _, e := range []float64{-1000, -1, 0, 0.01, 19.99, 1e6} {
			policy := sizer.ComputeSizing(models.Regime{Kind: kind}, e)
			assert.GreaterOrEqual(t, policy.NotionalUSD, 0.0, "kind=%s equity=%v", kind, e)
			assert.GreaterOrEqual(t, policy.Leverage, 1)
		}
	}
}

func TestPositionSizer_LowBalanceUsesConfiguredMinimum(t *testing.T) {
	params := defaultSizingParams
	params.MinOrderUSD = 12.5
	sizer := NewPositionSizer(params)

	for _, e := range []float64{0, 5, 12.5, 20} {
		policy := sizer.ComputeSizing(models.Regime{Kind: models.RegimeLowBalanceSafe}, e)
		assert.Equal(t, 12.5, policy.NotionalUSD)
	}
}

func TestSizingPolicy_AllowsSymbol(t *testing.T) {
	sizer := NewPositionSizer(defaultSizingParams)

	low := sizer.ComputeSizing(models.Regime{Kind: models.RegimeLowBalanceSafe}, 15)
	assert.True(t, low.AllowsSymbol("BTC"))
	assert.False(t, low.AllowsSymbol("ETH"))

	ultra := sizer.ComputeSizing(models.Regime{Kind: models.RegimeUltraAggressive}, 15)
	assert.True(t, ultra.AllowsSymbol("DOGE"))
}
