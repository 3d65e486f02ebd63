package risk

import "strings"

// Tier 品种分级，决定信号接受的严格程度
type Tier struct {
	Level           int
	Confirmations   int
	MinRewardToRisk float64
}

var (
	tier1Symbols = []string{"BTC", "ETH", "SOL"}
	tier2Symbols = []string{"AVAX", "MATIC", "LINK", "ARB"}

	tier1 = Tier{Level: 1, Confirmations: 2, MinRewardToRisk: 2}
	tier2 = Tier{Level: 2, Confirmations: 3, MinRewardToRisk: 3}
	tier3 = Tier{Level: 3, Confirmations: 5, MinRewardToRisk: 4}
)

// Tier3MinVolume 三级品种的24小时最低成交额
const Tier3MinVolume = 500000

// ClassifyTier 判断品种分级，第二个返回值为false表示本周期不可交易
func ClassifyTier(symbol string, volume24h float64) (Tier, bool) {
	symbol = strings.ToUpper(symbol)
	if contains(tier1Symbols, symbol) {
		return tier1, true
	}
	if contains(tier2Symbols, symbol) {
		return tier2, true
	}
	if volume24h >= Tier3MinVolume {
		return tier3, true
	}
	return Tier{}, false
}

// IsFixedTier 是否属于无需成交额即可判定的固定分级
func IsFixedTier(symbol string) bool {
	symbol = strings.ToUpper(symbol)
	return contains(tier1Symbols, symbol) || contains(tier2Symbols, symbol)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
