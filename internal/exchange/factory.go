package exchange

import (
	"time"

	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/config"
)

// VenueFactory 交易所工厂，按模式注册实例
type VenueFactory struct {
	venues map[string]Venue
}

// NewVenueFactory 创建交易所工厂
func NewVenueFactory() *VenueFactory {
	return &VenueFactory{
		venues: make(map[string]Venue),
	}
}

// Register 注册交易所实例
func (f *VenueFactory) Register(mode string, venue Venue) {
	f.venues[mode] = venue
}

// Get 获取交易所实例
func (f *VenueFactory) Get(mode string) (Venue, bool) {
	venue, exists := f.venues[mode]
	return venue, exists
}

// GetAll 获取所有交易所实例
func (f *VenueFactory) GetAll() []Venue {
	result := make([]Venue, 0, len(f.venues))
	for _, venue := range f.venues {
		result = append(result, venue)
	}
	return result
}

// CreateVenueFactory 创建交易所工厂：模拟盘总是注册，实盘仅在LIVE_TRADING开启时注册
func CreateVenueFactory(cfg config.ExchangeConfig, keys KeyResolver, logger *zap.Logger) *VenueFactory {
	factory := NewVenueFactory()
	info := NewInfoClient(cfg.BaseURL, time.Duration(cfg.RequestTimeoutSeconds)*time.Second, logger)

	factory.Register(ModePaper, NewPaperVenue(info, 0, logger))
	logger.Info("模拟盘已注册")

	if cfg.LiveTrading {
		factory.Register(ModeLive, NewHyperliquidVenue(info, keys, cfg.AgentPrivateKey, logger))
		logger.Warn("实盘交易已开启，Hyperliquid已注册")
	}

	return factory
}

// Active 当前生效的交易所：开启实盘时返回实盘，否则返回模拟盘
func (f *VenueFactory) Active(liveTrading bool) Venue {
	if liveTrading {
		if venue, ok := f.Get(ModeLive); ok {
			return venue
		}
	}
	venue, _ := f.Get(ModePaper)
	return venue
}
