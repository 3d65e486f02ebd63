package signal

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/config"
	"github.com/life2you_mini/cycle/internal/models"
)

// Request 信号请求
type Request struct {
	Symbol           string
	Timeframe        string
	Prices           []float64 // 最近价格序列，按时间从旧到新
	MinConfirmations int       // 品种分级要求的确认数
	MinRewardToRisk  float64   // 品种分级要求的最低盈亏比
}

// LatestPrice 序列中的最新价格
func (r Request) LatestPrice() float64 {
	if len(r.Prices) == 0 {
		return 0
	}
	return r.Prices[len(r.Prices)-1]
}

// Provider 信号服务接口，返回nil表示没有信号
type Provider interface {
	GetSignal(ctx context.Context, req Request) (*models.TradeSignal, error)
}

// Accepted 信号是否满足接受条件：signal为true且置信度严格大于阈值
func Accepted(sig *models.TradeSignal, threshold float64) bool {
	return sig != nil && sig.Signal && sig.Confidence > threshold
}

// NewProvider 根据配置创建信号服务，没有API密钥时退回到模拟信号
func NewProvider(cfg config.SignalConfig, logger *zap.Logger) (Provider, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "mock" || cfg.APIKey == "" {
		logger.Warn("未配置AI_API_KEY，使用模拟信号", zap.String("provider", provider))
		return NewMockProvider(cfg.MockProbability, nil), nil
	}

	switch provider {
	case ProviderGemini, ProviderOpenAI, ProviderClaude:
		return NewLLMProvider(LLMOptions{
			Provider:          provider,
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			BaseURL:           cfg.BaseURL,
			RequestsPerMinute: cfg.RequestsPerMinute,
		}, logger), nil
	default:
		return nil, fmt.Errorf("不支持的信号服务: %s", cfg.Provider)
	}
}
