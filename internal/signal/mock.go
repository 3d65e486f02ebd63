package signal

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/life2you_mini/cycle/internal/models"
)

// MockProvider 开发和测试用的模拟信号，按概率产生信号
type MockProvider struct {
	probability float64
	mu          sync.Mutex
	rnd         *rand.Rand
}

// NewMockProvider 创建模拟信号服务，rnd为nil时使用按时间播种的随机源
func NewMockProvider(probability float64, rnd *rand.Rand) *MockProvider {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockProvider{probability: probability, rnd: rnd}
}

// GetSignal 以最新价格为入场价生成模拟信号
func (m *MockProvider) GetSignal(ctx context.Context, req Request) (*models.TradeSignal, error) {
	m.mu.Lock()
	hit := m.rnd.Float64() < m.probability
	long := m.rnd.Float64() > 0.5
	m.mu.Unlock()

	price := req.LatestPrice()
	if !hit || price <= 0 {
		return &models.TradeSignal{Symbol: req.Symbol, Signal: false}, nil
	}

	direction := models.DirectionLong
	sl, tp1, tp2 := price*0.99, price*1.02, price*1.05
	if !long {
		direction = models.DirectionShort
		sl, tp1, tp2 = price*1.01, price*0.98, price*0.95
	}

	return &models.TradeSignal{
		Symbol:        req.Symbol,
		Signal:        true,
		Direction:     direction,
		Entry:         price,
		StopLoss:      sl,
		TakeProfit1:   tp1,
		TakeProfit2:   tp2,
		Confidence:    0.88,
		Confirmations: []string{"MOCK_BOS"},
		Reasoning:     "Mock SMC BOS detected",
	}, nil
}
