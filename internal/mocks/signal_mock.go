package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/life2you_mini/cycle/internal/models"
	"github.com/life2you_mini/cycle/internal/signal"
)

// MockSignalProvider 信号服务的模拟实现
type MockSignalProvider struct {
	mock.Mock
}

// GetSignal 获取信号
func (m *MockSignalProvider) GetSignal(ctx context.Context, req signal.Request) (*models.TradeSignal, error) {
	args := m.Called(ctx, req)
	sig, _ := args.Get(0).(*models.TradeSignal)
	return sig, args.Error(1)
}
