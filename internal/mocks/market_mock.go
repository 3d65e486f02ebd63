package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPriceSource 价格来源的模拟实现
type MockPriceSource struct {
	mock.Mock
}

// Latest 最新价格
func (m *MockPriceSource) Latest(ctx context.Context, symbol string) (float64, bool, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Bool(1), args.Error(2)
}

// Recent 近期价格
func (m *MockPriceSource) Recent(ctx context.Context, symbol string, n int) ([]float64, error) {
	args := m.Called(ctx, symbol, n)
	prices, _ := args.Get(0).([]float64)
	return prices, args.Error(1)
}

// MockFeed 行情推送的模拟实现
type MockFeed struct {
	mock.Mock
}

// Start 启动
func (m *MockFeed) Start(ctx context.Context, symbols []string) error {
	args := m.Called(ctx, symbols)
	return args.Error(0)
}

// Stop 停止
func (m *MockFeed) Stop() {
	m.Called()
}
