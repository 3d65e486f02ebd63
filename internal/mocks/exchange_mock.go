package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/life2you_mini/cycle/internal/exchange"
	"github.com/life2you_mini/cycle/internal/models"
)

// MockVenue 交易所接口的模拟实现
type MockVenue struct {
	mock.Mock
}

// Name 交易所名称
func (m *MockVenue) Name() string {
	return "mock"
}

// AllMids 全市场中间价的模拟实现
func (m *MockVenue) AllMids(ctx context.Context) (*exchange.Mids, error) {
	args := m.Called(ctx)
	mids, _ := args.Get(0).(*exchange.Mids)
	return mids, args.Error(1)
}

// AssetVolumes 成交额的模拟实现
func (m *MockVenue) AssetVolumes(ctx context.Context) (map[string]float64, error) {
	args := m.Called(ctx)
	volumes, _ := args.Get(0).(map[string]float64)
	return volumes, args.Error(1)
}

// GetEquity 账户权益的模拟实现
func (m *MockVenue) GetEquity(ctx context.Context, account *models.Account) (float64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(float64), args.Error(1)
}

// PlaceOrder 下单的模拟实现
func (m *MockVenue) PlaceOrder(ctx context.Context, account *models.Account, req *models.OrderRequest) (*exchange.OrderResult, error) {
	args := m.Called(ctx, account, req)
	result, _ := args.Get(0).(*exchange.OrderResult)
	return result, args.Error(1)
}
