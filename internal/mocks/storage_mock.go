package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/life2you_mini/cycle/internal/models"
)

// MockAccountStore 账户存储的模拟实现
type MockAccountStore struct {
	mock.Mock
}

// ListTradingEnabledAccounts 查询交易账户
func (m *MockAccountStore) ListTradingEnabledAccounts(ctx context.Context) ([]*models.Account, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]*models.Account)
	return accounts, args.Error(1)
}

// AppendTradeRecord 写入交易记录
func (m *MockAccountStore) AppendTradeRecord(ctx context.Context, record *models.TradeRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
