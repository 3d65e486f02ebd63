package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/life2you_mini/cycle/internal/models"
)

// MockPendingQueue 待补写队列的模拟实现
type MockPendingQueue struct {
	mock.Mock
}

// Push 放入记录
func (m *MockPendingQueue) Push(ctx context.Context, record *models.TradeRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// Pop 弹出记录
func (m *MockPendingQueue) Pop(ctx context.Context, timeout time.Duration) (*models.TradeRecord, error) {
	args := m.Called(ctx, timeout)
	record, _ := args.Get(0).(*models.TradeRecord)
	return record, args.Error(1)
}

// MockTickLock 周期锁的模拟实现
type MockTickLock struct {
	mock.Mock
}

// Acquire 加锁
func (m *MockTickLock) Acquire(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

// Release 释放锁
func (m *MockTickLock) Release(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
