package trading

import (
	"context"
	"time"

	"github.com/life2you_mini/cycle/internal/models"
)

// AccountStore 引擎使用的账户存储操作
type AccountStore interface {
	ListTradingEnabledAccounts(ctx context.Context) ([]*models.Account, error)
	AppendTradeRecord(ctx context.Context, record *models.TradeRecord) error
}

// PendingQueue 已成交但写入失败的交易记录队列
type PendingQueue interface {
	Push(ctx context.Context, record *models.TradeRecord) error
	// Pop 超时返回nil, nil
	Pop(ctx context.Context, timeout time.Duration) (*models.TradeRecord, error)
}

// TickLock 多实例间的周期互斥
type TickLock interface {
	Acquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

// Feed 行情推送
type Feed interface {
	Start(ctx context.Context, symbols []string) error
	Stop()
}
