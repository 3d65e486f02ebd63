package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/life2you_mini/cycle/internal/config"
	"github.com/life2you_mini/cycle/internal/models"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// AccountStore 账户与交易记录存储，交易记录只追加
type AccountStore interface {
	// 基础操作
	Initialize(ctx context.Context) error
	Close() error

	// 账户
	AddAccount(ctx context.Context, account *models.Account) (int64, error)
	ListTradingEnabledAccounts(ctx context.Context) ([]*models.Account, error)

	// 交易记录，相同ID重复写入视为成功
	AppendTradeRecord(ctx context.Context, record *models.TradeRecord) error
	ListTrades(ctx context.Context, accountID int64) ([]*models.TradeRecord, error)
}

// NewAccountStore 根据配置创建存储并执行建表
func NewAccountStore(ctx context.Context, cfg *config.Config) (AccountStore, error) {
	var (
		store AccountStore
		err   error
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		store, err = NewPostgresStore(ctx, cfg.Postgres.DSN())
	case config.StorageDriverSQLite:
		store, err = NewSQLiteStore(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("不支持的存储驱动: %s", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
