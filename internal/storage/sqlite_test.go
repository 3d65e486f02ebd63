package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/life2you_mini/cycle/internal/config"
	"github.com/life2you_mini/cycle/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_ListTradingEnabledAccounts(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	_, err := store.AddAccount(ctx, &models.Account{WalletAddress: "0xaaa", AgentWallet: "0xagent", Status: models.AccountStatusTrading})
	require.NoError(t, err)
	_, err = store.AddAccount(ctx, &models.Account{WalletAddress: "0xbbb", Status: models.AccountStatusPaused})
	require.NoError(t, err)
	_, err = store.AddAccount(ctx, &models.Account{WalletAddress: "0xccc", Status: models.AccountStatusTrading})
	require.NoError(t, err)

	accounts, err := store.ListTradingEnabledAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "0xaaa", accounts[0].WalletAddress)
	assert.Equal(t, "0xagent", accounts[0].AgentWallet)
	assert.Equal(t, "0xccc", accounts[1].WalletAddress)
	assert.False(t, accounts[0].CreatedAt.IsZero())
}

func TestSQLiteStore_DuplicateWallet(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	_, err := store.AddAccount(ctx, &models.Account{WalletAddress: "0xaaa", Status: models.AccountStatusTrading})
	require.NoError(t, err)
	_, err = store.AddAccount(ctx, &models.Account{WalletAddress: "0xaaa", Status: models.AccountStatusTrading})
	assert.Error(t, err)
}

func TestSQLiteStore_AppendTradeRecord(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	account := &models.Account{WalletAddress: "0xaaa", Status: models.AccountStatusTrading}
	id, err := store.AddAccount(ctx, account)
	require.NoError(t, err)

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	record := &models.TradeRecord{
		ID:           "trade-1",
		AccountID:    id,
		Symbol:       "BTC",
		Direction:    models.DirectionLong,
		EntryPrice:   50000,
		Size:         0.0003,
		TP1:          50750,
		SL:           49500,
		Status:       models.TradeStatusOpen,
		VenueOrderID: "paper_1",
		CreatedAt:    created,
	}
	require.NoError(t, store.AppendTradeRecord(ctx, record))

	// 相同ID重复写入不报错也不产生新记录
	require.NoError(t, store.AppendTradeRecord(ctx, record))

	// 相同内容不同ID是新记录
	second := *record
	second.ID = "trade-2"
	second.CreatedAt = created.Add(time.Minute)
	require.NoError(t, store.AppendTradeRecord(ctx, &second))

	trades, err := store.ListTrades(ctx, id)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "trade-1", trades[0].ID)
	assert.Equal(t, 0.0003, trades[0].Size)
	assert.Equal(t, 50750.0, trades[0].TP1)
	assert.Equal(t, 0.0, trades[0].TP2)
	assert.True(t, created.Equal(trades[0].CreatedAt))
	assert.Equal(t, "trade-2", trades[1].ID)
}

func TestSQLiteStore_UnknownAccountRejected(t *testing.T) {
	store := newTestSQLiteStore(t)

	err := store.AppendTradeRecord(context.Background(), &models.TradeRecord{
		ID: "x", AccountID: 999, Symbol: "BTC", Direction: models.DirectionLong, Status: models.TradeStatusOpen,
	})
	assert.Error(t, err)
}

func TestNewAccountStore(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Storage.SQLitePath = ":memory:"

	store, err := NewAccountStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &SQLiteStore{}, store)

	cfg.Storage.Driver = "mysql"
	_, err = NewAccountStore(context.Background(), cfg)
	assert.Error(t, err)
}
