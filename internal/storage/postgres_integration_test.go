//go:build integration

package storage

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/life2you_mini/cycle/internal/models"
)

var pgPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "cycle",
			"POSTGRES_PASSWORD": "cycle",
			"POSTGRES_DB":       "cycle_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("启动PostgreSQL容器失败: %s", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("获取容器地址失败: %s", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("获取容器端口失败: %s", err)
	}

	dsn := "postgres://cycle:cycle@" + host + ":" + port.Port() + "/cycle_test?sslmode=disable"
	pgPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("连接PostgreSQL失败: %s", err)
	}

	code := m.Run()

	pgPool.Close()
	if err := container.Terminate(ctx); err != nil {
		log.Printf("停止PostgreSQL容器失败: %s", err)
	}
	os.Exit(code)
}

func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	// 端口监听后数据库可能仍在初始化
	store := NewPostgresStoreFromPool(pgPool)
	require.Eventually(t, func() bool {
		return store.Initialize(ctx) == nil
	}, 30*time.Second, 500*time.Millisecond)

	_, err := pgPool.Exec(ctx, "TRUNCATE trades, users RESTART IDENTITY")
	require.NoError(t, err)
	return store
}

func TestPostgresStore_AccountsAndTrades(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgresStore(t)

	id, err := store.AddAccount(ctx, &models.Account{WalletAddress: "0xaaa", AgentWallet: "0xagent", Status: models.AccountStatusTrading})
	require.NoError(t, err)
	_, err = store.AddAccount(ctx, &models.Account{WalletAddress: "0xbbb", Status: models.AccountStatusPaused})
	require.NoError(t, err)

	accounts, err := store.ListTradingEnabledAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, id, accounts[0].ID)
	assert.Equal(t, "0xagent", accounts[0].AgentWallet)

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
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.AppendTradeRecord(ctx, record))
	require.NoError(t, store.AppendTradeRecord(ctx, record))

	trades, err := store.ListTrades(ctx, id)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 0.0003, trades[0].Size)
	assert.Equal(t, 49500.0, trades[0].SL)
	assert.Equal(t, "paper_1", trades[0].VenueOrderID)
}

func TestPostgresStore_ListTradesEmpty(t *testing.T) {
	store := newTestPostgresStore(t)

	trades, err := store.ListTrades(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, trades)
}
