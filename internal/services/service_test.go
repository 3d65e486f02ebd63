package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/life2you_mini/cycle/internal/config"
	"github.com/life2you_mini/cycle/internal/market"
	"github.com/life2you_mini/cycle/internal/models"
	"github.com/life2you_mini/cycle/internal/secrets"
	"github.com/life2you_mini/cycle/internal/storage"
	"github.com/life2you_mini/cycle/internal/trading"
)

const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// newInfoServer 模拟Hyperliquid信息接口
func newInfoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch body["type"] {
		case "allMids":
			_, _ = w.Write([]byte(`{"BTC":"50000.0","ETH":"3000.0","@1":"1.0"}`))
		case "clearinghouseState":
			_, _ = w.Write([]byte(`{"marginSummary":{"accountValue":"100.0"}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestConfig(t *testing.T, baseURL string) *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Exchange.BaseURL = baseURL
	cfg.Trading.TickIntervalSeconds = 3600
	cfg.Trading.DefaultSymbols = []string{"BTC"}
	cfg.Trading.ScanPolicy = config.ScanPolicyDefault
	cfg.Signal.Provider = "mock"
	cfg.Signal.MockProbability = 1
	cfg.Market.Enabled = false
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "cycle.db")
	return cfg
}

func TestCycleService_RunsFirstTick(t *testing.T) {
	ctx := context.Background()
	server := newInfoServer(t)
	cfg := newTestConfig(t, server.URL)

	// 预先写入一个交易账户
	seed, err := storage.NewAccountStore(ctx, cfg)
	require.NoError(t, err)
	accountID, err := seed.AddAccount(ctx, &models.Account{WalletAddress: "0xaaa", Status: models.AccountStatusTrading})
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	service, err := NewCycleService(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	service.Start()
	require.True(t, service.Running())

	// 第一个周期在启动后立即执行
	assert.Eventually(t, func() bool {
		trades, err := service.store.ListTrades(ctx, accountID)
		return err == nil && len(trades) == 1
	}, 5*time.Second, 20*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, service.Stop(stopCtx))
	assert.False(t, service.Running())

	check, err := storage.NewAccountStore(ctx, cfg)
	require.NoError(t, err)
	defer check.Close()

	trades, err := check.ListTrades(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "BTC", trades[0].Symbol)
	assert.InDelta(t, 0.002, trades[0].Size, 1e-9)
}

func TestCycleService_RetriesEngineStart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := newTestConfig(t, server.URL)
	cfg.Exchange.RequestTimeoutSeconds = 1

	service, err := NewCycleService(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	service.Start()
	assert.False(t, service.Running())

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, service.Stop(stopCtx))
	assert.False(t, service.Running())
}

func TestNewRuntimeStores_Memory(t *testing.T) {
	cfg := config.GetDefaultConfig()

	stores, err := newRuntimeStores(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer stores.Close()

	assert.IsType(t, &market.MemoryPriceCache{}, stores.prices)
	assert.IsType(t, &trading.MemoryPendingQueue{}, stores.pending)
	assert.Nil(t, stores.lock)
	assert.Nil(t, stores.client)
}

func TestKeyResolver(t *testing.T) {
	assert.Nil(t, newKeyResolver(nil))

	store, err := secrets.Open(secrets.Options{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	address, err := store.PutAgentKey(testPrivateKey)
	require.NoError(t, err)

	resolver := newKeyResolver(store)
	key, err := resolver.PrivateKey(address)
	require.NoError(t, err)
	assert.Equal(t, testPrivateKey, key)

	_, err = resolver.PrivateKey("0x0000000000000000000000000000000000000001")
	assert.ErrorIs(t, err, secrets.ErrNotFound)
}
