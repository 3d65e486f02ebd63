package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBus_PublishByKind(t *testing.T) {
	bus := NewBus()
	mids, unsubMids := bus.Subscribe(KindMids, 1)
	defer unsubMids()
	trades, unsubTrades := bus.Subscribe(KindTrade, 1)
	defer unsubTrades()

	bus.Publish(MidsUpdate{Prices: map[string]float64{"BTC": 50000}})

	select {
	case ev := <-mids:
		update, ok := ev.(MidsUpdate)
		require.True(t, ok)
		assert.Equal(t, 50000.0, update.Prices["BTC"])
	case <-time.After(time.Second):
		t.Fatal("未收到中间价事件")
	}

	select {
	case ev := <-trades:
		t.Fatalf("不应收到成交事件: %v", ev)
	default:
	}
}

func TestBus_DropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(KindBook, 1)

	// 缓冲已满时不阻塞
	bus.Publish(BookUpdate{Symbol: "BTC"})
	bus.Publish(BookUpdate{Symbol: "ETH"})

	ev := <-ch
	assert.Equal(t, "BTC", ev.(BookUpdate).Symbol)

	unsub()
	unsub()
	_, open := <-ch
	assert.False(t, open)

	// 取消订阅后发布不会panic
	bus.Publish(BookUpdate{Symbol: "SOL"})
}

func TestMemoryPriceCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryPriceCache(3)

	_, ok, err := cache.Latest(ctx, "BTC")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, p := range []float64{1, 2, 3, 4} {
		require.NoError(t, cache.Record(ctx, "BTC", p))
	}

	latest, ok, err := cache.Latest(ctx, "BTC")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4.0, latest)

	recent, err := cache.Recent(ctx, "BTC", 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, recent)

	recent, err = cache.Recent(ctx, "BTC", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, recent)

	recent, err = cache.Recent(ctx, "ETH", 2)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestPriceRecorder(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	cache := NewMemoryPriceCache(10)
	recorder := NewPriceRecorder(bus, cache, zaptest.NewLogger(t))

	recorder.Start(ctx)
	recorder.Start(ctx)
	bus.Publish(MidsUpdate{Prices: map[string]float64{"BTC": 50000, "ETH": 3000}})

	assert.Eventually(t, func() bool {
		price, ok, _ := cache.Latest(ctx, "ETH")
		return ok && price == 3000
	}, time.Second, 10*time.Millisecond)

	recorder.Stop()
	recorder.Stop()
}
