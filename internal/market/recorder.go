package market

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PriceRecorder 把推送的中间价写入价格缓存
type PriceRecorder struct {
	bus    *Bus
	cache  PriceCache
	logger *zap.Logger

	mu        sync.Mutex
	isRunning bool
	unsub     func()
	wg        sync.WaitGroup
}

// NewPriceRecorder 创建价格记录器
func NewPriceRecorder(bus *Bus, cache PriceCache, logger *zap.Logger) *PriceRecorder {
	return &PriceRecorder{
		bus:    bus,
		cache:  cache,
		logger: logger.With(zap.String("component", "price_recorder")),
	}
}

// Start 开始订阅中间价
func (r *PriceRecorder) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return
	}

	events, unsub := r.bus.Subscribe(KindMids, 16)
	r.unsub = unsub
	r.isRunning = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for ev := range events {
			mids, ok := ev.(MidsUpdate)
			if !ok {
				continue
			}
			r.Record(ctx, mids.Prices)
		}
	}()
}

// Record 写入一批价格，单个品种失败只记录日志
func (r *PriceRecorder) Record(ctx context.Context, prices map[string]float64) {
	writeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for symbol, price := range prices {
		if err := r.cache.Record(writeCtx, symbol, price); err != nil {
			r.logger.Warn("写入价格失败", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}

// Stop 取消订阅并等待写入结束
func (r *PriceRecorder) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	unsub := r.unsub
	r.mu.Unlock()

	unsub()
	r.wg.Wait()
}
