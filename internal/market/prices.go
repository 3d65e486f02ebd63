package market

import (
	"context"
	"sync"
)

// PriceSource 引擎读取价格的接口
type PriceSource interface {
	Latest(ctx context.Context, symbol string) (float64, bool, error)
	Recent(ctx context.Context, symbol string, n int) ([]float64, error)
}

// PriceCache 可写入的价格缓存
type PriceCache interface {
	PriceSource
	Record(ctx context.Context, symbol string, price float64) error
}

// MemoryPriceCache 进程内价格缓存，未启用Redis时使用
type MemoryPriceCache struct {
	mu          sync.RWMutex
	historySize int
	history     map[string][]float64
}

// NewMemoryPriceCache 创建内存价格缓存
func NewMemoryPriceCache(historySize int) *MemoryPriceCache {
	if historySize <= 0 {
		historySize = 50
	}
	return &MemoryPriceCache{
		historySize: historySize,
		history:     make(map[string][]float64),
	}
}

// Record 记录一次价格
func (c *MemoryPriceCache) Record(_ context.Context, symbol string, price float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := append(c.history[symbol], price)
	if len(h) > c.historySize {
		h = h[len(h)-c.historySize:]
	}
	c.history[symbol] = h
	return nil
}

// Latest 最新价格
func (c *MemoryPriceCache) Latest(_ context.Context, symbol string) (float64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := c.history[symbol]
	if len(h) == 0 {
		return 0, false, nil
	}
	return h[len(h)-1], true, nil
}

// Recent 最近n个价格，按时间从旧到新
func (c *MemoryPriceCache) Recent(_ context.Context, symbol string, n int) ([]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := c.history[symbol]
	if n <= 0 || len(h) == 0 {
		return nil, nil
	}
	if n > len(h) {
		n = len(h)
	}
	out := make([]float64, n)
	copy(out, h[len(h)-n:])
	return out, nil
}
