package services

import (
	"context"
	"fmt"
	"time"

	redisLib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/config"
	"github.com/life2you_mini/cycle/internal/market"
	redisInternal "github.com/life2you_mini/cycle/internal/redis"
	"github.com/life2you_mini/cycle/internal/trading"
)

// runtimeStores 价格缓存、待补写队列和周期锁，Redis未启用时使用进程内实现
type runtimeStores struct {
	client  *redisLib.Client
	prices  market.PriceCache
	pending trading.PendingQueue
	lock    trading.TickLock
}

func newRuntimeStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtimeStores, error) {
	historySize := cfg.Trading.PriceHistorySize

	if !cfg.Redis.Enabled {
		logger.Info("未启用Redis，使用进程内价格缓存和待补写队列")
		return &runtimeStores{
			prices:  market.NewMemoryPriceCache(historySize),
			pending: trading.NewMemoryPendingQueue(0),
		}, nil
	}

	client, err := redisInternal.NewRedisClient(ctx, redisInternal.ClientOptions{
		URL:      cfg.Redis.URL,
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化Redis客户端失败: %w", err)
	}

	stores := &runtimeStores{
		client:  client,
		prices:  redisInternal.NewPriceStore(client, cfg.Redis.KeyPrefix, historySize),
		pending: redisInternal.NewPendingQueue(client, cfg.Redis.KeyPrefix),
	}
	if cfg.Trading.TickLockEnabled {
		// 锁的有效期需覆盖最长的周期
		ttl := cfg.Trading.TickInterval() + 2*time.Minute
		stores.lock = redisInternal.NewTickLock(client, cfg.Redis.KeyPrefix, ttl)
		logger.Info("已启用周期锁", zap.Duration("ttl", ttl))
	}
	return stores, nil
}

func (s *runtimeStores) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
