package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/config"
	"github.com/life2you_mini/cycle/internal/exchange"
	"github.com/life2you_mini/cycle/internal/market"
	"github.com/life2you_mini/cycle/internal/monitor"
	"github.com/life2you_mini/cycle/internal/risk"
	"github.com/life2you_mini/cycle/internal/secrets"
	"github.com/life2you_mini/cycle/internal/signal"
	"github.com/life2you_mini/cycle/internal/storage"
	"github.com/life2you_mini/cycle/internal/trading"
)

// 引擎初始化失败后的重试间隔
const engineRetryInterval = 30 * time.Second

// CycleService 交易周期服务，负责组装并管理各组件的生命周期
type CycleService struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	secrets    *secrets.Store
	store      storage.AccountStore
	stores     *runtimeStores
	recorder   *market.PriceRecorder
	engine     *trading.Engine
	reconciler *trading.Reconciler

	mu      sync.Mutex // 保证停止后不会再启动引擎
	stopped bool
	wg      sync.WaitGroup
}

// NewCycleService 按配置创建交易周期服务
func NewCycleService(
	parentCtx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
) (*CycleService, error) {
	ctx, cancel := context.WithCancel(parentCtx)
	s := &CycleService{
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With(zap.String("component", "cycle_service")),
	}

	// 出错时释放已打开的资源
	ok := false
	defer func() {
		if !ok {
			s.closeResources()
			cancel()
		}
	}()

	// 代理钱包私钥存储
	if cfg.SecretStore.Enabled {
		encryptionKey, err := secrets.ParseEncryptionKey(cfg.SecretStore.EncryptionKey)
		if err != nil {
			return nil, err
		}
		s.secrets, err = secrets.Open(secrets.Options{Path: cfg.SecretStore.Path, EncryptionKey: encryptionKey})
		if err != nil {
			return nil, err
		}
	}

	// 交易所
	venueFactory := exchange.CreateVenueFactory(cfg.Exchange, newKeyResolver(s.secrets), logger)
	venue := venueFactory.Active(cfg.Exchange.LiveTrading)

	// 信号服务
	provider, err := signal.NewProvider(cfg.Signal, logger)
	if err != nil {
		return nil, fmt.Errorf("创建信号服务失败: %w", err)
	}

	// 账户存储
	s.store, err = storage.NewAccountStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 价格缓存、待补写队列、周期锁
	s.stores, err = newRuntimeStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// 行情：开启推送时走WebSocket，否则轮询中间价
	bus := market.NewBus()
	s.recorder = market.NewPriceRecorder(bus, s.stores.prices, logger)
	var feed trading.Feed
	if cfg.Market.Enabled {
		feed = market.NewHyperliquidFeed(market.FeedOptions{
			URL:            cfg.Market.WSURL,
			PingInterval:   time.Duration(cfg.Market.PingIntervalSeconds) * time.Second,
			ReconnectDelay: time.Duration(cfg.Market.ReconnectDelaySeconds) * time.Second,
		}, bus, logger)
	} else {
		feed = monitor.NewMidsPoller(venue, s.recorder,
			time.Duration(cfg.Market.PollIntervalSeconds)*time.Second, logger)
	}

	// 风险模式
	ultraStart, err := cfg.Mode.UltraStartTime(time.Now())
	if err != nil {
		return nil, err
	}

	s.engine = trading.NewEngine(trading.OptionsFromConfig(cfg), trading.Dependencies{
		Venue:   venue,
		Signals: provider,
		Store:   s.store,
		Prices:  s.stores.prices,
		Modes:   risk.NewModeSelector(risk.ThresholdsFromConfig(cfg.Mode, ultraStart)),
		Sizer:   risk.NewPositionSizer(risk.SizingParamsFromConfig(cfg.Mode)),
		Feed:    feed,
		Pending: s.stores.pending,
		Lock:    s.stores.lock,
	}, logger)
	s.reconciler = trading.NewReconciler(s.engine.Pending(), s.store, logger)

	s.logger.Info("交易周期服务已创建",
		zap.String("venue", venue.Name()),
		zap.String("signal_provider", cfg.Signal.Provider),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("market_feed", cfg.Market.Enabled),
		zap.Time("ultra_start", ultraStart))

	ok = true
	return s, nil
}

// Start 启动服务，引擎初始化失败时在后台按间隔重试
func (s *CycleService) Start() {
	s.logger.Info("启动交易周期服务")

	s.recorder.Start(s.ctx)
	s.reconciler.Start(s.ctx)

	if err := s.engine.Start(s.ctx); err != nil {
		s.wg.Add(1)
		go s.retryEngineStart()
	}
}

func (s *CycleService) retryEngineStart() {
	defer s.wg.Done()

	ticker := time.NewTicker(engineRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.stopped {
				s.mu.Unlock()
				return
			}
			err := s.engine.Start(s.ctx)
			s.mu.Unlock()
			if err == nil {
				return
			}
			s.logger.Warn("交易周期引擎启动重试失败", zap.Duration("retry_in", engineRetryInterval))
		}
	}
}

// Running 引擎是否在运行
func (s *CycleService) Running() bool {
	return s.engine.IsRunning()
}

// Stop 停止服务：等待正在执行的周期结束，再关闭各组件
func (s *CycleService) Stop(ctx context.Context) error {
	s.logger.Info("停止交易周期服务")

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.engine.Stop()
		s.cancel()
		s.wg.Wait()
		s.reconciler.Stop()
		s.recorder.Stop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		s.logger.Error("等待交易周期结束超时，强制关闭")
		s.cancel()
		return ctx.Err()
	case <-done:
	}

	s.closeResources()
	return nil
}

func (s *CycleService) closeResources() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("关闭账户存储失败", zap.Error(err))
		}
	}
	if s.stores != nil {
		if err := s.stores.Close(); err != nil {
			s.logger.Error("关闭Redis连接失败", zap.Error(err))
		}
	}
	if s.secrets != nil {
		if err := s.secrets.Close(); err != nil {
			s.logger.Error("关闭密钥存储失败", zap.Error(err))
		}
	}
}
