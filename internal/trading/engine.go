package trading

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/life2you_mini/cycle/internal/exchange"
	"github.com/life2you_mini/cycle/internal/market"
	"github.com/life2you_mini/cycle/internal/models"
	"github.com/life2you_mini/cycle/internal/risk"
	"github.com/life2you_mini/cycle/internal/signal"
)

// 初始化交易品种的超时
const universeInitTimeout = 15 * time.Second

// Dependencies 引擎依赖的外部组件，Feed/Pending/Lock可为空
type Dependencies struct {
	Venue   exchange.Venue
	Signals signal.Provider
	Store   AccountStore
	Prices  market.PriceSource
	Modes   *risk.ModeSelector
	Sizer   *risk.PositionSizer

	Feed    Feed
	Pending PendingQueue
	Lock    TickLock

	Clock func() time.Time
}

// TickSummary 单个周期的执行结果
type TickSummary struct {
	Accounts    int
	Symbols     int
	Signals     int64 // 通过阈值的信号数
	Orders      int64 // 交易所确认的订单数
	Skipped     int64 // 因品种限制或金额过小跳过的账户
	Failed      int64 // 权益查询、下单失败或panic的账户
	Unpersisted int64 // 已成交但写入存储失败的记录
}

type tickCounters struct {
	signals     atomic.Int64
	orders      atomic.Int64
	skipped     atomic.Int64
	failed      atomic.Int64
	unpersisted atomic.Int64
}

// Engine 交易周期引擎：按固定间隔为所有交易账户扫描信号并下单
type Engine struct {
	opts   EngineOptions
	deps   Dependencies
	logger *zap.Logger

	mu        sync.Mutex // 串行化Start/Stop
	running   atomic.Bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
	universeM sync.RWMutex
	universe  []string
}

// NewEngine 创建交易周期引擎
func NewEngine(opts EngineOptions, deps Dependencies, logger *zap.Logger) *Engine {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Pending == nil {
		deps.Pending = NewMemoryPendingQueue(0)
	}

	return &Engine{
		opts:   opts.withDefaults(),
		deps:   deps,
		logger: logger.With(zap.String("component", "cycle_engine")),
	}
}

// Pending 引擎使用的待补写队列，供补写服务共享
func (e *Engine) Pending() PendingQueue {
	return e.deps.Pending
}

// IsRunning 引擎是否在运行
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// Start 初始化交易品种和行情推送后启动周期循环，重复调用无副作用
// 初始化失败时引擎保持停止状态，可以再次调用Start
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running.Load() {
		return nil
	}

	initCtx, cancel := context.WithTimeout(ctx, universeInitTimeout)
	mids, err := e.deps.Venue.AllMids(initCtx)
	cancel()
	if err != nil {
		e.logger.Error("初始化交易品种失败", zap.Error(err))
		return fmt.Errorf("初始化交易品种失败: %w", err)
	}
	e.setUniverse(mids.Symbols)
	e.logger.Info("交易品种已加载", zap.Int("count", len(mids.Symbols)))

	if e.deps.Feed != nil {
		if err := e.deps.Feed.Start(ctx, e.feedSymbols()); err != nil {
			e.logger.Error("启动行情推送失败", zap.Error(err))
			return fmt.Errorf("启动行情推送失败: %w", err)
		}
	}

	e.stopCh = make(chan struct{})
	e.running.Store(true)

	e.wg.Add(1)
	go e.loop(ctx, e.stopCh)

	e.logger.Info("交易周期引擎已启动",
		zap.Duration("interval", e.opts.TickInterval),
		zap.String("scan_policy", e.opts.ScanPolicy))
	return nil
}

// Stop 停止引擎，正在执行的周期会完整执行完(包括写入记录)后才返回
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running.Load() {
		return
	}

	e.logger.Info("停止交易周期引擎")
	close(e.stopCh)
	e.wg.Wait()
	e.running.Store(false)

	if e.deps.Feed != nil {
		e.deps.Feed.Stop()
	}
	e.logger.Info("交易周期引擎已停止")
}

// loop 周期循环，间隔从上个周期开始时计算，超时的周期之后立即开始下一个
func (e *Engine) loop(ctx context.Context, stop <-chan struct{}) {
	defer e.wg.Done()

	// 周期内的调用不随ctx取消，只受各自的超时限制
	tickCtx := context.WithoutCancel(ctx)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			e.logger.Info("上下文已取消，周期循环退出")
			return
		case <-timer.C:
		}

		// 定时器与停止信号同时就绪时以停止为准
		select {
		case <-stop:
			return
		default:
		}

		start := time.Now()
		summary := e.RunTick(tickCtx)
		elapsed := time.Since(start)

		e.logger.Info("交易周期完成",
			zap.Duration("elapsed", elapsed),
			zap.Int("accounts", summary.Accounts),
			zap.Int("symbols", summary.Symbols),
			zap.Int64("signals", summary.Signals),
			zap.Int64("orders", summary.Orders),
			zap.Int64("skipped", summary.Skipped),
			zap.Int64("failed", summary.Failed),
			zap.Int64("unpersisted", summary.Unpersisted))

		wait := e.opts.TickInterval - elapsed
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

// RunTick 执行一个完整周期，所有错误都在周期内处理
func (e *Engine) RunTick(ctx context.Context) TickSummary {
	var summary TickSummary

	if e.deps.Lock != nil {
		lockCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
		token, ok, err := e.deps.Lock.Acquire(lockCtx)
		cancel()
		if err != nil {
			e.logger.Warn("获取周期锁失败，跳过本周期", zap.Error(err))
			return summary
		}
		if !ok {
			e.logger.Info("其他实例正在执行周期，跳过本周期")
			return summary
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
			defer cancel()
			if err := e.deps.Lock.Release(releaseCtx, token); err != nil {
				e.logger.Warn("释放周期锁失败", zap.Error(err))
			}
		}()
	}

	storeCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	accounts, err := e.deps.Store.ListTradingEnabledAccounts(storeCtx)
	cancel()
	if err != nil {
		e.logger.Error("查询交易账户失败", zap.Error(err))
		return summary
	}
	summary.Accounts = len(accounts)
	if len(accounts) == 0 {
		e.logger.Debug("没有交易中的账户")
		return summary
	}

	targets := e.scanTargets(ctx, e.deps.Clock())
	summary.Symbols = len(targets)

	var counters tickCounters
	g := new(errgroup.Group)
	g.SetLimit(e.opts.SymbolConcurrency)
	for _, target := range targets {
		g.Go(func() error {
			e.runSymbol(ctx, target, accounts, &counters)
			return nil
		})
	}
	_ = g.Wait()

	summary.Signals = counters.signals.Load()
	summary.Orders = counters.orders.Load()
	summary.Skipped = counters.skipped.Load()
	summary.Failed = counters.failed.Load()
	summary.Unpersisted = counters.unpersisted.Load()
	return summary
}

// runSymbol 获取单个品种的信号，通过后对所有账户执行
func (e *Engine) runSymbol(ctx context.Context, target scanTarget, accounts []*models.Account, counters *tickCounters) {
	logger := e.logger.With(zap.String("symbol", target.Symbol))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("品种处理发生panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	prices, ok := e.recentPrices(ctx, target.Symbol, logger)
	if !ok {
		return
	}

	req := signal.Request{
		Symbol:           target.Symbol,
		Timeframe:        e.opts.Timeframe,
		Prices:           prices,
		MinConfirmations: target.Tier.Confirmations,
		MinRewardToRisk:  target.Tier.MinRewardToRisk,
	}

	signalCtx, cancel := context.WithTimeout(ctx, e.opts.SignalTimeout)
	sig, err := e.deps.Signals.GetSignal(signalCtx, req)
	cancel()
	if err != nil {
		logger.Warn("获取信号失败", zap.Error(err))
		return
	}
	if !signal.Accepted(sig, e.opts.ConfidenceThreshold) {
		if sig != nil && sig.Signal {
			logger.Debug("信号置信度不足", zap.Float64("confidence", sig.Confidence))
		}
		return
	}

	sig.Symbol = target.Symbol
	if sig.Entry <= 0 {
		sig.Entry = req.LatestPrice()
	}
	counters.signals.Add(1)
	rewardRisk := risk.CalculateRewardToRisk(sig.Entry, sig.TakeProfit1, sig.StopLoss)
	logger.Info("收到交易信号",
		zap.String("direction", sig.Direction),
		zap.Float64("entry", sig.Entry),
		zap.Float64("confidence", sig.Confidence),
		zap.Int("tier", target.Tier.Level),
		zap.Float64("reward_risk", rewardRisk))

	// 信号未给出止盈止损时按策略倍数推算，不参与分级盈亏比检查
	hasLevels := sig.TakeProfit1 > 0 && sig.StopLoss > 0
	if e.opts.EnforceRewardToRisk && hasLevels && rewardRisk < target.Tier.MinRewardToRisk {
		logger.Info("盈亏比低于分级要求，跳过",
			zap.Float64("reward_risk", rewardRisk),
			zap.Float64("min_reward_risk", target.Tier.MinRewardToRisk))
		counters.skipped.Add(int64(len(accounts)))
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(e.opts.AccountConcurrency)
	for _, account := range accounts {
		g.Go(func() error {
			e.executeForAccount(ctx, sig, target.Tier, account, counters)
			return nil
		})
	}
	_ = g.Wait()
}

// recentPrices 从价格缓存读取最新价格和近期序列，没有价格时跳过该品种
func (e *Engine) recentPrices(ctx context.Context, symbol string, logger *zap.Logger) ([]float64, bool) {
	priceCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	latest, ok, err := e.deps.Prices.Latest(priceCtx, symbol)
	if err != nil {
		logger.Warn("读取最新价格失败", zap.Error(err))
		return nil, false
	}
	if !ok || latest <= 0 {
		logger.Debug("暂无价格，跳过")
		return nil, false
	}

	prices, err := e.deps.Prices.Recent(priceCtx, symbol, e.opts.PriceHistorySize)
	if err != nil || len(prices) == 0 {
		prices = []float64{latest}
	}
	if prices[len(prices)-1] != latest {
		prices = append(prices, latest)
	}
	return prices, true
}

func (e *Engine) setUniverse(symbols []string) {
	e.universeM.Lock()
	defer e.universeM.Unlock()
	e.universe = append([]string(nil), symbols...)
}

func (e *Engine) getUniverse() []string {
	e.universeM.RLock()
	defer e.universeM.RUnlock()
	return e.universe
}
