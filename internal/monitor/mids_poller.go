package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/exchange"
)

// 常量定义
const (
	DefaultPollInterval = 10 * time.Second
	pollTimeout         = 5 * time.Second
	stopTimeout         = 5 * time.Second
)

// MidsSource 中间价来源
type MidsSource interface {
	AllMids(ctx context.Context) (*exchange.Mids, error)
}

// MidsRecorder 中间价写入目标
type MidsRecorder interface {
	Record(ctx context.Context, prices map[string]float64)
}

// MidsPoller 行情推送关闭时按固定间隔轮询全市场中间价并写入价格缓存
type MidsPoller struct {
	source   MidsSource
	recorder MidsRecorder
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewMidsPoller 创建中间价轮询器
func NewMidsPoller(source MidsSource, recorder MidsRecorder, interval time.Duration, logger *zap.Logger) *MidsPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &MidsPoller{
		source:   source,
		recorder: recorder,
		interval: interval,
		logger:   logger.With(zap.String("component", "mids_poller")),
	}
}

// Start 立即轮询一次后在后台按间隔继续，symbols只用于日志，轮询失败不影响启动
func (p *MidsPoller) Start(ctx context.Context, symbols []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return nil
	}

	p.logger.Info("启动中间价轮询",
		zap.Duration("interval", p.interval),
		zap.Strings("symbols", symbols))

	// 首次轮询同步执行，保证第一个周期就有价格
	p.poll(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.isRunning = true

	p.wg.Add(1)
	go p.run(runCtx)
	return nil
}

// Stop 停止轮询
func (p *MidsPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("中间价轮询已停止")
	case <-time.After(stopTimeout):
		p.logger.Warn("中间价轮询停止超时")
	}
	p.isRunning = false
}

func (p *MidsPoller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *MidsPoller) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	mids, err := p.source.AllMids(pollCtx)
	if err != nil {
		p.logger.Error("轮询中间价失败", zap.Error(err))
		return
	}
	p.recorder.Record(ctx, mids.Prices)
	p.logger.Debug("中间价已更新", zap.Int("count", len(mids.Prices)))
}
