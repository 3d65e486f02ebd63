package trading

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/models"
)

const (
	defaultPopTimeout = 5 * time.Second
	defaultRetryDelay = 10 * time.Second
)

// Reconciler 从待补写队列取出交易记录，重试写入直到成功或停止
type Reconciler struct {
	queue        PendingQueue
	store        AccountStore
	logger       *zap.Logger
	popTimeout   time.Duration
	retryDelay   time.Duration
	storeTimeout time.Duration

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewReconciler 创建补写服务
func NewReconciler(queue PendingQueue, store AccountStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		queue:        queue,
		store:        store,
		logger:       logger.With(zap.String("component", "reconciler")),
		popTimeout:   defaultPopTimeout,
		retryDelay:   defaultRetryDelay,
		storeTimeout: 5 * time.Second,
	}
}

// SetRetryDelay 设置写入失败后的重试间隔
func (r *Reconciler) SetRetryDelay(delay time.Duration) {
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	r.retryDelay = delay
}

// Start 启动补写协程
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.isRunning = true

	r.wg.Add(1)
	go r.run(runCtx)
	r.logger.Info("交易记录补写服务已启动")
}

// Stop 停止补写，正在重试的记录会放回队列
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning {
		return
	}
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("交易记录补写服务已停止")
	case <-time.After(5 * time.Second):
		r.logger.Warn("交易记录补写服务停止超时")
	}
	r.isRunning = false
}

func (r *Reconciler) run(ctx context.Context) {
	defer r.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		record, err := r.queue.Pop(ctx, r.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("读取待补写队列失败", zap.Error(err))
			if !r.sleep(ctx) {
				return
			}
			continue
		}
		if record == nil {
			continue
		}

		r.reconcile(ctx, record)
	}
}

// reconcile 重试写入单条记录，停止时放回队列
func (r *Reconciler) reconcile(ctx context.Context, record *models.TradeRecord) {
	logger := r.logger.With(zap.String("trade_id", record.ID), zap.Int64("account_id", record.AccountID))

	for attempt := 1; ; attempt++ {
		storeCtx, cancel := context.WithTimeout(ctx, r.storeTimeout)
		err := r.store.AppendTradeRecord(storeCtx, record)
		cancel()
		if err == nil {
			logger.Info("交易记录补写成功", zap.Int("attempt", attempt))
			return
		}
		logger.Warn("交易记录补写失败", zap.Int("attempt", attempt), zap.Error(err))

		if !r.sleep(ctx) {
			r.requeue(record, logger)
			return
		}
	}
}

func (r *Reconciler) requeue(record *models.TradeRecord, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), r.storeTimeout)
	defer cancel()
	if err := r.queue.Push(ctx, record); err != nil {
		logger.Error("交易记录放回队列失败，需要人工对账",
			zap.String("order_id", record.VenueOrderID),
			zap.Error(err))
	}
}

func (r *Reconciler) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(r.retryDelay):
		return true
	}
}
