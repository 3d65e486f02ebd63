package trading

import (
	"context"
	"errors"
	"time"

	"github.com/life2you_mini/cycle/internal/models"
)

// ErrQueueFull 内存队列已满
var ErrQueueFull = errors.New("待补写队列已满")

// MemoryPendingQueue 未启用Redis时的进程内待补写队列
type MemoryPendingQueue struct {
	ch chan *models.TradeRecord
}

// NewMemoryPendingQueue 创建内存队列
func NewMemoryPendingQueue(size int) *MemoryPendingQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryPendingQueue{ch: make(chan *models.TradeRecord, size)}
}

// Push 放入记录，队列满时立即返回错误
func (q *MemoryPendingQueue) Push(ctx context.Context, record *models.TradeRecord) error {
	select {
	case q.ch <- record:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Pop 等待一条记录，超时返回nil
func (q *MemoryPendingQueue) Pop(ctx context.Context, timeout time.Duration) (*models.TradeRecord, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case record := <-q.ch:
		return record, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len 队列中的记录数
func (q *MemoryPendingQueue) Len() int {
	return len(q.ch)
}
