package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/life2you_mini/cycle/internal/models"
)

// QueuePendingTrades 已成交但未能写入存储的交易记录
const QueuePendingTrades = "pending_trades"

// PendingQueue 基于Redis列表的待补写交易队列
type PendingQueue struct {
	client    *redis.Client
	keyPrefix string
}

// NewPendingQueue 创建待补写队列
func NewPendingQueue(client *redis.Client, keyPrefix string) *PendingQueue {
	return &PendingQueue{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (q *PendingQueue) key() string {
	return q.keyPrefix + QueuePendingTrades
}

// Push 放入待补写记录
func (q *PendingQueue) Push(ctx context.Context, record *models.TradeRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化交易记录失败: %w", err)
	}
	return q.client.LPush(ctx, q.key(), data).Err()
}

// Pop 阻塞弹出一条记录，超时返回nil
func (q *PendingQueue) Pop(ctx context.Context, timeout time.Duration) (*models.TradeRecord, error) {
	result, err := q.client.BRPop(ctx, timeout, q.key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // 超时
		}
		return nil, err
	}

	// BRPop返回 [queueName, value]
	if len(result) < 2 {
		return nil, fmt.Errorf("从队列获取的数据结构不正确")
	}

	var record models.TradeRecord
	if err := json.Unmarshal([]byte(result[1]), &record); err != nil {
		return nil, fmt.Errorf("解析交易记录失败: %w", err)
	}
	return &record, nil
}

// Len 队列长度
func (q *PendingQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key()).Result()
}
