package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// PriceStore 在Redis中缓存每个品种的最新价格和近期价格序列
type PriceStore struct {
	client      *redis.Client
	keyPrefix   string
	historySize int
}

// NewPriceStore 创建价格缓存，historySize为每个品种保留的价格数量
func NewPriceStore(client *redis.Client, keyPrefix string, historySize int) *PriceStore {
	if historySize <= 0 {
		historySize = 50
	}
	return &PriceStore{
		client:      client,
		keyPrefix:   keyPrefix,
		historySize: historySize,
	}
}

func (s *PriceStore) latestKey(symbol string) string {
	return fmt.Sprintf("%sprice:latest:%s", s.keyPrefix, symbol)
}

func (s *PriceStore) historyKey(symbol string) string {
	return fmt.Sprintf("%sprice:history:%s", s.keyPrefix, symbol)
}

// Record 记录一次价格
func (s *PriceStore) Record(ctx context.Context, symbol string, price float64) error {
	value := strconv.FormatFloat(price, 'f', -1, 64)

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.latestKey(symbol), value, 0)
	pipe.LPush(ctx, s.historyKey(symbol), value)
	pipe.LTrim(ctx, s.historyKey(symbol), 0, int64(s.historySize-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入价格失败: %w", err)
	}
	return nil
}

// Latest 最新价格，没有记录时返回false
func (s *PriceStore) Latest(ctx context.Context, symbol string) (float64, bool, error) {
	value, err := s.client.Get(ctx, s.latestKey(symbol)).Float64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("读取最新价格失败: %w", err)
	}
	return value, true, nil
}

// Recent 最近n个价格，按时间从旧到新排列
func (s *PriceStore) Recent(ctx context.Context, symbol string, n int) ([]float64, error) {
	if n <= 0 {
		return nil, nil
	}
	values, err := s.client.LRange(ctx, s.historyKey(symbol), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("读取价格序列失败: %w", err)
	}
	return parsePrices(values), nil
}

// parsePrices 列表头部是最新价格，反转为时间正序并跳过无法解析的值
func parsePrices(values []string) []float64 {
	prices := make([]float64, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		price, err := strconv.ParseFloat(values[i], 64)
		if err != nil {
			continue
		}
		prices = append(prices, price)
	}
	return prices
}
