package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrices(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected []float64
	}{
		{name: "空列表", values: nil, expected: []float64{}},
		{name: "反转为时间正序", values: []string{"3", "2", "1"}, expected: []float64{1, 2, 3}},
		{name: "跳过非法值", values: []string{"50000.5", "abc", "49999"}, expected: []float64{49999, 50000.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parsePrices(tt.values))
		})
	}
}

func TestKeys(t *testing.T) {
	prices := NewPriceStore(nil, "cycle:", 0)
	assert.Equal(t, 50, prices.historySize)
	assert.Equal(t, "cycle:price:latest:BTC", prices.latestKey("BTC"))
	assert.Equal(t, "cycle:price:history:BTC", prices.historyKey("BTC"))

	queue := NewPendingQueue(nil, "cycle:")
	assert.Equal(t, "cycle:pending_trades", queue.key())

	lock := NewTickLock(nil, "cycle:", 0)
	assert.Equal(t, "cycle:lock:tick", lock.key)
}
