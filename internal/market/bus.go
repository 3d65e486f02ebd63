package market

import (
	"sync"
	"time"
)

// EventKind 行情事件类型
type EventKind string

const (
	KindBook  EventKind = "book"
	KindTrade EventKind = "trade"
	KindMids  EventKind = "mids"
)

// Event 行情事件
type Event interface {
	Kind() EventKind
}

// Level 盘口档位
type Level struct {
	Price  float64
	Size   float64
	Orders int
}

// BookUpdate L2盘口快照
type BookUpdate struct {
	Symbol string
	Bids   []Level
	Asks   []Level
	Time   time.Time
}

// Kind 事件类型
func (BookUpdate) Kind() EventKind { return KindBook }

// TradeUpdate 逐笔成交
type TradeUpdate struct {
	Symbol string
	Side   string // buy/sell
	Price  float64
	Size   float64
	Time   time.Time
}

// Kind 事件类型
func (TradeUpdate) Kind() EventKind { return KindTrade }

// MidsUpdate 全市场中间价
type MidsUpdate struct {
	Prices map[string]float64
	Time   time.Time
}

// Kind 事件类型
func (MidsUpdate) Kind() EventKind { return KindMids }

// Bus 基于channel的轻量发布订阅
type Bus struct {
	mu   sync.RWMutex
	subs map[EventKind][]chan Event
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{subs: make(map[EventKind][]chan Event)}
}

// Subscribe 订阅某类事件，返回事件channel和取消订阅函数
func (b *Bus) Subscribe(kind EventKind, buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	b.subs[kind] = append(b.subs[kind], ch)

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subs[kind]
			for i, c := range subs {
				if c == ch {
					close(c)
					b.subs[kind] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
		})
	}

	return ch, unsub
}

// Publish 非阻塞分发，订阅方处理不过来时丢弃
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e.Kind()] {
		select {
		case ch <- e:
		default:
		}
	}
}
