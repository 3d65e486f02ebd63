package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

// FeedOptions 行情推送参数
type FeedOptions struct {
	URL            string
	PingInterval   time.Duration
	ReconnectDelay time.Duration
	ReadTimeout    time.Duration // 为0时取两倍心跳间隔
}

// HyperliquidFeed Hyperliquid行情推送，断线后固定间隔重连
type HyperliquidFeed struct {
	opts   FeedOptions
	bus    *Bus
	logger *zap.Logger
	dialer *websocket.Dialer

	mu        sync.Mutex
	isRunning bool
	symbols   []string
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	connected atomic.Bool
	writeMu   sync.Mutex
}

// NewHyperliquidFeed 创建行情推送
func NewHyperliquidFeed(opts FeedOptions, bus *Bus, logger *zap.Logger) *HyperliquidFeed {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 50 * time.Second
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 2 * opts.PingInterval
	}

	return &HyperliquidFeed{
		opts:   opts,
		bus:    bus,
		logger: logger.With(zap.String("component", "market_feed")),
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
	}
}

// Start 在后台建立连接并订阅，连接失败不会返回错误而是按间隔重试
func (f *HyperliquidFeed) Start(ctx context.Context, symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isRunning {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.symbols = append([]string(nil), symbols...)
	f.isRunning = true

	f.wg.Add(1)
	go f.run(runCtx)

	f.logger.Info("行情推送已启动", zap.String("url", f.opts.URL), zap.Int("symbols", len(symbols)))
	return nil
}

// Stop 关闭连接并停止重连
func (f *HyperliquidFeed) Stop() {
	f.mu.Lock()
	if !f.isRunning {
		f.mu.Unlock()
		return
	}
	f.isRunning = false
	f.cancel()
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.logger.Info("行情推送已停止")
	case <-time.After(5 * time.Second):
		f.logger.Warn("行情推送停止超时")
	}
}

// Connected 当前是否有可用连接
func (f *HyperliquidFeed) Connected() bool {
	return f.connected.Load()
}

func (f *HyperliquidFeed) run(ctx context.Context) {
	defer f.wg.Done()

	for {
		err := f.session(ctx)
		f.connected.Store(false)

		if ctx.Err() != nil {
			return
		}
		f.logger.Warn("行情连接断开，准备重连", zap.Error(err), zap.Duration("delay", f.opts.ReconnectDelay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.opts.ReconnectDelay):
		}
	}
}

// session 维持一次连接直到出错或被取消
func (f *HyperliquidFeed) session(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("连接行情服务失败: %w", err)
	}

	connCtx, cancel := context.WithCancel(ctx)
	var closeWg sync.WaitGroup
	defer closeWg.Wait()
	defer cancel()

	// 取消时关闭连接，让阻塞的读取返回
	closeWg.Add(1)
	go func() {
		defer closeWg.Done()
		<-connCtx.Done()
		conn.Close()
	}()

	if err := f.subscribe(conn); err != nil {
		return err
	}
	f.connected.Store(true)
	f.logger.Info("行情连接已建立")

	closeWg.Add(1)
	go func() {
		defer closeWg.Done()
		f.pingLoop(connCtx, conn, cancel)
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(f.opts.ReadTimeout)); err != nil {
			return fmt.Errorf("设置读取超时失败: %w", err)
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("读取行情失败: %w", err)
		}
		if err := f.handleMessage(message); err != nil {
			f.logger.Debug("解析行情消息失败", zap.Error(err))
		}
	}
}

func (f *HyperliquidFeed) subscribe(conn *websocket.Conn) error {
	subs := []map[string]string{{"type": "allMids"}}
	for _, symbol := range f.symbols {
		subs = append(subs,
			map[string]string{"type": "l2Book", "coin": symbol},
			map[string]string{"type": "trades", "coin": symbol},
		)
	}

	for _, sub := range subs {
		msg := map[string]interface{}{"method": "subscribe", "subscription": sub}
		if err := f.writeJSON(conn, msg); err != nil {
			return fmt.Errorf("发送订阅失败: %w", err)
		}
	}
	return nil
}

func (f *HyperliquidFeed) pingLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	ticker := time.NewTicker(f.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeJSON(conn, map[string]string{"method": "ping"}); err != nil {
				f.logger.Warn("发送心跳失败", zap.Error(err))
				cancel()
				return
			}
		}
	}
}

func (f *HyperliquidFeed) writeJSON(conn *websocket.Conn, v interface{}) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type wsLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

type wsBook struct {
	Coin   string      `json:"coin"`
	Time   int64       `json:"time"`
	Levels [][]wsLevel `json:"levels"`
}

type wsTrade struct {
	Coin string `json:"coin"`
	Side string `json:"side"` // B买 A卖
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Time int64  `json:"time"`
}

// handleMessage 按channel解析为具体事件并发布
func (f *HyperliquidFeed) handleMessage(raw []byte) error {
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}

	switch env.Channel {
	case "allMids":
		var data struct {
			Mids map[string]string `json:"mids"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return err
		}
		prices := make(map[string]float64, len(data.Mids))
		for symbol, value := range data.Mids {
			if strings.HasPrefix(symbol, "@") {
				continue
			}
			if price, err := strconv.ParseFloat(value, 64); err == nil {
				prices[symbol] = price
			}
		}
		f.bus.Publish(MidsUpdate{Prices: prices, Time: time.Now()})

	case "l2Book":
		var book wsBook
		if err := json.Unmarshal(env.Data, &book); err != nil {
			return err
		}
		update := BookUpdate{Symbol: book.Coin, Time: time.UnixMilli(book.Time)}
		if len(book.Levels) > 0 {
			update.Bids = parseLevels(book.Levels[0])
		}
		if len(book.Levels) > 1 {
			update.Asks = parseLevels(book.Levels[1])
		}
		f.bus.Publish(update)

	case "trades":
		var trades []wsTrade
		if err := json.Unmarshal(env.Data, &trades); err != nil {
			return err
		}
		for _, t := range trades {
			price, _ := strconv.ParseFloat(t.Px, 64)
			size, _ := strconv.ParseFloat(t.Sz, 64)
			side := "sell"
			if t.Side == "B" {
				side = "buy"
			}
			f.bus.Publish(TradeUpdate{Symbol: t.Coin, Side: side, Price: price, Size: size, Time: time.UnixMilli(t.Time)})
		}

	case "pong", "subscriptionResponse":
	default:
		f.logger.Debug("忽略未知行情消息", zap.String("channel", env.Channel))
	}
	return nil
}

func parseLevels(levels []wsLevel) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		price, err := strconv.ParseFloat(l.Px, 64)
		if err != nil {
			continue
		}
		size, _ := strconv.ParseFloat(l.Sz, 64)
		out = append(out, Level{Price: price, Size: size, Orders: l.N})
	}
	return out
}
