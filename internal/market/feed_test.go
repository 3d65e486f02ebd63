package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeServer 模拟Hyperliquid推送服务，每个连接发送一次allMids后按需断开
type fakeServer struct {
	server      *httptest.Server
	connections atomic.Int32
	dropAfter   bool

	mu   sync.Mutex
	subs []map[string]interface{}
}

func newFakeServer(t *testing.T, dropAfter bool) *fakeServer {
	fs := &fakeServer{dropAfter: dropAfter}
	upgrader := websocket.Upgrader{}

	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := fs.connections.Add(1)

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]interface{}
			if json.Unmarshal(raw, &msg) != nil {
				continue
			}
			if msg["method"] == "ping" {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"channel":"pong"}`))
				continue
			}

			fs.mu.Lock()
			fs.subs = append(fs.subs, msg)
			fs.mu.Unlock()

			sub, _ := msg["subscription"].(map[string]interface{})
			if sub["type"] == "allMids" {
				price := "50000.0"
				if n > 1 {
					price = "51000.0"
				}
				_ = conn.WriteMessage(websocket.TextMessage,
					[]byte(`{"channel":"allMids","data":{"mids":{"BTC":"`+price+`","@1":"1.0"}}}`))
				if fs.dropAfter && n == 1 {
					return
				}
			}
		}
	}))
	t.Cleanup(fs.server.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.server.URL, "http")
}

func (fs *fakeServer) subscriptions() []map[string]interface{} {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]map[string]interface{}(nil), fs.subs...)
}

func TestHyperliquidFeed_SubscribesAndPublishes(t *testing.T) {
	fs := newFakeServer(t, false)
	bus := NewBus()
	mids, unsub := bus.Subscribe(KindMids, 4)
	defer unsub()

	feed := NewHyperliquidFeed(FeedOptions{URL: fs.url(), PingInterval: 20 * time.Millisecond}, bus, zaptest.NewLogger(t))
	require.NoError(t, feed.Start(context.Background(), []string{"BTC", "ETH"}))
	defer feed.Stop()

	select {
	case ev := <-mids:
		update := ev.(MidsUpdate)
		assert.Equal(t, 50000.0, update.Prices["BTC"])
		_, hasSpot := update.Prices["@1"]
		assert.False(t, hasSpot)
	case <-time.After(2 * time.Second):
		t.Fatal("未收到中间价")
	}

	// allMids 加上每个品种的 l2Book 和 trades
	assert.Eventually(t, func() bool { return len(fs.subscriptions()) == 5 }, time.Second, 10*time.Millisecond)
	assert.True(t, feed.Connected())
}

func TestHyperliquidFeed_ReconnectsAfterDisconnect(t *testing.T) {
	fs := newFakeServer(t, true)
	bus := NewBus()
	mids, unsub := bus.Subscribe(KindMids, 4)
	defer unsub()

	feed := NewHyperliquidFeed(FeedOptions{URL: fs.url(), ReconnectDelay: 50 * time.Millisecond}, bus, zaptest.NewLogger(t))
	require.NoError(t, feed.Start(context.Background(), nil))
	defer feed.Stop()

	var prices []float64
	deadline := time.After(3 * time.Second)
	for len(prices) < 2 {
		select {
		case ev := <-mids:
			prices = append(prices, ev.(MidsUpdate).Prices["BTC"])
		case <-deadline:
			t.Fatalf("未重连，收到价格: %v", prices)
		}
	}
	assert.Equal(t, []float64{50000, 51000}, prices)
	assert.GreaterOrEqual(t, fs.connections.Load(), int32(2))
}

func TestHyperliquidFeed_StopWhileUnreachable(t *testing.T) {
	feed := NewHyperliquidFeed(FeedOptions{URL: "ws://127.0.0.1:1", ReconnectDelay: 10 * time.Millisecond}, NewBus(), zaptest.NewLogger(t))
	require.NoError(t, feed.Start(context.Background(), nil))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, feed.Connected())
	feed.Stop()
}

func TestHandleMessage(t *testing.T) {
	bus := NewBus()
	books, unsubBooks := bus.Subscribe(KindBook, 1)
	defer unsubBooks()
	trades, unsubTrades := bus.Subscribe(KindTrade, 2)
	defer unsubTrades()

	feed := NewHyperliquidFeed(FeedOptions{}, bus, zaptest.NewLogger(t))

	require.NoError(t, feed.handleMessage([]byte(`{"channel":"l2Book","data":{"coin":"BTC","time":1700000000000,
		"levels":[[{"px":"49999","sz":"1.5","n":3}],[{"px":"50001","sz":"2","n":1}]]}}`)))
	book := (<-books).(BookUpdate)
	assert.Equal(t, "BTC", book.Symbol)
	assert.Equal(t, []Level{{Price: 49999, Size: 1.5, Orders: 3}}, book.Bids)
	assert.Equal(t, 50001.0, book.Asks[0].Price)

	require.NoError(t, feed.handleMessage([]byte(`{"channel":"trades","data":[
		{"coin":"ETH","side":"B","px":"3000","sz":"0.1","time":1},
		{"coin":"ETH","side":"A","px":"2999","sz":"0.2","time":2}]}`)))
	first := (<-trades).(TradeUpdate)
	second := (<-trades).(TradeUpdate)
	assert.Equal(t, "buy", first.Side)
	assert.Equal(t, "sell", second.Side)
	assert.Equal(t, 0.2, second.Size)

	assert.NoError(t, feed.handleMessage([]byte(`{"channel":"pong"}`)))
	assert.Error(t, feed.handleMessage([]byte(`not json`)))
}
