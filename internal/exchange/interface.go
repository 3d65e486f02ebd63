package exchange

import (
	"context"
	"errors"

	"github.com/life2you_mini/cycle/internal/models"
)

// ErrOrderRejected 交易所拒绝订单
var ErrOrderRejected = errors.New("订单被交易所拒绝")

// ErrOrderOutcomeUnknown 下单超时，订单结果未知
var ErrOrderOutcomeUnknown = errors.New("下单结果未知")

// 交易模式
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Mids 全市场中间价，Symbols保持交易所返回的顺序
type Mids struct {
	Symbols []string
	Prices  map[string]float64
}

// OrderResult 下单结果
type OrderResult struct {
	Accepted      bool   `json:"accepted"`
	OrderID       string `json:"order_id,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
	Reason        string `json:"reason,omitempty"`

	// Late 结果未知时交易所的最终结果，只发送一次
	Late <-chan *OrderResult `json:"-"`
}

// Venue 交易所接口，模拟盘和实盘对引擎透明
type Venue interface {
	// Name 交易所实例名称
	Name() string

	// 行情相关
	AllMids(ctx context.Context) (*Mids, error)
	AssetVolumes(ctx context.Context) (map[string]float64, error)

	// 账户相关
	GetEquity(ctx context.Context, account *models.Account) (float64, error)

	// 交易相关
	PlaceOrder(ctx context.Context, account *models.Account, req *models.OrderRequest) (*OrderResult, error)
}
