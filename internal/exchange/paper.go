package exchange

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/models"
)

// PaperVenue 模拟盘：行情和权益来自真实接口，订单只在本地模拟
type PaperVenue struct {
	info          *InfoClient
	defaultEquity float64 // 账户没有地址时使用的模拟权益
	logger        *zap.Logger
}

// NewPaperVenue 创建模拟盘
func NewPaperVenue(info *InfoClient, defaultEquity float64, logger *zap.Logger) *PaperVenue {
	return &PaperVenue{
		info:          info,
		defaultEquity: defaultEquity,
		logger:        logger.With(zap.String("component", "paper_venue")),
	}
}

// Name 交易所实例名称
func (p *PaperVenue) Name() string {
	return ModePaper
}

// AllMids 获取全市场中间价
func (p *PaperVenue) AllMids(ctx context.Context) (*Mids, error) {
	return p.info.AllMids(ctx)
}

// AssetVolumes 获取品种成交额
func (p *PaperVenue) AssetVolumes(ctx context.Context) (map[string]float64, error) {
	return p.info.AssetVolumes(ctx)
}

// GetEquity 获取账户权益
func (p *PaperVenue) GetEquity(ctx context.Context, account *models.Account) (float64, error) {
	address := account.EquityAddress()
	if address == "" {
		return p.defaultEquity, nil
	}
	return p.info.AccountValue(ctx, address)
}

// PlaceOrder 模拟下单，参数有效即确认
func (p *PaperVenue) PlaceOrder(ctx context.Context, account *models.Account, req *models.OrderRequest) (*OrderResult, error) {
	if req.Size <= 0 || req.LimitPrice <= 0 {
		return &OrderResult{Accepted: false, Reason: fmt.Sprintf("无效订单: size=%v price=%v", req.Size, req.LimitPrice)}, nil
	}

	orderID := "paper_" + uuid.NewString()
	p.logger.Info("[模拟] 下单",
		zap.Int64("account_id", account.ID),
		zap.String("symbol", req.Symbol),
		zap.String("side", req.Side),
		zap.Float64("size", req.Size),
		zap.Float64("price", req.LimitPrice),
		zap.Int("leverage", req.Leverage),
		zap.String("order_id", orderID))

	return &OrderResult{Accepted: true, OrderID: orderID, Reason: "mock_order_placed"}, nil
}
