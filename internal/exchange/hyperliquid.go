package exchange

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/models"
)

// KeyResolver 根据代理钱包地址取得签名私钥
type KeyResolver interface {
	PrivateKey(agentWallet string) (string, error)
}

// orderPlacer 单个账户的下单客户端
type orderPlacer interface {
	SetLeverage(symbol string, leverage int) error
	CreateLimitOrder(symbol, side string, size, price float64, params map[string]interface{}) (string, error)
}

// ccxtHyperliquid 基于CCXT的Hyperliquid客户端，签名由CCXT完成
type ccxtHyperliquid struct {
	exchange ccxt.Hyperliquid
}

func newCCXTHyperliquid(walletAddress, privateKey string) orderPlacer {
	return &ccxtHyperliquid{
		exchange: ccxt.NewHyperliquid(map[string]interface{}{
			"walletAddress":   walletAddress,
			"privateKey":      privateKey,
			"enableRateLimit": true,
		}),
	}
}

func (c *ccxtHyperliquid) SetLeverage(symbol string, leverage int) error {
	_, err := c.exchange.SetLeverage(int64(leverage), ccxt.WithSetLeverageSymbol(symbol))
	return err
}

func (c *ccxtHyperliquid) CreateLimitOrder(symbol, side string, size, price float64, params map[string]interface{}) (string, error) {
	order, err := c.exchange.CreateOrder(symbol, "limit", side, size,
		ccxt.WithCreateOrderPrice(price),
		ccxt.WithCreateOrderParams(params),
	)
	if err != nil {
		return "", err
	}
	if order.Id == nil {
		return "", fmt.Errorf("订单ID不存在")
	}
	return *order.Id, nil
}

// HyperliquidVenue 实盘：行情和权益走信息接口，下单走CCXT
type HyperliquidVenue struct {
	info        *InfoClient
	keys        KeyResolver
	fallbackKey string // AGENT_PRIVATE_KEY，单用户部署时使用

	mu        sync.Mutex
	clients   map[string]orderPlacer
	newClient func(walletAddress, privateKey string) orderPlacer

	logger *zap.Logger
}

// NewHyperliquidVenue 创建实盘交易所
func NewHyperliquidVenue(info *InfoClient, keys KeyResolver, fallbackKey string, logger *zap.Logger) *HyperliquidVenue {
	return &HyperliquidVenue{
		info:        info,
		keys:        keys,
		fallbackKey: fallbackKey,
		clients:     make(map[string]orderPlacer),
		newClient:   newCCXTHyperliquid,
		logger:      logger.With(zap.String("component", "hyperliquid_venue")),
	}
}

// Name 交易所实例名称
func (h *HyperliquidVenue) Name() string {
	return ModeLive
}

// AllMids 获取全市场中间价
func (h *HyperliquidVenue) AllMids(ctx context.Context) (*Mids, error) {
	return h.info.AllMids(ctx)
}

// AssetVolumes 获取品种成交额
func (h *HyperliquidVenue) AssetVolumes(ctx context.Context) (map[string]float64, error) {
	return h.info.AssetVolumes(ctx)
}

// GetEquity 获取账户权益
func (h *HyperliquidVenue) GetEquity(ctx context.Context, account *models.Account) (float64, error) {
	address := account.EquityAddress()
	if address == "" {
		return 0, fmt.Errorf("账户%d没有钱包地址", account.ID)
	}
	return h.info.AccountValue(ctx, address)
}

// PlaceOrder 实盘下单：按需设置杠杆，然后挂GTC限价单
// 超时返回ErrOrderOutcomeUnknown，后台继续等待并通过Late送达最终结果
func (h *HyperliquidVenue) PlaceOrder(ctx context.Context, account *models.Account, req *models.OrderRequest) (*OrderResult, error) {
	client, err := h.clientFor(account)
	if err != nil {
		return nil, err
	}

	symbol := formatHyperliquidSymbol(req.Symbol)
	cloid := newClientOrderID()
	done := make(chan placedOrder, 1)

	// CCXT调用不接受context，放到协程中以便遵守超时
	go func() {
		if req.Leverage > 1 {
			if err := client.SetLeverage(symbol, req.Leverage); err != nil {
				done <- placedOrder{err: fmt.Errorf("设置杠杆失败: %w", err)}
				return
			}
		}
		orderID, err := client.CreateLimitOrder(symbol, req.Side, req.Size, req.LimitPrice, map[string]interface{}{
			"timeInForce":   req.TimeInForce,
			"reduceOnly":    req.ReduceOnly,
			"clientOrderId": cloid,
		})
		done <- placedOrder{orderID: orderID, err: err}
	}()

	select {
	case res := <-done:
		return h.orderResult(account, req, cloid, res)
	case <-ctx.Done():
	}

	h.logger.Warn("下单超时，继续等待交易所结果",
		zap.Int64("account_id", account.ID),
		zap.String("symbol", req.Symbol),
		zap.String("client_order_id", cloid))

	late := make(chan *OrderResult, 1)
	go func() {
		result, _ := h.orderResult(account, req, cloid, <-done)
		late <- result
	}()
	return &OrderResult{ClientOrderID: cloid, Reason: "timeout", Late: late},
		fmt.Errorf("%w: %w", ErrOrderOutcomeUnknown, ctx.Err())
}

type placedOrder struct {
	orderID string
	err     error
}

func (h *HyperliquidVenue) orderResult(account *models.Account, req *models.OrderRequest, cloid string, res placedOrder) (*OrderResult, error) {
	if res.err != nil {
		h.logger.Error("实盘下单失败",
			zap.Int64("account_id", account.ID),
			zap.String("symbol", req.Symbol),
			zap.String("client_order_id", cloid),
			zap.Error(res.err))
		return &OrderResult{Accepted: false, ClientOrderID: cloid, Reason: res.err.Error()},
			fmt.Errorf("%w: %v", ErrOrderRejected, res.err)
	}
	h.logger.Info("实盘下单成功",
		zap.Int64("account_id", account.ID),
		zap.String("symbol", req.Symbol),
		zap.String("side", req.Side),
		zap.Float64("size", req.Size),
		zap.String("order_id", res.orderID),
		zap.String("client_order_id", cloid))
	return &OrderResult{Accepted: true, OrderID: res.orderID, ClientOrderID: cloid}, nil
}

// newClientOrderID Hyperliquid的cloid为128位十六进制
func newClientOrderID() string {
	id := uuid.New()
	return "0x" + hex.EncodeToString(id[:])
}

// clientFor 取得账户的下单客户端，按代理钱包缓存
func (h *HyperliquidVenue) clientFor(account *models.Account) (orderPlacer, error) {
	cacheKey := account.AgentWallet
	if cacheKey == "" {
		cacheKey = account.WalletAddress
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[cacheKey]; ok {
		return client, nil
	}

	key, err := h.resolveKey(account)
	if err != nil {
		return nil, err
	}

	client := h.newClient(account.WalletAddress, key)
	h.clients[cacheKey] = client
	return client, nil
}

func (h *HyperliquidVenue) resolveKey(account *models.Account) (string, error) {
	if h.keys != nil && account.AgentWallet != "" {
		key, err := h.keys.PrivateKey(account.AgentWallet)
		if err == nil {
			return key, nil
		}
		h.logger.Warn("密钥存储中没有代理钱包私钥",
			zap.Int64("account_id", account.ID),
			zap.String("agent_wallet", account.AgentWallet),
			zap.Error(err))
	}
	if h.fallbackKey == "" {
		return "", fmt.Errorf("账户%d没有可用的代理钱包私钥", account.ID)
	}
	return h.fallbackKey, nil
}

// formatHyperliquidSymbol BTC -> BTC/USDC:USDC (CCXT永续合约格式)
func formatHyperliquidSymbol(symbol string) string {
	if strings.Contains(symbol, "/") {
		return symbol
	}
	return strings.ToUpper(symbol) + "/USDC:USDC"
}
