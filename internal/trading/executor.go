package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/life2you_mini/cycle/internal/exchange"
	"github.com/life2you_mini/cycle/internal/models"
	"github.com/life2you_mini/cycle/internal/risk"
)

// executeForAccount 单个账户的执行流程：权益 -> 模式 -> 仓位 -> 过滤 -> 下单 -> 记录
// 任何失败只影响当前账户
func (e *Engine) executeForAccount(ctx context.Context, sig *models.TradeSignal, tier risk.Tier, account *models.Account, counters *tickCounters) {
	logger := e.logger.With(zap.String("symbol", sig.Symbol), zap.Int64("account_id", account.ID))
	defer func() {
		if r := recover(); r != nil {
			counters.failed.Add(1)
			logger.Error("账户执行发生panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	equityCtx, cancel := context.WithTimeout(ctx, e.opts.EquityTimeout)
	equity, err := e.deps.Venue.GetEquity(equityCtx, account)
	cancel()
	if err != nil {
		counters.failed.Add(1)
		logger.Warn("查询账户权益失败", zap.Error(err))
		return
	}

	now := e.deps.Clock()
	regime := e.deps.Modes.SelectRegime(equity, now)
	policy := e.deps.Sizer.ComputeSizing(regime, equity)

	if !policy.AllowsSymbol(sig.Symbol) {
		counters.skipped.Add(1)
		logger.Debug("当前模式不允许交易该品种", zap.String("regime", string(regime.Kind)))
		return
	}

	if risk.BelowMinimum(policy.NotionalUSD, e.opts.MinOrderValue) {
		counters.skipped.Add(1)
		logger.Info("订单金额过小，跳过",
			zap.String("regime", string(regime.Kind)),
			zap.Float64("notional", policy.NotionalUSD),
			zap.Float64("min_order_value", e.opts.MinOrderValue))
		return
	}

	order := buildOrder(sig, &policy)
	if order.Size <= 0 {
		counters.skipped.Add(1)
		logger.Warn("下单数量为0，跳过", zap.Float64("entry", sig.Entry))
		return
	}

	confirmations := policy.ConfirmationsRequired
	if confirmations == 0 {
		confirmations = tier.Confirmations
	}
	logger.Info("准备下单",
		zap.String("regime", string(regime.Kind)),
		zap.Float64("equity", equity),
		zap.String("side", order.Side),
		zap.Float64("size", order.Size),
		zap.Float64("price", order.LimitPrice),
		zap.Float64("notional", order.Notional()),
		zap.Int("leverage", order.Leverage),
		zap.Int("confirmations_required", confirmations))

	orderCtx, cancel := context.WithTimeout(ctx, e.opts.OrderTimeout)
	result, err := e.deps.Venue.PlaceOrder(orderCtx, account, order)
	cancel()
	if errors.Is(err, exchange.ErrOrderOutcomeUnknown) {
		result, err = e.awaitLateOrder(result, err, logger)
	}
	if err != nil {
		counters.failed.Add(1)
		if errors.Is(err, exchange.ErrOrderRejected) {
			logger.Warn("订单被拒绝", zap.Error(err))
		} else {
			logger.Error("下单失败", zap.Error(err))
		}
		return
	}
	if result == nil || !result.Accepted {
		counters.failed.Add(1)
		reason := ""
		if result != nil {
			reason = result.Reason
		}
		logger.Warn("订单未被接受", zap.String("reason", reason))
		return
	}
	counters.orders.Add(1)

	tp1, tp2, sl := risk.ResolveExitLevels(sig, &policy)
	record := &models.TradeRecord{
		ID:           uuid.NewString(),
		AccountID:    account.ID,
		Symbol:       sig.Symbol,
		Direction:    directionOf(sig),
		EntryPrice:   order.LimitPrice,
		Size:         order.Size,
		TP1:          tp1,
		TP2:          tp2,
		SL:           sl,
		Status:       models.TradeStatusOpen,
		VenueOrderID: result.OrderID,
		CreatedAt:    now,
	}
	e.persist(ctx, record, counters, logger)
}

// awaitLateOrder 下单超时后继续等待交易所的最终结果，成交的订单同样要留下记录
func (e *Engine) awaitLateOrder(pending *exchange.OrderResult, cause error, logger *zap.Logger) (*exchange.OrderResult, error) {
	if pending == nil || pending.Late == nil {
		return nil, cause
	}
	logger.Warn("下单结果未知，等待交易所最终结果",
		zap.String("client_order_id", pending.ClientOrderID),
		zap.Duration("wait", e.opts.LateOrderTimeout))

	started := time.Now()
	timer := time.NewTimer(e.opts.LateOrderTimeout)
	defer timer.Stop()

	select {
	case result := <-pending.Late:
		// 等待占用账户并发槽位，会拉长本轮耗时
		logger.Info("收到超时订单的最终结果",
			zap.String("client_order_id", pending.ClientOrderID),
			zap.Duration("waited", time.Since(started)),
			zap.Duration("tick_interval", e.opts.TickInterval))
		if result == nil {
			return nil, cause
		}
		if !result.Accepted {
			return result, fmt.Errorf("%w: %s", exchange.ErrOrderRejected, result.Reason)
		}
		return result, nil
	case <-timer.C:
		logger.Error("订单结果仍未知，需要人工对账", zap.String("client_order_id", pending.ClientOrderID))
		return nil, cause
	}
}

// persist 写入交易记录，失败时放入待补写队列
func (e *Engine) persist(ctx context.Context, record *models.TradeRecord, counters *tickCounters, logger *zap.Logger) {
	storeCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	err := e.deps.Store.AppendTradeRecord(storeCtx, record)
	cancel()
	if err == nil {
		logger.Info("交易记录已写入", zap.String("trade_id", record.ID), zap.String("order_id", record.VenueOrderID))
		return
	}

	counters.unpersisted.Add(1)
	logger.Error("写入交易记录失败，放入待补写队列", zap.String("trade_id", record.ID), zap.Error(err))

	pushCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()
	if err := e.deps.Pending.Push(pushCtx, record); err != nil {
		logger.Error("交易记录丢失，需要人工对账",
			zap.String("trade_id", record.ID),
			zap.String("order_id", record.VenueOrderID),
			zap.Float64("size", record.Size),
			zap.Float64("entry_price", record.EntryPrice),
			zap.Error(err))
	}
}

// buildOrder 每个账户单独构造限价单
func buildOrder(sig *models.TradeSignal, policy *models.SizingPolicy) *models.OrderRequest {
	side := models.SideSell
	if sig.IsLong() {
		side = models.SideBuy
	}
	leverage := policy.Leverage
	if leverage < 1 {
		leverage = 1
	}

	return &models.OrderRequest{
		Symbol:      sig.Symbol,
		Side:        side,
		Size:        risk.CalculateOrderSize(policy.NotionalUSD, sig.Entry),
		LimitPrice:  sig.Entry,
		TimeInForce: models.TimeInForceGTC,
		ReduceOnly:  false,
		Leverage:    leverage,
	}
}

func directionOf(sig *models.TradeSignal) string {
	if sig.IsLong() {
		return models.DirectionLong
	}
	return models.DirectionShort
}
