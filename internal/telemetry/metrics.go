package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics 业务指标，nil 接收者上的调用均为空操作
type Metrics struct {
	checkouts      metric.Int64Counter
	ordersCreated  metric.Int64Counter
	stockShortfall metric.Int64Counter
	transitions    metric.Int64Counter
}

// NewMetrics 从全局 MeterProvider 创建指标，须在 InitMeterProvider 之后调用
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("card_market")

	checkouts, err := meter.Int64Counter("market_checkouts_total",
		metric.WithDescription("下单请求数，按结果区分"))
	if err != nil {
		return nil, err
	}
	ordersCreated, err := meter.Int64Counter("market_orders_created_total",
		metric.WithDescription("创建的订单数"))
	if err != nil {
		return nil, err
	}
	stockShortfall, err := meter.Int64Counter("market_stock_reservation_failures_total",
		metric.WithDescription("库存预占失败次数"))
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("market_order_transitions_total",
		metric.WithDescription("订单状态流转次数"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		checkouts:      checkouts,
		ordersCreated:  ordersCreated,
		stockShortfall: stockShortfall,
		transitions:    transitions,
	}, nil
}

// RecordCheckout result: ok / validation / insufficient_stock / error / replay
func (m *Metrics) RecordCheckout(ctx context.Context, result string, orders int) {
	if m == nil {
		return
	}
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	if orders > 0 {
		m.ordersCreated.Add(ctx, int64(orders))
	}
}

// RecordStockShortfall 记录一次预占失败
func (m *Metrics) RecordStockShortfall(ctx context.Context, productID int64) {
	if m == nil {
		return
	}
	m.stockShortfall.Add(ctx, 1, metric.WithAttributes(attribute.Int64("product_id", productID)))
}

// RecordTransition 记录订单状态流转
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
