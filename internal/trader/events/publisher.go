package events

import (
	"context"
	"encoding/json"
	"time"

	goRedis "github.com/redis/go-redis/v9"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/pkg/common"
	"golang-stock-trader/pkg/logger"
	"golang-stock-trader/pkg/redis"
)

// Publisher emits decision-core events onto Redis streams so downstream
// consumers (dashboards, notifiers) can follow the session without touching
// the core. A nil *Publisher is a no-op, which keeps the core runnable
// without Redis.
type Publisher struct {
	client       *redis.Client
	log          *logger.Logger
	streamMaxLen int64
}

func NewPublisher(client *redis.Client, streamMaxLen int64, log *logger.Logger) *Publisher {
	return &Publisher{client: client, log: log, streamMaxLen: streamMaxLen}
}

// TradeExecutedEvent is the payload published after a fill is journaled.
type TradeExecutedEvent struct {
	StockCode   string           `json:"stock_code"`
	StockName   string           `json:"stock_name,omitempty"`
	Side        entity.OrderSide `json:"side"`
	Quantity    int              `json:"quantity"`
	Price       float64          `json:"price"`
	RealizedPnL float64          `json:"realized_pnl,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	OrderID     string           `json:"order_id,omitempty"`
	ExecutedAt  time.Time        `json:"executed_at"`
}

// OrderRejectedEvent is the payload published when admission or the venue
// refuses an order.
type OrderRejectedEvent struct {
	StockCode  string    `json:"stock_code"`
	Side       string    `json:"side"`
	ErrorCode  string    `json:"error_code"`
	Message    string    `json:"message,omitempty"`
	Attempts   int       `json:"attempts"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublishTradeExecuted emits a trade fill onto the trade.executed stream.
func (p *Publisher) PublishTradeExecuted(ctx context.Context, event TradeExecutedEvent) {
	p.publish(ctx, common.RedisStreamTradeExecuted, event)
}

// PublishSurgeDetected emits a surge detection onto the surge.detected stream.
func (p *Publisher) PublishSurgeDetected(ctx context.Context, event entity.SurgeEvent) {
	p.publish(ctx, common.RedisStreamSurgeDetected, event)
}

// PublishOrderRejected emits a rejection onto the order.rejected stream.
func (p *Publisher) PublishOrderRejected(ctx context.Context, event OrderRejectedEvent) {
	p.publish(ctx, common.RedisStreamOrderRejected, event)
}

func (p *Publisher) publish(ctx context.Context, stream string, event any) {
	if p == nil || p.client == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if p.log != nil {
			p.log.Error("Failed to marshal stream event", logger.ErrorField(err), logger.StringField("stream", stream))
		}
		return
	}
	if err := p.client.XAdd(ctx, &goRedis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: p.streamMaxLen, // Limit the stream size
	}).Err(); err != nil {
		if p.log != nil {
			p.log.Error("Failed to publish stream event", logger.ErrorField(err), logger.StringField("stream", stream))
		}
	}
}
