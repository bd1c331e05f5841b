package common

const (
	RedisStreamTradeExecuted = "trade.executed"
	RedisStreamSurgeDetected = "surge.detected"
	RedisStreamOrderRejected = "order.rejected"
)
