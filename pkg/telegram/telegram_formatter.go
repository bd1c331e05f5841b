package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/pkg/utils"
)

// AlertType represents the type of alert
type AlertType string

const (
	TakeProfit AlertType = "TAKE_PROFIT"
	StopLoss   AlertType = "STOP_LOSS"
)

// FormatTradeExecutedMessage formats a journaled fill into a Markdown string for Telegram.
func FormatTradeExecutedMessage(trade entity.Trade) string {
	var builder strings.Builder

	emoji := "🟢"
	if trade.Side == entity.OrderSideSell {
		emoji = "🔴"
	}

	builder.WriteString(fmt.Sprintf("%s [%s] *%s %s*\n", emoji, trade.StockCode, trade.Side, trade.StockName))
	builder.WriteString(fmt.Sprintf("💰 %d shares @ %.0f\n", trade.Quantity, trade.Price))
	if trade.Side == entity.OrderSideSell {
		pnlEmoji := "📈"
		if trade.RealizedPnL < 0 {
			pnlEmoji = "📉"
		}
		builder.WriteString(fmt.Sprintf("%s Realized P&L: %.0f\n", pnlEmoji, trade.RealizedPnL))
	}
	if trade.Reason != "" {
		builder.WriteString(fmt.Sprintf("📝 %s\n", trade.Reason))
	}
	builder.WriteString(fmt.Sprintf("%s\n", utils.PrettyDate(trade.ExecutedAt)))
	return builder.String()
}

// FormatExitAlertMessage formats a stop-loss or take-profit trigger into a
// Markdown string for Telegram.
func FormatExitAlertMessage(alertType AlertType, stockCode string, triggerPrice float64, targetPrice float64, at time.Time) string {
	var builder strings.Builder

	var title, emoji string
	switch alertType {
	case TakeProfit:
		title = "Take Profit Triggered!"
		emoji = "🎯"
	case StopLoss:
		title = "Stop Loss Triggered!"
		emoji = "⚠️"
	default:
		title = "Price Alert"
		emoji = "🔔"
	}

	builder.WriteString(fmt.Sprintf("%s [%s] %s\n", emoji, stockCode, title))
	builder.WriteString(fmt.Sprintf("💰 Price hit: %.0f (target: %.0f)\n", triggerPrice, targetPrice))
	builder.WriteString(fmt.Sprintf("%s\n", utils.PrettyDate(at)))
	return builder.String()
}

// FormatSurgeDetectedMessage formats a surge detection into a Markdown string for Telegram.
func FormatSurgeDetectedMessage(event entity.SurgeEvent) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("🚀 [%s] *Surge Detected* %s\n", event.StockCode, event.StockName))
	builder.WriteString(fmt.Sprintf("📈 Change: %.2f%% | Volume: %.1fx\n", event.ChangeRate, event.VolumeRatio))
	builder.WriteString(fmt.Sprintf("💪 Buying pressure: %d/100\n", event.PressureScore))
	builder.WriteString(fmt.Sprintf("💰 Price: %.0f\n", event.Price))
	builder.WriteString(fmt.Sprintf("%s\n", utils.PrettyDate(event.DetectedAt)))
	return builder.String()
}

// FormatDailyLossLimitMessage formats the daily-loss-limit halt notice.
func FormatDailyLossLimitMessage(drawdownPct float64, at time.Time) string {
	return fmt.Sprintf(`🛑 [TRADING HALTED]
📉 Daily drawdown reached %.2f%%
🚫 New entries suspended until the next session
%s
`, drawdownPct, utils.PrettyDate(at))
}

func FormatErrorAlertMessage(at time.Time, errType string, errMsg string, data string) string {
	return fmt.Sprintf(`📛 [ERROR ALERT]
%s
🔧 %s
⚠️ %s

📄 Data: %s
`, utils.PrettyDate(at), errType, errMsg, data)
}
