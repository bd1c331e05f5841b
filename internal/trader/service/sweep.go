package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/pkg/logger"
	"golang-stock-trader/pkg/telegram"
	"golang-stock-trader/pkg/utils"
)

// runSweepLoop drives the periodic position sweep.
func (o *Orchestrator) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.Trading.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.log.Info("Sweep loop stopping")
			return
		case <-ticker.C:
			o.Sweep(ctx)
		}
	}
}

// Sweep walks every open position once: stop-loss first, then take-profit,
// then averaging-down, then the account-level daily loss check. Exits use
// their protected priority so they stay admissible near quota exhaustion.
func (o *Orchestrator) Sweep(ctx context.Context) {
	now := utils.TimeNowKST()
	if o.session != nil && !o.session.IsOpen(now) {
		return
	}
	o.rollSession()

	for _, pos := range o.ledger.OpenPositions() {
		switch {
		case o.ledger.CheckStopLoss(pos.StockCode):
			o.notify(telegram.FormatExitAlertMessage(telegram.StopLoss, pos.StockCode, pos.CurrentPrice, pos.StopLossPrice, now))
			o.exitPosition(ctx, pos.StockCode, pos.CurrentPrice, entity.PriorityStopLoss, "stop loss")
		case o.ledger.CheckTakeProfit(pos.StockCode):
			o.notify(telegram.FormatExitAlertMessage(telegram.TakeProfit, pos.StockCode, pos.CurrentPrice, pos.TakeProfitPrice, now))
			o.exitPosition(ctx, pos.StockCode, pos.CurrentPrice, entity.PriorityTakeProfit, "take profit")
		case o.ledger.CheckAverageDown(pos.StockCode):
			o.tryAverageDown(ctx, pos)
		}
	}

	if o.ledger.CheckDailyLossLimit() {
		o.notifyDailyHalt(now)
	}
}

// notifyDailyHalt announces the trading halt once per session. Entries are
// already refused by the ledger; this is the operator-facing signal.
func (o *Orchestrator) notifyDailyHalt(now time.Time) {
	o.mu.Lock()
	if o.haltNotified {
		o.mu.Unlock()
		return
	}
	o.haltNotified = true
	o.mu.Unlock()

	o.log.Warn("Daily loss limit reached, new entries suspended")
	o.notify(telegram.FormatDailyLossLimitMessage(o.cfg.Risk.DailyLossLimitPct, now))
}

// runPoolRefreshLoop re-pulls the ranked candidate list on the configured cron
// cadence. The expression is parsed once; a broken expression disables the
// refresh rather than killing the process.
func (o *Orchestrator) runPoolRefreshLoop(ctx context.Context) {
	if o.candidates == nil {
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(o.cfg.Trading.PoolRefreshCron)
	if err != nil {
		o.log.Error("Failed to parse pool refresh cron expression",
			logger.ErrorField(err),
			logger.StringField("expression", o.cfg.Trading.PoolRefreshCron))
		return
	}

	for {
		next := schedule.Next(utils.TimeNowKST())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			o.log.Info("Pool refresh loop stopping")
			return
		case <-timer.C:
			o.RefreshPool(ctx)
		}
	}
}

// RefreshPool replaces the surge detector's candidate pool with the provider's
// current ranking.
func (o *Orchestrator) RefreshPool(ctx context.Context) {
	ranked, err := o.candidates.TopCandidates(ctx, o.cfg.Surge.PoolSize)
	if err != nil {
		o.log.Error("Failed to fetch candidate ranking", logger.ErrorField(err))
		return
	}
	o.detector.AdmitPool(ranked)
}
