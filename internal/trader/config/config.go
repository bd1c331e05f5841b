package config

import (
	"fmt"
	"time"

	"golang-stock-trader/pkg/config"
)

// Consensus holds the voter set and quorum configuration.
type Consensus struct {
	Quorum        int  `mapstructure:"quorum"`
	MinSamples    int  `mapstructure:"min_samples"`
	EnableMACross bool `mapstructure:"enable_ma_cross"`
	EnableRSI     bool `mapstructure:"enable_rsi"`
	EnableMACD    bool `mapstructure:"enable_macd"`

	MAShortPeriod int     `mapstructure:"ma_short_period"`
	MALongPeriod  int     `mapstructure:"ma_long_period"`
	RSIPeriod     int     `mapstructure:"rsi_period"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	MACDFast      int     `mapstructure:"macd_fast"`
	MACDSlow      int     `mapstructure:"macd_slow"`
	MACDSignal    int     `mapstructure:"macd_signal"`
}

// AverageDown holds averaging-down configuration.
type AverageDown struct {
	Enabled    bool    `mapstructure:"enabled"`
	TriggerPct float64 `mapstructure:"trigger_pct"`
	MaxCount   int     `mapstructure:"max_count"`
	SizeRatio  float64 `mapstructure:"size_ratio"`
}

// Risk holds the position ledger's risk limits.
type Risk struct {
	StopLossPct       float64     `mapstructure:"stop_loss_pct"`
	TakeProfitPct     float64     `mapstructure:"take_profit_pct"`
	MaxStocks         int         `mapstructure:"max_stocks"`
	PositionSizePct   float64     `mapstructure:"position_size_pct"`
	DailyLossLimitPct float64     `mapstructure:"daily_loss_limit_pct"`
	CashFloor         float64     `mapstructure:"cash_floor"`
	AverageDown       AverageDown `mapstructure:"average_down"`
}

// Surge holds the surge detector's thresholds.
type Surge struct {
	MinChangeRate    float64 `mapstructure:"min_change_rate"`
	MinVolumeRatio   float64 `mapstructure:"min_volume_ratio"`
	VolumeWindow     int     `mapstructure:"volume_window"`
	CooldownMinutes  int     `mapstructure:"cooldown_minutes"`
	MinPressureScore int     `mapstructure:"min_pressure_score"`
	PoolSize         int     `mapstructure:"pool_size"`
	EventBuffer      int     `mapstructure:"event_buffer"`
}

// Admission holds the order admission controller's rate and quota limits.
type Admission struct {
	QueryPerSecond         int           `mapstructure:"query_per_second"`
	OrderPerSecond         int           `mapstructure:"order_per_second"`
	DailyOrderQuota        int           `mapstructure:"daily_order_quota"`
	WarningThresholdPct    float64       `mapstructure:"warning_threshold_pct"`
	RestrictedThresholdPct float64       `mapstructure:"restricted_threshold_pct"`
	RetryAttempts          int           `mapstructure:"retry_attempts"`
	RetryBackoff           time.Duration `mapstructure:"retry_backoff"`
}

// Trading holds orchestrator-level settings.
type Trading struct {
	WatchHistorySize int           `mapstructure:"watch_history_size"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	PoolRefreshCron  string        `mapstructure:"pool_refresh_cron"`
	InitialBalance   float64       `mapstructure:"initial_balance"`
}

// Config holds the full configuration for the trading service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	Telegram  config.Telegram `mapstructure:"telegram"`
	Trading   Trading         `mapstructure:"trading"`
	Consensus Consensus       `mapstructure:"consensus"`
	Risk      Risk            `mapstructure:"risk"`
	Surge     Surge           `mapstructure:"surge"`
	Admission Admission       `mapstructure:"admission"`
}

// Load loads the trading service configuration from the given path and fills
// in defaults for every unset option.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills in defaults for every zero-valued option.
func (c *Config) SetDefaults() {
	if c.Consensus.Quorum == 0 {
		c.Consensus.Quorum = 2
	}
	if c.Consensus.MinSamples == 0 {
		c.Consensus.MinSamples = 30
	}
	if !c.Consensus.EnableMACross && !c.Consensus.EnableRSI && !c.Consensus.EnableMACD {
		c.Consensus.EnableMACross = true
		c.Consensus.EnableRSI = true
		c.Consensus.EnableMACD = true
	}
	if c.Consensus.MAShortPeriod == 0 {
		c.Consensus.MAShortPeriod = 5
	}
	if c.Consensus.MALongPeriod == 0 {
		c.Consensus.MALongPeriod = 20
	}
	if c.Consensus.RSIPeriod == 0 {
		c.Consensus.RSIPeriod = 14
	}
	if c.Consensus.RSIOverbought == 0 {
		c.Consensus.RSIOverbought = 70
	}
	if c.Consensus.RSIOversold == 0 {
		c.Consensus.RSIOversold = 30
	}
	if c.Consensus.MACDFast == 0 {
		c.Consensus.MACDFast = 12
	}
	if c.Consensus.MACDSlow == 0 {
		c.Consensus.MACDSlow = 26
	}
	if c.Consensus.MACDSignal == 0 {
		c.Consensus.MACDSignal = 9
	}

	if c.Risk.StopLossPct == 0 {
		c.Risk.StopLossPct = 5
	}
	if c.Risk.TakeProfitPct == 0 {
		c.Risk.TakeProfitPct = 10
	}
	if c.Risk.MaxStocks == 0 {
		c.Risk.MaxStocks = 5
	}
	if c.Risk.PositionSizePct == 0 {
		c.Risk.PositionSizePct = 10
	}
	if c.Risk.DailyLossLimitPct == 0 {
		c.Risk.DailyLossLimitPct = 3
	}
	if c.Risk.AverageDown.TriggerPct == 0 {
		c.Risk.AverageDown.TriggerPct = 5
	}
	if c.Risk.AverageDown.MaxCount == 0 {
		c.Risk.AverageDown.MaxCount = 2
	}
	if c.Risk.AverageDown.SizeRatio == 0 {
		c.Risk.AverageDown.SizeRatio = 0.5
	}

	if c.Surge.MinChangeRate == 0 {
		c.Surge.MinChangeRate = 3
	}
	if c.Surge.MinVolumeRatio == 0 {
		c.Surge.MinVolumeRatio = 3
	}
	if c.Surge.VolumeWindow == 0 {
		c.Surge.VolumeWindow = 10
	}
	if c.Surge.CooldownMinutes == 0 {
		c.Surge.CooldownMinutes = 30
	}
	if c.Surge.MinPressureScore == 0 {
		c.Surge.MinPressureScore = 60
	}
	if c.Surge.PoolSize == 0 {
		c.Surge.PoolSize = 100
	}
	if c.Surge.EventBuffer == 0 {
		c.Surge.EventBuffer = 16
	}

	if c.Admission.QueryPerSecond == 0 {
		c.Admission.QueryPerSecond = 2
	}
	if c.Admission.OrderPerSecond == 0 {
		c.Admission.OrderPerSecond = 3
	}
	if c.Admission.DailyOrderQuota == 0 {
		c.Admission.DailyOrderQuota = 1000
	}
	if c.Admission.WarningThresholdPct == 0 {
		c.Admission.WarningThresholdPct = 80
	}
	if c.Admission.RestrictedThresholdPct == 0 {
		c.Admission.RestrictedThresholdPct = 90
	}
	if c.Admission.RetryAttempts == 0 {
		c.Admission.RetryAttempts = 3
	}
	if c.Admission.RetryBackoff == 0 {
		c.Admission.RetryBackoff = 500 * time.Millisecond
	}

	if c.Trading.WatchHistorySize == 0 {
		c.Trading.WatchHistorySize = 120
	}
	if c.Trading.SweepInterval == 0 {
		c.Trading.SweepInterval = 5 * time.Second
	}
	if c.Trading.PoolRefreshCron == "" {
		c.Trading.PoolRefreshCron = "*/10 9-15 * * 1-5"
	}
}

// Validate rejects configurations that cannot produce sane behavior. A broken
// configuration is a programmer error and fails fast at startup.
func (c *Config) Validate() error {
	voters := 0
	if c.Consensus.EnableMACross {
		voters++
	}
	if c.Consensus.EnableRSI {
		voters++
	}
	if c.Consensus.EnableMACD {
		voters++
	}
	if c.Consensus.Quorum > voters {
		return fmt.Errorf("consensus quorum %d exceeds enabled voter count %d", c.Consensus.Quorum, voters)
	}
	if c.Consensus.MAShortPeriod >= c.Consensus.MALongPeriod {
		return fmt.Errorf("ma_short_period %d must be below ma_long_period %d", c.Consensus.MAShortPeriod, c.Consensus.MALongPeriod)
	}
	if c.Consensus.MACDFast >= c.Consensus.MACDSlow {
		return fmt.Errorf("macd_fast %d must be below macd_slow %d", c.Consensus.MACDFast, c.Consensus.MACDSlow)
	}
	if c.Risk.PositionSizePct <= 0 || c.Risk.PositionSizePct > 100 {
		return fmt.Errorf("position_size_pct %.2f out of range (0, 100]", c.Risk.PositionSizePct)
	}
	if c.Admission.WarningThresholdPct >= c.Admission.RestrictedThresholdPct {
		return fmt.Errorf("warning_threshold_pct %.0f must be below restricted_threshold_pct %.0f",
			c.Admission.WarningThresholdPct, c.Admission.RestrictedThresholdPct)
	}
	return nil
}
