package surge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"golang-stock-trader/internal/entity"
	"golang-stock-trader/internal/trader/config"
	"golang-stock-trader/pkg/logger"
	"golang-stock-trader/pkg/utils"
)

// Detector owns the ranked candidate pool and turns anomalous price/volume
// ticks into surge events. It is the single writer of candidate state.
//
// Detections are delivered over a bounded channel; promoting a detection into
// the watch set is one critical section: the consumer receives the event, does
// its work and calls Release. While a detection is in flight, detections for
// other codes are rejected as busy, which callers treat as a normal outcome to
// retry on a later tick.
type Detector struct {
	mu  sync.Mutex
	cfg config.Surge
	log *logger.Logger

	pool       map[string]*entity.Candidate
	cooldown   *cache.Cache
	processing atomic.Bool
	events     chan entity.SurgeEvent

	totalDetections atomic.Int64
	busyRejections  atomic.Int64
}

// Statistics is a point-in-time snapshot of the detector's state.
type Statistics struct {
	PoolSize        int                `json:"pool_size"`
	TotalDetections int64              `json:"total_detections"`
	BusyRejections  int64              `json:"busy_rejections"`
	Processing      bool               `json:"processing"`
	Candidates      []entity.Candidate `json:"candidates"`
}

// NewDetector creates a surge detector with an empty pool.
func NewDetector(cfg config.Surge, log *logger.Logger) *Detector {
	cooldownTTL := time.Duration(cfg.CooldownMinutes) * time.Minute
	return &Detector{
		cfg:      cfg,
		log:      log,
		pool:     make(map[string]*entity.Candidate),
		cooldown: cache.New(cooldownTTL, cooldownTTL),
		events:   make(chan entity.SurgeEvent, cfg.EventBuffer),
	}
}

// Events returns the channel surge events are delivered on. The consumer must
// call Release once it finishes handling an event.
func (d *Detector) Events() <-chan entity.SurgeEvent {
	return d.events
}

// Release ends the promote-and-buy critical section opened by a detection.
func (d *Detector) Release() {
	d.processing.Store(false)
}

// AdmitPool rebuilds the candidate pool from a ranked list (best first),
// truncating at the configured bound. Rolling state of candidates that remain
// pooled is carried over; everything else is dropped wholesale.
func (d *Detector) AdmitPool(ranked []entity.Candidate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := make(map[string]*entity.Candidate, d.cfg.PoolSize)
	for i := range ranked {
		if len(next) >= d.cfg.PoolSize {
			break
		}
		incoming := ranked[i]
		if prev, ok := d.pool[incoming.StockCode]; ok {
			incoming.VolumeHistory = prev.VolumeHistory
			incoming.CurrentPrice = prev.CurrentPrice
			incoming.ChangeRate = prev.ChangeRate
			incoming.BidVolume = prev.BidVolume
			incoming.AskVolume = prev.AskVolume
			incoming.ExecutionStrength = prev.ExecutionStrength
			incoming.OrderBookSeen = prev.OrderBookSeen
			incoming.LastDetected = prev.LastDetected
		}
		next[incoming.StockCode] = &incoming
	}
	d.pool = next

	if d.log != nil {
		d.log.Info("Candidate pool admitted", logger.IntField("pool_size", len(d.pool)))
	}
}

// OnPriceTick updates a pooled candidate and evaluates the surge condition.
// Ticks for codes outside the pool are ignored.
func (d *Detector) OnPriceTick(code string, price, changeRate float64, volume int64) {
	d.mu.Lock()
	cand, ok := d.pool[code]
	if !ok {
		d.mu.Unlock()
		return
	}

	cand.CurrentPrice = price
	cand.ChangeRate = changeRate

	// The volume ratio compares the tick against the window that preceded it.
	var volumeRatio float64
	windowFull := len(cand.VolumeHistory) >= d.cfg.VolumeWindow
	if windowFull {
		var sum int64
		for _, v := range cand.VolumeHistory {
			sum += v
		}
		avg := float64(sum) / float64(len(cand.VolumeHistory))
		if avg > 0 {
			volumeRatio = float64(volume) / avg
		}
	}

	cand.VolumeHistory = append(cand.VolumeHistory, volume)
	if len(cand.VolumeHistory) > d.cfg.VolumeWindow {
		cand.VolumeHistory = cand.VolumeHistory[len(cand.VolumeHistory)-d.cfg.VolumeWindow:]
	}

	if !windowFull || changeRate < d.cfg.MinChangeRate || volumeRatio < d.cfg.MinVolumeRatio {
		d.mu.Unlock()
		return
	}

	// Once the order book has been observed, weak buying pressure vetoes the surge.
	pressure := PressureScore(cand.BidVolume, cand.AskVolume, cand.ExecutionStrength, changeRate)
	if cand.OrderBookSeen && pressure < d.cfg.MinPressureScore {
		d.mu.Unlock()
		return
	}

	if _, cooling := d.cooldown.Get(code); cooling {
		d.mu.Unlock()
		return
	}

	if !d.processing.CompareAndSwap(false, true) {
		// Another detection is mid-promotion. Rejecting instead of queuing
		// prevents duplicate submissions under burst conditions; the
		// candidate gets another chance on its next tick.
		d.busyRejections.Add(1)
		d.mu.Unlock()
		if d.log != nil {
			d.log.Debug("Surge detection rejected: promotion in flight",
				logger.StringField("stock_code", code))
		}
		return
	}

	now := utils.TimeNowKST()
	cand.LastDetected = now
	d.cooldown.SetDefault(code, now)
	d.totalDetections.Add(1)

	event := entity.SurgeEvent{
		StockCode:     code,
		StockName:     cand.StockName,
		Price:         price,
		ChangeRate:    changeRate,
		VolumeRatio:   volumeRatio,
		PressureScore: pressure,
		DetectedAt:    now,
	}
	d.mu.Unlock()

	select {
	case d.events <- event:
		if d.log != nil {
			d.log.Info("Surge detected",
				logger.StringField("stock_code", code),
				logger.Float64Field("change_rate", changeRate),
				logger.Float64Field("volume_ratio", volumeRatio),
				logger.IntField("pressure_score", pressure))
		}
	default:
		// Nobody is draining events; drop the detection, free the section and
		// undo the cooldown stamp so the candidate is not silenced for a
		// detection that was never delivered.
		d.processing.Store(false)
		d.cooldown.Delete(code)
		d.mu.Lock()
		if cand, ok := d.pool[code]; ok {
			cand.LastDetected = time.Time{}
		}
		d.mu.Unlock()
		if d.log != nil {
			d.log.Warn("Surge event dropped: event buffer full",
				logger.StringField("stock_code", code))
		}
	}
}

// OnOrderBookTick updates a pooled candidate's order book aggregates. It never
// triggers a detection by itself; it only gates the next price tick.
func (d *Detector) OnOrderBookTick(code string, bidVol, askVol int64, execStrength float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cand, ok := d.pool[code]
	if !ok {
		return
	}
	cand.BidVolume = bidVol
	cand.AskVolume = askVol
	cand.ExecutionStrength = execStrength
	cand.OrderBookSeen = true
}

// Pooled reports whether code currently belongs to the candidate pool.
func (d *Detector) Pooled(code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pool[code]
	return ok
}

// GetStatistics returns a snapshot of the pool and the detection counters.
func (d *Detector) GetStatistics() Statistics {
	d.mu.Lock()
	defer d.mu.Unlock()

	candidates := make([]entity.Candidate, 0, len(d.pool))
	for _, cand := range d.pool {
		copied := *cand
		copied.VolumeHistory = append([]int64(nil), cand.VolumeHistory...)
		candidates = append(candidates, copied)
	}
	return Statistics{
		PoolSize:        len(d.pool),
		TotalDetections: d.totalDetections.Load(),
		BusyRejections:  d.busyRejections.Load(),
		Processing:      d.processing.Load(),
		Candidates:      candidates,
	}
}
