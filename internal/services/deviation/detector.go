// Package deviation flags transactions that depart from a
// participant's established behavior pattern.
package deviation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
	"KolTrack/internal/services/profile"
	"KolTrack/pkg/logger"
)

// Config holds the detection thresholds.
type Config struct {
	// MinSmallBuy floors the "test buy" threshold in quote units.
	MinSmallBuy float64
	// RecentWindow is how many recent same-asset transactions the
	// sequence heuristics look back over.
	RecentWindow int
	// TypicalSizeTolerance is the absolute tolerance when matching a
	// buy against the participant's typical sizes.
	TypicalSizeTolerance float64
	// PatternCacheTTL bounds how long a loaded pattern is reused
	// before re-reading the store.
	PatternCacheTTL time.Duration
}

type cachedPattern struct {
	pattern *models.BehaviorPattern
	exp     time.Time
}

// Detector evaluates independent heuristics against an incoming
// transaction. The transaction is expected to be checked before it is
// recorded, so history reads reflect state as of just before it.
type Detector struct {
	store    domrepo.Store
	profiler *profile.Profiler
	metrics  domrepo.Metrics
	log      *logger.Logger
	cfg      Config

	mu    sync.RWMutex
	cache map[string]cachedPattern
}

func New(store domrepo.Store, profiler *profile.Profiler, metrics domrepo.Metrics, log *logger.Logger, cfg Config) *Detector {
	if cfg.MinSmallBuy <= 0 {
		cfg.MinSmallBuy = 1
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 20
	}
	if cfg.TypicalSizeTolerance <= 0 {
		cfg.TypicalSizeTolerance = 1
	}
	if cfg.PatternCacheTTL <= 0 {
		cfg.PatternCacheTTL = time.Minute
	}
	return &Detector{
		store:    store,
		profiler: profiler,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
		cache:    make(map[string]cachedPattern),
	}
}

func (d *Detector) pattern(ctx context.Context, participant string) (*models.BehaviorPattern, error) {
	d.mu.RLock()
	c, ok := d.cache[participant]
	d.mu.RUnlock()
	if ok && time.Now().Before(c.exp) {
		return c.pattern, nil
	}

	p, err := d.store.GetBehaviorPattern(ctx, participant)
	if err != nil {
		return nil, err
	}
	if p != nil {
		d.mu.Lock()
		d.cache[participant] = cachedPattern{pattern: p, exp: time.Now().Add(d.cfg.PatternCacheTTL)}
		d.mu.Unlock()
	}
	return p, nil
}

// InvalidatePattern drops the cached pattern so the next check reads
// the freshly rebuilt one.
func (d *Detector) InvalidatePattern(participant string) {
	d.mu.Lock()
	delete(d.cache, participant)
	d.mu.Unlock()
}

// CheckDeviation evaluates all heuristics for an incoming transaction.
// Cold start: a participant with no pattern gets a rebuild triggered
// and no signals; the first observation is never itself anomalous.
// Multiple signals may fire for one transaction.
func (d *Detector) CheckDeviation(ctx context.Context, participant string, kind models.TxKind, quoteAmount float64, asset string) ([]models.DeviationSignal, error) {
	pattern, err := d.pattern(ctx, participant)
	if err != nil {
		return nil, err
	}
	if pattern == nil {
		if _, err := d.profiler.RebuildProfile(ctx, participant); err != nil {
			d.log.Warn("cold-start profile rebuild failed",
				logger.String("participant", participant), logger.Error(err))
		}
		return nil, nil
	}

	hist, err := d.store.GetTransactionHistory(ctx, participant, asset, d.cfg.RecentWindow)
	if err != nil {
		return nil, err
	}

	smallThreshold := pattern.AvgBuySize * 0.25
	if smallThreshold < d.cfg.MinSmallBuy {
		smallThreshold = d.cfg.MinSmallBuy
	}
	largeThreshold := 3 * smallThreshold

	var signals []models.DeviationSignal

	if kind == models.TxBuy {
		if quoteAmount > largeThreshold && !hasSmallBuy(hist, smallThreshold) {
			signals = append(signals, models.DeviationSignal{
				Type:     models.SignalLargeBuyNoTest,
				Severity: models.SeverityHigh,
				Message: fmt.Sprintf("large buy of %.2f with no prior test buy under %.2f for %s",
					quoteAmount, smallThreshold, asset),
			})
		}
		if quoteAmount > 0 && quoteAmount < smallThreshold && len(hist) > 0 {
			// Sequence inversion: the small buy must directly follow
			// the large one, so an intervening same-asset event clears
			// it. hist is newest first.
			if prev := hist[0]; prev.Kind == models.TxBuy && prev.QuoteAmount > largeThreshold {
				signals = append(signals, models.DeviationSignal{
					Type:     models.SignalTestAfterLarge,
					Severity: models.SeverityHigh,
					Message: fmt.Sprintf("test buy of %.2f after large buy of %.2f for %s",
						quoteAmount, prev.QuoteAmount, asset),
				})
			}
		}
		if pattern.AvgBuySize > 0 && quoteAmount > 2.5*pattern.AvgBuySize &&
			!withinTypical(quoteAmount, pattern.TypicalBuySizes, d.cfg.TypicalSizeTolerance) {
			signals = append(signals, models.DeviationSignal{
				Type:     models.SignalOversizeBuy,
				Severity: models.SeverityMedium,
				Message: fmt.Sprintf("buy of %.2f exceeds 2.5x average buy size %.2f",
					quoteAmount, pattern.AvgBuySize),
			})
		}
	}

	if kind == models.TxSell && pattern.AvgHoldTime != nil && len(hist) > 0 {
		// hist is newest first; hist[0] is the latest same-asset event.
		if prev := hist[0]; prev.Kind == models.TxBuy {
			hold := time.Since(prev.Timestamp)
			if hold > 3*(*pattern.AvgHoldTime) {
				signals = append(signals, models.DeviationSignal{
					Type:     models.SignalLongHold,
					Severity: models.SeverityMedium,
					Message: fmt.Sprintf("hold of %s exceeds 3x average hold %s for %s",
						hold.Round(time.Second), pattern.AvgHoldTime.Round(time.Second), asset),
				})
			}
		}
	}

	for _, s := range signals {
		d.metrics.RecordSignal(s.Type)
	}
	return signals, nil
}

func hasSmallBuy(hist []*models.Transaction, smallThreshold float64) bool {
	for _, t := range hist {
		if t.Kind == models.TxBuy && t.QuoteAmount > 0 && t.QuoteAmount < smallThreshold {
			return true
		}
	}
	return false
}

func withinTypical(size float64, typical []float64, tolerance float64) bool {
	for _, s := range typical {
		if math.Abs(size-s) <= tolerance {
			return true
		}
	}
	return false
}
