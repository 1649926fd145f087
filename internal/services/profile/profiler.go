// Package profile derives per-participant behavior patterns from recent
// transaction history.
package profile

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
	"KolTrack/pkg/logger"
)

const typicalSizeCount = 5

// Profiler rebuilds behavior patterns wholesale from the most recent
// transactions. Concurrent rebuilds for one participant collapse to a
// single in-flight computation.
type Profiler struct {
	store         domrepo.Store
	log           *logger.Logger
	group         singleflight.Group
	historyLimit  int
	maxHoldSample time.Duration
}

func New(store domrepo.Store, log *logger.Logger, historyLimit int, maxHoldSample time.Duration) *Profiler {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	if maxHoldSample <= 0 {
		maxHoldSample = 24 * time.Hour
	}
	return &Profiler{
		store:         store,
		log:           log,
		historyLimit:  historyLimit,
		maxHoldSample: maxHoldSample,
	}
}

// RebuildProfile recomputes and stores the participant's pattern,
// overwriting any prior value. Returns nil when the participant has no
// transaction history.
func (p *Profiler) RebuildProfile(ctx context.Context, participant string) (*models.BehaviorPattern, error) {
	v, err, _ := p.group.Do(participant, func() (interface{}, error) {
		return p.rebuild(ctx, participant)
	})
	if err != nil {
		return nil, err
	}
	pattern, _ := v.(*models.BehaviorPattern)
	return pattern, nil
}

// Profile returns the stored pattern, or nil when none exists yet.
func (p *Profiler) Profile(ctx context.Context, participant string) (*models.BehaviorPattern, error) {
	return p.store.GetBehaviorPattern(ctx, participant)
}

func (p *Profiler) rebuild(ctx context.Context, participant string) (*models.BehaviorPattern, error) {
	txs, err := p.store.GetTransactionHistory(ctx, participant, "", p.historyLimit)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}

	var buySizes, sellSizes []float64
	buyCount, sellCount := 0, 0
	for _, tx := range txs {
		switch tx.Kind {
		case models.TxBuy:
			buyCount++
			if tx.QuoteAmount > 0 {
				buySizes = append(buySizes, tx.QuoteAmount)
			}
		case models.TxSell:
			sellCount++
			if tx.QuoteAmount > 0 {
				sellSizes = append(sellSizes, tx.QuoteAmount)
			}
		}
	}

	pattern := &models.BehaviorPattern{
		Participant:      participant,
		AvgBuySize:       mean(buySizes),
		AvgSellSize:      mean(sellSizes),
		TypicalBuySizes:  typicalSizes(buySizes),
		TypicalSellSizes: typicalSizes(sellSizes),
		BuyCount:         buyCount,
		SellCount:        sellCount,
		LastUpdated:      time.Now().UTC(),
	}

	samples := HoldTimes(txs, p.maxHoldSample)
	if len(samples) > 0 {
		var sum time.Duration
		pattern.MinHoldTime = samples[0]
		pattern.MaxHoldTime = samples[0]
		for _, d := range samples {
			sum += d
			if d < pattern.MinHoldTime {
				pattern.MinHoldTime = d
			}
			if d > pattern.MaxHoldTime {
				pattern.MaxHoldTime = d
			}
		}
		avg := sum / time.Duration(len(samples))
		pattern.AvgHoldTime = &avg
	}

	if err := p.store.UpsertBehaviorPattern(ctx, pattern); err != nil {
		return nil, err
	}
	p.log.Debug("behavior pattern rebuilt",
		logger.String("participant", participant),
		logger.Int("buys", buyCount),
		logger.Int("sells", sellCount),
	)
	return pattern, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// typicalSizes picks the top-5 most frequent sizes after rounding to
// two decimals. A mode-frequency histogram, not clustering; ties go to
// the smaller size for determinism.
func typicalSizes(sizes []float64) []float64 {
	if len(sizes) == 0 {
		return nil
	}
	freq := make(map[float64]int)
	for _, s := range sizes {
		bucket := math.Round(s*100) / 100
		freq[bucket]++
	}
	buckets := make([]float64, 0, len(freq))
	for b := range freq {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if freq[buckets[i]] != freq[buckets[j]] {
			return freq[buckets[i]] > freq[buckets[j]]
		}
		return buckets[i] < buckets[j]
	})
	if len(buckets) > typicalSizeCount {
		buckets = buckets[:typicalSizeCount]
	}
	return buckets
}

// HoldTimes pairs each sell with the immediately preceding same-asset
// transaction when that transaction is a buy. Durations outside
// (0, maxSample] are discarded as outliers.
func HoldTimes(txs []*models.Transaction, maxSample time.Duration) []time.Duration {
	ordered := make([]*models.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var samples []time.Duration
	lastByAsset := make(map[string]*models.Transaction)
	for _, tx := range ordered {
		if tx.Kind == models.TxSell {
			if prev, ok := lastByAsset[tx.Asset]; ok && prev.Kind == models.TxBuy {
				d := tx.Timestamp.Sub(prev.Timestamp)
				if d > 0 && d <= maxSample {
					samples = append(samples, d)
				}
			}
		}
		lastByAsset[tx.Asset] = tx
	}
	return samples
}
