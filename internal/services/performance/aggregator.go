// Package performance aggregates realized results into time-windowed
// snapshots and ranks participants.
package performance

import (
	"context"
	"time"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
	"KolTrack/internal/services/pnl"
	"KolTrack/internal/services/profile"
	"KolTrack/pkg/logger"
)

// Aggregator combines per-asset FIFO results into one snapshot per
// participant and trailing window.
type Aggregator struct {
	store         domrepo.Store
	log           *logger.Logger
	maxHoldSample time.Duration
}

func NewAggregator(store domrepo.Store, log *logger.Logger) *Aggregator {
	return &Aggregator{store: store, log: log, maxHoldSample: 24 * time.Hour}
}

// ComputePerformance gathers the participant's transactions within the
// trailing window, runs FIFO matching per asset, and sums the results
// into a snapshot, which is persisted for (participant, window, day).
// Returns nil when no transactions fall in the window.
func (a *Aggregator) ComputePerformance(ctx context.Context, participant string, windowHours int) (*models.PerformanceSnapshot, error) {
	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	txs, err := a.store.GetTransactionsSince(ctx, participant, since)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}

	byAsset := make(map[string][]*models.Transaction)
	var assetOrder []string
	for _, tx := range txs {
		if _, ok := byAsset[tx.Asset]; !ok {
			assetOrder = append(assetOrder, tx.Asset)
		}
		byAsset[tx.Asset] = append(byAsset[tx.Asset], tx)
	}

	snap := &models.PerformanceSnapshot{
		Participant:        participant,
		WindowHours:        windowHours,
		UniqueAssetsTraded: len(assetOrder),
		ComputedAt:         time.Now().UTC(),
	}

	totalCost := 0.0
	var holdMeans []time.Duration
	for _, asset := range assetOrder {
		res := pnl.Compute(byAsset[asset])
		snap.TotalPnL += res.RealizedPnL
		snap.TotalBuys += res.Buys
		snap.TotalSells += res.Sells
		totalCost += res.TotalCostBasis

		if res.RealizedPnL > 0 {
			snap.ProfitableAssetCount++
			if res.RealizedPnL > snap.LargestWin {
				snap.LargestWin = res.RealizedPnL
			}
		}
		if res.RealizedPnL < 0 {
			snap.LosingAssetCount++
			if res.RealizedPnL < snap.LargestLoss {
				snap.LargestLoss = res.RealizedPnL
			}
		}

		if samples := profile.HoldTimes(byAsset[asset], a.maxHoldSample); len(samples) > 0 {
			var sum time.Duration
			for _, d := range samples {
				sum += d
			}
			holdMeans = append(holdMeans, sum/time.Duration(len(samples)))
		}
	}

	for _, tx := range txs {
		snap.TotalVolume += tx.QuoteAmount
	}

	if denom := snap.ProfitableAssetCount + snap.LosingAssetCount; denom > 0 {
		snap.WinRate = float64(snap.ProfitableAssetCount) / float64(denom) * 100
	}
	if totalCost > 0 {
		snap.TotalPnLPercentage = snap.TotalPnL / totalCost * 100
	}
	if len(holdMeans) > 0 {
		var sum time.Duration
		for _, d := range holdMeans {
			sum += d
		}
		avg := sum / time.Duration(len(holdMeans))
		snap.AvgHoldTime = &avg
	}

	if err := a.store.UpsertPerformanceSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}
