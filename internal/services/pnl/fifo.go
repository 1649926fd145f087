// Package pnl computes realized profit and loss with FIFO lot matching.
package pnl

import (
	"context"
	"sort"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
)

// lot is an open buy with its unconsumed quantity and cost basis.
type lot struct {
	quantity  float64
	costBasis float64
}

// Engine loads a pair's history and matches sells against buy lots
// oldest-first. It keeps no state between calls: every computation runs
// from scratch over the transaction set, so the result depends only on
// that set.
type Engine struct {
	store domrepo.Store
}

func New(store domrepo.Store) *Engine {
	return &Engine{store: store}
}

// ComputeRealizedPnL runs FIFO matching over the complete history of
// one (participant, asset) pair. Returns nil when the pair has no
// transactions.
func (e *Engine) ComputeRealizedPnL(ctx context.Context, participant, asset string) (*models.PnLResult, error) {
	txs, err := e.store.GetTransactionHistory(ctx, participant, asset, 0)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	res := Compute(txs)
	res.Participant = participant
	res.Asset = asset
	return res, nil
}

// Compute runs FIFO lot matching over the given transactions. Input
// order does not matter; transactions are ordered by ascending
// timestamp (stable on ties) before matching.
//
// A sell exceeding all open lots is matched at zero cost basis for the
// unmatched portion. When buy history is incomplete this under-counts
// cost and overstates gains; that behavior is kept deliberately rather
// than guessing a basis.
func Compute(txs []*models.Transaction) *models.PnLResult {
	ordered := make([]*models.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	res := &models.PnLResult{}
	var lots []lot

	for _, tx := range ordered {
		switch tx.Kind {
		case models.TxBuy:
			if tx.AssetAmount <= 0 {
				continue
			}
			lots = append(lots, lot{quantity: tx.AssetAmount, costBasis: tx.QuoteAmount})
			res.Buys++

		case models.TxSell:
			if tx.AssetAmount <= 0 {
				continue
			}
			proceeds := tx.QuoteAmount
			remaining := tx.AssetAmount
			matched := 0.0

			for remaining > 0 && len(lots) > 0 {
				l := &lots[0]
				if l.quantity <= remaining {
					matched += l.costBasis
					remaining -= l.quantity
					lots = lots[1:]
					continue
				}
				fraction := remaining / l.quantity
				take := l.costBasis * fraction
				matched += take
				l.quantity -= remaining
				l.costBasis -= take
				remaining = 0
			}

			res.RealizedPnL += proceeds - matched
			res.TotalCostBasis += matched
			res.TotalProceeds += proceeds
			res.Sells++
		}
	}

	for _, l := range lots {
		res.RemainingTokens += l.quantity
		res.RemainingCostBasis += l.costBasis
	}
	res.RemainingBuys = len(lots)

	if res.TotalCostBasis > 0 {
		res.RealizedPnLPercentage = res.RealizedPnL / res.TotalCostBasis * 100
	}
	return res
}
