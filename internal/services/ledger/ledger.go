// Package ledger maintains the immutable transaction record and the
// running balance per (participant, asset) pair.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
	"KolTrack/pkg/logger"
)

// Ledger serializes balance updates per (participant, asset) pair while
// letting distinct pairs proceed in parallel.
type Ledger struct {
	store   domrepo.Store
	metrics domrepo.Metrics
	log     *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store domrepo.Store, metrics domrepo.Metrics, log *logger.Logger) *Ledger {
	return &Ledger{
		store:   store,
		metrics: metrics,
		log:     log,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) pairLock(participant, asset string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := participant + "|" + asset
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

func validate(tx *models.Transaction) error {
	switch {
	case tx == nil:
		return fmt.Errorf("%w: nil", domrepo.ErrInvalidTransaction)
	case tx.Signature == "":
		return fmt.Errorf("%w: empty signature", domrepo.ErrInvalidTransaction)
	case tx.Participant == "":
		return fmt.Errorf("%w: empty participant", domrepo.ErrInvalidTransaction)
	case tx.Asset == "":
		return fmt.Errorf("%w: empty asset", domrepo.ErrInvalidTransaction)
	case tx.Kind != models.TxBuy && tx.Kind != models.TxSell:
		return fmt.Errorf("%w: kind %q", domrepo.ErrInvalidTransaction, tx.Kind)
	case tx.AssetAmount <= 0:
		return fmt.Errorf("%w: asset amount %v", domrepo.ErrInvalidTransaction, tx.AssetAmount)
	case tx.QuoteAmount < 0:
		return fmt.Errorf("%w: quote amount %v", domrepo.ErrInvalidTransaction, tx.QuoteAmount)
	case tx.Timestamp.IsZero():
		return fmt.Errorf("%w: zero timestamp", domrepo.ErrInvalidTransaction)
	}
	return nil
}

// RecordTransaction validates and appends a transaction, then updates
// the pair's balance. Re-submitting an identical signature is a no-op;
// the same signature with different content fails with
// ErrDuplicateTransaction and leaves the balance untouched.
func (l *Ledger) RecordTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := validate(tx); err != nil {
		l.metrics.RecordError("invalid_transaction")
		return err
	}

	// Storage keeps millisecond timestamp precision; normalize here so
	// an identical replay still compares equal after a round trip.
	tx.Timestamp = tx.Timestamp.Truncate(time.Millisecond)

	lk := l.pairLock(tx.Participant, tx.Asset)
	lk.Lock()
	defer lk.Unlock()

	inserted, err := l.store.AppendTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, domrepo.ErrDuplicateTransaction) {
			l.metrics.RecordDuplicate()
		}
		return err
	}
	if !inserted {
		// Identical replay.
		l.metrics.RecordDuplicate()
		return nil
	}

	balance, err := l.store.GetBalance(ctx, tx.Participant, tx.Asset)
	if err != nil {
		return err
	}
	if balance == nil {
		balance = &models.Balance{Participant: tx.Participant, Asset: tx.Asset}
	}

	switch tx.Kind {
	case models.TxBuy:
		balance.Quantity += tx.AssetAmount
		if tx.QuoteAmount > 0 && tx.Price > 0 {
			balance.TotalCostBasis += tx.QuoteAmount
			balance.TotalQuantityBought += tx.AssetAmount
		}
		if balance.FirstBuySignature == "" {
			balance.FirstBuySignature = tx.Signature
			balance.FirstBuyTimestamp = tx.Timestamp
			balance.FirstBuyPrice = tx.Price
		}
	case models.TxSell:
		// Observed history may be incomplete, so sells never drive the
		// quantity negative. Cost basis is left alone: realized PnL is
		// computed by FIFO over the full history, not by decrementing a
		// running basis here.
		balance.Quantity -= tx.AssetAmount
		if balance.Quantity < 0 {
			balance.Quantity = 0
		}
	}
	balance.LastUpdated = time.Now().UTC()

	if err := l.store.UpsertBalance(ctx, balance); err != nil {
		return err
	}

	l.metrics.RecordTransaction(string(tx.Kind))
	l.log.Debug("transaction recorded",
		logger.String("participant", tx.Participant),
		logger.String("asset", tx.Asset),
		logger.String("kind", string(tx.Kind)),
		logger.Float64("quote_amount", tx.QuoteAmount),
	)
	return nil
}

// GetBalance returns the current balance for a pair, or a zero-value
// balance when the pair was never seen. Never fails on absence.
func (l *Ledger) GetBalance(ctx context.Context, participant, asset string) (*models.Balance, error) {
	b, err := l.store.GetBalance(ctx, participant, asset)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &models.Balance{Participant: participant, Asset: asset}, nil
	}
	return b, nil
}
