package usecase

import (
	"context"
	"time"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
	"KolTrack/internal/services/deviation"
	"KolTrack/internal/services/ledger"
	"KolTrack/internal/services/performance"
	"KolTrack/internal/services/pnl"
	"KolTrack/internal/services/profile"
	"KolTrack/pkg/logger"
)

// Tracker is the facade the glue layers (ingestion, API, alerting)
// talk to. It wires the analytics components into the ingestion
// pipeline: deviation check against history as of before the event,
// then ledger update.
type Tracker struct {
	ledger   *ledger.Ledger
	pnl      *pnl.Engine
	profiler *profile.Profiler
	detector *deviation.Detector
	agg      *performance.Aggregator
	gen      *performance.Generator
	metrics  domrepo.Metrics
	log      *logger.Logger
}

func NewTracker(
	ledger *ledger.Ledger,
	pnlEngine *pnl.Engine,
	profiler *profile.Profiler,
	detector *deviation.Detector,
	agg *performance.Aggregator,
	gen *performance.Generator,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *Tracker {
	return &Tracker{
		ledger:   ledger,
		pnl:      pnlEngine,
		profiler: profiler,
		detector: detector,
		agg:      agg,
		gen:      gen,
		metrics:  metrics,
		log:      log,
	}
}

// RecordTransaction runs the deviation check and then records the
// transaction. The check runs first so its sequence heuristics see
// history as of just before this event. A failed check never blocks
// accounting; the transaction is recorded regardless.
func (t *Tracker) RecordTransaction(ctx context.Context, tx *models.Transaction) ([]models.DeviationSignal, error) {
	start := time.Now()

	signals, err := t.detector.CheckDeviation(ctx, tx.Participant, tx.Kind, tx.QuoteAmount, tx.Asset)
	if err != nil {
		t.log.Warn("deviation check failed",
			logger.String("participant", tx.Participant),
			logger.String("asset", tx.Asset),
			logger.Error(err),
		)
		signals = nil
	}

	if err := t.ledger.RecordTransaction(ctx, tx); err != nil {
		return nil, err
	}

	t.metrics.RecordLatency("record_transaction", time.Since(start).Seconds())
	return signals, nil
}

// CheckDeviation evaluates the deviation heuristics without recording
// anything.
func (t *Tracker) CheckDeviation(ctx context.Context, participant string, kind models.TxKind, quoteAmount float64, asset string) ([]models.DeviationSignal, error) {
	return t.detector.CheckDeviation(ctx, participant, kind, quoteAmount, asset)
}

// ComputeRealizedPnL runs FIFO matching for one pair.
func (t *Tracker) ComputeRealizedPnL(ctx context.Context, participant, asset string) (*models.PnLResult, error) {
	start := time.Now()
	res, err := t.pnl.ComputeRealizedPnL(ctx, participant, asset)
	t.metrics.RecordLatency("compute_pnl", time.Since(start).Seconds())
	return res, err
}

// ComputePerformance builds a windowed snapshot for one participant.
func (t *Tracker) ComputePerformance(ctx context.Context, participant string, windowHours int) (*models.PerformanceSnapshot, error) {
	return t.agg.ComputePerformance(ctx, participant, windowHours)
}

// RebuildProfile recomputes a participant's behavior pattern and drops
// the detector's cached copy.
func (t *Tracker) RebuildProfile(ctx context.Context, participant string) (*models.BehaviorPattern, error) {
	pattern, err := t.profiler.RebuildProfile(ctx, participant)
	if err == nil {
		t.detector.InvalidatePattern(participant)
	}
	return pattern, err
}

// GetProfile returns the stored behavior pattern, nil when none exists.
func (t *Tracker) GetProfile(ctx context.Context, participant string) (*models.BehaviorPattern, error) {
	return t.profiler.Profile(ctx, participant)
}

// GenerateLeaderboard ranks participants active in the window.
func (t *Tracker) GenerateLeaderboard(ctx context.Context, windowHours, limit int) ([]*models.LeaderboardEntry, error) {
	return t.gen.GenerateLeaderboard(ctx, windowHours, limit)
}

// GetLeaderboard returns the stored ranking for a window.
func (t *Tracker) GetLeaderboard(ctx context.Context, windowHours, limit int) ([]*models.LeaderboardEntry, error) {
	return t.gen.GetLeaderboard(ctx, windowHours, limit)
}

// GetBalance returns the running balance for a pair, zero-valued when
// the pair was never seen.
func (t *Tracker) GetBalance(ctx context.Context, participant, asset string) (*models.Balance, error) {
	return t.ledger.GetBalance(ctx, participant, asset)
}
