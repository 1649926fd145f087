package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
	"KolTrack/internal/repository"
	"KolTrack/internal/services/deviation"
	"KolTrack/internal/services/ledger"
	"KolTrack/internal/services/performance"
	"KolTrack/internal/services/pnl"
	"KolTrack/internal/services/profile"
	"KolTrack/pkg/logger"
	"KolTrack/pkg/metrics"
)

func newTracker(store domrepo.Store) *Tracker {
	log := logger.Nop()
	m := metrics.Nop{}
	led := ledger.New(store, m, log)
	eng := pnl.New(store)
	prof := profile.New(store, log, 100, 24*time.Hour)
	det := deviation.New(store, prof, m, log, deviation.Config{
		MinSmallBuy:          1,
		RecentWindow:         20,
		TypicalSizeTolerance: 1,
		PatternCacheTTL:      time.Millisecond, // re-read on every check
	})
	agg := performance.NewAggregator(store, log)
	gen := performance.NewGenerator(store, agg, m, log, 2)
	return NewTracker(led, eng, prof, det, agg, gen, m, log)
}

func swap(sig string, kind models.TxKind, assetAmount, quoteAmount float64, at time.Time) *models.Transaction {
	return &models.Transaction{
		Signature:   sig,
		Participant: "wallet1",
		Asset:       "mint1",
		Kind:        kind,
		AssetAmount: assetAmount,
		QuoteAmount: quoteAmount,
		Price:       quoteAmount / assetAmount,
		Timestamp:   at,
	}
}

func TestRecordTransactionEndToEnd(t *testing.T) {
	store := repository.NewMemoryStore()
	tr := newTracker(store)
	ctx := context.Background()
	t0 := time.Now().UTC().Add(-4 * time.Hour)

	txs := []*models.Transaction{
		swap("s1", models.TxBuy, 10, 100, t0),
		swap("s2", models.TxBuy, 10, 110, t0.Add(time.Hour)),
		swap("s3", models.TxSell, 6, 90, t0.Add(2*time.Hour)),
	}
	for _, tx := range txs {
		if _, err := tr.RecordTransaction(ctx, tx); err != nil {
			t.Fatalf("record %s: %v", tx.Signature, err)
		}
	}

	b, err := tr.GetBalance(ctx, "wallet1", "mint1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Quantity != 14 {
		t.Fatalf("quantity = %v, want 14", b.Quantity)
	}

	res, err := tr.ComputeRealizedPnL(ctx, "wallet1", "mint1")
	if err != nil {
		t.Fatalf("pnl: %v", err)
	}
	// 6 of the first 10-unit lot at basis 100: matched cost 60.
	if res.RealizedPnL != 30 {
		t.Fatalf("pnl = %v, want 30", res.RealizedPnL)
	}

	snap, err := tr.ComputePerformance(ctx, "wallet1", 24)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if snap == nil || snap.TotalPnL != 30 {
		t.Fatalf("snapshot pnl mismatch: %+v", snap)
	}
}

func TestRecordTransactionDuplicateConflict(t *testing.T) {
	store := repository.NewMemoryStore()
	tr := newTracker(store)
	ctx := context.Background()
	at := time.Now().UTC().Add(-time.Hour)

	if _, err := tr.RecordTransaction(ctx, swap("s1", models.TxBuy, 10, 100, at)); err != nil {
		t.Fatalf("record: %v", err)
	}
	_, err := tr.RecordTransaction(ctx, swap("s1", models.TxBuy, 20, 100, at))
	if !errors.Is(err, domrepo.ErrDuplicateTransaction) {
		t.Fatalf("want ErrDuplicateTransaction, got %v", err)
	}
}

func TestRecordTransactionChecksBeforeRecording(t *testing.T) {
	store := repository.NewMemoryStore()
	tr := newTracker(store)
	ctx := context.Background()
	t0 := time.Now().UTC().Add(-3 * time.Hour)

	// Establish a pattern: ten routine buys of ~100.
	for i := 0; i < 10; i++ {
		sig := fmt.Sprintf("warm%d", i)
		if _, err := tr.RecordTransaction(ctx, swap(sig, models.TxBuy, 1, 100, t0.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := tr.RebuildProfile(ctx, "wallet1"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	// Small threshold is 25, large 75; every prior buy is 100 so there
	// is no small test buy on record. An incoming large buy must flag.
	signals, err := tr.RecordTransaction(ctx, swap("big", models.TxBuy, 1, 80, time.Now().UTC()))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	found := false
	for _, s := range signals {
		if s.Type == models.SignalLargeBuyNoTest {
			found = true
		}
	}
	if !found {
		t.Fatalf("want %s, got %v", models.SignalLargeBuyNoTest, signals)
	}
}

func TestRebuildProfileInvalidatesDetectorCache(t *testing.T) {
	store := repository.NewMemoryStore()
	tr := newTracker(store)
	ctx := context.Background()
	t0 := time.Now().UTC().Add(-2 * time.Hour)

	if _, err := tr.RecordTransaction(ctx, swap("s1", models.TxBuy, 1, 100, t0)); err != nil {
		t.Fatalf("record: %v", err)
	}

	pattern, err := tr.RebuildProfile(ctx, "wallet1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if pattern == nil || pattern.AvgBuySize != 100 {
		t.Fatalf("pattern = %+v, want avg buy 100", pattern)
	}

	got, err := tr.GetProfile(ctx, "wallet1")
	if err != nil || got == nil {
		t.Fatalf("profile not stored: %v %v", got, err)
	}
}

func TestGenerateAndGetLeaderboard(t *testing.T) {
	store := repository.NewMemoryStore()
	tr := newTracker(store)
	ctx := context.Background()
	t0 := time.Now().UTC().Add(-2 * time.Hour)

	if _, err := tr.RecordTransaction(ctx, swap("b1", models.TxBuy, 1, 100, t0)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := tr.RecordTransaction(ctx, swap("s1", models.TxSell, 1, 140, t0.Add(time.Hour))); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := tr.GenerateLeaderboard(ctx, 24, 10)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(entries) != 1 || entries[0].TotalPnL != 40 {
		t.Fatalf("entries = %+v, want one with pnl 40", entries)
	}

	got, err := tr.GetLeaderboard(ctx, 24, 10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].Participant != "wallet1" {
		t.Fatalf("stored leaderboard mismatch: %+v", got)
	}
}
