package profile

import (
	"context"
	"testing"
	"time"

	"KolTrack/internal/domain/models"
	"KolTrack/internal/repository"
	"KolTrack/pkg/logger"
)

func seed(t *testing.T, store *repository.MemoryStore, txs ...*models.Transaction) {
	t.Helper()
	for _, tx := range txs {
		if _, err := store.AppendTransaction(context.Background(), tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func mkTx(sig, asset string, kind models.TxKind, quoteAmount float64, at time.Time) *models.Transaction {
	return &models.Transaction{
		Signature:   sig,
		Participant: "wallet1",
		Asset:       asset,
		Kind:        kind,
		AssetAmount: 1,
		QuoteAmount: quoteAmount,
		Timestamp:   at,
	}
}

func TestRebuildProfileNoHistory(t *testing.T) {
	p := New(repository.NewMemoryStore(), logger.Nop(), 100, 24*time.Hour)

	pattern, err := p.RebuildProfile(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if pattern != nil {
		t.Fatalf("want nil pattern for empty history, got %+v", pattern)
	}
}

func TestRebuildProfileAverages(t *testing.T) {
	store := repository.NewMemoryStore()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, store,
		mkTx("s1", "m1", models.TxBuy, 100, t0),
		mkTx("s2", "m1", models.TxBuy, 200, t0.Add(time.Minute)),
		mkTx("s3", "m1", models.TxSell, 90, t0.Add(2*time.Minute)),
	)

	p := New(store, logger.Nop(), 100, 24*time.Hour)
	pattern, err := p.RebuildProfile(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if pattern.AvgBuySize != 150 {
		t.Fatalf("avg buy size = %v, want 150", pattern.AvgBuySize)
	}
	if pattern.AvgSellSize != 90 {
		t.Fatalf("avg sell size = %v, want 90", pattern.AvgSellSize)
	}
	if pattern.BuyCount != 2 || pattern.SellCount != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", pattern.BuyCount, pattern.SellCount)
	}

	// Rebuild persists the pattern.
	stored, err := store.GetBehaviorPattern(context.Background(), "wallet1")
	if err != nil || stored == nil {
		t.Fatalf("pattern not stored: %v %v", stored, err)
	}
}

func TestRebuildProfileTypicalSizes(t *testing.T) {
	store := repository.NewMemoryStore()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	// 3x size 50, 2x size 100, 1x size 75
	sizes := []float64{50, 100, 50, 75, 100, 50}
	for i, s := range sizes {
		seed(t, store, mkTx(
			"s"+string(rune('a'+i)), "m1", models.TxBuy, s, t0.Add(time.Duration(i)*time.Minute)))
	}

	p := New(store, logger.Nop(), 100, 24*time.Hour)
	pattern, err := p.RebuildProfile(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	want := []float64{50, 100, 75}
	if len(pattern.TypicalBuySizes) != len(want) {
		t.Fatalf("typical sizes = %v, want %v", pattern.TypicalBuySizes, want)
	}
	for i, s := range want {
		if pattern.TypicalBuySizes[i] != s {
			t.Fatalf("typical sizes = %v, want %v", pattern.TypicalBuySizes, want)
		}
	}
}

func TestRebuildProfileHoldTimes(t *testing.T) {
	store := repository.NewMemoryStore()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, store,
		mkTx("s1", "m1", models.TxBuy, 100, t0),
		mkTx("s2", "m1", models.TxSell, 120, t0.Add(2*time.Hour)),
		mkTx("s3", "m2", models.TxBuy, 100, t0.Add(3*time.Hour)),
		mkTx("s4", "m2", models.TxSell, 80, t0.Add(7*time.Hour)),
	)

	p := New(store, logger.Nop(), 100, 24*time.Hour)
	pattern, err := p.RebuildProfile(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if pattern.AvgHoldTime == nil {
		t.Fatal("want hold time samples")
	}
	if *pattern.AvgHoldTime != 3*time.Hour {
		t.Fatalf("avg hold = %v, want 3h", *pattern.AvgHoldTime)
	}
	if pattern.MinHoldTime != 2*time.Hour || pattern.MaxHoldTime != 4*time.Hour {
		t.Fatalf("min/max hold = %v/%v, want 2h/4h", pattern.MinHoldTime, pattern.MaxHoldTime)
	}
}

func TestHoldTimesIgnoresUnpairedSells(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		// sell with no preceding buy
		mkTx("s1", "m1", models.TxSell, 100, t0),
		// sell preceded by another sell
		mkTx("s2", "m1", models.TxSell, 100, t0.Add(time.Hour)),
		// buy then sell on a different asset in between
		mkTx("s3", "m2", models.TxBuy, 100, t0.Add(2*time.Hour)),
		mkTx("s4", "m3", models.TxBuy, 100, t0.Add(3*time.Hour)),
		mkTx("s5", "m2", models.TxSell, 100, t0.Add(4*time.Hour)),
	}

	samples := HoldTimes(txs, 24*time.Hour)
	if len(samples) != 1 {
		t.Fatalf("samples = %v, want exactly one", samples)
	}
	if samples[0] != 2*time.Hour {
		t.Fatalf("sample = %v, want 2h", samples[0])
	}
}

func TestHoldTimesDiscardsOutliers(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		mkTx("s1", "m1", models.TxBuy, 100, t0),
		mkTx("s2", "m1", models.TxSell, 100, t0.Add(48*time.Hour)),
	}

	if samples := HoldTimes(txs, 24*time.Hour); len(samples) != 0 {
		t.Fatalf("hold beyond cap should be discarded, got %v", samples)
	}
}
