package deviation

import (
	"context"
	"testing"
	"time"

	"KolTrack/internal/domain/models"
	"KolTrack/internal/repository"
	"KolTrack/internal/services/profile"
	"KolTrack/pkg/logger"
	"KolTrack/pkg/metrics"
)

func newDetector(store *repository.MemoryStore) *Detector {
	profiler := profile.New(store, logger.Nop(), 100, 24*time.Hour)
	return New(store, profiler, metrics.Nop{}, logger.Nop(), Config{
		MinSmallBuy:          1,
		RecentWindow:         20,
		TypicalSizeTolerance: 1,
		PatternCacheTTL:      time.Minute,
	})
}

// pattern with avg buy 100: small threshold 25, large threshold 75.
func seedPattern(t *testing.T, store *repository.MemoryStore, avgHold *time.Duration) {
	t.Helper()
	if err := store.UpsertBehaviorPattern(context.Background(), &models.BehaviorPattern{
		Participant:     "wallet1",
		AvgBuySize:      100,
		TypicalBuySizes: []float64{100},
		AvgHoldTime:     avgHold,
		BuyCount:        10,
		LastUpdated:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed pattern: %v", err)
	}
}

func seedTx(t *testing.T, store *repository.MemoryStore, sig string, kind models.TxKind, quoteAmount float64, at time.Time) {
	t.Helper()
	if _, err := store.AppendTransaction(context.Background(), &models.Transaction{
		Signature:   sig,
		Participant: "wallet1",
		Asset:       "mint1",
		Kind:        kind,
		AssetAmount: 1,
		QuoteAmount: quoteAmount,
		Timestamp:   at,
	}); err != nil {
		t.Fatalf("seed tx: %v", err)
	}
}

func hasSignal(signals []models.DeviationSignal, typ string) bool {
	for _, s := range signals {
		if s.Type == typ {
			return true
		}
	}
	return false
}

func TestCheckDeviationColdStart(t *testing.T) {
	store := repository.NewMemoryStore()
	d := newDetector(store)

	signals, err := d.CheckDeviation(context.Background(), "wallet1", models.TxBuy, 1000, "mint1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(signals) != 0 {
		t.Fatalf("first observation must not signal, got %v", signals)
	}
}

func TestCheckDeviationColdStartBuildsProfile(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTx(t, store, "b1", models.TxBuy, 100, time.Now().UTC().Add(-2*time.Hour))
	seedTx(t, store, "b2", models.TxBuy, 200, time.Now().UTC().Add(-time.Hour))
	d := newDetector(store)

	signals, err := d.CheckDeviation(context.Background(), "wallet1", models.TxBuy, 1000, "mint1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(signals) != 0 {
		t.Fatalf("cold start must not signal, got %v", signals)
	}

	p, err := store.GetBehaviorPattern(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("get pattern: %v", err)
	}
	if p == nil {
		t.Fatalf("cold-start check must build a profile from existing history")
	}
	if p.AvgBuySize != 150 {
		t.Fatalf("avg buy size = %v, want 150", p.AvgBuySize)
	}
}

func TestCheckDeviationLargeBuyWithoutTest(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPattern(t, store, nil)
	d := newDetector(store)

	signals, err := d.CheckDeviation(context.Background(), "wallet1", models.TxBuy, 80, "mint1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !hasSignal(signals, models.SignalLargeBuyNoTest) {
		t.Fatalf("want %s, got %v", models.SignalLargeBuyNoTest, signals)
	}
}

func TestCheckDeviationLargeBuyAfterTestIsClean(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPattern(t, store, nil)
	seedTx(t, store, "small", models.TxBuy, 10, time.Now().UTC().Add(-time.Hour))
	d := newDetector(store)

	signals, err := d.CheckDeviation(context.Background(), "wallet1", models.TxBuy, 80, "mint1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if hasSignal(signals, models.SignalLargeBuyNoTest) {
		t.Fatalf("prior test buy should suppress the signal, got %v", signals)
	}
}

func TestCheckDeviationTestBuyAfterLarge(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPattern(t, store, nil)
	seedTx(t, store, "big", models.TxBuy, 300, time.Now().UTC().Add(-time.Hour))
	d := newDetector(store)

	signals, err := d.CheckDeviation(context.Background(), "wallet1", models.TxBuy, 10, "mint1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !hasSignal(signals, models.SignalTestAfterLarge) {
		t.Fatalf("want %s, got %v", models.SignalTestAfterLarge, signals)
	}
}

func TestCheckDeviationTestBuyAfterLargeWithSellBetweenIsClean(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPattern(t, store, nil)
	seedTx(t, store, "big", models.TxBuy, 300, time.Now().UTC().Add(-2*time.Hour))
	seedTx(t, store, "exit", models.TxSell, 300, time.Now().UTC().Add(-time.Hour))
	d := newDetector(store)

	signals, err := d.CheckDeviation(context.Background(), "wallet1", models.TxBuy, 10, "mint1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if hasSignal(signals, models.SignalTestAfterLarge) {
		t.Fatalf("sell between large buy and test buy should clear the sequence, got %v", signals)
	}
}

func TestCheckDeviationOversizeBuy(t *testing.T) {
	store := repository.NewMemoryStore()
	seedPattern(t, store, nil)
	// A prior small buy keeps the no-test heuristic quiet.
	seedTx(t, store, "small", models.TxBuy, 10, time.Now().UTC().Add(-time.Hour))
	d := newDetector(store)

	signals, err := d.CheckDeviation(context.Background(), "wallet1", models.TxBuy, 300, "mint1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !hasSignal(signals, models.SignalOversizeBuy) {
		t.Fatalf("want %s, got %v", models.SignalOversizeBuy, signals)
	}
	if hasSignal(signals, models.SignalLargeBuyNoTest) {
		t.Fatalf("no-test heuristic fired despite prior test buy: %v", signals)
	}
}

func TestCheckDeviationOversizeSuppressedByTypicalSize(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTx(t, store, "small", models.TxBuy, 10, time.Now().UTC().Add(-time.Hour))
	d := newDetector(store)

	// 300 sits in the participant's typical size list, so the oversize
	// heuristic stays quiet even above 2.5x the average.
	if err := store.UpsertBehaviorPattern(context.Background(), &models.BehaviorPattern{
		Participant:     "wallet1",
		AvgBuySize:      100,
		TypicalBuySizes: []float64{300},
		BuyCount:        10,
		LastUpdated:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed pattern: %v", err)
	}

	signals, err := d.CheckDeviation(context.Background(), "wallet1", models.TxBuy, 300, "mint1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if hasSignal(signals, models.SignalOversizeBuy) {
		t.Fatalf("typical-size buy should not flag, got %v", signals)
	}
}

func TestCheckDeviationLongHold(t *testing.T) {
	store := repository.NewMemoryStore()
	hold := time.Hour
	seedPattern(t, store, &hold)
	seedTx(t, store, "entry", models.TxBuy, 100, time.Now().UTC().Add(-5*time.Hour))
	d := newDetector(store)

	signals, err := d.CheckDeviation(context.Background(), "wallet1", models.TxSell, 120, "mint1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !hasSignal(signals, models.SignalLongHold) {
		t.Fatalf("want %s, got %v", models.SignalLongHold, signals)
	}
}

func TestCheckDeviationNormalHoldIsClean(t *testing.T) {
	store := repository.NewMemoryStore()
	hold := time.Hour
	seedPattern(t, store, &hold)
	seedTx(t, store, "entry", models.TxBuy, 100, time.Now().UTC().Add(-90*time.Minute))
	d := newDetector(store)

	signals, err := d.CheckDeviation(context.Background(), "wallet1", models.TxSell, 120, "mint1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if hasSignal(signals, models.SignalLongHold) {
		t.Fatalf("hold under 3x average should not flag, got %v", signals)
	}
}
