package performance

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
	"KolTrack/pkg/logger"
)

// Generator produces window leaderboards. Per-participant computations
// run in parallel; a failure for one participant is logged and skipped,
// never aborting the batch. The final sort and rank assignment happen
// single-threaded after all inputs are collected.
type Generator struct {
	store       domrepo.Store
	agg         *Aggregator
	metrics     domrepo.Metrics
	log         *logger.Logger
	parallelism int
}

func NewGenerator(store domrepo.Store, agg *Aggregator, metrics domrepo.Metrics, log *logger.Logger, parallelism int) *Generator {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Generator{store: store, agg: agg, metrics: metrics, log: log, parallelism: parallelism}
}

// GenerateLeaderboard ranks every participant with activity in the
// window by descending realized PnL (stable on ties), truncates to
// limit, and persists the ranking, replacing any prior ranking for the
// same window and calendar day.
func (g *Generator) GenerateLeaderboard(ctx context.Context, windowHours, limit int) ([]*models.LeaderboardEntry, error) {
	start := time.Now()

	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	participants, err := g.store.ListParticipants(ctx, since)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, nil
	}

	snaps := make([]*models.PerformanceSnapshot, len(participants))
	var grp errgroup.Group
	grp.SetLimit(g.parallelism)
	for i, p := range participants {
		i, p := i, p
		grp.Go(func() error {
			snap, err := g.agg.ComputePerformance(ctx, p, windowHours)
			if err != nil {
				g.metrics.RecordError("leaderboard_participant")
				g.log.Warn("performance computation skipped",
					logger.String("participant", p), logger.Error(err))
				return nil
			}
			snaps[i] = snap
			return nil
		})
	}
	_ = grp.Wait()

	var ranked []*models.PerformanceSnapshot
	for _, s := range snaps {
		if s != nil {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalPnL > ranked[j].TotalPnL
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	day := time.Now().UTC().Format("2006-01-02")
	entries := make([]*models.LeaderboardEntry, len(ranked))
	for i, s := range ranked {
		entries[i] = &models.LeaderboardEntry{
			WindowHours:        windowHours,
			Rank:               i + 1,
			Participant:        s.Participant,
			TotalPnL:           s.TotalPnL,
			TotalPnLPercentage: s.TotalPnLPercentage,
			TotalVolume:        s.TotalVolume,
			WinRate:            s.WinRate,
			TotalBuys:          s.TotalBuys,
			TotalSells:         s.TotalSells,
			SnapshotDate:       day,
		}
	}

	if err := g.store.ReplaceLeaderboard(ctx, windowHours, day, entries); err != nil {
		return nil, err
	}

	g.metrics.RecordLeaderboardSize(windowHours, len(entries))
	g.metrics.RecordLatency("generate_leaderboard", time.Since(start).Seconds())
	g.log.Info("leaderboard generated",
		logger.Int("window_hours", windowHours),
		logger.Int("participants", len(participants)),
		logger.Int("ranked", len(entries)),
		logger.Duration("took", time.Since(start)),
	)
	return entries, nil
}

// GetLeaderboard returns the stored ranking for a window.
func (g *Generator) GetLeaderboard(ctx context.Context, windowHours, limit int) ([]*models.LeaderboardEntry, error) {
	return g.store.GetLeaderboard(ctx, windowHours, limit)
}
