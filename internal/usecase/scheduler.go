package usecase

import (
	"context"
	"time"

	"KolTrack/pkg/logger"
)

// LeaderboardScheduler regenerates the configured leaderboard windows on
// a fixed interval. A failed window is logged and the remaining windows
// still run.
type LeaderboardScheduler struct {
	tracker  *Tracker
	windows  []int
	limit    int
	interval time.Duration
	log      *logger.Logger
}

func NewLeaderboardScheduler(tracker *Tracker, windows []int, limit int, interval time.Duration, log *logger.Logger) *LeaderboardScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &LeaderboardScheduler{
		tracker:  tracker,
		windows:  windows,
		limit:    limit,
		interval: interval,
		log:      log,
	}
}

// Run regenerates all windows once immediately, then on every tick
// until the context is canceled.
func (s *LeaderboardScheduler) Run(ctx context.Context) {
	s.runAll(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *LeaderboardScheduler) runAll(ctx context.Context) {
	for _, w := range s.windows {
		if _, err := s.tracker.GenerateLeaderboard(ctx, w, s.limit); err != nil {
			s.log.Error("generate leaderboard",
				logger.Int("window_hours", w), logger.Error(err))
		}
	}
}
