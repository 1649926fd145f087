package models

import "time"

// PnLResult is the outcome of FIFO matching over one
// (participant, asset) pair's full history.
type PnLResult struct {
	Participant           string
	Asset                 string
	RealizedPnL           float64
	RealizedPnLPercentage float64
	TotalCostBasis        float64
	TotalProceeds         float64
	RemainingTokens       float64
	RemainingCostBasis    float64
	RemainingBuys         int
	Buys                  int
	Sells                 int
}

// PerformanceSnapshot aggregates a participant's realized results over
// a trailing window. WinRate counts assets, not individual sells.
type PerformanceSnapshot struct {
	Participant          string
	WindowHours          int
	TotalPnL             float64
	TotalPnLPercentage   float64
	TotalVolume          float64
	UniqueAssetsTraded   int
	WinRate              float64
	AvgHoldTime          *time.Duration
	ProfitableAssetCount int
	LosingAssetCount     int
	LargestWin           float64
	LargestLoss          float64
	TotalBuys            int
	TotalSells           int
	ComputedAt           time.Time
}

// LeaderboardEntry is one ranked row of a window leaderboard.
// SnapshotDate is the UTC calendar day ("2006-01-02") the ranking was
// generated on.
type LeaderboardEntry struct {
	WindowHours        int
	Rank               int
	Participant        string
	TotalPnL           float64
	TotalPnLPercentage float64
	TotalVolume        float64
	WinRate            float64
	TotalBuys          int
	TotalSells         int
	SnapshotDate       string
}
