package repository

import (
	"context"
	"time"

	"KolTrack/internal/domain/models"
)

// Store is the persistence capability the analytics core depends on.
// The concrete backend (ClickHouse, in-memory) is chosen at startup via
// configuration; the core never inspects which one it got.
//
// Absence of data is never an error: lookups return nil (or an empty
// slice) for participants and pairs that were never seen. Backend
// failures are wrapped in ErrStorageUnavailable.
type Store interface {
	// AppendTransaction records an immutable transaction. Returns
	// (false, nil) when the same signature with identical content is
	// already stored (idempotent replay), and ErrDuplicateTransaction
	// when the signature exists with different content.
	AppendTransaction(ctx context.Context, tx *models.Transaction) (inserted bool, err error)

	// GetTransactionHistory returns transactions for a participant,
	// newest first. asset == "" means all assets; limit <= 0 means no
	// limit.
	GetTransactionHistory(ctx context.Context, participant, asset string, limit int) ([]*models.Transaction, error)

	// GetTransactionsSince returns a participant's transactions with
	// timestamp >= since, ascending by timestamp.
	GetTransactionsSince(ctx context.Context, participant string, since time.Time) ([]*models.Transaction, error)

	// ListParticipants returns participants with at least one
	// transaction at or after since.
	ListParticipants(ctx context.Context, since time.Time) ([]string, error)

	GetBalance(ctx context.Context, participant, asset string) (*models.Balance, error)
	UpsertBalance(ctx context.Context, b *models.Balance) error

	GetBehaviorPattern(ctx context.Context, participant string) (*models.BehaviorPattern, error)
	UpsertBehaviorPattern(ctx context.Context, p *models.BehaviorPattern) error

	UpsertPerformanceSnapshot(ctx context.Context, s *models.PerformanceSnapshot) error

	// UpsertLeaderboardEntry writes a single ranked row keyed by
	// (window, day, rank).
	UpsertLeaderboardEntry(ctx context.Context, e *models.LeaderboardEntry) error

	// ReplaceLeaderboard replaces the ranking for a window and calendar
	// day as one unit.
	ReplaceLeaderboard(ctx context.Context, windowHours int, day string, entries []*models.LeaderboardEntry) error

	// GetLeaderboard returns the most recent ranking for a window,
	// ordered by rank ascending, truncated to limit. A limit <= 0
	// returns the full ranking.
	GetLeaderboard(ctx context.Context, windowHours, limit int) ([]*models.LeaderboardEntry, error)

	Health(ctx context.Context) error
	Close() error
}

// SwapStream delivers parsed swap events for monitored wallets from an
// external feed.
type SwapStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Transaction, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records operational counters and latencies.
type Metrics interface {
	RecordTransaction(kind string)
	RecordDuplicate()
	RecordSignal(signalType string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordLeaderboardSize(windowHours, size int)
}
