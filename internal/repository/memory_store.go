package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
)

// MemoryStore implements Store with in-memory maps. Used for tests and
// development. Not durable.
type MemoryStore struct {
	mu           sync.RWMutex
	txs          []*models.Transaction         // insertion order
	txBySig      map[string]*models.Transaction
	participants []string // first-seen order
	seen         map[string]struct{}
	balances     map[string]*models.Balance        // participant|asset
	patterns     map[string]*models.BehaviorPattern // participant
	snapshots    map[string]*models.PerformanceSnapshot
	boards       map[string][]*models.LeaderboardEntry // window|day
	latestDay    map[int]string                        // window -> day of last replace
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		txBySig:   make(map[string]*models.Transaction),
		seen:      make(map[string]struct{}),
		balances:  make(map[string]*models.Balance),
		patterns:  make(map[string]*models.BehaviorPattern),
		snapshots: make(map[string]*models.PerformanceSnapshot),
		boards:    make(map[string][]*models.LeaderboardEntry),
		latestDay: make(map[int]string),
	}
}

func pairKey(participant, asset string) string {
	return participant + "|" + asset
}

func (s *MemoryStore) AppendTransaction(_ context.Context, tx *models.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.txBySig[tx.Signature]; ok {
		if existing.Equal(tx) {
			return false, nil
		}
		return false, domrepo.ErrDuplicateTransaction
	}

	cp := *tx
	s.txBySig[tx.Signature] = &cp
	s.txs = append(s.txs, &cp)
	if _, ok := s.seen[tx.Participant]; !ok {
		s.seen[tx.Participant] = struct{}{}
		s.participants = append(s.participants, tx.Participant)
	}
	return true, nil
}

func (s *MemoryStore) GetTransactionHistory(_ context.Context, participant, asset string, limit int) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Transaction
	for _, t := range s.txs {
		if t.Participant != participant {
			continue
		}
		if asset != "" && t.Asset != asset {
			continue
		}
		cp := *t
		result = append(result, &cp)
	}
	// Newest first; insertion order preserved within equal timestamps.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) GetTransactionsSince(_ context.Context, participant string, since time.Time) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Transaction
	for _, t := range s.txs {
		if t.Participant != participant || t.Timestamp.Before(since) {
			continue
		}
		cp := *t
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

func (s *MemoryStore) ListParticipants(_ context.Context, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make(map[string]struct{})
	for _, t := range s.txs {
		if !t.Timestamp.Before(since) {
			active[t.Participant] = struct{}{}
		}
	}
	var result []string
	for _, p := range s.participants {
		if _, ok := active[p]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetBalance(_ context.Context, participant, asset string) (*models.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[pairKey(participant, asset)]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) UpsertBalance(_ context.Context, b *models.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *b
	s.balances[pairKey(b.Participant, b.Asset)] = &cp
	return nil
}

func (s *MemoryStore) GetBehaviorPattern(_ context.Context, participant string) (*models.BehaviorPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patterns[participant]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) UpsertBehaviorPattern(_ context.Context, p *models.BehaviorPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.patterns[p.Participant] = &cp
	return nil
}

func snapshotKey(participant string, windowHours int, day string) string {
	return participant + "|" + day + "|" + strconv.Itoa(windowHours)
}

func (s *MemoryStore) UpsertPerformanceSnapshot(_ context.Context, snap *models.PerformanceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	day := snap.ComputedAt.UTC().Format("2006-01-02")
	s.snapshots[snapshotKey(snap.Participant, snap.WindowHours, day)] = &cp
	return nil
}

func boardKey(windowHours int, day string) string {
	return strconv.Itoa(windowHours) + "|" + day
}

func (s *MemoryStore) UpsertLeaderboardEntry(_ context.Context, e *models.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := boardKey(e.WindowHours, e.SnapshotDate)
	cp := *e
	for i, existing := range s.boards[key] {
		if existing.Rank == e.Rank {
			s.boards[key][i] = &cp
			return nil
		}
	}
	s.boards[key] = append(s.boards[key], &cp)
	s.latestDay[e.WindowHours] = e.SnapshotDate
	return nil
}

func (s *MemoryStore) ReplaceLeaderboard(_ context.Context, windowHours int, day string, entries []*models.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*models.LeaderboardEntry, len(entries))
	for i, e := range entries {
		cp := *e
		rows[i] = &cp
	}
	s.boards[boardKey(windowHours, day)] = rows
	s.latestDay[windowHours] = day
	return nil
}

func (s *MemoryStore) GetLeaderboard(_ context.Context, windowHours, limit int) ([]*models.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day, ok := s.latestDay[windowHours]
	if !ok {
		return nil, nil
	}
	rows := s.boards[boardKey(windowHours, day)]
	result := make([]*models.LeaderboardEntry, 0, len(rows))
	for _, e := range rows {
		cp := *e
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Rank < result[j].Rank
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
