package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
)

// RedisLeaderboard wraps a Store and serves leaderboard reads from
// Redis. Rankings are written through on replacement; the underlying
// store stays the source of truth, so a cold or flushed cache falls
// back transparently.
type RedisLeaderboard struct {
	domrepo.Store
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLeaderboard creates the caching wrapper.
func NewRedisLeaderboard(inner domrepo.Store, rdb *redis.Client, ttl time.Duration) *RedisLeaderboard {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisLeaderboard{Store: inner, rdb: rdb, ttl: ttl, prefix: "koltrack:lb:"}
}

func (r *RedisLeaderboard) key(windowHours int) string {
	return r.prefix + strconv.Itoa(windowHours)
}

func (r *RedisLeaderboard) ReplaceLeaderboard(ctx context.Context, windowHours int, day string, entries []*models.LeaderboardEntry) error {
	if err := r.Store.ReplaceLeaderboard(ctx, windowHours, day, entries); err != nil {
		return err
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	// Cache write failure is not fatal; the store holds the ranking.
	_ = r.rdb.Set(ctx, r.key(windowHours), b, r.ttl).Err()
	return nil
}

func (r *RedisLeaderboard) GetLeaderboard(ctx context.Context, windowHours, limit int) ([]*models.LeaderboardEntry, error) {
	b, err := r.rdb.Get(ctx, r.key(windowHours)).Bytes()
	if err == nil {
		var entries []*models.LeaderboardEntry
		if jerr := json.Unmarshal(b, &entries); jerr == nil {
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			return entries, nil
		}
	}

	// Miss, Redis failure, or undecodable payload: read the full
	// ranking from the store so the repopulated key is never truncated
	// to one caller's limit.
	entries, err := r.Store.GetLeaderboard(ctx, windowHours, 0)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		if b, jerr := json.Marshal(entries); jerr == nil {
			_ = r.rdb.Set(ctx, r.key(windowHours), b, r.ttl).Err()
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *RedisLeaderboard) Close() error {
	if err := r.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return r.Store.Close()
}
