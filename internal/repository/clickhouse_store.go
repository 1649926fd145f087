package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
)

// ClickHouseStore implements Store on ClickHouse. Upsert semantics come
// from ReplacingMergeTree keyed on each entity's natural key; reads use
// FINAL so callers always see the latest version.
type ClickHouseStore struct {
	conn driver.Conn
	db   string
}

// ClickHouseOptions configures the connection.
type ClickHouseOptions struct {
	Addr        []string
	Database    string
	User        string
	Password    string
	DialTimeout time.Duration
}

var chSchema = []string{
	`CREATE TABLE IF NOT EXISTS %s.transactions (
		signature    String,
		participant  String,
		asset        String,
		kind         String,
		asset_amount Float64,
		quote_amount Float64,
		price        Float64,
		market_cap   Float64,
		ts           DateTime64(3, 'UTC'),
		inserted_at  DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(inserted_at) ORDER BY signature`,
	`CREATE TABLE IF NOT EXISTS %s.balances (
		participant           String,
		asset                 String,
		quantity              Float64,
		total_cost_basis      Float64,
		total_quantity_bought Float64,
		first_buy_signature   String,
		first_buy_ts          DateTime64(3, 'UTC'),
		first_buy_price       Float64,
		last_updated          DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(last_updated) ORDER BY (participant, asset)`,
	`CREATE TABLE IF NOT EXISTS %s.behavior_patterns (
		participant        String,
		avg_buy_size       Float64,
		avg_sell_size      Float64,
		typical_buy_sizes  Array(Float64),
		typical_sell_sizes Array(Float64),
		has_hold           UInt8,
		avg_hold_ns        Int64,
		min_hold_ns        Int64,
		max_hold_ns        Int64,
		buy_count          Int64,
		sell_count         Int64,
		last_updated       DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(last_updated) ORDER BY participant`,
	`CREATE TABLE IF NOT EXISTS %s.performance_snapshots (
		participant            String,
		window_hours           Int64,
		day                    String,
		total_pnl              Float64,
		total_pnl_percentage   Float64,
		total_buys             Int64,
		total_sells            Int64,
		total_volume           Float64,
		unique_assets_traded   Int64,
		win_rate               Float64,
		has_hold               UInt8,
		avg_hold_ns            Int64,
		profitable_asset_count Int64,
		losing_asset_count     Int64,
		largest_win            Float64,
		largest_loss           Float64,
		computed_at            DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(computed_at) ORDER BY (participant, window_hours, day)`,
	`CREATE TABLE IF NOT EXISTS %s.leaderboard_entries (
		window_hours         Int64,
		day                  String,
		rank                 Int64,
		participant          String,
		total_pnl            Float64,
		total_pnl_percentage Float64,
		total_volume         Float64,
		win_rate             Float64,
		total_buys           Int64,
		total_sells          Int64,
		inserted_at          DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(inserted_at) ORDER BY (window_hours, day, rank)`,
}

// NewClickHouseStore connects and ensures the schema.
func NewClickHouseStore(ctx context.Context, opts ClickHouseOptions) (*ClickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: opts.Addr,
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.User,
			Password: opts.Password,
		},
		DialTimeout: opts.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	s := &ClickHouseStore{conn: conn, db: opts.Database}
	if err := s.initSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *ClickHouseStore) initSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.db)); err != nil {
		return fmt.Errorf("clickhouse create database: %w", err)
	}
	for _, ddl := range chSchema {
		if err := s.conn.Exec(ctx, fmt.Sprintf(ddl, s.db)); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domrepo.ErrStorageUnavailable, err)
}

func (s *ClickHouseStore) AppendTransaction(ctx context.Context, tx *models.Transaction) (bool, error) {
	existing, err := s.getTransaction(ctx, tx.Signature)
	if err != nil {
		return false, err
	}
	if existing != nil {
		if existing.Equal(tx) {
			return false, nil
		}
		return false, domrepo.ErrDuplicateTransaction
	}

	q := fmt.Sprintf(`INSERT INTO %s.transactions
		(signature, participant, asset, kind, asset_amount, quote_amount, price, market_cap, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.db)
	if err := s.conn.Exec(ctx, q,
		tx.Signature, tx.Participant, tx.Asset, string(tx.Kind),
		tx.AssetAmount, tx.QuoteAmount, tx.Price, tx.MarketCap, tx.Timestamp.UTC(),
	); err != nil {
		return false, storageErr("insert transaction", err)
	}
	return true, nil
}

func (s *ClickHouseStore) getTransaction(ctx context.Context, signature string) (*models.Transaction, error) {
	q := fmt.Sprintf(`SELECT signature, participant, asset, kind, asset_amount, quote_amount, price, market_cap, ts
		FROM %s.transactions FINAL WHERE signature = ?`, s.db)
	rows, err := s.conn.Query(ctx, q, signature)
	if err != nil {
		return nil, storageErr("select transaction", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanTransaction(rows)
}

func scanTransaction(rows driver.Rows) (*models.Transaction, error) {
	var t models.Transaction
	var kind string
	if err := rows.Scan(&t.Signature, &t.Participant, &t.Asset, &kind,
		&t.AssetAmount, &t.QuoteAmount, &t.Price, &t.MarketCap, &t.Timestamp); err != nil {
		return nil, storageErr("scan transaction", err)
	}
	t.Kind = models.TxKind(kind)
	return &t, nil
}

func (s *ClickHouseStore) GetTransactionHistory(ctx context.Context, participant, asset string, limit int) ([]*models.Transaction, error) {
	q := fmt.Sprintf(`SELECT signature, participant, asset, kind, asset_amount, quote_amount, price, market_cap, ts
		FROM %s.transactions FINAL WHERE participant = ?`, s.db)
	args := []any{participant}
	if asset != "" {
		q += " AND asset = ?"
		args = append(args, asset)
	}
	q += " ORDER BY ts DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryTransactions(ctx, q, args...)
}

func (s *ClickHouseStore) GetTransactionsSince(ctx context.Context, participant string, since time.Time) ([]*models.Transaction, error) {
	q := fmt.Sprintf(`SELECT signature, participant, asset, kind, asset_amount, quote_amount, price, market_cap, ts
		FROM %s.transactions FINAL WHERE participant = ? AND ts >= ? ORDER BY ts ASC`, s.db)
	return s.queryTransactions(ctx, q, participant, since.UTC())
}

func (s *ClickHouseStore) queryTransactions(ctx context.Context, q string, args ...any) ([]*models.Transaction, error) {
	rows, err := s.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, storageErr("select transactions", err)
	}
	defer rows.Close()

	var result []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("select transactions", err)
	}
	return result, nil
}

func (s *ClickHouseStore) ListParticipants(ctx context.Context, since time.Time) ([]string, error) {
	q := fmt.Sprintf(`SELECT participant FROM %s.transactions FINAL
		WHERE ts >= ? GROUP BY participant ORDER BY min(ts) ASC`, s.db)
	rows, err := s.conn.Query(ctx, q, since.UTC())
	if err != nil {
		return nil, storageErr("list participants", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, storageErr("scan participant", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list participants", err)
	}
	return result, nil
}

func (s *ClickHouseStore) GetBalance(ctx context.Context, participant, asset string) (*models.Balance, error) {
	q := fmt.Sprintf(`SELECT participant, asset, quantity, total_cost_basis, total_quantity_bought,
		first_buy_signature, first_buy_ts, first_buy_price, last_updated
		FROM %s.balances FINAL WHERE participant = ? AND asset = ?`, s.db)
	rows, err := s.conn.Query(ctx, q, participant, asset)
	if err != nil {
		return nil, storageErr("select balance", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storageErr("select balance", err)
		}
		return nil, nil
	}
	var b models.Balance
	if err := rows.Scan(&b.Participant, &b.Asset, &b.Quantity, &b.TotalCostBasis, &b.TotalQuantityBought,
		&b.FirstBuySignature, &b.FirstBuyTimestamp, &b.FirstBuyPrice, &b.LastUpdated); err != nil {
		return nil, storageErr("scan balance", err)
	}
	return &b, nil
}

func (s *ClickHouseStore) UpsertBalance(ctx context.Context, b *models.Balance) error {
	q := fmt.Sprintf(`INSERT INTO %s.balances
		(participant, asset, quantity, total_cost_basis, total_quantity_bought,
		 first_buy_signature, first_buy_ts, first_buy_price, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.db)
	if err := s.conn.Exec(ctx, q,
		b.Participant, b.Asset, b.Quantity, b.TotalCostBasis, b.TotalQuantityBought,
		b.FirstBuySignature, b.FirstBuyTimestamp.UTC(), b.FirstBuyPrice, b.LastUpdated.UTC(),
	); err != nil {
		return storageErr("upsert balance", err)
	}
	return nil
}

func (s *ClickHouseStore) GetBehaviorPattern(ctx context.Context, participant string) (*models.BehaviorPattern, error) {
	q := fmt.Sprintf(`SELECT participant, avg_buy_size, avg_sell_size, typical_buy_sizes, typical_sell_sizes,
		has_hold, avg_hold_ns, min_hold_ns, max_hold_ns, buy_count, sell_count, last_updated
		FROM %s.behavior_patterns FINAL WHERE participant = ?`, s.db)
	rows, err := s.conn.Query(ctx, q, participant)
	if err != nil {
		return nil, storageErr("select pattern", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storageErr("select pattern", err)
		}
		return nil, nil
	}

	var p models.BehaviorPattern
	var hasHold uint8
	var avgHold, minHold, maxHold, buys, sells int64
	if err := rows.Scan(&p.Participant, &p.AvgBuySize, &p.AvgSellSize, &p.TypicalBuySizes, &p.TypicalSellSizes,
		&hasHold, &avgHold, &minHold, &maxHold, &buys, &sells, &p.LastUpdated); err != nil {
		return nil, storageErr("scan pattern", err)
	}
	if hasHold == 1 {
		d := time.Duration(avgHold)
		p.AvgHoldTime = &d
	}
	p.MinHoldTime = time.Duration(minHold)
	p.MaxHoldTime = time.Duration(maxHold)
	p.BuyCount = int(buys)
	p.SellCount = int(sells)
	return &p, nil
}

func (s *ClickHouseStore) UpsertBehaviorPattern(ctx context.Context, p *models.BehaviorPattern) error {
	var hasHold uint8
	var avgHold int64
	if p.AvgHoldTime != nil {
		hasHold = 1
		avgHold = int64(*p.AvgHoldTime)
	}
	q := fmt.Sprintf(`INSERT INTO %s.behavior_patterns
		(participant, avg_buy_size, avg_sell_size, typical_buy_sizes, typical_sell_sizes,
		 has_hold, avg_hold_ns, min_hold_ns, max_hold_ns, buy_count, sell_count, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.db)
	if err := s.conn.Exec(ctx, q,
		p.Participant, p.AvgBuySize, p.AvgSellSize, p.TypicalBuySizes, p.TypicalSellSizes,
		hasHold, avgHold, int64(p.MinHoldTime), int64(p.MaxHoldTime),
		int64(p.BuyCount), int64(p.SellCount), p.LastUpdated.UTC(),
	); err != nil {
		return storageErr("upsert pattern", err)
	}
	return nil
}

func (s *ClickHouseStore) UpsertPerformanceSnapshot(ctx context.Context, snap *models.PerformanceSnapshot) error {
	var hasHold uint8
	var avgHold int64
	if snap.AvgHoldTime != nil {
		hasHold = 1
		avgHold = int64(*snap.AvgHoldTime)
	}
	day := snap.ComputedAt.UTC().Format("2006-01-02")
	q := fmt.Sprintf(`INSERT INTO %s.performance_snapshots
		(participant, window_hours, day, total_pnl, total_pnl_percentage, total_buys, total_sells,
		 total_volume, unique_assets_traded, win_rate, has_hold, avg_hold_ns,
		 profitable_asset_count, losing_asset_count, largest_win, largest_loss, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.db)
	if err := s.conn.Exec(ctx, q,
		snap.Participant, int64(snap.WindowHours), day,
		snap.TotalPnL, snap.TotalPnLPercentage, int64(snap.TotalBuys), int64(snap.TotalSells),
		snap.TotalVolume, int64(snap.UniqueAssetsTraded), snap.WinRate, hasHold, avgHold,
		int64(snap.ProfitableAssetCount), int64(snap.LosingAssetCount),
		snap.LargestWin, snap.LargestLoss, snap.ComputedAt.UTC(),
	); err != nil {
		return storageErr("upsert snapshot", err)
	}
	return nil
}

func (s *ClickHouseStore) UpsertLeaderboardEntry(ctx context.Context, e *models.LeaderboardEntry) error {
	q := fmt.Sprintf(`INSERT INTO %s.leaderboard_entries
		(window_hours, day, rank, participant, total_pnl, total_pnl_percentage,
		 total_volume, win_rate, total_buys, total_sells)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.db)
	if err := s.conn.Exec(ctx, q,
		int64(e.WindowHours), e.SnapshotDate, int64(e.Rank), e.Participant,
		e.TotalPnL, e.TotalPnLPercentage, e.TotalVolume, e.WinRate,
		int64(e.TotalBuys), int64(e.TotalSells),
	); err != nil {
		return storageErr("upsert leaderboard entry", err)
	}
	return nil
}

func (s *ClickHouseStore) ReplaceLeaderboard(ctx context.Context, windowHours int, day string, entries []*models.LeaderboardEntry) error {
	del := fmt.Sprintf(`DELETE FROM %s.leaderboard_entries WHERE window_hours = ? AND day = ?`, s.db)
	if err := s.conn.Exec(ctx, del, int64(windowHours), day); err != nil {
		return storageErr("replace leaderboard delete", err)
	}
	for _, e := range entries {
		if err := s.UpsertLeaderboardEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStore) GetLeaderboard(ctx context.Context, windowHours, limit int) ([]*models.LeaderboardEntry, error) {
	dayQ := fmt.Sprintf(`SELECT max(day) FROM %s.leaderboard_entries WHERE window_hours = ?`, s.db)
	rows, err := s.conn.Query(ctx, dayQ, int64(windowHours))
	if err != nil {
		return nil, storageErr("select leaderboard day", err)
	}
	var day string
	if rows.Next() {
		if err := rows.Scan(&day); err != nil {
			rows.Close()
			return nil, storageErr("scan leaderboard day", err)
		}
	}
	rows.Close()
	if day == "" {
		return nil, nil
	}

	q := fmt.Sprintf(`SELECT window_hours, day, rank, participant, total_pnl, total_pnl_percentage,
		total_volume, win_rate, total_buys, total_sells
		FROM %s.leaderboard_entries FINAL WHERE window_hours = ? AND day = ? ORDER BY rank ASC`, s.db)
	args := []any{int64(windowHours), day}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err = s.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, storageErr("select leaderboard", err)
	}
	defer rows.Close()

	var result []*models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		var wh, rank, buys, sells int64
		if err := rows.Scan(&wh, &e.SnapshotDate, &rank, &e.Participant, &e.TotalPnL, &e.TotalPnLPercentage,
			&e.TotalVolume, &e.WinRate, &buys, &sells); err != nil {
			return nil, storageErr("scan leaderboard entry", err)
		}
		e.WindowHours = int(wh)
		e.Rank = int(rank)
		e.TotalBuys = int(buys)
		e.TotalSells = int(sells)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("select leaderboard", err)
	}
	return result, nil
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (s *ClickHouseStore) Close() error {
	if err := s.conn.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("clickhouse close: %w", err)
	}
	return nil
}
