package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"KolTrack/internal/domain/models"
	domrepo "KolTrack/internal/domain/repository"
	"KolTrack/pkg/logger"
)

// SwapsConsumerConfig configures the Kafka reader.
type SwapsConsumerConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration
}

// SwapsConsumer reads parsed swap events from Kafka and feeds them to
// the tracker. Bad messages are logged and skipped; only reader
// failures stop the loop.
type SwapsConsumer struct {
	reader  *kafka.Reader
	tracker *Tracker
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewSwapsConsumer(cfg SwapsConsumerConfig, tracker *Tracker, metrics domrepo.Metrics, log *logger.Logger) *SwapsConsumer {
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = 1e3
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 1e6
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 500 * time.Millisecond
	}
	return &SwapsConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
			MaxWait:  cfg.MaxWait,
		}),
		tracker: tracker,
		metrics: metrics,
		log:     log,
	}
}

// swapMessage is the wire schema of one parsed swap event.
type swapMessage struct {
	Signature   string  `json:"signature"`
	Wallet      string  `json:"wallet"`
	Mint        string  `json:"mint"`
	Side        string  `json:"side"` // buy or sell
	AssetAmount float64 `json:"asset_amount"`
	QuoteAmount float64 `json:"quote_amount"`
	Price       float64 `json:"price"`
	MarketCap   float64 `json:"market_cap"`
	TS          int64   `json:"ts"` // unix seconds or milliseconds
}

// Run blocks reading messages until the context is canceled.
func (c *SwapsConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.handle(ctx, m.Value)
	}
}

func (c *SwapsConsumer) handle(ctx context.Context, b []byte) {
	var m swapMessage
	if err := json.Unmarshal(b, &m); err != nil {
		c.metrics.RecordError("consumer_unmarshal")
		c.log.Warn("bad swap message", logger.Error(err))
		return
	}
	if m.TS > 1e11 { // ms
		m.TS /= 1000
	}
	c.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.TS, 0)).Seconds())

	tx := &models.Transaction{
		Signature:   m.Signature,
		Participant: m.Wallet,
		Asset:       m.Mint,
		Kind:        models.TxKind(m.Side),
		AssetAmount: m.AssetAmount,
		QuoteAmount: m.QuoteAmount,
		Price:       m.Price,
		MarketCap:   m.MarketCap,
		Timestamp:   time.Unix(m.TS, 0).UTC(),
	}

	signals, err := c.tracker.RecordTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, domrepo.ErrDuplicateTransaction) {
			c.log.Debug("conflicting duplicate dropped", logger.String("signature", m.Signature))
			return
		}
		c.metrics.RecordError("consumer_record")
		c.log.Error("record transaction", logger.String("signature", m.Signature), logger.Error(err))
		return
	}
	// Notification delivery lives outside this service; signals are
	// surfaced in the log for downstream alerting glue.
	for _, s := range signals {
		c.log.Info("deviation signal",
			logger.String("participant", tx.Participant),
			logger.String("asset", tx.Asset),
			logger.String("type", s.Type),
			logger.String("severity", s.Severity),
			logger.String("message", s.Message),
		)
	}
}
