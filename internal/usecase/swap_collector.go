package usecase

import (
	"context"

	"KolTrack/internal/domain/models"
	drepo "KolTrack/internal/domain/repository"
	"KolTrack/pkg/logger"
)

// SwapCollector collects swap events from the chain stream and records
// them through the tracker.
type SwapCollector struct {
	stream  drepo.SwapStream
	tracker *Tracker
	metrics drepo.Metrics
	log     *logger.Logger
}

// NewSwapCollector creates a new SwapCollector instance.
func NewSwapCollector(stream drepo.SwapStream, tracker *Tracker, metrics drepo.Metrics, log *logger.Logger) *SwapCollector {
	return &SwapCollector{stream: stream, tracker: tracker, metrics: metrics, log: log}
}

// IsConnected returns true if the swap stream is connected.
func (c *SwapCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SwapCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	txCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, txCh, errCh)
	return nil
}

func (c *SwapCollector) consume(ctx context.Context, txCh <-chan *models.Transaction, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				if rErr := c.stream.Reconnect(ctx); rErr != nil {
					c.log.Error("stream reconnect", logger.Error(rErr))
					return
				}
				// read goroutines die with their channels on error,
				// so a reconnect needs fresh ones
				txCh, errCh = c.stream.Read(ctx)
			}
		case tx := <-txCh:
			if tx == nil {
				continue
			}
			signals, err := c.tracker.RecordTransaction(ctx, tx)
			if err != nil {
				c.metrics.RecordError("collector_record")
				c.log.Error("record transaction",
					logger.String("signature", tx.Signature), logger.Error(err))
				continue
			}
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
	}
}

func (c *SwapCollector) Stop() error { return c.stream.Close() }
