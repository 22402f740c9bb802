package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/expertbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/expertbook/libs/otel"
	"github.com/segmentio/kafka-go"
)

// Source hands out batches of unpublished records.
type Source interface {
	ClaimBatch(ctx context.Context, limit int, fn func(ctx context.Context, records []Record) error) (int, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	source    Source
	writer    MessageWriter
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
	onRelay   func(n int)
}

type PublisherConfig struct {
	PollEvery time.Duration
	BatchSize int
	// OnRelay is called with the number of records relayed per batch.
	OnRelay func(n int)
}

func NewPublisher(source Source, writer MessageWriter, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.OnRelay == nil {
		cfg.OnRelay = func(int) {}
	}
	return &Publisher{
		source:    source,
		writer:    writer,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		onRelay:   cfg.OnRelay,
	}
}

// Run relays until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// PublishOnce relays a single batch and returns how many records it sent.
func (p *Publisher) PublishOnce(ctx context.Context) (int, error) {
	n, err := p.source.ClaimBatch(ctx, p.batchSize, func(ctx context.Context, records []Record) error {
		msgs := make([]kafka.Message, 0, len(records))
		for _, r := range records {
			msgs = append(msgs, toMessage(ctx, r))
		}
		return p.writer.WriteMessages(ctx, msgs...)
	})
	if n > 0 {
		p.onRelay(n)
		p.logger.Debug("outbox batch relayed", "count", n)
	}
	return n, err
}

func toMessage(ctx context.Context, r Record) kafka.Message {
	msgCtx := otelx.TraceContext{Parent: r.Traceparent, State: r.Tracestate}.Restore(ctx)
	headers := kafkax.EventMeta{EventID: r.EventID, EventType: r.EventType}.Headers()
	return kafka.Message{
		Topic:   r.EventType,
		Key:     []byte(r.AggregateID),
		Value:   r.Payload,
		Headers: kafkax.InjectTraceHeaders(msgCtx, headers),
		Time:    r.CreatedAt,
	}
}
