package fanout

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/expertbook/libs/kafkax"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/md-rashed-zaman/expertbook/services/booking-service/internal/fanout"

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewKafkaReader reads the slot-booked topic in its own consumer group, so
// every replica sees every event.
func NewKafkaReader(brokers, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(brokers),
		GroupID:     groupID,
		Topic:       model.EventSlotBooked,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
}

// KafkaFeed forwards slot events relayed from the outbox into the local Hub.
type KafkaFeed struct {
	reader  MessageReader
	hub     *Hub
	logger  *slog.Logger
	backoff time.Duration
}

func NewKafkaFeed(reader MessageReader, hub *Hub, logger *slog.Logger) *KafkaFeed {
	return &KafkaFeed{reader: reader, hub: hub, logger: logger, backoff: time.Second}
}

func (f *KafkaFeed) Run(ctx context.Context) {
	defer f.reader.Close()

	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.backoff):
			}
			continue
		}
		f.handle(ctx, msg)
	}
}

func (f *KafkaFeed) handle(ctx context.Context, msg kafka.Message) {
	eventType := kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventType)
	if eventType != "" && eventType != model.EventSlotBooked {
		return
	}

	ctx, span := otel.Tracer(tracerName).Start(kafkax.ExtractTraceContext(ctx, msg.Headers), "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	var ev model.SlotEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		f.logger.Warn("dropping malformed slot event", "topic", msg.Topic,
			"event_id", kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID), "err", err)
		span.RecordError(err)
		return
	}
	_ = f.hub.Publish(ctx, ev)
}
