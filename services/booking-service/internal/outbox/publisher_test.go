package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/expertbook/libs/kafkax"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type fakeSource struct {
	records   []Record
	published []int64
}

func (s *fakeSource) ClaimBatch(ctx context.Context, limit int, fn func(context.Context, []Record) error) (int, error) {
	batch := s.records
	if len(batch) > limit {
		batch = batch[:limit]
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := fn(ctx, batch); err != nil {
		return 0, err
	}
	for _, r := range batch {
		s.published = append(s.published, r.ID)
	}
	s.records = s.records[len(batch):]
	return len(batch), nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPublishOnceRelaysBatch(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	booking := model.Booking{ID: "b-1", ExpertID: "e-1", Date: "2024-06-01", TimeSlot: "09:00", CreatedAt: time.Unix(1700000000, 0).UTC()}
	evt, err := SlotBooked(booking)
	require.NoError(t, err)

	src := &fakeSource{records: []Record{
		{ID: 1, EventID: "evt-1", AggregateType: evt.AggregateType, AggregateID: evt.AggregateID, EventType: evt.EventType, Payload: evt.Payload,
			Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		{ID: 2, EventID: "evt-2", AggregateID: "b-2", EventType: model.EventStatusUpdated, Payload: []byte(`{}`)},
		{ID: 3, EventID: "evt-3", AggregateID: "b-3", EventType: model.EventStatusUpdated, Payload: []byte(`{}`)},
	}}
	w := &fakeWriter{}
	relayed := 0
	p := NewPublisher(src, w, discardLogger(), PublisherConfig{BatchSize: 2, OnRelay: func(n int) { relayed += n }})

	n, err := p.PublishOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, src.published)
	require.Len(t, w.msgs, 2)

	msg := w.msgs[0]
	assert.Equal(t, model.EventSlotBooked, msg.Topic)
	assert.Equal(t, "b-1", string(msg.Key))
	assert.Equal(t, "evt-1", kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID))
	assert.Equal(t, model.EventSlotBooked, kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventType))
	assert.Contains(t, kafkax.HeaderValue(msg.Headers, "traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")

	var payload model.SlotEvent
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "e-1", payload.ExpertID)
	assert.Equal(t, "09:00", payload.TimeSlot)

	n, err = p.PublishOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, relayed)
}

func TestPublishOnceKeepsRecordsOnWriteFailure(t *testing.T) {
	src := &fakeSource{records: []Record{{ID: 1, EventID: "e", AggregateID: "b", EventType: model.EventSlotBooked}}}
	p := NewPublisher(src, &fakeWriter{err: errors.New("broker down")}, discardLogger(), PublisherConfig{})

	n, err := p.PublishOnce(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, src.published)
	assert.Len(t, src.records, 1)
}

func TestStatusUpdatedPayload(t *testing.T) {
	evt, err := StatusUpdated(model.Booking{ID: "b-1", ExpertID: "e-1", Status: model.StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusUpdated, evt.EventType)
	assert.Equal(t, AggregateBooking, evt.AggregateType)

	var change model.StatusChange
	require.NoError(t, json.Unmarshal(evt.Payload, &change))
	assert.Equal(t, model.StatusConfirmed, change.Status)
}
