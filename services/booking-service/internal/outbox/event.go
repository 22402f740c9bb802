package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
)

const AggregateBooking = "booking"

// Event is written to outbox_events in the same transaction as the state
// change it describes. The Kafka topic is EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

func SlotBooked(b model.Booking) (Event, error) {
	payload, err := json.Marshal(model.SlotEventFor(b))
	if err != nil {
		return Event{}, fmt.Errorf("marshal slot event: %w", err)
	}
	return Event{
		AggregateType: AggregateBooking,
		AggregateID:   b.ID,
		EventType:     model.EventSlotBooked,
		Payload:       payload,
	}, nil
}

func StatusUpdated(b model.Booking) (Event, error) {
	payload, err := json.Marshal(model.StatusChange{
		BookingID: b.ID,
		ExpertID:  b.ExpertID,
		Status:    b.Status,
		UpdatedAt: b.UpdatedAt,
	})
	if err != nil {
		return Event{}, fmt.Errorf("marshal status change: %w", err)
	}
	return Event{
		AggregateType: AggregateBooking,
		AggregateID:   b.ID,
		EventType:     model.EventStatusUpdated,
		Payload:       payload,
	}, nil
}
