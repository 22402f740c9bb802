package model

import "time"

// SlotEvent announces that a slot was taken.
type SlotEvent struct {
	ExpertID   string    `json:"expert_id"`
	Date       string    `json:"date"`
	TimeSlot   string    `json:"time_slot"`
	BookingID  string    `json:"booking_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func SlotEventFor(b Booking) SlotEvent {
	return SlotEvent{
		ExpertID:   b.ExpertID,
		Date:       b.Date,
		TimeSlot:   b.TimeSlot,
		BookingID:  b.ID,
		OccurredAt: b.CreatedAt,
	}
}

const (
	EventSlotBooked    = "booking.slot.booked.v1"
	EventStatusUpdated = "booking.status.updated.v1"
)

// StatusChange is the payload of EventStatusUpdated.
type StatusChange struct {
	BookingID string    `json:"booking_id"`
	ExpertID  string    `json:"expert_id"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}
