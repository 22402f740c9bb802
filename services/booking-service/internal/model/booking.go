package model

import "time"

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted:
		return true
	default:
		return false
	}
}

type Booking struct {
	ID        string    `json:"id"`
	ExpertID  string    `json:"expert_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Date      string    `json:"date"`
	TimeSlot  string    `json:"time_slot"`
	Notes     string    `json:"notes"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExpertRef is the slice of an expert joined onto a booking when listing.
type ExpertRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type BookingView struct {
	Booking
	Expert ExpertRef `json:"expert"`
}

// SlotKey identifies a reservable unit. At most one booking exists per key.
type SlotKey struct {
	ExpertID string
	Date     string
	TimeSlot string
}

func (b Booking) Key() SlotKey {
	return SlotKey{ExpertID: b.ExpertID, Date: b.Date, TimeSlot: b.TimeSlot}
}
