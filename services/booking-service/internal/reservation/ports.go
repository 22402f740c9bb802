package reservation

import (
	"context"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
)

// Ledger is the durable booking store. Insert must enforce uniqueness of
// (expert, date, time slot) atomically and report violations as
// model.ErrDuplicateReservation.
type Ledger interface {
	Insert(ctx context.Context, b model.Booking) (model.Booking, error)
	FindByID(ctx context.Context, id string) (model.Booking, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (model.Booking, error)
	FindByEmail(ctx context.Context, email string) ([]model.BookingView, error)
	BookedSlots(ctx context.Context, expertID string, dates []string) ([]model.SlotKey, error)
}

type ExpertDirectory interface {
	FindExpert(ctx context.Context, id string) (model.Expert, error)
	ListExperts(ctx context.Context, category string) ([]model.ExpertSummary, error)
	UpsertExpert(ctx context.Context, e model.Expert) error
}

// Notifier receives a SlotEvent after every successful reservation.
type Notifier interface {
	Publish(ctx context.Context, ev model.SlotEvent) error
}

// Recorder receives engine outcomes for metrics.
type Recorder interface {
	Reservation(outcome string)
	StatusUpdate(status model.Status)
	NotifyFailed()
}

const (
	OutcomeBooked        = "booked"
	OutcomeConflict      = "conflict"
	OutcomeNotOfferable  = "not_offerable"
	OutcomeInvalid       = "invalid"
	OutcomeNotFound      = "expert_not_found"
	OutcomeInternalError = "error"
)

type noopRecorder struct{}

func (noopRecorder) Reservation(string)        {}
func (noopRecorder) StatusUpdate(model.Status) {}
func (noopRecorder) NotifyFailed()             {}
