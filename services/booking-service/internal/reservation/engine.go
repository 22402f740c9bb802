package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/md-rashed-zaman/expertbook/services/booking-service/internal/reservation"

// Engine validates and records reservations. It holds no locks: the ledger's
// uniqueness constraint is the only arbiter between concurrent requests.
type Engine struct {
	experts  ExpertDirectory
	ledger   Ledger
	notifier Notifier
	recorder Recorder
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(*Engine)

// WithNotifier enables fan-out of SlotEvents. A nil notifier disables it.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(experts ExpertDirectory, ledger Ledger, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		experts:  experts,
		ledger:   ledger,
		recorder: noopRecorder{},
		logger:   logger,
		validate: newValidator(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type ReserveInput struct {
	ExpertID string
	Date     string
	TimeSlot string
	Name     string
	Email    string
	Phone    string
	Notes    string
}

func (in ReserveInput) normalized() ReserveInput {
	return ReserveInput{
		ExpertID: strings.TrimSpace(in.ExpertID),
		Date:     strings.TrimSpace(in.Date),
		TimeSlot: strings.TrimSpace(in.TimeSlot),
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:    strings.TrimSpace(in.Phone),
		Notes:    strings.TrimSpace(in.Notes),
	}
}

// ParseID returns the canonical form of a UUID identity or ErrInvalidID.
func ParseID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", model.ErrInvalidID
	}
	return id.String(), nil
}

// Reserve books one slot. The offerability check against the expert's
// availability is advisory; only Ledger.Insert decides races.
func (e *Engine) Reserve(ctx context.Context, in ReserveInput) (model.Booking, error) {
	ctx, span := e.tracer.Start(ctx, "reservation.Reserve")
	defer span.End()

	b, outcome, err := e.reserve(ctx, in)
	e.recorder.Reservation(outcome)
	span.SetAttributes(attribute.String("reservation.outcome", outcome))
	if err != nil {
		if outcome == OutcomeInternalError {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return model.Booking{}, err
	}

	e.notify(ctx, b)
	return b, nil
}

func (e *Engine) reserve(ctx context.Context, in ReserveInput) (model.Booking, string, error) {
	in = in.normalized()

	expertID, err := ParseID(in.ExpertID)
	if err != nil {
		return model.Booking{}, OutcomeInvalid, err
	}

	fields := contactFields{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Date:     in.Date,
		TimeSlot: in.TimeSlot,
		Notes:    in.Notes,
	}
	if err := e.validate.Struct(fields); err != nil {
		return model.Booking{}, OutcomeInvalid, toValidationError(err)
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("expert.id", expertID),
		attribute.String("booking.date", in.Date),
		attribute.String("booking.time_slot", in.TimeSlot),
	)

	expert, err := e.experts.FindExpert(ctx, expertID)
	if err != nil {
		if errors.Is(err, model.ErrExpertNotFound) {
			return model.Booking{}, OutcomeNotFound, err
		}
		return model.Booking{}, OutcomeInternalError, fmt.Errorf("find expert: %w", err)
	}

	if !availability.Offers(expert.Availability, in.Date, in.TimeSlot) {
		return model.Booking{}, OutcomeNotOfferable, model.ErrSlotNotOfferable
	}

	now := e.now().UTC()
	stored, err := e.ledger.Insert(ctx, model.Booking{
		ID:        uuid.NewString(),
		ExpertID:  expertID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Date:      in.Date,
		TimeSlot:  in.TimeSlot,
		Notes:     in.Notes,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateReservation) {
			return model.Booking{}, OutcomeConflict, model.ErrSlotAlreadyBooked
		}
		return model.Booking{}, OutcomeInternalError, fmt.Errorf("insert booking: %w", err)
	}
	return stored, OutcomeBooked, nil
}

func (e *Engine) notify(ctx context.Context, b model.Booking) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Publish(ctx, model.SlotEventFor(b)); err != nil {
		e.recorder.NotifyFailed()
		e.logger.Warn("slot event publish failed",
			"booking_id", b.ID,
			"expert_id", b.ExpertID,
			"err", err,
		)
	}
}

// UpdateStatus overwrites a booking's status. Any recognised status may
// replace any other, including itself.
func (e *Engine) UpdateStatus(ctx context.Context, id string, status model.Status) (model.Booking, error) {
	ctx, span := e.tracer.Start(ctx, "reservation.UpdateStatus")
	defer span.End()

	if !status.Valid() {
		return model.Booking{}, model.ErrInvalidStatus
	}
	bookingID, err := ParseID(id)
	if err != nil {
		return model.Booking{}, err
	}

	b, err := e.ledger.UpdateStatus(ctx, bookingID, status)
	if err != nil {
		if errors.Is(err, model.ErrBookingNotFound) {
			return model.Booking{}, err
		}
		span.RecordError(err)
		return model.Booking{}, fmt.Errorf("update status: %w", err)
	}
	e.recorder.StatusUpdate(status)
	return b, nil
}

func (e *Engine) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	bookingID, err := ParseID(id)
	if err != nil {
		return model.Booking{}, err
	}
	return e.ledger.FindByID(ctx, bookingID)
}

// ListByContact returns the contact's bookings newest first.
func (e *Engine) ListByContact(ctx context.Context, email string) ([]model.BookingView, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := e.validate.Var(email, "required,email"); err != nil {
		return nil, &model.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	views, err := e.ledger.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if views == nil {
		views = []model.BookingView{}
	}
	return views, nil
}

// SlotsFor returns the labels offered on date. An unknown date yields an
// empty list, not an error.
func (e *Engine) SlotsFor(ctx context.Context, expertID, date string) ([]string, error) {
	id, err := ParseID(expertID)
	if err != nil {
		return nil, err
	}
	expert, err := e.experts.FindExpert(ctx, id)
	if err != nil {
		return nil, err
	}
	return availability.SlotsOn(expert.Availability, strings.TrimSpace(date)), nil
}

// ExpertDetail returns the expert with each offered slot marked booked or free.
func (e *Engine) ExpertDetail(ctx context.Context, expertID string) (model.ExpertDetail, error) {
	ctx, span := e.tracer.Start(ctx, "reservation.ExpertDetail")
	defer span.End()

	id, err := ParseID(expertID)
	if err != nil {
		return model.ExpertDetail{}, err
	}
	expert, err := e.experts.FindExpert(ctx, id)
	if err != nil {
		return model.ExpertDetail{}, err
	}
	booked, err := e.ledger.BookedSlots(ctx, id, availability.Dates(expert.Availability))
	if err != nil {
		return model.ExpertDetail{}, fmt.Errorf("booked slots: %w", err)
	}
	return model.ExpertDetail{
		ExpertSummary: expert.Summary(),
		Bio:           expert.Bio,
		Skills:        nonNil(expert.Skills),
		Languages:     nonNil(expert.Languages),
		Availability:  availability.Compute(id, expert.Availability, booked),
	}, nil
}

func (e *Engine) ListExperts(ctx context.Context, category string) ([]model.ExpertSummary, error) {
	experts, err := e.experts.ListExperts(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("list experts: %w", err)
	}
	if experts == nil {
		experts = []model.ExpertSummary{}
	}
	return experts, nil
}

// Categories lists the distinct categories of all experts in first-seen order.
func (e *Engine) Categories(ctx context.Context) ([]string, error) {
	all, err := e.experts.ListExperts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list experts: %w", err)
	}
	seen := make(map[string]struct{}, len(all))
	out := []string{}
	for _, ex := range all {
		if _, ok := seen[ex.Category]; ok || ex.Category == "" {
			continue
		}
		seen[ex.Category] = struct{}{}
		out = append(out, ex.Category)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
