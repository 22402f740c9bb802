package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/expertbook/libs/auth"
	"github.com/md-rashed-zaman/expertbook/libs/httpx"
	"github.com/md-rashed-zaman/expertbook/libs/runtime"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/reservation"
)

// BookingService is the subset of the reservation engine the HTTP layer uses.
type BookingService interface {
	Reserve(ctx context.Context, in reservation.ReserveInput) (model.Booking, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (model.Booking, error)
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	ListByContact(ctx context.Context, email string) ([]model.BookingView, error)
	SlotsFor(ctx context.Context, expertID, date string) ([]string, error)
	ExpertDetail(ctx context.Context, expertID string) (model.ExpertDetail, error)
	ListExperts(ctx context.Context, category string) ([]model.ExpertSummary, error)
	Categories(ctx context.Context) ([]string, error)
}

// Subscriber is the fan-out side the SSE stream reads from.
type Subscriber interface {
	Subscribe(expertID string) (<-chan model.SlotEvent, func())
}

type Config struct {
	Logger         *slog.Logger
	Service        BookingService
	Events         Subscriber
	ReadyChecks    []runtime.ReadyCheck
	Metrics        http.Handler
	CORSOrigins    []string
	RateLimit      httpx.Middleware
	JWTSecret      string
	RequestTimeout time.Duration
	BodyLimit      int64
	KeepAlive      time.Duration
}

func NewRouter(cfg Config) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 64 << 10
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 25 * time.Second
	}

	h := &handler{
		logger:    cfg.Logger,
		svc:       cfg.Service,
		events:    cfg.Events,
		keepAlive: cfg.KeepAlive,
	}

	r := chi.NewRouter()
	r.Use(
		httpx.WithRequestID,
		httpx.WithAccessLog(cfg.Logger),
		httpx.WithRecover(cfg.Logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(cfg.CORSOrigins)),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", runtime.HealthHandler)
	r.Get("/readyz", runtime.ReadyHandler(cfg.ReadyChecks...))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}

		r.Group(func(r chi.Router) {
			r.Use(httpx.WithTimeout(cfg.RequestTimeout), httpx.WithBodyLimit(cfg.BodyLimit))

			r.Get("/experts", h.listExperts)
			r.Get("/experts/{id}", h.getExpert)
			r.Get("/experts/{id}/slots", h.getSlots)

			r.Post("/bookings", h.createBooking)
			r.Get("/bookings", h.listBookings)
			r.Get("/bookings/{id}", h.getBooking)
			r.With(auth.RequireRole(cfg.JWTSecret, auth.RoleAdmin, auth.RoleExpert)).
				Patch("/bookings/{id}/status", h.updateStatus)
		})

		if cfg.Events != nil {
			r.Get("/events", h.streamEvents)
		}
	})
	return r
}

type handler struct {
	logger    *slog.Logger
	svc       BookingService
	events    Subscriber
	keepAlive time.Duration
}

type envelope struct {
	Data any `json:"data"`
}
