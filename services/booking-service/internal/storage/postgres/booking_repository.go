package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/expertbook/libs/db"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/outbox"
)

// BookingRepository is the Postgres booking ledger. When an outbox is set,
// every insert and status change also writes a domain event in the same
// transaction.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, ob *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: ob}
}

const bookingColumns = `id::text, expert_id::text, name, email, phone, slot_date::text, time_slot, notes, status, created_at, updated_at`

func scanBooking(row pgx.Row, b *model.Booking, extra ...any) error {
	var status string
	dest := append([]any{
		&b.ID, &b.ExpertID, &b.Name, &b.Email, &b.Phone, &b.Date, &b.TimeSlot, &b.Notes, &status, &b.CreatedAt, &b.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	b.Status = model.Status(status)
	return nil
}

func (r *BookingRepository) Insert(ctx context.Context, b model.Booking) (model.Booking, error) {
	var stored model.Booking
	err := withTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO bookings (id, expert_id, name, email, phone, slot_date, time_slot, notes, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::text::date, $7, $8, $9, $10, $11)
			RETURNING `+bookingColumns,
			b.ID, b.ExpertID, b.Name, b.Email, b.Phone, b.Date, b.TimeSlot, b.Notes, string(b.Status), b.CreatedAt, b.UpdatedAt)
		if err := scanBooking(row, &stored); err != nil {
			return err
		}
		if r.outbox == nil {
			return nil
		}
		evt, err := outbox.SlotBooked(stored)
		if err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
	switch {
	case err == nil:
		return stored, nil
	case isSlotConflict(err):
		return model.Booking{}, model.ErrDuplicateReservation
	case isForeignKeyViolation(err):
		return model.Booking{}, model.ErrExpertNotFound
	default:
		return model.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (model.Booking, error) {
	var b model.Booking
	err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id), &b)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

// UpdateStatus is a single-statement overwrite; no read-modify-write.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status model.Status) (model.Booking, error) {
	var b model.Booking
	err := withTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE bookings
			SET status = $2, updated_at = now()
			WHERE id = $1
			RETURNING `+bookingColumns,
			id, string(status))
		if err := scanBooking(row, &b); err != nil {
			return err
		}
		if r.outbox == nil {
			return nil
		}
		evt, err := outbox.StatusUpdated(b)
		if err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("update booking status: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) FindByEmail(ctx context.Context, email string) ([]model.BookingView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id::text, b.expert_id::text, b.name, b.email, b.phone, b.slot_date::text, b.time_slot, b.notes,
			b.status, b.created_at, b.updated_at, COALESCE(e.name, ''), COALESCE(e.category, '')
		FROM bookings b
		LEFT JOIN experts e ON e.id = b.expert_id
		WHERE b.email = $1
		ORDER BY b.created_at DESC, b.id DESC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("query bookings by email: %w", err)
	}
	defer rows.Close()

	views := []model.BookingView{}
	for rows.Next() {
		var v model.BookingView
		if err := scanBooking(rows, &v.Booking, &v.Expert.Name, &v.Expert.Category); err != nil {
			return nil, err
		}
		v.Expert.ID = v.ExpertID
		views = append(views, v)
	}
	return views, rows.Err()
}

func (r *BookingRepository) BookedSlots(ctx context.Context, expertID string, dates []string) ([]model.SlotKey, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT slot_date::text, time_slot
		FROM bookings
		WHERE expert_id = $1 AND slot_date = ANY($2::text[]::date[])
	`, expertID, dates)
	if err != nil {
		return nil, fmt.Errorf("query booked slots: %w", err)
	}
	defer rows.Close()

	var keys []model.SlotKey
	for rows.Next() {
		k := model.SlotKey{ExpertID: expertID}
		if err := rows.Scan(&k.Date, &k.TimeSlot); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
