package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
)

// BookingRepository stores bookings in a local SQLite file. Timestamps are
// kept as unix microseconds.
type BookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, expert_id, name, email, phone, slot_date, time_slot, notes, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner, b *model.Booking, extra ...any) error {
	var status string
	var created, updated int64
	dest := append([]any{
		&b.ID, &b.ExpertID, &b.Name, &b.Email, &b.Phone, &b.Date, &b.TimeSlot, &b.Notes, &status, &created, &updated,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	b.Status = model.Status(status)
	b.CreatedAt = time.UnixMicro(created).UTC()
	b.UpdatedAt = time.UnixMicro(updated).UTC()
	return nil
}

func (r *BookingRepository) Insert(ctx context.Context, b model.Booking) (model.Booking, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bookings (id, expert_id, name, email, phone, slot_date, time_slot, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.ExpertID, b.Name, b.Email, b.Phone, b.Date, b.TimeSlot, b.Notes, string(b.Status),
		b.CreatedAt.UnixMicro(), b.UpdatedAt.UnixMicro())
	switch {
	case err == nil:
		b.CreatedAt = time.UnixMicro(b.CreatedAt.UnixMicro()).UTC()
		b.UpdatedAt = time.UnixMicro(b.UpdatedAt.UnixMicro()).UTC()
		return b, nil
	case isUniqueViolation(err):
		return model.Booking{}, model.ErrDuplicateReservation
	case isForeignKeyViolation(err):
		return model.Booking{}, model.ErrExpertNotFound
	default:
		return model.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (model.Booking, error) {
	var b model.Booking
	err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id), &b)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status model.Status) (model.Booking, error) {
	var b model.Booking
	err := scanBooking(r.db.QueryRowContext(ctx, `
		UPDATE bookings
		SET status = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+bookingColumns,
		string(status), time.Now().UnixMicro(), id), &b)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("update booking status: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) FindByEmail(ctx context.Context, email string) ([]model.BookingView, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.expert_id, b.name, b.email, b.phone, b.slot_date, b.time_slot, b.notes, b.status,
			b.created_at, b.updated_at, COALESCE(e.name, ''), COALESCE(e.category, '')
		FROM bookings b
		LEFT JOIN experts e ON e.id = b.expert_id
		WHERE b.email = ?
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
	args := make([]any, 0, len(dates)+1)
	args = append(args, expertID)
	for _, d := range dates {
		args = append(args, d)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dates)), ",")

	rows, err := r.db.QueryContext(ctx, `
		SELECT slot_date, time_slot
		FROM bookings
		WHERE expert_id = ? AND slot_date IN (`+placeholders+`)
	`, args...)
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
