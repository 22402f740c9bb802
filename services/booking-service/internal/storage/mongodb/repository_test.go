package mongodb

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func newTestDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	if err != nil {
		t.Skipf("skipping Mongo integration tests: %v", err)
	}
	db := client.Database("expertbook_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	require.NoError(t, EnsureIndexes(ctx, db))
	return db
}

func TestMongoRepositories(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	experts := NewExpertRepository(db)
	bookings := NewBookingRepository(db)

	ada := model.Expert{
		ID:           uuid.NewString(),
		Name:         "Ada",
		Category:     "Technology",
		Availability: []model.Day{{Date: "2024-06-01", Slots: []string{"09:00", "11:00"}}},
	}
	require.NoError(t, experts.UpsertExpert(ctx, ada))

	got, err := experts.FindExpert(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, ada.Availability, got.Availability)

	list, err := experts.ListExperts(ctx, "Technology")
	require.NoError(t, err)
	require.Len(t, list, 1)

	now := time.Now().UTC()
	b := model.Booking{ID: uuid.NewString(), ExpertID: ada.ID, Name: "Jo", Email: "jo@example.com", Phone: "55555",
		Date: "2024-06-01", TimeSlot: "09:00", Status: model.StatusPending, CreatedAt: now, UpdatedAt: now}
	stored, err := bookings.Insert(ctx, b)
	require.NoError(t, err)

	dup := b
	dup.ID = uuid.NewString()
	_, err = bookings.Insert(ctx, dup)
	require.ErrorIs(t, err, model.ErrDuplicateReservation)

	later := b
	later.ID = uuid.NewString()
	later.TimeSlot = "11:00"
	later.CreatedAt = now.Add(time.Minute)
	_, err = bookings.Insert(ctx, later)
	require.NoError(t, err)

	views, err := bookings.FindByEmail(ctx, "jo@example.com")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, later.ID, views[0].ID)
	assert.Equal(t, "Ada", views[0].Expert.Name)
	assert.Equal(t, "Technology", views[1].Expert.Category)

	updated, err := bookings.UpdateStatus(ctx, stored.ID, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)

	_, err = bookings.UpdateStatus(ctx, uuid.NewString(), model.StatusCompleted)
	require.ErrorIs(t, err, model.ErrBookingNotFound)

	keys, err := bookings.BookedSlots(ctx, ada.ID, []string{"2024-06-01"})
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
