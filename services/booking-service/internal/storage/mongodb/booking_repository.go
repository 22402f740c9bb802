package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type bookingDoc struct {
	ID        string    `bson:"_id"`
	ExpertID  string    `bson:"expert_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Phone     string    `bson:"phone"`
	Date      string    `bson:"date"`
	TimeSlot  string    `bson:"time_slot"`
	Notes     string    `bson:"notes"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toDoc(b model.Booking) bookingDoc {
	return bookingDoc{
		ID:        b.ID,
		ExpertID:  b.ExpertID,
		Name:      b.Name,
		Email:     b.Email,
		Phone:     b.Phone,
		Date:      b.Date,
		TimeSlot:  b.TimeSlot,
		Notes:     b.Notes,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt: b.UpdatedAt.UTC().Truncate(time.Millisecond),
	}
}

func (d bookingDoc) model() model.Booking {
	return model.Booking{
		ID:        d.ID,
		ExpertID:  d.ExpertID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Date:      d.Date,
		TimeSlot:  d.TimeSlot,
		Notes:     d.Notes,
		Status:    model.Status(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// BookingRepository keeps bookings in a collection guarded by a compound
// unique index on (expert_id, date, time_slot).
type BookingRepository struct {
	coll *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{coll: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) Insert(ctx context.Context, b model.Booking) (model.Booking, error) {
	doc := toDoc(b)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.Booking{}, model.ErrDuplicateReservation
		}
		return model.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	return doc.model(), nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (model.Booking, error) {
	var doc bookingDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("find booking: %w", err)
	}
	return doc.model(), nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status model.Status) (model.Booking, error) {
	var doc bookingDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": string(status), "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("update booking status: %w", err)
	}
	return doc.model(), nil
}

func (r *BookingRepository) FindByEmail(ctx context.Context, email string) ([]model.BookingView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"email": email}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         expertsCollection,
			"localField":   "expert_id",
			"foreignField": "_id",
			"as":           "expert",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$expert", "preserveNullAndEmptyArrays": true}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate bookings by email: %w", err)
	}
	defer cur.Close(ctx)

	views := []model.BookingView{}
	for cur.Next(ctx) {
		var row struct {
			bookingDoc `bson:",inline"`
			Expert     struct {
				Name     string `bson:"name"`
				Category string `bson:"category"`
			} `bson:"expert"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode booking view: %w", err)
		}
		b := row.bookingDoc.model()
		views = append(views, model.BookingView{
			Booking: b,
			Expert:  model.ExpertRef{ID: b.ExpertID, Name: row.Expert.Name, Category: row.Expert.Category},
		})
	}
	return views, cur.Err()
}

func (r *BookingRepository) BookedSlots(ctx context.Context, expertID string, dates []string) ([]model.SlotKey, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	cur, err := r.coll.Find(ctx,
		bson.M{"expert_id": expertID, "date": bson.M{"$in": dates}},
		options.Find().SetProjection(bson.M{"date": 1, "time_slot": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("find booked slots: %w", err)
	}
	defer cur.Close(ctx)

	var keys []model.SlotKey
	for cur.Next(ctx) {
		var doc struct {
			Date     string `bson:"date"`
			TimeSlot string `bson:"time_slot"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		keys = append(keys, model.SlotKey{ExpertID: expertID, Date: doc.Date, TimeSlot: doc.TimeSlot})
	}
	return keys, cur.Err()
}
