package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ExpertRepository struct {
	coll *mongo.Collection
}

func NewExpertRepository(db *mongo.Database) *ExpertRepository {
	return &ExpertRepository{coll: db.Collection(expertsCollection)}
}

func (r *ExpertRepository) FindExpert(ctx context.Context, id string) (model.Expert, error) {
	var e model.Expert
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Expert{}, model.ErrExpertNotFound
	}
	if err != nil {
		return model.Expert{}, fmt.Errorf("find expert: %w", err)
	}
	return e, nil
}

func (r *ExpertRepository) ListExperts(ctx context.Context, category string) ([]model.ExpertSummary, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"availability": 0, "bio": 0, "skills": 0, "languages": 0}))
	if err != nil {
		return nil, fmt.Errorf("list experts: %w", err)
	}
	defer cur.Close(ctx)

	out := []model.ExpertSummary{}
	for cur.Next(ctx) {
		var e model.Expert
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e.Summary())
	}
	return out, cur.Err()
}

func (r *ExpertRepository) UpsertExpert(ctx context.Context, e model.Expert) error {
	if err := availability.CheckSchedule(e.Availability); err != nil {
		return err
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": e.ID}, e, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert expert: %w", err)
	}
	return nil
}
