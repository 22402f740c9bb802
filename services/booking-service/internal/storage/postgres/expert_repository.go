package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/expertbook/libs/db"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
)

type ExpertRepository struct {
	pool *db.Pool
}

func NewExpertRepository(pool *db.Pool) *ExpertRepository {
	return &ExpertRepository{pool: pool}
}

func (r *ExpertRepository) FindExpert(ctx context.Context, id string) (model.Expert, error) {
	var (
		e   model.Expert
		raw []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, title, category, experience_years, rating, bio, skills, languages, availability
		FROM experts
		WHERE id = $1
	`, id).Scan(&e.ID, &e.Name, &e.Title, &e.Category, &e.ExperienceYears, &e.Rating, &e.Bio, &e.Skills, &e.Languages, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Expert{}, model.ErrExpertNotFound
	}
	if err != nil {
		return model.Expert{}, fmt.Errorf("find expert: %w", err)
	}
	if err := json.Unmarshal(raw, &e.Availability); err != nil {
		return model.Expert{}, fmt.Errorf("decode availability: %w", err)
	}
	return e, nil
}

func (r *ExpertRepository) ListExperts(ctx context.Context, category string) ([]model.ExpertSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, title, category, experience_years, rating
		FROM experts
		WHERE $1 = '' OR category = $1
		ORDER BY name, id
	`, category)
	if err != nil {
		return nil, fmt.Errorf("list experts: %w", err)
	}
	defer rows.Close()

	out := []model.ExpertSummary{}
	for rows.Next() {
		var s model.ExpertSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Title, &s.Category, &s.ExperienceYears, &s.Rating); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertExpert replaces the authored profile and availability. Bookings are untouched.
func (r *ExpertRepository) UpsertExpert(ctx context.Context, e model.Expert) error {
	if err := availability.CheckSchedule(e.Availability); err != nil {
		return err
	}
	schedule, err := json.Marshal(e.Availability)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	skills, languages := e.Skills, e.Languages
	if skills == nil {
		skills = []string{}
	}
	if languages == nil {
		languages = []string{}
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO experts (id, name, title, category, experience_years, rating, bio, skills, languages, availability)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			experience_years = EXCLUDED.experience_years,
			rating = EXCLUDED.rating,
			bio = EXCLUDED.bio,
			skills = EXCLUDED.skills,
			languages = EXCLUDED.languages,
			availability = EXCLUDED.availability,
			updated_at = now()
	`, e.ID, e.Name, e.Title, e.Category, e.ExperienceYears, e.Rating, e.Bio, skills, languages, schedule)
	if err != nil {
		return fmt.Errorf("upsert expert: %w", err)
	}
	return nil
}
