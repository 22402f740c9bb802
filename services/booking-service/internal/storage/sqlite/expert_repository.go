package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
)

type ExpertRepository struct {
	db *sql.DB
}

func NewExpertRepository(db *sql.DB) *ExpertRepository {
	return &ExpertRepository{db: db}
}

func (r *ExpertRepository) FindExpert(ctx context.Context, id string) (model.Expert, error) {
	var (
		e                            model.Expert
		skills, languages, available string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, title, category, experience_years, rating, bio, skills, languages, availability
		FROM experts
		WHERE id = ?
	`, id).Scan(&e.ID, &e.Name, &e.Title, &e.Category, &e.ExperienceYears, &e.Rating, &e.Bio, &skills, &languages, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Expert{}, model.ErrExpertNotFound
	}
	if err != nil {
		return model.Expert{}, fmt.Errorf("find expert: %w", err)
	}
	for _, f := range []struct {
		raw  string
		dest any
	}{
		{skills, &e.Skills},
		{languages, &e.Languages},
		{available, &e.Availability},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return model.Expert{}, fmt.Errorf("decode expert %s: %w", id, err)
		}
	}
	return e, nil
}

func (r *ExpertRepository) ListExperts(ctx context.Context, category string) ([]model.ExpertSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, title, category, experience_years, rating
		FROM experts
		WHERE ? = '' OR category = ?
		ORDER BY name, id
	`, category, category)
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

func (r *ExpertRepository) UpsertExpert(ctx context.Context, e model.Expert) error {
	if err := availability.CheckSchedule(e.Availability); err != nil {
		return err
	}
	encode := func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	}
	if e.Skills == nil {
		e.Skills = []string{}
	}
	if e.Languages == nil {
		e.Languages = []string{}
	}
	if e.Availability == nil {
		e.Availability = []model.Day{}
	}
	skills, err := encode(e.Skills)
	if err != nil {
		return err
	}
	languages, err := encode(e.Languages)
	if err != nil {
		return err
	}
	schedule, err := encode(e.Availability)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO experts (id, name, title, category, experience_years, rating, bio, skills, languages, availability)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			title = excluded.title,
			category = excluded.category,
			experience_years = excluded.experience_years,
			rating = excluded.rating,
			bio = excluded.bio,
			skills = excluded.skills,
			languages = excluded.languages,
			availability = excluded.availability
	`, e.ID, e.Name, e.Title, e.Category, e.ExperienceYears, e.Rating, e.Bio, skills, languages, schedule)
	if err != nil {
		return fmt.Errorf("upsert expert: %w", err)
	}
	return nil
}
