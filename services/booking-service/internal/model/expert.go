package model

// Day is one date of an expert's authored availability. Upserts reject a
// Date that is not YYYY-MM-DD. Slots are display labels in offered order,
// conventionally HH:MM.
type Day struct {
	Date  string   `json:"date" bson:"date"`
	Slots []string `json:"slots" bson:"slots"`
}

type Expert struct {
	ID              string   `json:"id" bson:"_id"`
	Name            string   `json:"name" bson:"name"`
	Title           string   `json:"title" bson:"title"`
	Category        string   `json:"category" bson:"category"`
	ExperienceYears int      `json:"experience_years" bson:"experience_years"`
	Rating          float64  `json:"rating" bson:"rating"`
	Bio             string   `json:"bio" bson:"bio"`
	Skills          []string `json:"skills" bson:"skills"`
	Languages       []string `json:"languages" bson:"languages"`
	Availability    []Day    `json:"availability" bson:"availability"`
}

// ExpertSummary is the listing projection of an Expert.
type ExpertSummary struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Title           string  `json:"title"`
	Category        string  `json:"category"`
	ExperienceYears int     `json:"experience_years"`
	Rating          float64 `json:"rating"`
}

func (e Expert) Summary() ExpertSummary {
	return ExpertSummary{
		ID:              e.ID,
		Name:            e.Name,
		Title:           e.Title,
		Category:        e.Category,
		ExperienceYears: e.ExperienceYears,
		Rating:          e.Rating,
	}
}

// SlotView is one offered slot annotated with its booked state.
type SlotView struct {
	Time     string `json:"time"`
	IsBooked bool   `json:"is_booked"`
}

type DayView struct {
	Date  string     `json:"date"`
	Slots []SlotView `json:"slots"`
}

// ExpertDetail is an Expert with availability computed against the ledger.
type ExpertDetail struct {
	ExpertSummary
	Bio          string    `json:"bio"`
	Skills       []string  `json:"skills"`
	Languages    []string  `json:"languages"`
	Availability []DayView `json:"availability"`
}
