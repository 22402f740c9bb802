package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/expertbook/libs/config"
	"github.com/md-rashed-zaman/expertbook/libs/runtime"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/storage"
	"github.com/spf13/cobra"
)

var defaultSlots = []string{"09:00", "11:00", "14:00", "16:00"}

// seedNamespace keeps expert ids stable across reseeds.
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://expertbook.local/experts"))

type seedProfile struct {
	name       string
	title      string
	category   string
	experience int
	rating     float64
	bio        string
	languages  []string
	skills     []string
}

var profiles = []seedProfile{
	{"Amina Rahman", "Product Strategy Lead", "Product", 10, 4.9,
		"Guides teams through discovery, validation and launch planning for digital products.",
		[]string{"English", "Urdu"}, []string{"Roadmapping", "Pricing", "User Research"}},
	{"Leo Carter", "Growth Marketing Advisor", "Marketing", 8, 4.8,
		"Works on acquisition strategy, lifecycle messaging and retention programs.",
		[]string{"English"}, []string{"Lifecycle", "Paid Ads", "Analytics"}},
	{"Keiko Tanaka", "UX Researcher", "Design", 9, 4.95,
		"Turns qualitative insight into design direction and testing plans.",
		[]string{"English", "Japanese"}, []string{"Interviews", "Service Design", "Prototyping"}},
	{"Mateo Cruz", "Engineering Manager", "Engineering", 12, 4.85,
		"Helps teams scale delivery and plan sustainable roadmaps.",
		[]string{"English", "Spanish"}, []string{"Team Leadership", "System Design", "Mentoring"}},
	{"Priya Desai", "Data Science Consultant", "Data", 11, 4.9,
		"Focuses on data strategy, modeling and insight for growth teams.",
		[]string{"English", "Hindi"}, []string{"Forecasting", "Machine Learning", "BI"}},
	{"Noah Kim", "Sales Enablement Coach", "Sales", 7, 4.75,
		"Builds playbooks, messaging frameworks and enablement plans.",
		[]string{"English", "Korean"}, []string{"Pitching", "Enablement", "Discovery"}},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().Int("days", 7, "Number of days of availability, starting today")
	seedCmd.Flags().StringSlice("slots", defaultSlots, "Slot labels offered each day (HH:MM)")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert the demo experts with fresh availability",
	Long: `Upsert a fixed set of experts into the store selected by STORAGE_DRIVER
(DATABASE_URL, SQLITE_PATH or MONGO_URI). Expert ids are derived from names,
so running seed again refreshes availability without creating duplicates.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")
	slots, _ := cmd.Flags().GetStringSlice("slots")
	for _, s := range slots {
		if !availability.ValidSlot(s) {
			return fmt.Errorf("invalid slot %q, want HH:MM", s)
		}
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	logger := runtime.NewLogger("expertctl")
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	backend, err := storage.Open(ctx, storage.Config{
		Driver:        config.String("STORAGE_DRIVER", storage.DriverPostgres),
		DatabaseURL:   config.String("DATABASE_URL", ""),
		SQLitePath:    config.String("SQLITE_PATH", "data/expertbook.db"),
		MongoURI:      config.String("MONGO_URI", ""),
		MongoDatabase: config.String("MONGO_DATABASE", "expertbook"),
		Migrate:       true,
	}, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	experts := seedExperts(time.Now(), days, slots)
	for _, e := range experts {
		if err := backend.Experts.UpsertExpert(ctx, e); err != nil {
			return fmt.Errorf("seed %s: %w", e.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-14s %s\n", e.ID, e.Category, e.Name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d experts into %s\n", len(experts), backend.Driver)
	return nil
}

func seedExperts(from time.Time, days int, slots []string) []model.Expert {
	out := make([]model.Expert, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, model.Expert{
			ID:              uuid.NewSHA1(seedNamespace, []byte(p.name)).String(),
			Name:            p.name,
			Title:           p.title,
			Category:        p.category,
			ExperienceYears: p.experience,
			Rating:          p.rating,
			Bio:             p.bio,
			Skills:          p.skills,
			Languages:       p.languages,
			Availability:    availability.Schedule(from, days, slots),
		})
	}
	return out
}
