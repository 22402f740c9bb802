package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
)

func sampleDays() []model.Day {
	return []model.Day{
		{Date: "2024-06-01", Slots: []string{"09:00", "11:00", "14:00"}},
		{Date: "2024-06-02", Slots: []string{"16:00"}},
	}
}

func TestSlotsOn(t *testing.T) {
	got := SlotsOn(sampleDays(), "2024-06-01")
	if len(got) != 3 || got[0] != "09:00" || got[2] != "14:00" {
		t.Fatalf("unexpected slots: %v", got)
	}

	empty := SlotsOn(sampleDays(), "2024-06-10")
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestSlotsOnReturnsCopy(t *testing.T) {
	days := sampleDays()
	got := SlotsOn(days, "2024-06-02")
	got[0] = "23:00"
	if days[1].Slots[0] != "16:00" {
		t.Fatal("SlotsOn must not alias authored availability")
	}
}

func TestOffers(t *testing.T) {
	days := sampleDays()
	if !Offers(days, "2024-06-01", "11:00") {
		t.Fatal("expected 11:00 to be offered")
	}
	if Offers(days, "2024-06-01", "10:00") {
		t.Fatal("10:00 is not listed")
	}
	if Offers(days, "2024-06-10", "09:00") {
		t.Fatal("date is absent from availability")
	}
}

func TestCompute(t *testing.T) {
	booked := []model.SlotKey{
		{ExpertID: "e1", Date: "2024-06-01", TimeSlot: "11:00"},
		{ExpertID: "e2", Date: "2024-06-01", TimeSlot: "09:00"},
	}
	views := Compute("e1", sampleDays(), booked)
	if len(views) != 2 {
		t.Fatalf("expected 2 days, got %d", len(views))
	}
	want := []bool{false, true, false}
	for i, s := range views[0].Slots {
		if s.IsBooked != want[i] {
			t.Fatalf("slot %s: expected booked=%v", s.Time, want[i])
		}
	}
	if views[1].Slots[0].IsBooked {
		t.Fatal("second day should be free")
	}
}

func TestApplyPatchesExactlyOneSlot(t *testing.T) {
	view := &model.ExpertDetail{
		ExpertSummary: model.ExpertSummary{ID: "e1"},
		Availability:  Compute("e1", sampleDays(), nil),
	}

	changed := Apply(view, model.SlotEvent{ExpertID: "e1", Date: "2024-06-01", TimeSlot: "14:00"})
	if !changed {
		t.Fatal("expected view to change")
	}

	booked := 0
	for _, d := range view.Availability {
		for _, s := range d.Slots {
			if s.IsBooked {
				booked++
				if d.Date != "2024-06-01" || s.Time != "14:00" {
					t.Fatalf("wrong slot patched: %s %s", d.Date, s.Time)
				}
			}
		}
	}
	if booked != 1 {
		t.Fatalf("expected exactly one booked slot, got %d", booked)
	}

	if Apply(view, model.SlotEvent{ExpertID: "e1", Date: "2024-06-01", TimeSlot: "14:00"}) {
		t.Fatal("re-applying the same event should be a no-op")
	}
}

func TestApplyIgnoresOtherExperts(t *testing.T) {
	view := &model.ExpertDetail{
		ExpertSummary: model.ExpertSummary{ID: "e1"},
		Availability:  Compute("e1", sampleDays(), nil),
	}
	if Apply(view, model.SlotEvent{ExpertID: "e2", Date: "2024-06-01", TimeSlot: "09:00"}) {
		t.Fatal("event for another expert must not change the view")
	}
	if Apply(nil, model.SlotEvent{ExpertID: "e1"}) {
		t.Fatal("nil view must not change")
	}
}

func TestSchedule(t *testing.T) {
	from := time.Date(2024, 12, 30, 15, 4, 0, 0, time.UTC)
	days := Schedule(from, 3, []string{"09:00", "11:00"})
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if days[0].Date != "2024-12-30" || days[2].Date != "2025-01-01" {
		t.Fatalf("unexpected dates: %v", Dates(days))
	}
	days[0].Slots[0] = "x"
	if days[1].Slots[0] != "09:00" {
		t.Fatal("days must not share slot slices")
	}
	if Schedule(from, 0, nil) != nil {
		t.Fatal("expected nil for zero days")
	}
}

func TestCheckSchedule(t *testing.T) {
	if err := CheckSchedule(sampleDays()); err != nil {
		t.Fatalf("expected sample schedule to pass, got %v", err)
	}
	if err := CheckSchedule([]model.Day{{Date: "2024-06-01", Slots: []string{"9:00 AM", "Evening"}}}); err != nil {
		t.Fatalf("free-form slot labels must be accepted, got %v", err)
	}

	cases := map[string][]model.Day{
		"unpadded date":  {{Date: "2024-6-2", Slots: []string{"09:00"}}},
		"duplicate date": {{Date: "2024-06-01"}, {Date: "2024-06-01"}},
		"blank label":    {{Date: "2024-06-01", Slots: []string{" "}}},
		"duplicate slot": {{Date: "2024-06-01", Slots: []string{"09:00", "09:00"}}},
	}
	for name, days := range cases {
		err := CheckSchedule(days)
		if !errors.Is(err, model.ErrValidationFailed) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestValidDateAndSlot(t *testing.T) {
	if !ValidDate("2024-02-29") || ValidDate("2023-02-29") || ValidDate("06/01/2024") {
		t.Fatal("unexpected date validation")
	}
	if !ValidSlot("09:00") || ValidSlot("9:00") || ValidSlot("25:00") {
		t.Fatal("unexpected slot validation")
	}
}
