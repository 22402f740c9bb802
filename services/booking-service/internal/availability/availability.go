package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
)

const (
	DateLayout = "2006-01-02"
	SlotLayout = "15:04"
)

// SlotsOn returns the labels offered on date in authored order, or an empty slice.
func SlotsOn(days []model.Day, date string) []string {
	for _, d := range days {
		if d.Date == date {
			out := make([]string, len(d.Slots))
			copy(out, d.Slots)
			return out
		}
	}
	return []string{}
}

func Offers(days []model.Day, date, slot string) bool {
	for _, d := range days {
		if d.Date != date {
			continue
		}
		for _, s := range d.Slots {
			if s == slot {
				return true
			}
		}
	}
	return false
}

// Compute annotates every offered slot with whether a booking holds it.
// booked is the ledger snapshot; keys for other experts are ignored.
func Compute(expertID string, days []model.Day, booked []model.SlotKey) []model.DayView {
	taken := make(map[model.SlotKey]struct{}, len(booked))
	for _, k := range booked {
		if k.ExpertID == expertID {
			taken[k] = struct{}{}
		}
	}

	views := make([]model.DayView, 0, len(days))
	for _, d := range days {
		dv := model.DayView{Date: d.Date, Slots: make([]model.SlotView, 0, len(d.Slots))}
		for _, s := range d.Slots {
			_, isBooked := taken[model.SlotKey{ExpertID: expertID, Date: d.Date, TimeSlot: s}]
			dv.Slots = append(dv.Slots, model.SlotView{Time: s, IsBooked: isBooked})
		}
		views = append(views, dv)
	}
	return views
}

// Apply marks the event's slot as booked in a client-held view. It reports
// whether anything changed; events for other experts or unknown slots are no-ops.
func Apply(view *model.ExpertDetail, ev model.SlotEvent) bool {
	if view == nil || view.ID != ev.ExpertID {
		return false
	}
	for i := range view.Availability {
		day := &view.Availability[i]
		if day.Date != ev.Date {
			continue
		}
		for j := range day.Slots {
			if day.Slots[j].Time == ev.TimeSlot {
				if day.Slots[j].IsBooked {
					return false
				}
				day.Slots[j].IsBooked = true
				return true
			}
		}
	}
	return false
}

// Dates lists the dates of days, used to scope ledger snapshots.
func Dates(days []model.Day) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Date)
	}
	return out
}

// Schedule builds count consecutive days starting at from, each offering labels.
func Schedule(from time.Time, count int, labels []string) []model.Day {
	if count <= 0 {
		return nil
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	days := make([]model.Day, 0, count)
	for i := 0; i < count; i++ {
		slots := make([]string, len(labels))
		copy(slots, labels)
		days = append(days, model.Day{Date: start.AddDate(0, 0, i).Format(DateLayout), Slots: slots})
	}
	return days
}

// CheckSchedule rejects authored availability that could never be booked
// consistently: dates must be YYYY-MM-DD and appear once, slot labels must be
// non-empty and unique within their day. Labels are otherwise free-form.
func CheckSchedule(days []model.Day) error {
	seen := make(map[string]struct{}, len(days))
	for _, d := range days {
		if !ValidDate(d.Date) {
			return &model.ValidationError{Field: "availability", Reason: fmt.Sprintf("date %q must be in YYYY-MM-DD format", d.Date)}
		}
		if _, dup := seen[d.Date]; dup {
			return &model.ValidationError{Field: "availability", Reason: fmt.Sprintf("date %s is listed more than once", d.Date)}
		}
		seen[d.Date] = struct{}{}

		labels := make(map[string]struct{}, len(d.Slots))
		for _, slot := range d.Slots {
			if strings.TrimSpace(slot) == "" {
				return &model.ValidationError{Field: "availability", Reason: fmt.Sprintf("date %s has an empty slot label", d.Date)}
			}
			if _, dup := labels[slot]; dup {
				return &model.ValidationError{Field: "availability", Reason: fmt.Sprintf("slot %q is listed more than once on %s", slot, d.Date)}
			}
			labels[slot] = struct{}{}
		}
	}
	return nil
}

func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func ValidSlot(s string) bool {
	_, err := time.Parse(SlotLayout, s)
	return err == nil && len(s) == len(SlotLayout)
}
