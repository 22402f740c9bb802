package reservation

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
)

type fakeDirectory struct {
	mu      sync.Mutex
	experts map[string]model.Expert
	calls   int
}

func newFakeDirectory(experts ...model.Expert) *fakeDirectory {
	d := &fakeDirectory{experts: map[string]model.Expert{}}
	for _, e := range experts {
		d.experts[e.ID] = e
	}
	return d
}

func (d *fakeDirectory) FindExpert(_ context.Context, id string) (model.Expert, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	e, ok := d.experts[id]
	if !ok {
		return model.Expert{}, model.ErrExpertNotFound
	}
	return e, nil
}

func (d *fakeDirectory) ListExperts(_ context.Context, category string) ([]model.ExpertSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.ExpertSummary
	for _, e := range d.experts {
		if category == "" || e.Category == category {
			out = append(out, e.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *fakeDirectory) UpsertExpert(_ context.Context, e model.Expert) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.experts[e.ID] = e
	return nil
}

// fakeLedger enforces slot uniqueness under its mutex, like a unique index.
type fakeLedger struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
	slots    map[model.SlotKey]string
	experts  *fakeDirectory
	inserts  int
	failWith error
}

func newFakeLedger(experts *fakeDirectory) *fakeLedger {
	return &fakeLedger{
		bookings: map[string]model.Booking{},
		slots:    map[model.SlotKey]string{},
		experts:  experts,
	}
}

func (l *fakeLedger) Insert(_ context.Context, b model.Booking) (model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inserts++
	if l.failWith != nil {
		return model.Booking{}, l.failWith
	}
	if _, taken := l.slots[b.Key()]; taken {
		return model.Booking{}, model.ErrDuplicateReservation
	}
	l.slots[b.Key()] = b.ID
	l.bookings[b.ID] = b
	return b, nil
}

func (l *fakeLedger) FindByID(_ context.Context, id string) (model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[id]
	if !ok {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, nil
}

func (l *fakeLedger) UpdateStatus(_ context.Context, id string, status model.Status) (model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[id]
	if !ok {
		return model.Booking{}, model.ErrBookingNotFound
	}
	b.Status = status
	l.bookings[id] = b
	return b, nil
}

func (l *fakeLedger) FindByEmail(ctx context.Context, email string) ([]model.BookingView, error) {
	l.mu.Lock()
	var matched []model.Booking
	for _, b := range l.bookings {
		if b.Email == email {
			matched = append(matched, b)
		}
	}
	l.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	out := make([]model.BookingView, 0, len(matched))
	for _, b := range matched {
		e, err := l.experts.FindExpert(ctx, b.ExpertID)
		if err != nil && !errors.Is(err, model.ErrExpertNotFound) {
			return nil, err
		}
		out = append(out, model.BookingView{
			Booking: b,
			Expert:  model.ExpertRef{ID: b.ExpertID, Name: e.Name, Category: e.Category},
		})
	}
	return out, nil
}

func (l *fakeLedger) BookedSlots(_ context.Context, expertID string, dates []string) ([]model.SlotKey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	want := map[string]bool{}
	for _, d := range dates {
		want[d] = true
	}
	var out []model.SlotKey
	for k := range l.slots {
		if k.ExpertID == expertID && want[k.Date] {
			out = append(out, k)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.SlotEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, ev model.SlotEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

type countingRecorder struct {
	mu        sync.Mutex
	outcomes  map[string]int
	statuses  map[model.Status]int
	notifyErr int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: map[string]int{}, statuses: map[model.Status]int{}}
}

func (r *countingRecorder) Reservation(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
}

func (r *countingRecorder) StatusUpdate(s model.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[s]++
}

func (r *countingRecorder) NotifyFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifyErr++
}
