package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type window struct {
	id    uuid.UUID
	start time.Time
	end   time.Time
}

// fakeStore answers overlap counts from a fixed set of busy windows using
// half-open interval logic.
type fakeStore struct {
	busy []window
}

func (f *fakeStore) CountOverlapping(_ context.Context, _ string, start, end time.Time, excludeID uuid.UUID) (int, error) {
	count := 0
	for _, w := range f.busy {
		if excludeID != uuid.Nil && w.id == excludeID {
			continue
		}
		if w.start.Before(end) && w.end.After(start) {
			count++
		}
	}
	return count, nil
}

func at(h, m int) time.Time {
	return time.Date(2025, time.June, 3, h, m, 0, 0, time.UTC)
}

func TestHasConflictHalfOpenIntervals(t *testing.T) {
	store := &fakeStore{busy: []window{{id: uuid.New(), start: at(10, 0), end: at(10, 30)}}}
	e := NewEngine(store)
	ctx := context.Background()

	conflict, err := e.HasConflict(ctx, "clinic-a", at(10, 15), at(10, 45), uuid.Nil)
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if !conflict {
		t.Error("expected overlap for 10:15-10:45")
	}

	// Back-to-back is allowed: [10:00,10:30) and [10:30,11:00) only touch.
	conflict, err = e.HasConflict(ctx, "clinic-a", at(10, 30), at(11, 0), uuid.Nil)
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if conflict {
		t.Error("touching intervals must not conflict")
	}
}

func TestHasConflictExcludesReservation(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{busy: []window{{id: id, start: at(10, 0), end: at(10, 30)}}}
	e := NewEngine(store)

	conflict, err := e.HasConflict(context.Background(), "clinic-a", at(10, 0), at(10, 30), id)
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if conflict {
		t.Error("a reservation must not conflict with itself during reschedule")
	}
}

func TestSuggestSlotsSkipsBusyMorning(t *testing.T) {
	store := &fakeStore{busy: []window{{id: uuid.New(), start: at(8, 0), end: at(10, 30)}}}
	e := NewEngine(store)

	day := time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)
	slots, err := e.SuggestSlots(context.Background(), "clinic-a", day, 30, 0, 0)
	if err != nil {
		t.Fatalf("SuggestSlots failed: %v", err)
	}

	want := []time.Time{at(10, 30), at(11, 0), at(11, 30)}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d: %v", len(slots), len(want), slots)
	}
	for i := range want {
		if !slots[i].Equal(want[i]) {
			t.Errorf("slot[%d] = %v, want %v", i, slots[i], want[i])
		}
	}
}

func TestSuggestSlotsEmptyWhenDayFull(t *testing.T) {
	store := &fakeStore{busy: []window{{id: uuid.New(), start: at(7, 0), end: at(20, 0)}}}
	e := NewEngine(store)

	day := time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)
	slots, err := e.SuggestSlots(context.Background(), "clinic-a", day, 30, 0, 0)
	if err != nil {
		t.Fatalf("SuggestSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots, got %v", slots)
	}
}

func TestSuggestSlotsRejectsNonPositiveDuration(t *testing.T) {
	e := NewEngine(&fakeStore{})
	if _, err := e.SuggestSlots(context.Background(), "clinic-a", at(0, 0), 0, 0, 0); err == nil {
		t.Error("expected an error for zero duration")
	}
}

func TestSuggestSlotsChronologicalAndCapped(t *testing.T) {
	e := NewEngine(&fakeStore{})
	day := time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)

	slots, err := e.SuggestSlots(context.Background(), "clinic-a", day, 60, 30, 3)
	if err != nil {
		t.Fatalf("SuggestSlots failed: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].After(slots[i-1]) {
			t.Error("slots must be strictly chronological")
		}
	}
	if !slots[0].Equal(at(8, 0)) {
		t.Errorf("first slot = %v, want 08:00", slots[0])
	}
}
