// Package availability validates proposed appointment intervals against the
// clinic's existing reservations and proposes alternatives when the requested
// window is taken.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Business-hours window for slot suggestions. Tenant-specific hours are an
// external configuration concern; the engine uses one fixed policy.
const (
	openHour  = 8
	closeHour = 19
)

// Default slot-walk parameters.
const (
	DefaultStepMinutes = 30
	DefaultMaxResults  = 3
)

// ConflictStore is the subset of the reservation repository the engine needs.
type ConflictStore interface {
	CountOverlapping(ctx context.Context, clinicID string, start, end time.Time, excludeID uuid.UUID) (int, error)
}

// Engine answers conflict and slot-suggestion queries for one clinic at a
// time.
type Engine struct {
	store ConflictStore
}

// NewEngine wires the engine to a reservation store.
func NewEngine(store ConflictStore) *Engine {
	if store == nil {
		panic("availability: conflict store required")
	}
	return &Engine{store: store}
}

// HasConflict reports whether any non-cancelled reservation for the clinic
// overlaps [start, end). Intervals that merely touch are not conflicts.
// excludeID removes the reservation being rescheduled from the check; pass
// uuid.Nil for new bookings.
func (e *Engine) HasConflict(ctx context.Context, clinicID string, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	count, err := e.store.CountOverlapping(ctx, clinicID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("availability: conflict check: %w", err)
	}
	return count > 0, nil
}

// SuggestSlots walks candidate start times across the business-hours window
// of the given date, in stepMinutes increments, and returns up to maxResults
// starts whose [start, start+duration) interval is free. Output is strictly
// chronological.
func (e *Engine) SuggestSlots(ctx context.Context, clinicID string, date time.Time, durationMinutes, stepMinutes, maxResults int) ([]time.Time, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("availability: duration must be positive, got %d", durationMinutes)
	}
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(stepMinutes) * time.Minute
	dayOpen := time.Date(date.Year(), date.Month(), date.Day(), openHour, 0, 0, 0, date.Location())
	dayClose := time.Date(date.Year(), date.Month(), date.Day(), closeHour, 0, 0, 0, date.Location())

	var slots []time.Time
	for start := dayOpen; !start.After(dayClose); start = start.Add(step) {
		conflict, err := e.HasConflict(ctx, clinicID, start, start.Add(duration), uuid.Nil)
		if err != nil {
			return nil, err
		}
		if !conflict {
			slots = append(slots, start)
			if len(slots) >= maxResults {
				break
			}
		}
	}
	return slots, nil
}
