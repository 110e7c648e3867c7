package reservations

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Reservation statuses. Clinic-side tools may set others; the engine only
// distinguishes cancelled from everything else.
const (
	StatusScheduled = "scheduled"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// ErrNotFound indicates the reservation does not exist for the clinic.
var ErrNotFound = errors.New("reservations: not found")

// ErrOverlap indicates the write lost a race against a conflicting interval.
// Callers treat it as an ordinary scheduling conflict, not a fault.
var ErrOverlap = errors.New("reservations: interval overlaps existing reservation")

// Reservation is a confirmed or pending appointment interval, scoped to a
// clinic. Intervals are half-open [StartsAt, EndsAt).
type Reservation struct {
	ID          uuid.UUID
	ClinicID    string
	PatientID   *uuid.UUID
	LeadID      *uuid.UUID
	Phone       string // digits-only contact phone
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	Status      string
	CreatedAt   time.Time
}
