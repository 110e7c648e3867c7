// Package engine implements the appointment-booking conversation: a
// per-contact state machine that turns free-text messages into
// conflict-checked reservations.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State identifies where a conversation stands.
type State string

const (
	StateStart             State = "START"
	StateAwaitingProcedure State = "AWAITING_PROCEDURE"
	StateAwaitingDate      State = "AWAITING_DATE"
	StateAwaitingTime      State = "AWAITING_TIME"
	StateAwaitingConfirm   State = "AWAITING_CONFIRM"
	StateDone              State = "DONE"

	StateRescheduleAwaitingDate    State = "RESCHEDULE_AWAITING_DATE"
	StateRescheduleAwaitingTime    State = "RESCHEDULE_AWAITING_TIME"
	StateRescheduleAwaitingConfirm State = "RESCHEDULE_AWAITING_CONFIRM"
)

// SlotData is the strongly-typed slot-filling record accumulated across
// turns. Fields merge as the conversation progresses and reset only on
// explicit restarts.
type SlotData struct {
	ServiceCode  string     `json:"service_code,omitempty"`
	Date         string     `json:"date,omitempty"` // "2006-01-02"
	Time         string     `json:"time,omitempty"` // "15:04"
	RescheduleID *uuid.UUID `json:"reschedule_id,omitempty"`
}

// Session is the conversational memory for one (clinic, contact) pair. At
// most one session exists per pair; it is created lazily and never deleted.
type Session struct {
	ClinicID  string
	Phone     string // digits-only
	State     State
	Data      SlotData
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrSessionNotFound indicates no session exists yet for the pair.
var ErrSessionNotFound = errors.New("engine: session not found")

// NewSession returns a fresh session in the START state.
func NewSession(clinicID, phone string) *Session {
	return &Session{
		ClinicID: clinicID,
		Phone:    phone,
		State:    StateStart,
	}
}

// dateLayout and clockLayout pin the wire form of slot data.
const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// interval materializes the chosen date and time as a half-open reservation
// window in loc.
func (d SlotData) interval(durationMinutes int, loc *time.Location) (time.Time, time.Time, error) {
	if d.Date == "" || d.Time == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("engine: slot data incomplete: date=%q time=%q", d.Date, d.Time)
	}
	start, err := time.ParseInLocation(dateLayout+" "+clockLayout, d.Date+" "+d.Time, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("engine: parse slot data: %w", err)
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return start, end, nil
}
