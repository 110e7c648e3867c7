package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/booking-engine/internal/reservations"
	"github.com/clinicware/booking-engine/pkg/logging"
)

// Monday, June 2 2025 at noon UTC.
var testNow = time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)

const (
	testClinic = "clinic-a"
	testPhone  = "+55 11 99999-0000"
	testDigits = "5511999990000"
)

type fakeAvailability struct {
	conflict    bool
	slots       []time.Time
	lastStart   time.Time
	lastEnd     time.Time
	lastExclude uuid.UUID
}

func (f *fakeAvailability) HasConflict(_ context.Context, _ string, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	f.lastStart, f.lastEnd, f.lastExclude = start, end, excludeID
	return f.conflict, nil
}

func (f *fakeAvailability) SuggestSlots(_ context.Context, _ string, _ time.Time, _, _, _ int) ([]time.Time, error) {
	return f.slots, nil
}

type fakeExecutor struct {
	createOutcome     Outcome
	rescheduleOutcome Outcome
	createReqs        []CreateRequest
	rescheduleReqs    []RescheduleRequest
}

func (f *fakeExecutor) Create(_ context.Context, req CreateRequest) Outcome {
	f.createReqs = append(f.createReqs, req)
	return f.createOutcome
}

func (f *fakeExecutor) Reschedule(_ context.Context, req RescheduleRequest) Outcome {
	f.rescheduleReqs = append(f.rescheduleReqs, req)
	return f.rescheduleOutcome
}

type fakeReservations struct {
	latest    *reservations.Reservation
	latestErr error
}

func (f *fakeReservations) Create(context.Context, *reservations.Reservation) error {
	return nil
}

func (f *fakeReservations) GetForClinic(context.Context, string, uuid.UUID) (*reservations.Reservation, error) {
	return f.latest, f.latestErr
}

func (f *fakeReservations) LatestByPhone(context.Context, string, string) (*reservations.Reservation, error) {
	return f.latest, f.latestErr
}

func (f *fakeReservations) UpdateInterval(context.Context, string, uuid.UUID, time.Time, time.Time, string) error {
	return nil
}

type harness struct {
	engine   *Engine
	sessions *MemorySessionStore
	avail    *fakeAvailability
	exec     *fakeExecutor
	res      *fakeReservations
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	avail := &fakeAvailability{}
	exec := &fakeExecutor{createOutcome: OutcomeBooked, rescheduleOutcome: OutcomeBooked}
	res := &fakeReservations{latestErr: reservations.ErrNotFound}
	sessions := NewMemorySessionStore()
	eng := NewEngine(sessions, res, avail, exec, nil, logging.Default(),
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
	)
	return &harness{engine: eng, sessions: sessions, avail: avail, exec: exec, res: res}
}

func (h *harness) send(t *testing.T, text string) Reply {
	t.Helper()
	reply, err := h.engine.HandleMessage(context.Background(), Inbound{
		ClinicID:    testClinic,
		Phone:       testPhone,
		DisplayName: "Ana Silva",
		Text:        text,
	})
	require.NoError(t, err)
	require.NotEmpty(t, reply.Body, "every inbound message must produce a reply")
	return reply
}

func (h *harness) session(t *testing.T) *Session {
	t.Helper()
	sess, err := h.sessions.Get(context.Background(), testClinic, testDigits)
	require.NoError(t, err)
	return sess
}

func TestGreetingOnUnrelatedMessage(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "hi there")
	require.Contains(t, reply.Body, "book an appointment")
	require.Equal(t, StateStart, h.session(t).State)
}

func TestFullBookingFlow(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "I want to book a cleaning")
	require.Contains(t, reply.Body, "Dental Cleaning")
	require.Equal(t, StateAwaitingDate, h.session(t).State)

	reply = h.send(t, "tomorrow")
	require.Contains(t, reply.Body, "What time")
	sess := h.session(t)
	require.Equal(t, StateAwaitingTime, sess.State)
	require.Equal(t, "2025-06-03", sess.Data.Date)

	reply = h.send(t, "10:00")
	require.Contains(t, reply.Body, "To confirm")
	require.Contains(t, reply.Body, "10:00 AM")
	require.Contains(t, reply.Body, "40 minutes")
	require.Equal(t, StateAwaitingConfirm, h.session(t).State)

	reply = h.send(t, "yes")
	require.Contains(t, reply.Body, "All set")
	require.Equal(t, StateDone, h.session(t).State)

	require.Len(t, h.exec.createReqs, 1)
	req := h.exec.createReqs[0]
	require.Equal(t, testClinic, req.ClinicID)
	require.Equal(t, testDigits, req.Phone)
	require.Equal(t, "Ana Silva", req.DisplayName)
	require.Equal(t, "cleaning", req.Data.ServiceCode)
	require.Equal(t, "2025-06-03", req.Data.Date)
	require.Equal(t, "10:00", req.Data.Time)

	// Cleaning is 40 minutes; the conflict pre-check saw the right window.
	require.Equal(t, time.Date(2025, time.June, 3, 10, 0, 0, 0, time.UTC), h.avail.lastStart)
	require.Equal(t, time.Date(2025, time.June, 3, 10, 40, 0, 0, time.UTC), h.avail.lastEnd)
	require.Equal(t, uuid.Nil, h.avail.lastExclude)
}

func TestSingleMessageBooking(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "book a whitening tomorrow at 14:30")
	require.Contains(t, reply.Body, "To confirm")
	require.Contains(t, reply.Body, "Teeth Whitening")
	require.Contains(t, reply.Body, "2:30 PM")

	sess := h.session(t)
	require.Equal(t, StateAwaitingConfirm, sess.State)
	require.Equal(t, "2025-06-03", sess.Data.Date)
	require.Equal(t, "14:30", sess.Data.Time)
}

func TestUnrecognizedDateReprompts(t *testing.T) {
	h := newHarness(t)
	h.send(t, "book a cleaning")

	reply := h.send(t, "whenever you have time")
	require.Contains(t, reply.Body, "couldn't find a date")
	require.Equal(t, StateAwaitingDate, h.session(t).State)
}

func TestUnknownServiceReprompts(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "I want to schedule something")
	require.Contains(t, reply.Body, "Which service")
	require.Equal(t, StateAwaitingProcedure, h.session(t).State)

	reply = h.send(t, "a facelift")
	require.Contains(t, reply.Body, "Which service")
	require.Equal(t, StateAwaitingProcedure, h.session(t).State)

	h.send(t, "botox then")
	require.Equal(t, StateAwaitingDate, h.session(t).State)
	require.Equal(t, "botox", h.session(t).Data.ServiceCode)
}

func TestConflictOffersSameDaySlots(t *testing.T) {
	h := newHarness(t)
	h.avail.conflict = true
	h.avail.slots = []time.Time{
		time.Date(2025, time.June, 3, 10, 30, 0, 0, time.UTC),
		time.Date(2025, time.June, 3, 11, 0, 0, 0, time.UTC),
	}

	h.send(t, "book a cleaning")
	h.send(t, "tomorrow")
	h.send(t, "10:00")
	reply := h.send(t, "yes")

	require.Contains(t, reply.Body, "already taken")
	require.Contains(t, reply.Body, "10:30 AM")
	require.Contains(t, reply.Body, "11:00 AM")

	sess := h.session(t)
	require.Equal(t, StateAwaitingTime, sess.State)
	require.Empty(t, sess.Data.Time, "rejected time must be cleared")
	require.Equal(t, "2025-06-03", sess.Data.Date, "date survives a time conflict")
	require.Empty(t, h.exec.createReqs, "executor must not run on a known conflict")
}

func TestDayFullAsksForNewDate(t *testing.T) {
	h := newHarness(t)
	h.avail.conflict = true
	h.avail.slots = nil

	h.send(t, "book a cleaning")
	h.send(t, "tomorrow")
	h.send(t, "10:00")
	reply := h.send(t, "yes")

	require.Contains(t, reply.Body, "fully booked")
	sess := h.session(t)
	require.Equal(t, StateAwaitingDate, sess.State)
	require.Empty(t, sess.Data.Date)
	require.Empty(t, sess.Data.Time)
}

func TestNegativeAtConfirmRestarts(t *testing.T) {
	h := newHarness(t)
	h.send(t, "book a cleaning")
	h.send(t, "tomorrow")
	h.send(t, "10:00")

	reply := h.send(t, "no, that is wrong")
	require.Contains(t, reply.Body, "start over")

	sess := h.session(t)
	require.Equal(t, StateStart, sess.State)
	require.Equal(t, SlotData{}, sess.Data)
}

func TestAmbiguousConfirmReprompts(t *testing.T) {
	h := newHarness(t)
	h.send(t, "book a cleaning")
	h.send(t, "tomorrow")
	h.send(t, "10:00")

	// "cancel" contains both a yes-word ("can") and a no-word; never guess.
	reply := h.send(t, "cancel")
	require.Contains(t, reply.Body, "yes or no")
	require.Equal(t, StateAwaitingConfirm, h.session(t).State)
	require.Empty(t, h.exec.createReqs)
}

func TestInfoQuestionKeepsState(t *testing.T) {
	h := newHarness(t)
	h.send(t, "book a cleaning")
	require.Equal(t, StateAwaitingDate, h.session(t).State)

	reply := h.send(t, "how much is botox?")
	require.Contains(t, reply.Body, "Botox")

	sess := h.session(t)
	require.Equal(t, StateAwaitingDate, sess.State, "info answers must not advance the flow")
	require.Equal(t, "cleaning", sess.Data.ServiceCode)
}

func TestExecutorFailureKeepsConfirmState(t *testing.T) {
	h := newHarness(t)
	h.exec.createOutcome = OutcomeFailed

	h.send(t, "book a cleaning")
	h.send(t, "tomorrow")
	h.send(t, "10:00")
	reply := h.send(t, "yes")

	require.Contains(t, reply.Body, "went wrong")
	require.Equal(t, StateAwaitingConfirm, h.session(t).State, "a retry 'yes' must stay possible")
}

func TestExecutorConflictRaceOffersSlots(t *testing.T) {
	h := newHarness(t)
	h.exec.createOutcome = OutcomeConflict
	h.avail.slots = []time.Time{time.Date(2025, time.June, 3, 16, 0, 0, 0, time.UTC)}

	h.send(t, "book a cleaning")
	h.send(t, "tomorrow")
	h.send(t, "10:00")
	reply := h.send(t, "yes")

	require.Contains(t, reply.Body, "4:00 PM")
	require.Equal(t, StateAwaitingTime, h.session(t).State)
}

func TestRescheduleRoundTrip(t *testing.T) {
	h := newHarness(t)
	existing := &reservations.Reservation{
		ID:       uuid.New(),
		ClinicID: testClinic,
		Phone:    testDigits,
		Title:    "Teeth Whitening - Ana Silva",
		StartsAt: time.Date(2025, time.June, 4, 10, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, time.June, 4, 11, 0, 0, 0, time.UTC),
		Status:   reservations.StatusScheduled,
	}
	h.res.latest = existing
	h.res.latestErr = nil

	reply := h.send(t, "I need to reschedule my appointment")
	require.Contains(t, reply.Body, "Teeth Whitening")
	sess := h.session(t)
	require.Equal(t, StateRescheduleAwaitingDate, sess.State)
	require.NotNil(t, sess.Data.RescheduleID)
	require.Equal(t, existing.ID, *sess.Data.RescheduleID)
	require.Equal(t, "whitening", sess.Data.ServiceCode)

	h.send(t, "friday")
	require.Equal(t, StateRescheduleAwaitingTime, h.session(t).State)

	reply = h.send(t, "9h")
	require.Contains(t, reply.Body, "To confirm")
	require.Equal(t, StateRescheduleAwaitingConfirm, h.session(t).State)

	reply = h.send(t, "yes")
	require.Contains(t, reply.Body, "has been moved")
	require.Equal(t, StateDone, h.session(t).State)

	require.Len(t, h.exec.rescheduleReqs, 1)
	req := h.exec.rescheduleReqs[0]
	require.Equal(t, existing.ID, req.ReservationID)
	require.Equal(t, "2025-06-06", req.Data.Date)
	require.Equal(t, "09:00", req.Data.Time)
	require.Equal(t, 60, req.DurationMinutes)

	// The moving reservation never conflicts with itself.
	require.Equal(t, existing.ID, h.avail.lastExclude)
	require.Empty(t, h.exec.createReqs)
}

func TestReschedulePreemptsMidFlow(t *testing.T) {
	h := newHarness(t)
	existing := &reservations.Reservation{
		ID:       uuid.New(),
		ClinicID: testClinic,
		Phone:    testDigits,
		Title:    "Botox",
		Status:   reservations.StatusScheduled,
	}

	h.send(t, "book a cleaning")
	h.send(t, "tomorrow")
	require.Equal(t, StateAwaitingTime, h.session(t).State)

	h.res.latest = existing
	h.res.latestErr = nil
	reply := h.send(t, "actually, can you move my appointment?")
	require.Contains(t, reply.Body, "Botox")

	sess := h.session(t)
	require.Equal(t, StateRescheduleAwaitingDate, sess.State)
	require.Equal(t, "botox", sess.Data.ServiceCode)
	require.Empty(t, sess.Data.Date, "pre-emption reseeds slot data")
}

func TestRescheduleWithoutReservationFallsBackToBooking(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "I want to reschedule")
	require.Contains(t, reply.Body, "couldn't find an upcoming appointment")
	require.Equal(t, StateAwaitingProcedure, h.session(t).State)
}

func TestDoneStateIdlesAndRestarts(t *testing.T) {
	h := newHarness(t)
	h.send(t, "book a cleaning")
	h.send(t, "tomorrow")
	h.send(t, "10:00")
	h.send(t, "yes")
	require.Equal(t, StateDone, h.session(t).State)

	reply := h.send(t, "thanks!")
	require.Contains(t, reply.Body, "confirmed")
	require.Equal(t, StateDone, h.session(t).State)

	reply = h.send(t, "book a botox too")
	require.Contains(t, reply.Body, "Botox")
	sess := h.session(t)
	require.Equal(t, StateAwaitingDate, sess.State)
	require.Equal(t, "botox", sess.Data.ServiceCode)
}

func TestRejectsMissingClinicOrPhone(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.HandleMessage(context.Background(), Inbound{ClinicID: "", Phone: testPhone, Text: "hi"})
	require.Error(t, err)

	_, err = h.engine.HandleMessage(context.Background(), Inbound{ClinicID: testClinic, Phone: "abc", Text: "hi"})
	require.Error(t, err)
}
