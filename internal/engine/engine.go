package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/booking-engine/internal/catalog"
	"github.com/clinicware/booking-engine/internal/intent"
	"github.com/clinicware/booking-engine/internal/messaging"
	"github.com/clinicware/booking-engine/internal/observability/metrics"
	"github.com/clinicware/booking-engine/internal/reservations"
	"github.com/clinicware/booking-engine/internal/tenancy"
	"github.com/clinicware/booking-engine/internal/timeparse"
	"github.com/clinicware/booking-engine/pkg/logging"
)

// Inbound is one message arriving from a contact.
type Inbound struct {
	ClinicID    string
	Phone       string
	DisplayName string
	Text        string
	MessageID   string // provider message id, used upstream for dedup
}

// OverrideSource fetches a clinic's catalog override map.
type OverrideSource interface {
	Get(ctx context.Context, clinicID string) (map[string]catalog.Entry, error)
}

// Transcript records conversation lines for audit and debugging.
type Transcript interface {
	Append(ctx context.Context, clinicID, phone, direction, body string) error
}

// Engine drives the per-contact booking conversation. Every inbound message
// yields exactly one reply; messages from the same contact are serialized.
type Engine struct {
	sessions     SessionStore
	store        ReservationStore
	availability Availability
	executor     BookingExecutor
	overrides    OverrideSource
	intents      *intent.Matcher
	resolver     *catalog.Resolver
	transcript   Transcript
	logger       *logging.Logger
	clock        func() time.Time
	loc          *time.Location
	locks        *keyedMutex
}

// Option customizes the engine.
type Option func(*Engine)

// WithClock pins the reference instant used for relative date parsing.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLocation sets the clinic timezone for date math and replies.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithTranscript enables conversation transcript recording.
func WithTranscript(t Transcript) Option {
	return func(e *Engine) { e.transcript = t }
}

// NewEngine wires the state machine. overrides may be nil (defaults only).
func NewEngine(sessions SessionStore, store ReservationStore, avail Availability, executor BookingExecutor, overrides OverrideSource, logger *logging.Logger, opts ...Option) *Engine {
	if sessions == nil {
		panic("engine: session store required")
	}
	if store == nil {
		panic("engine: reservation store required")
	}
	if avail == nil {
		panic("engine: availability required")
	}
	if executor == nil {
		panic("engine: booking executor required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		sessions:     sessions,
		store:        store,
		availability: avail,
		executor:     executor,
		overrides:    overrides,
		intents:      intent.NewMatcher(),
		resolver:     catalog.NewResolver(),
		logger:       logger,
		clock:        time.Now,
		loc:          time.Local,
		locks:        newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleMessage runs one turn of the conversation and returns the single
// reply. Storage failures on session load/save surface as errors; everything
// downstream degrades to an apologetic reply instead.
func (e *Engine) HandleMessage(ctx context.Context, msg Inbound) (Reply, error) {
	started := time.Now()
	defer func() { metrics.HandleDuration.Observe(time.Since(started).Seconds()) }()

	phone := messaging.NormalizeDigits(msg.Phone)
	if msg.ClinicID == "" || phone == "" {
		return Reply{}, fmt.Errorf("engine: clinic id and phone required")
	}
	msg.Phone = phone
	ctx = tenancy.WithClinicID(ctx, msg.ClinicID)

	unlock := e.locks.Lock(msg.ClinicID + ":" + phone)
	defer unlock()

	sess, err := e.sessions.Get(ctx, msg.ClinicID, phone)
	if errors.Is(err, ErrSessionNotFound) {
		sess = NewSession(msg.ClinicID, phone)
	} else if err != nil {
		return Reply{}, err
	}

	e.record(ctx, sess, "in", msg.Text)

	now := e.clock().In(e.loc)
	override := e.override(ctx, msg.ClinicID)

	reply, mutated := e.dispatch(ctx, sess, msg, override, now)

	if mutated {
		if err := e.sessions.Save(ctx, sess); err != nil {
			return Reply{}, err
		}
	}
	e.record(ctx, sess, "out", reply.Body)
	return reply, nil
}

// dispatch applies the global pre-emptions, then the per-state handler. The
// second return value reports whether the session changed and needs saving.
func (e *Engine) dispatch(ctx context.Context, sess *Session, msg Inbound, override map[string]catalog.Entry, now time.Time) (Reply, bool) {
	text := msg.Text

	// Reschedule pre-emption wins from any state.
	if e.intents.WantsReschedule(text) {
		return e.startReschedule(ctx, sess, override), true
	}

	// Informational questions are answered in place: state and slots are
	// left exactly as they were.
	if e.intents.WantsInfo(text) {
		if code := e.intents.ServiceCode(text); code != "" {
			return Reply{Body: replyInfo(e.resolver.Resolve(override, code))}, false
		}
	}

	switch sess.State {
	case StateStart:
		return e.handleStart(sess, text, override, now), true
	case StateAwaitingProcedure:
		return e.handleAwaitingProcedure(sess, text, override, now), true
	case StateAwaitingDate:
		return e.handleAwaitingDate(sess, text, override, now, false), true
	case StateAwaitingTime:
		return e.handleAwaitingTime(sess, text, override, false), true
	case StateAwaitingConfirm:
		return e.handleConfirm(ctx, sess, msg, override, false), true
	case StateDone:
		return e.handleDone(sess, text, override, now), true
	case StateRescheduleAwaitingDate:
		return e.handleAwaitingDate(sess, text, override, now, true), true
	case StateRescheduleAwaitingTime:
		return e.handleAwaitingTime(sess, text, override, true), true
	case StateRescheduleAwaitingConfirm:
		return e.handleConfirm(ctx, sess, msg, override, true), true
	default:
		// Unknown stored state heals back to the start.
		sess.State = StateStart
		sess.Data = SlotData{}
		return Reply{Body: replyGreeting()}, true
	}
}

func (e *Engine) handleStart(sess *Session, text string, override map[string]catalog.Entry, now time.Time) Reply {
	code := e.intents.ServiceCode(text)
	if !e.intents.WantsNewBooking(text) && code == "" {
		return Reply{Body: replyGreeting()}
	}
	if code == "" {
		sess.State = StateAwaitingProcedure
		return Reply{Body: replyAskProcedure(e.entries(override))}
	}
	sess.Data.ServiceCode = code
	e.captureDateAndTime(sess, text, now)
	return e.promptForMissing(sess, override, false)
}

func (e *Engine) handleAwaitingProcedure(sess *Session, text string, override map[string]catalog.Entry, now time.Time) Reply {
	code := e.intents.ServiceCode(text)
	if code == "" {
		return Reply{Body: replyAskProcedure(e.entries(override))}
	}
	sess.Data.ServiceCode = code
	e.captureDateAndTime(sess, text, now)
	return e.promptForMissing(sess, override, false)
}

func (e *Engine) handleAwaitingDate(sess *Session, text string, override map[string]catalog.Entry, now time.Time, reschedule bool) Reply {
	date, ok := timeparse.ParseDate(text, now)
	if !ok {
		return Reply{Body: replyUnrecognizedDate()}
	}
	sess.Data.Date = date.Format(dateLayout)
	if clock, ok := timeparse.ParseClockExplicit(text); ok {
		sess.Data.Time = clock.String()
	}
	return e.promptForMissing(sess, override, reschedule)
}

func (e *Engine) handleAwaitingTime(sess *Session, text string, override map[string]catalog.Entry, reschedule bool) Reply {
	clock, ok := timeparse.ParseClock(text)
	if !ok {
		return Reply{Body: replyUnrecognizedTime()}
	}
	sess.Data.Time = clock.String()
	return e.promptForMissing(sess, override, reschedule)
}

func (e *Engine) handleConfirm(ctx context.Context, sess *Session, msg Inbound, override map[string]catalog.Entry, reschedule bool) Reply {
	affirmative := e.intents.IsAffirmative(msg.Text)
	negative := e.intents.IsNegative(msg.Text)
	switch {
	case negative && !affirmative:
		sess.Data = SlotData{}
		sess.State = StateStart
		return Reply{Body: replyRestart()}
	case affirmative && !negative:
		return e.commit(ctx, sess, msg, override, reschedule)
	default:
		// "cancel" hits both yes- and no-words; never guess.
		return Reply{Body: replyConfirmYesNo()}
	}
}

func (e *Engine) handleDone(sess *Session, text string, override map[string]catalog.Entry, now time.Time) Reply {
	if e.intents.WantsNewBooking(text) || e.intents.ServiceCode(text) != "" {
		sess.Data = SlotData{}
		sess.State = StateStart
		return e.handleStart(sess, text, override, now)
	}
	return Reply{Body: replyDoneIdle()}
}

// startReschedule seeds the reschedule sub-flow from the contact's latest
// non-cancelled reservation. Without one, the flow falls through to a new
// booking instead.
func (e *Engine) startReschedule(ctx context.Context, sess *Session, override map[string]catalog.Entry) Reply {
	latest, err := e.store.LatestByPhone(ctx, sess.ClinicID, sess.Phone)
	if errors.Is(err, reservations.ErrNotFound) {
		sess.Data = SlotData{}
		sess.State = StateAwaitingProcedure
		return Reply{Body: replyNoUpcoming(e.entries(override))}
	}
	if err != nil {
		e.logger.Error("engine: latest reservation lookup failed", "error", err, "clinic_id", sess.ClinicID)
		return Reply{Body: replyFailure()}
	}

	code := e.intents.ServiceCodeFromTitle(latest.Title)
	if code == "" {
		code = catalog.FallbackCode
	}
	sess.Data = SlotData{ServiceCode: code, RescheduleID: &latest.ID}
	sess.State = StateRescheduleAwaitingDate
	entry := e.resolver.Resolve(override, code)
	return Reply{Body: replyAskRescheduleDate(entry.Name)}
}

// promptForMissing advances to the first unfilled slot and asks for it, or
// moves to confirmation when the record is complete.
func (e *Engine) promptForMissing(sess *Session, override map[string]catalog.Entry, reschedule bool) Reply {
	entry := e.resolver.Resolve(override, sess.Data.ServiceCode)
	switch {
	case sess.Data.Date == "":
		if reschedule {
			sess.State = StateRescheduleAwaitingDate
			return Reply{Body: replyAskRescheduleDate(entry.Name)}
		}
		sess.State = StateAwaitingDate
		return Reply{Body: replyAskDate(entry.Name)}
	case sess.Data.Time == "":
		sess.State = awaitTimeState(reschedule)
		return Reply{Body: replyAskTime(entry.Name, e.humanDate(sess.Data.Date))}
	default:
		sess.State = awaitConfirmState(reschedule)
		duration := e.resolver.DurationMinutes(override, sess.Data.ServiceCode)
		start, _, err := sess.Data.interval(duration, e.loc)
		if err != nil {
			// Unreachable with slots the engine itself wrote.
			sess.Data.Date, sess.Data.Time = "", ""
			sess.State = awaitDateState(reschedule)
			return Reply{Body: replyUnrecognizedDate()}
		}
		return Reply{Body: replyConfirm(entry.Name, start, duration)}
	}
}

// commit runs the conflict check and hands off to the executor.
func (e *Engine) commit(ctx context.Context, sess *Session, msg Inbound, override map[string]catalog.Entry, reschedule bool) Reply {
	duration := e.resolver.DurationMinutes(override, sess.Data.ServiceCode)
	start, end, err := sess.Data.interval(duration, e.loc)
	if err != nil {
		e.logger.Error("engine: confirm with incomplete slots", "error", err, "clinic_id", sess.ClinicID)
		sess.Data = SlotData{}
		sess.State = StateStart
		return Reply{Body: replyRestart()}
	}

	exclude := uuid.Nil
	if reschedule && sess.Data.RescheduleID != nil {
		exclude = *sess.Data.RescheduleID
	}
	conflict, err := e.availability.HasConflict(ctx, sess.ClinicID, start, end, exclude)
	if err != nil {
		e.logger.Error("engine: conflict check failed", "error", err, "clinic_id", sess.ClinicID)
		return Reply{Body: replyFailure()}
	}
	if conflict {
		return e.offerAlternatives(ctx, sess, start, duration, reschedule)
	}

	var outcome Outcome
	if reschedule {
		if sess.Data.RescheduleID == nil {
			outcome = OutcomeFailed
		} else {
			outcome = e.executor.Reschedule(ctx, RescheduleRequest{
				ClinicID:        sess.ClinicID,
				Phone:           sess.Phone,
				ReservationID:   *sess.Data.RescheduleID,
				Data:            sess.Data,
				DurationMinutes: duration,
			})
		}
	} else {
		outcome = e.executor.Create(ctx, CreateRequest{
			ClinicID:    sess.ClinicID,
			Phone:       sess.Phone,
			DisplayName: msg.DisplayName,
			Data:        sess.Data,
			Override:    override,
		})
	}

	switch outcome {
	case OutcomeBooked:
		entry := e.resolver.Resolve(override, sess.Data.ServiceCode)
		sess.State = StateDone
		if reschedule {
			return Reply{Body: replyRescheduled(entry.Name, start)}
		}
		return Reply{Body: replyBooked(entry.Name, start)}
	case OutcomeConflict:
		// Lost the race after our pre-check; same recovery as a plain
		// conflict.
		return e.offerAlternatives(ctx, sess, start, duration, reschedule)
	default:
		// Stay in confirmation so a retry "yes" can succeed.
		return Reply{Body: replyFailure()}
	}
}

// offerAlternatives proposes free same-day slots, falling back to asking for
// a new day when the whole day is taken.
func (e *Engine) offerAlternatives(ctx context.Context, sess *Session, start time.Time, duration int, reschedule bool) Reply {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	slots, err := e.availability.SuggestSlots(ctx, sess.ClinicID, day, duration, 0, 0)
	if err != nil {
		e.logger.Error("engine: slot suggestion failed", "error", err, "clinic_id", sess.ClinicID)
		return Reply{Body: replyFailure()}
	}
	if len(slots) == 0 {
		sess.Data.Date, sess.Data.Time = "", ""
		sess.State = awaitDateState(reschedule)
		return Reply{Body: replyDayFull(day.Format(humanDateLayout))}
	}
	sess.Data.Time = ""
	sess.State = awaitTimeState(reschedule)
	return Reply{Body: replyAlternatives(slots)}
}

// captureDateAndTime opportunistically fills date and time slots from a
// message whose primary intent was something else. Bare numbers are not
// treated as times here: in "december 12" the 12 is the day.
func (e *Engine) captureDateAndTime(sess *Session, text string, now time.Time) {
	if date, ok := timeparse.ParseDate(text, now); ok {
		sess.Data.Date = date.Format(dateLayout)
	}
	if clock, ok := timeparse.ParseClockExplicit(text); ok {
		sess.Data.Time = clock.String()
	}
}

func (e *Engine) override(ctx context.Context, clinicID string) map[string]catalog.Entry {
	if e.overrides == nil {
		return map[string]catalog.Entry{}
	}
	override, err := e.overrides.Get(ctx, clinicID)
	if err != nil {
		e.logger.Warn("engine: catalog override fetch failed, using defaults", "error", err, "clinic_id", clinicID)
		return map[string]catalog.Entry{}
	}
	return override
}

// entries lists the effective catalog in a stable, human-friendly order.
func (e *Engine) entries(override map[string]catalog.Entry) []catalog.Entry {
	merged := e.resolver.Merged(override)
	entries := make([]catalog.Entry, 0, len(merged))
	for _, entry := range merged {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func (e *Engine) humanDate(date string) string {
	t, err := time.ParseInLocation(dateLayout, date, e.loc)
	if err != nil {
		return date
	}
	return t.Format(humanDateLayout)
}

func (e *Engine) record(ctx context.Context, sess *Session, direction, body string) {
	if e.transcript == nil || body == "" {
		return
	}
	if err := e.transcript.Append(ctx, sess.ClinicID, sess.Phone, direction, body); err != nil {
		e.logger.Warn("engine: transcript append failed", "error", err, "clinic_id", sess.ClinicID)
	}
}

func awaitDateState(reschedule bool) State {
	if reschedule {
		return StateRescheduleAwaitingDate
	}
	return StateAwaitingDate
}

func awaitTimeState(reschedule bool) State {
	if reschedule {
		return StateRescheduleAwaitingTime
	}
	return StateAwaitingTime
}

func awaitConfirmState(reschedule bool) State {
	if reschedule {
		return StateRescheduleAwaitingConfirm
	}
	return StateAwaitingConfirm
}
