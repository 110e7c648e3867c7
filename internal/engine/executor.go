package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicware/booking-engine/internal/catalog"
	"github.com/clinicware/booking-engine/internal/contacts"
	"github.com/clinicware/booking-engine/internal/crm"
	"github.com/clinicware/booking-engine/internal/observability/metrics"
	"github.com/clinicware/booking-engine/internal/reservations"
	"github.com/clinicware/booking-engine/pkg/logging"
)

// Outcome is the result of a booking attempt.
type Outcome string

const (
	OutcomeBooked   Outcome = "booked"
	OutcomeConflict Outcome = "conflict"
	OutcomeFailed   Outcome = "failed"
)

// ReservationStore is the repository surface the executor and engine need.
type ReservationStore interface {
	Create(ctx context.Context, res *reservations.Reservation) error
	GetForClinic(ctx context.Context, clinicID string, id uuid.UUID) (*reservations.Reservation, error)
	LatestByPhone(ctx context.Context, clinicID, phone string) (*reservations.Reservation, error)
	UpdateInterval(ctx context.Context, clinicID string, id uuid.UUID, start, end time.Time, status string) error
}

// Availability answers conflict and suggestion queries.
type Availability interface {
	HasConflict(ctx context.Context, clinicID string, start, end time.Time, excludeID uuid.UUID) (bool, error)
	SuggestSlots(ctx context.Context, clinicID string, date time.Time, durationMinutes, stepMinutes, maxResults int) ([]time.Time, error)
}

// ContactDirectory resolves patients and leads by phone.
type ContactDirectory interface {
	FindPatientByPhone(ctx context.Context, clinicID, phone string) (*contacts.Patient, error)
	FindLeadByPhone(ctx context.Context, clinicID, phone string) (*contacts.Lead, error)
}

// StageMover requests CRM pipeline transitions.
type StageMover interface {
	MoveCardToStage(ctx context.Context, clinicID, phone, stageName string) (bool, error)
}

// BookingExecutor commits confirmed slot data to storage.
type BookingExecutor interface {
	Create(ctx context.Context, req CreateRequest) Outcome
	Reschedule(ctx context.Context, req RescheduleRequest) Outcome
}

// CreateRequest carries everything needed to persist a new reservation.
type CreateRequest struct {
	ClinicID    string
	Phone       string // digits-only
	DisplayName string
	Data        SlotData
	Override    map[string]catalog.Entry
}

// RescheduleRequest moves an existing reservation to a new window.
type RescheduleRequest struct {
	ClinicID        string
	Phone           string
	ReservationID   uuid.UUID
	Data            SlotData
	DurationMinutes int
}

// Executor is the production BookingExecutor. It re-validates availability
// inside the write path and lets the storage constraint settle races.
type Executor struct {
	store        ReservationStore
	availability Availability
	directory    ContactDirectory
	pipeline     StageMover
	resolver     *catalog.Resolver
	loc          *time.Location
	logger       *logging.Logger
	tracer       trace.Tracer
}

var _ BookingExecutor = (*Executor)(nil)

// NewExecutor wires the executor. The pipeline mover may be nil when the
// deployment has no CRM.
func NewExecutor(store ReservationStore, avail Availability, directory ContactDirectory, pipeline StageMover, resolver *catalog.Resolver, loc *time.Location, logger *logging.Logger) *Executor {
	if store == nil {
		panic("engine: reservation store required")
	}
	if avail == nil {
		panic("engine: availability required")
	}
	if resolver == nil {
		resolver = catalog.NewResolver()
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{
		store:        store,
		availability: avail,
		directory:    directory,
		pipeline:     pipeline,
		resolver:     resolver,
		loc:          loc,
		logger:       logger,
		tracer:       otel.Tracer("booking-engine/executor"),
	}
}

// Create books a new reservation from confirmed slot data. It never returns
// an error: every failure collapses to OutcomeFailed or OutcomeConflict so
// the conversation can respond.
func (e *Executor) Create(ctx context.Context, req CreateRequest) Outcome {
	ctx, span := e.tracer.Start(ctx, "executor.Create",
		trace.WithAttributes(
			attribute.String("clinic.id", req.ClinicID),
			attribute.String("service.code", req.Data.ServiceCode),
		))
	defer span.End()

	outcome := e.create(ctx, req)
	span.SetAttributes(attribute.String("booking.outcome", string(outcome)))
	metrics.BookingOutcomes.WithLabelValues("create", string(outcome)).Inc()
	return outcome
}

func (e *Executor) create(ctx context.Context, req CreateRequest) Outcome {
	entry := e.resolver.Resolve(req.Override, req.Data.ServiceCode)
	duration := e.resolver.DurationMinutes(req.Override, req.Data.ServiceCode)

	start, end, err := req.Data.interval(duration, e.loc)
	if err != nil {
		e.logger.Error("booking create: bad slot data", "error", err, "clinic_id", req.ClinicID)
		return OutcomeFailed
	}

	conflict, err := e.availability.HasConflict(ctx, req.ClinicID, start, end, uuid.Nil)
	if err != nil {
		e.logger.Error("booking create: conflict check failed", "error", err, "clinic_id", req.ClinicID)
		return OutcomeFailed
	}
	if conflict {
		return OutcomeConflict
	}

	res := &reservations.Reservation{
		ClinicID:    req.ClinicID,
		Phone:       req.Phone,
		Title:       reservationTitle(entry.Name, req.DisplayName),
		Description: entry.Description,
		StartsAt:    start,
		EndsAt:      end,
		Status:      reservations.StatusScheduled,
	}
	e.attachContact(ctx, req.ClinicID, req.Phone, res)

	if err := e.store.Create(ctx, res); err != nil {
		if errors.Is(err, reservations.ErrOverlap) {
			return OutcomeConflict
		}
		e.logger.Error("booking create: insert failed", "error", err, "clinic_id", req.ClinicID)
		return OutcomeFailed
	}

	e.moveToScheduled(ctx, req.ClinicID, req.Phone)
	e.logger.Info("reservation booked",
		"clinic_id", req.ClinicID,
		"reservation_id", res.ID,
		"service", entry.Code,
		"starts_at", start,
	)
	return OutcomeBooked
}

// Reschedule moves an existing reservation. A vanished reservation fails
// closed rather than silently creating a new one.
func (e *Executor) Reschedule(ctx context.Context, req RescheduleRequest) Outcome {
	ctx, span := e.tracer.Start(ctx, "executor.Reschedule",
		trace.WithAttributes(
			attribute.String("clinic.id", req.ClinicID),
			attribute.String("reservation.id", req.ReservationID.String()),
		))
	defer span.End()

	outcome := e.reschedule(ctx, req)
	span.SetAttributes(attribute.String("booking.outcome", string(outcome)))
	metrics.BookingOutcomes.WithLabelValues("reschedule", string(outcome)).Inc()
	return outcome
}

func (e *Executor) reschedule(ctx context.Context, req RescheduleRequest) Outcome {
	existing, err := e.store.GetForClinic(ctx, req.ClinicID, req.ReservationID)
	if err != nil {
		if !errors.Is(err, reservations.ErrNotFound) {
			e.logger.Error("booking reschedule: load failed", "error", err, "clinic_id", req.ClinicID)
		}
		return OutcomeFailed
	}

	start, end, err := req.Data.interval(req.DurationMinutes, e.loc)
	if err != nil {
		e.logger.Error("booking reschedule: bad slot data", "error", err, "clinic_id", req.ClinicID)
		return OutcomeFailed
	}

	conflict, err := e.availability.HasConflict(ctx, req.ClinicID, start, end, req.ReservationID)
	if err != nil {
		e.logger.Error("booking reschedule: conflict check failed", "error", err, "clinic_id", req.ClinicID)
		return OutcomeFailed
	}
	if conflict {
		return OutcomeConflict
	}

	status := existing.Status
	if status == "" || status == reservations.StatusPending {
		status = reservations.StatusScheduled
	}
	if err := e.store.UpdateInterval(ctx, req.ClinicID, req.ReservationID, start, end, status); err != nil {
		if errors.Is(err, reservations.ErrOverlap) {
			return OutcomeConflict
		}
		e.logger.Error("booking reschedule: update failed", "error", err, "clinic_id", req.ClinicID)
		return OutcomeFailed
	}

	e.logger.Info("reservation rescheduled",
		"clinic_id", req.ClinicID,
		"reservation_id", req.ReservationID,
		"starts_at", start,
	)
	return OutcomeBooked
}

// attachContact links the reservation to a known patient, falling back to a
// lead. An unresolved phone still books; the reservation keeps the raw phone.
func (e *Executor) attachContact(ctx context.Context, clinicID, phone string, res *reservations.Reservation) {
	if e.directory == nil {
		return
	}
	patient, err := e.directory.FindPatientByPhone(ctx, clinicID, phone)
	if err == nil {
		res.PatientID = &patient.ID
		return
	}
	if !errors.Is(err, contacts.ErrNotFound) {
		e.logger.Warn("booking: patient lookup failed", "error", err, "clinic_id", clinicID)
	}
	lead, err := e.directory.FindLeadByPhone(ctx, clinicID, phone)
	if err == nil {
		res.LeadID = &lead.ID
		return
	}
	if !errors.Is(err, contacts.ErrNotFound) {
		e.logger.Warn("booking: lead lookup failed", "error", err, "clinic_id", clinicID)
	}
}

// moveToScheduled nudges the CRM pipeline; a failed move never unwinds the
// booking.
func (e *Executor) moveToScheduled(ctx context.Context, clinicID, phone string) {
	if e.pipeline == nil {
		return
	}
	moved, err := e.pipeline.MoveCardToStage(ctx, clinicID, phone, crm.ScheduledStage)
	if err != nil {
		e.logger.Warn("booking: crm stage move failed", "error", err, "clinic_id", clinicID)
		return
	}
	if moved {
		e.logger.Info("crm card moved to scheduled", "clinic_id", clinicID)
	}
}

func reservationTitle(serviceName, displayName string) string {
	if displayName == "" {
		return serviceName
	}
	return serviceName + " - " + displayName
}
