package reservations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestCreateAssignsIDAndCreatedAt(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO reservations`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	repo := NewPostgresRepositoryWithDB(mock)
	res := &Reservation{
		ClinicID: "clinic-a",
		Phone:    "5511999990000",
		Title:    "Dental Cleaning",
		StartsAt: time.Date(2025, time.June, 3, 10, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, time.June, 3, 10, 40, 0, 0, time.UTC),
		Status:   StatusScheduled,
	}
	if err := repo.Create(context.Background(), res); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if res.ID == uuid.Nil {
		t.Error("expected a generated id")
	}
	if !res.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt = %v, want %v", res.CreatedAt, createdAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateMapsExclusionViolationToErrOverlap(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO reservations`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23P01"})

	repo := NewPostgresRepositoryWithDB(mock)
	err := repo.Create(context.Background(), &Reservation{ClinicID: "clinic-a", Title: "Botox"})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
}

func reservationRows(res *Reservation) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "clinic_id", "patient_id", "lead_id", "phone", "title",
		"description", "starts_at", "ends_at", "status", "created_at",
	}).AddRow(
		res.ID, res.ClinicID, res.PatientID, res.LeadID, res.Phone, res.Title,
		res.Description, res.StartsAt, res.EndsAt, res.Status, res.CreatedAt,
	)
}

func TestLatestByPhoneSkipsCancelled(t *testing.T) {
	mock := newMock(t)
	want := &Reservation{
		ID:       uuid.New(),
		ClinicID: "clinic-a",
		Phone:    "5511999990000",
		Title:    "Teeth Whitening",
		StartsAt: time.Date(2025, time.June, 10, 14, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC),
		Status:   StatusScheduled,
	}

	mock.ExpectQuery(`FROM reservations`).
		WithArgs("clinic-a", "5511999990000", StatusCancelled).
		WillReturnRows(reservationRows(want))

	repo := NewPostgresRepositoryWithDB(mock)
	got, err := repo.LatestByPhone(context.Background(), "clinic-a", "5511999990000")
	if err != nil {
		t.Fatalf("LatestByPhone failed: %v", err)
	}
	if got.ID != want.ID || got.Title != want.Title {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLatestByPhoneNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM reservations`).
		WithArgs("clinic-a", "000", StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "clinic_id", "patient_id", "lead_id", "phone", "title",
			"description", "starts_at", "ends_at", "status", "created_at",
		}))

	repo := NewPostgresRepositoryWithDB(mock)
	_, err := repo.LatestByPhone(context.Background(), "clinic-a", "000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateIntervalMissingRow(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	start := time.Date(2025, time.June, 11, 9, 0, 0, 0, time.UTC)
	end := start.Add(40 * time.Minute)

	mock.ExpectExec(`UPDATE reservations`).
		WithArgs(start, end, StatusScheduled, id, "clinic-a").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresRepositoryWithDB(mock)
	err := repo.UpdateInterval(context.Background(), "clinic-a", id, start, end, StatusScheduled)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateIntervalOverlap(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	start := time.Date(2025, time.June, 11, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE reservations`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := NewPostgresRepositoryWithDB(mock)
	err := repo.UpdateInterval(context.Background(), "clinic-a", id, start, start.Add(time.Hour), StatusScheduled)
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
}

func TestCountOverlappingPassesNilForNoExclusion(t *testing.T) {
	mock := newMock(t)
	start := time.Date(2025, time.June, 11, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("clinic-a", StatusCancelled, end, start, nil).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	repo := NewPostgresRepositoryWithDB(mock)
	count, err := repo.CountOverlapping(context.Background(), "clinic-a", start, end, uuid.Nil)
	if err != nil {
		t.Fatalf("CountOverlapping failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestCountOverlappingExcludesReservation(t *testing.T) {
	mock := newMock(t)
	exclude := uuid.New()
	start := time.Date(2025, time.June, 11, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("clinic-a", StatusCancelled, end, start, exclude).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	repo := NewPostgresRepositoryWithDB(mock)
	count, err := repo.CountOverlapping(context.Background(), "clinic-a", start, end, exclude)
	if err != nil {
		t.Fatalf("CountOverlapping failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
