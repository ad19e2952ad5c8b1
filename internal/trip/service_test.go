package trip

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/yuuki2014/white-map/internal/shared/geo"
)

var errQuery = errors.New("query error")

func tripRow(id, userID string, endedAt *time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "title", "status", "started_at", "ended_at",
		"total_distance_meters", "activity_time_seconds", "created_at",
	}).AddRow(id, userID, "Untitled trip", StatusPrivate, time.Now(), endedAt, 0.0, int64(0), time.Now())
}

func TestCreateTrip(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id FROM trips WHERE user_id=\$1 AND ended_at IS NULL`).
		WithArgs("user-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO trips`).
		WithArgs(pgxmock.AnyArg(), "user-1", "Untitled trip", StatusPrivate, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	svc := NewService(mock)
	trip, err := svc.Create(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if trip.Status != StatusPrivate || trip.EndedAt != nil {
		t.Fatalf("expected a fresh private trip, got %+v", trip)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateTripBlockedByOpenTrip(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id FROM trips WHERE user_id=\$1 AND ended_at IS NULL`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("trip-open"))

	svc := NewService(mock)
	_, err = svc.Create(context.Background(), "user-1")

	var open *OpenTripError
	if !errors.As(err, &open) {
		t.Fatalf("expected OpenTripError, got %v", err)
	}
	if open.TripID != "trip-open" {
		t.Fatalf("expected conflicting trip id, got %q", open.TripID)
	}
}

func TestFinishTripComputesAggregates(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mid := start.Add(10 * time.Minute)
	end := start.Add(30 * time.Minute)

	mock.ExpectQuery(`SELECT id, user_id, title, status, started_at, ended_at,`).
		WithArgs("trip-1", "user-1").
		WillReturnRows(tripRow("trip-1", "user-1", nil))
	mock.ExpectQuery(`SELECT latitude, longitude, recorded_at`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude", "recorded_at"}).
			AddRow(35.0, 139.0, start).
			AddRow(35.001, 139.0, mid).
			AddRow(35.002, 139.0, end))
	mock.ExpectExec(`UPDATE trips`).
		WithArgs("trip-1", start, pgxmock.AnyArg(), pgxmock.AnyArg(), int64(1800)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(mock)
	trip, err := svc.Finish(context.Background(), "trip-1", "user-1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	if trip.EndedAt == nil || !trip.EndedAt.Equal(end) {
		t.Fatalf("expected ended_at from the last footprint")
	}
	if !trip.StartedAt.Equal(start) {
		t.Fatalf("expected started_at from the first footprint")
	}
	if trip.ActivityTimeSeconds != 1800 {
		t.Fatalf("expected 1800 activity seconds, got %d", trip.ActivityTimeSeconds)
	}

	want := geo.DistanceMeters(35.0, 139.0, 35.001, 139.0) + geo.DistanceMeters(35.001, 139.0, 35.002, 139.0)
	if math.Abs(trip.TotalDistanceMeters-want) > 1e-6 {
		t.Fatalf("expected distance %f, got %f", want, trip.TotalDistanceMeters)
	}
	// two ~111m legs
	if trip.TotalDistanceMeters < 200 || trip.TotalDistanceMeters > 250 {
		t.Fatalf("implausible distance %f", trip.TotalDistanceMeters)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFinishEmptyTrip(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, title, status, started_at, ended_at,`).
		WithArgs("trip-1", "user-1").
		WillReturnRows(tripRow("trip-1", "user-1", nil))
	mock.ExpectQuery(`SELECT latitude, longitude, recorded_at`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude", "recorded_at"}))

	svc := NewService(mock)
	if _, err := svc.Finish(context.Background(), "trip-1", "user-1"); !errors.Is(err, ErrEmptyTrip) {
		t.Fatalf("expected ErrEmptyTrip, got %v", err)
	}
}

func TestFinishTripNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, title, status, started_at, ended_at,`).
		WithArgs("trip-404", "user-1").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock)
	if _, err := svc.Finish(context.Background(), "trip-404", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFinishAndStart(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, title, status, started_at, ended_at,`).
		WithArgs("trip-1", "user-1").
		WillReturnRows(tripRow("trip-1", "user-1", nil))
	mock.ExpectQuery(`SELECT latitude, longitude, recorded_at`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude", "recorded_at"}).
			AddRow(35.0, 139.0, start).
			AddRow(35.001, 139.0, end))
	mock.ExpectExec(`UPDATE trips`).
		WithArgs("trip-1", start, pgxmock.AnyArg(), pgxmock.AnyArg(), int64(3600)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT id FROM trips WHERE user_id=\$1 AND ended_at IS NULL`).
		WithArgs("user-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO trips`).
		WithArgs(pgxmock.AnyArg(), "user-1", "Untitled trip", StatusPrivate, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	svc := NewService(mock)
	finished, started, err := svc.FinishAndStart(context.Background(), "trip-1", "user-1")
	if err != nil {
		t.Fatalf("finish and start: %v", err)
	}
	if finished.EndedAt == nil {
		t.Fatalf("expected finished trip closed")
	}
	if started.ID == finished.ID || started.EndedAt != nil {
		t.Fatalf("expected a distinct open trip")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFinishAndStartRollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, title, status, started_at, ended_at,`).
		WithArgs("trip-1", "user-1").
		WillReturnRows(tripRow("trip-1", "user-1", nil))
	mock.ExpectQuery(`SELECT latitude, longitude, recorded_at`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude", "recorded_at"}).
			AddRow(35.0, 139.0, start))
	mock.ExpectExec(`UPDATE trips`).
		WithArgs("trip-1", start, pgxmock.AnyArg(), pgxmock.AnyArg(), int64(0)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	// opening the replacement fails, so the finish must not survive
	mock.ExpectQuery(`SELECT id FROM trips WHERE user_id=\$1 AND ended_at IS NULL`).
		WithArgs("user-1").
		WillReturnError(errQuery)
	mock.ExpectRollback()

	svc := NewService(mock)
	if _, _, err := svc.FinishAndStart(context.Background(), "trip-1", "user-1"); err == nil {
		t.Fatalf("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResume(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, title, status, started_at, ended_at,`).
		WithArgs("trip-1", "user-1").
		WillReturnRows(tripRow("trip-1", "user-1", nil))
	mock.ExpectQuery(`SELECT DISTINCT geohash FROM footprints`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"geohash"}).
			AddRow("xn76urwe0").
			AddRow("xn76urwe2"))

	svc := NewService(mock)
	res, err := svc.Resume(context.Background(), "trip-1", "user-1")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(res.Geohashes) != 2 {
		t.Fatalf("expected 2 geohashes, got %v", res.Geohashes)
	}
}

func TestResumeNoFootprints(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, title, status, started_at, ended_at,`).
		WithArgs("trip-1", "user-1").
		WillReturnRows(tripRow("trip-1", "user-1", nil))
	mock.ExpectQuery(`SELECT DISTINCT geohash FROM footprints`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"geohash"}))

	svc := NewService(mock)
	res, err := svc.Resume(context.Background(), "trip-1", "user-1")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if res.Geohashes == nil || len(res.Geohashes) != 0 {
		t.Fatalf("expected empty slice, got %v", res.Geohashes)
	}
}

func TestUpdateVisibility(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`UPDATE trips SET status=\$3`).
		WithArgs("trip-1", "user-1", StatusPublic).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT id, user_id, title, status, started_at, ended_at,`).
		WithArgs("trip-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "title", "status", "started_at", "ended_at",
			"total_distance_meters", "activity_time_seconds", "created_at",
		}).AddRow("trip-1", "user-1", "Untitled trip", StatusPublic, time.Now(), nil, 0.0, int64(0), time.Now()))

	svc := NewService(mock)
	trip, err := svc.UpdateVisibility(context.Background(), "trip-1", "user-1", StatusPublic)
	if err != nil {
		t.Fatalf("update visibility: %v", err)
	}
	if trip.Status != StatusPublic {
		t.Fatalf("expected public, got %q", trip.Status)
	}
}

func TestUpdateVisibilityNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`UPDATE trips SET status=\$3`).
		WithArgs("trip-404", "user-1", StatusUnlisted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	svc := NewService(mock)
	if _, err := svc.UpdateVisibility(context.Background(), "trip-404", "user-1", StatusUnlisted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
