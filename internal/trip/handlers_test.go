package trip

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func testApp(mock pgxmock.PgxPoolIface) *fiber.App {
	app := fiber.New()
	auth := func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	}
	RegisterRoutes(app.Group("/trips"), NewService(mock), auth)
	return app
}

func TestCreateTripHandler(t *testing.T) {
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

	app := testApp(mock)
	req := httptest.NewRequest(http.MethodPost, "/trips/", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create trip status: %v", err)
	}

	var trip Trip
	if err := json.NewDecoder(resp.Body).Decode(&trip); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if trip.Status != StatusPrivate {
		t.Fatalf("expected private trip")
	}
}

func TestCreateTripHandlerConflict(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id FROM trips WHERE user_id=\$1 AND ended_at IS NULL`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("trip-open"))

	app := testApp(mock)
	req := httptest.NewRequest(http.MethodPost, "/trips/", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}

	var body struct {
		OpenTripID string `json:"open_trip_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.OpenTripID != "trip-open" {
		t.Fatalf("expected conflicting trip id in body, got %q", body.OpenTripID)
	}
}

func TestFinishHandlerEmptyTrip(t *testing.T) {
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

	app := testApp(mock)
	req := httptest.NewRequest(http.MethodPost, "/trips/trip-1/finish", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestVisibilityHandlerRejectsUnknownStatus(t *testing.T) {
	app := testApp(nil)

	body := bytes.NewReader([]byte(`{"status":"secret"}`))
	req := httptest.NewRequest(http.MethodPatch, "/trips/trip-1/visibility", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetTripHandlerNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, title, status, started_at, ended_at,`).
		WithArgs("trip-404", "user-1").
		WillReturnError(pgx.ErrNoRows)

	app := testApp(mock)
	req := httptest.NewRequest(http.MethodGet, "/trips/trip-404", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestResumeHandler(t *testing.T) {
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
		WillReturnRows(pgxmock.NewRows([]string{"geohash"}).AddRow("xn76urwe0"))

	app := testApp(mock)
	req := httptest.NewRequest(http.MethodGet, "/trips/trip-1/resume", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("resume status: %v", err)
	}

	var res Resume
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Trip.ID != "trip-1" || len(res.Geohashes) != 1 {
		t.Fatalf("unexpected resume payload: %+v", res)
	}
}
