package trip

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yuuki2014/white-map/internal/db"
	"github.com/yuuki2014/white-map/internal/shared/geo"
)

type Service struct {
	db db.TxQuerier
}

func NewService(db db.TxQuerier) *Service {
	return &Service{db: db}
}

// Create opens a trip for the user. A user can have at most one open trip;
// the conflicting trip's id travels in the error so the client can offer to
// resume or finish it.
func (s *Service) Create(ctx context.Context, userID string) (Trip, error) {
	return createIn(ctx, s.db, userID)
}

func createIn(ctx context.Context, q db.Querier, userID string) (Trip, error) {
	var openID string
	err := q.QueryRow(ctx, `
		SELECT id FROM trips WHERE user_id=$1 AND ended_at IS NULL
	`, userID).Scan(&openID)
	if err == nil {
		return Trip{}, &OpenTripError{TripID: openID}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Trip{}, err
	}

	trip := Trip{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     "Untitled trip",
		Status:    StatusPrivate,
		StartedAt: time.Now(),
	}
	row := q.QueryRow(ctx, `
		INSERT INTO trips (id, user_id, title, status, started_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, trip.ID, trip.UserID, trip.Title, trip.Status, trip.StartedAt)
	if err := row.Scan(&trip.CreatedAt); err != nil {
		return Trip{}, err
	}
	return trip, nil
}

// Finish closes the trip and stamps the aggregates computed from its
// footprints: the time window from the recorded_at extremes and the distance
// as the haversine sum over consecutive points.
func (s *Service) Finish(ctx context.Context, tripID, userID string) (Trip, error) {
	return finishIn(ctx, s.db, tripID, userID)
}

func finishIn(ctx context.Context, q db.Querier, tripID, userID string) (Trip, error) {
	trip, err := getIn(ctx, q, tripID, userID)
	if err != nil {
		return Trip{}, err
	}

	rows, err := q.Query(ctx, `
		SELECT latitude, longitude, recorded_at
		FROM footprints WHERE trip_id=$1
		ORDER BY recorded_at
	`, tripID)
	if err != nil {
		return Trip{}, err
	}
	defer rows.Close()

	var (
		count    int
		first    time.Time
		last     time.Time
		distance float64
		prevLat  float64
		prevLon  float64
	)
	for rows.Next() {
		var lat, lon float64
		var recordedAt time.Time
		if err := rows.Scan(&lat, &lon, &recordedAt); err != nil {
			return Trip{}, err
		}
		if count == 0 {
			first = recordedAt
		} else {
			distance += geo.DistanceMeters(prevLat, prevLon, lat, lon)
		}
		last = recordedAt
		prevLat, prevLon = lat, lon
		count++
	}
	if err := rows.Err(); err != nil {
		return Trip{}, err
	}
	if count == 0 {
		return Trip{}, ErrEmptyTrip
	}

	trip.StartedAt = first
	trip.EndedAt = &last
	trip.TotalDistanceMeters = distance
	trip.ActivityTimeSeconds = int64(last.Sub(first).Seconds())

	_, err = q.Exec(ctx, `
		UPDATE trips
		SET started_at=$2, ended_at=$3, total_distance_meters=$4, activity_time_seconds=$5
		WHERE id=$1
	`, trip.ID, trip.StartedAt, trip.EndedAt, trip.TotalDistanceMeters, trip.ActivityTimeSeconds)
	if err != nil {
		return Trip{}, err
	}
	return trip, nil
}

// FinishAndStart atomically closes one trip and opens the next. Either both
// happen or neither does; a finished trip must never strand the user without
// a fresh one mid-excursion.
func (s *Service) FinishAndStart(ctx context.Context, oldTripID, userID string) (finished Trip, started Trip, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Trip{}, Trip{}, err
	}
	defer tx.Rollback(ctx)

	finished, err = finishIn(ctx, tx, oldTripID, userID)
	if err != nil {
		return Trip{}, Trip{}, err
	}
	started, err = createIn(ctx, tx, userID)
	if err != nil {
		return Trip{}, Trip{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Trip{}, Trip{}, err
	}
	return finished, started, nil
}

// Resume returns the trip together with every tile it has already visited,
// so a reconnecting client can pre-reveal its fog.
func (s *Service) Resume(ctx context.Context, tripID, userID string) (Resume, error) {
	trip, err := getIn(ctx, s.db, tripID, userID)
	if err != nil {
		return Resume{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT geohash FROM footprints WHERE trip_id=$1
	`, tripID)
	if err != nil {
		return Resume{}, err
	}
	defer rows.Close()

	geohashes := []string{}
	for rows.Next() {
		var gh string
		if err := rows.Scan(&gh); err != nil {
			return Resume{}, err
		}
		geohashes = append(geohashes, gh)
	}
	if err := rows.Err(); err != nil {
		return Resume{}, err
	}
	return Resume{Trip: trip, Geohashes: geohashes}, nil
}

func (s *Service) UpdateVisibility(ctx context.Context, tripID, userID, status string) (Trip, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips SET status=$3 WHERE id=$1 AND user_id=$2
	`, tripID, userID, status)
	if err != nil {
		return Trip{}, err
	}
	if tag.RowsAffected() == 0 {
		return Trip{}, ErrNotFound
	}
	return getIn(ctx, s.db, tripID, userID)
}

func (s *Service) Get(ctx context.Context, tripID, userID string) (Trip, error) {
	return getIn(ctx, s.db, tripID, userID)
}

func getIn(ctx context.Context, q db.Querier, tripID, userID string) (Trip, error) {
	row := q.QueryRow(ctx, `
		SELECT id, user_id, title, status, started_at, ended_at,
		       COALESCE(total_distance_meters,0), COALESCE(activity_time_seconds,0), created_at
		FROM trips WHERE id=$1 AND user_id=$2
	`, tripID, userID)
	var trip Trip
	err := row.Scan(&trip.ID, &trip.UserID, &trip.Title, &trip.Status, &trip.StartedAt, &trip.EndedAt,
		&trip.TotalDistanceMeters, &trip.ActivityTimeSeconds, &trip.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Trip{}, ErrNotFound
	}
	if err != nil {
		return Trip{}, err
	}
	return trip, nil
}
