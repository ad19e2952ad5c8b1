package footprint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yuuki2014/white-map/internal/db"
	"github.com/yuuki2014/white-map/internal/tile"
)

var ErrTripNotOwned = errors.New("trip not found for user")

// Invalidator drops a user's cached cumulative map after a write. Optional;
// a nil invalidator disables cache maintenance.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

type Service struct {
	db        db.Querier
	cache     Invalidator
	precision uint
}

func NewService(db db.Querier, cache Invalidator, precision uint) *Service {
	if precision == 0 {
		precision = 9
	}
	return &Service{db: db, cache: cache, precision: precision}
}

func (s *Service) ownsTrip(ctx context.Context, userID, tripID string) error {
	var ok bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM trips WHERE id=$1 AND user_id=$2)
	`, tripID, userID).Scan(&ok)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTripNotOwned
	}
	return nil
}

// Create persists one footprint. The geohash is always derived server-side
// from the coordinates; clients never supply it.
func (s *Service) Create(ctx context.Context, userID, tripID string, lat, lon float64, recordedAt time.Time) (Footprint, error) {
	if err := s.ownsTrip(ctx, userID, tripID); err != nil {
		return Footprint{}, err
	}
	gh, err := tile.Encode(lat, lon, s.precision)
	if err != nil {
		return Footprint{}, err
	}

	fp := Footprint{
		ID:         uuid.NewString(),
		TripID:     tripID,
		Latitude:   lat,
		Longitude:  lon,
		Geohash:    gh,
		RecordedAt: recordedAt,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO footprints (id, trip_id, latitude, longitude, geohash, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, fp.ID, fp.TripID, fp.Latitude, fp.Longitude, fp.Geohash, fp.RecordedAt)
	if err := row.Scan(&fp.CreatedAt); err != nil {
		return Footprint{}, err
	}

	s.invalidate(ctx, userID)
	return fp, nil
}

// BulkCreate persists an uploaded batch in one statement. Rows with missing
// fields or unencodable coordinates are dropped, not rejected: the client is
// draining an offline buffer and a bad row must not wedge the good ones.
// Redelivered rows are absorbed by the (trip_id, recorded_at) conflict
// target. Returns the number of rows actually inserted.
func (s *Service) BulkCreate(ctx context.Context, userID, tripID string, items []BulkItem) (int, error) {
	if err := s.ownsTrip(ctx, userID, tripID); err != nil {
		return 0, err
	}

	var (
		values []string
		args   []any
	)
	for _, it := range items {
		if !it.valid() {
			continue
		}
		gh, err := tile.Encode(*it.Latitude, *it.Longitude, s.precision)
		if err != nil {
			continue
		}
		n := len(args)
		values = append(values, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5, n+6))
		args = append(args, uuid.NewString(), tripID, *it.Latitude, *it.Longitude, gh, *it.RecordedAt)
	}
	if len(values) == 0 {
		return 0, nil
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO footprints (id, trip_id, latitude, longitude, geohash, recorded_at)
		VALUES `+strings.Join(values, ",")+`
		ON CONFLICT (trip_id, recorded_at) DO NOTHING
	`, args...)
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, userID)
	return int(tag.RowsAffected()), nil
}

// ListByTrip returns the trip's footprints in recording order.
func (s *Service) ListByTrip(ctx context.Context, userID, tripID string) ([]Footprint, error) {
	if err := s.ownsTrip(ctx, userID, tripID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, trip_id, latitude, longitude, geohash, recorded_at, created_at
		FROM footprints WHERE trip_id=$1
		ORDER BY recorded_at
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fps []Footprint
	for rows.Next() {
		var fp Footprint
		if err := rows.Scan(&fp.ID, &fp.TripID, &fp.Latitude, &fp.Longitude, &fp.Geohash, &fp.RecordedAt, &fp.CreatedAt); err != nil {
			return nil, err
		}
		fps = append(fps, fp)
	}
	return fps, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, userID)
}
