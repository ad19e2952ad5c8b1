package recorder

import (
	"context"
	"time"

	"github.com/paulmach/orb"
)

// Fix is one raw position sample from the location collaborator.
type Fix struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Timestamp      time.Time `json:"timestamp"`
	AccuracyMeters float64   `json:"accuracy_meters"`
}

// Footprint is one accepted sample, owned by the buffer until the
// persistence service acknowledges it.
type Footprint struct {
	TripID     string    `json:"trip_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
	TileID     string    `json:"tile_id"`
}

// Poster is the persistence service seen from the recording engine.
// Bulk delivery is at-least-once; the service dedups on
// (trip_id, recorded_at).
type Poster interface {
	CreateFootprint(ctx context.Context, userID string, fp Footprint) error
	BulkCreateFootprints(ctx context.Context, userID string, fps []Footprint) (int, error)
}

// TileSource provides the user's all-time visited tiles for seeding the
// cumulative fog state.
type TileSource interface {
	CumulativeTiles(ctx context.Context, userID string) ([]string, error)
}

// Renderer is the rendering collaborator. A nil fog geometry means there is
// nothing left to mask.
type Renderer interface {
	PositionUpdated(tripID string, fix Fix)
	FogUpdated(tripID string, fog orb.Geometry)
}

// Config holds the sampling and delivery knobs of a recording session.
type Config struct {
	MinDistanceMeters  float64
	ForceInterval      time.Duration
	FlushInterval      time.Duration
	FootprintPrecision uint
	RevealPrecision    uint
}
