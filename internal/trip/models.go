package trip

import (
	"errors"
	"fmt"
	"time"
)

const (
	StatusPrivate  = "private"
	StatusUnlisted = "unlisted"
	StatusPublic   = "public"
)

// A trip is open while ended_at is null; finishing stamps the aggregates.
type Trip struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	Title               string     `json:"title"`
	Status              string     `json:"status"`
	StartedAt           time.Time  `json:"started_at"`
	EndedAt             *time.Time `json:"ended_at"`
	TotalDistanceMeters float64    `json:"total_distance_meters"`
	ActivityTimeSeconds int64      `json:"activity_time_seconds"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Resume is what a client needs to pick a recording back up: the trip plus
// every tile already visited on it.
type Resume struct {
	Trip      Trip     `json:"trip"`
	Geohashes []string `json:"geohashes"`
}

var (
	ErrNotFound  = errors.New("trip not found")
	ErrEmptyTrip = errors.New("trip has no footprints")
)

// OpenTripError reports the trip that blocks opening another one.
type OpenTripError struct {
	TripID string
}

func (e *OpenTripError) Error() string {
	return fmt.Sprintf("user already has an open trip: %s", e.TripID)
}

func ValidStatus(s string) bool {
	return s == StatusPrivate || s == StatusUnlisted || s == StatusPublic
}
