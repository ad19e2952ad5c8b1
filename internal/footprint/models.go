package footprint

import "time"

type Footprint struct {
	ID         string    `json:"id"`
	TripID     string    `json:"trip_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Geohash    string    `json:"geohash"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// BulkItem is one row of a bulk upload. Pointer fields distinguish a missing
// value from a zero one, so malformed rows can be dropped instead of
// persisted as (0,0).
type BulkItem struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	RecordedAt *time.Time `json:"recorded_at"`
}

func (it BulkItem) valid() bool {
	return it.Latitude != nil && it.Longitude != nil && it.RecordedAt != nil
}
