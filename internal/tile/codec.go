package tile

import (
	"errors"
	"strings"

	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"
)

var (
	ErrInvalidCoordinate = errors.New("coordinate out of range")
	ErrInvalidTileID     = errors.New("invalid tile id")
)

// geohash base32 alphabet; the underlying library trusts its input, so
// malformed ids are caught here.
const alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Bounds is the lat/lon bounding box of a tile.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether (lat, lon) falls inside the box.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Encode returns the tile id for a coordinate at the given precision.
// Precision is the number of geohash characters and must be at least 1.
func Encode(lat, lon float64, precision uint) (string, error) {
	if precision == 0 {
		return "", ErrInvalidTileID
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", ErrInvalidCoordinate
	}
	return geohash.EncodeWithPrecision(lat, lon, precision), nil
}

// Decode returns the bounding box of a tile id.
func Decode(id string) (Bounds, error) {
	if err := validate(id); err != nil {
		return Bounds{}, err
	}
	box := geohash.BoundingBox(id)
	return Bounds{
		MinLat: box.MinLat,
		MinLon: box.MinLng,
		MaxLat: box.MaxLat,
		MaxLon: box.MaxLng,
	}, nil
}

// Neighbors returns the 8 tiles surrounding id. The order is stable but
// callers should rely on set membership only.
func Neighbors(id string) ([]string, error) {
	if err := validate(id); err != nil {
		return nil, err
	}
	return geohash.Neighbors(id), nil
}

// Polygon returns the tile's bounding box as a closed lon/lat ring.
func Polygon(id string) (orb.Polygon, error) {
	b, err := Decode(id)
	if err != nil {
		return nil, err
	}
	return orb.Polygon{orb.Ring{
		{b.MinLon, b.MinLat},
		{b.MaxLon, b.MinLat},
		{b.MaxLon, b.MaxLat},
		{b.MinLon, b.MaxLat},
		{b.MinLon, b.MinLat},
	}}, nil
}

func validate(id string) error {
	if id == "" {
		return ErrInvalidTileID
	}
	for _, r := range id {
		if !strings.ContainsRune(alphabet, r) {
			return ErrInvalidTileID
		}
	}
	return nil
}
