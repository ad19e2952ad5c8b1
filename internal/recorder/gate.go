package recorder

import (
	"math"
	"time"

	"github.com/yuuki2014/white-map/internal/shared/geo"
	"github.com/yuuki2014/white-map/internal/tile"
)

// Gate decides which raw fixes are worth persisting. It bounds storage
// volume (near-stationary fixes coalesce), staleness (a heartbeat is forced
// while stationary) and guarantees at least one footprint per entered tile.
type Gate struct {
	minDistanceMeters float64
	forceInterval     time.Duration
	precision         uint

	lastAcceptedAt   time.Time
	lastAcceptedTile string
	lastAcceptedLat  float64
	lastAcceptedLon  float64
	hasAccepted      bool
}

func NewGate(minDistanceMeters float64, forceInterval time.Duration, precision uint) *Gate {
	return &Gate{
		minDistanceMeters: minDistanceMeters,
		forceInterval:     forceInterval,
		precision:         precision,
	}
}

// Evaluate returns the fix's tile id and whether the fix should be
// persisted. The first fix is always accepted. Fixes with out-of-range
// coordinates are rejected.
func (g *Gate) Evaluate(fix Fix) (string, bool) {
	id, err := tile.Encode(fix.Latitude, fix.Longitude, g.precision)
	if err != nil {
		return "", false
	}

	moved := math.Inf(1)
	if g.hasAccepted {
		moved = geo.DistanceMeters(g.lastAcceptedLat, g.lastAcceptedLon, fix.Latitude, fix.Longitude)
	}

	isNewTile := id != g.lastAcceptedTile
	isMoveEnough := moved > g.minDistanceMeters
	isTimeout := fix.Timestamp.Sub(g.lastAcceptedAt) > g.forceInterval

	if !isNewTile && !isMoveEnough && !isTimeout {
		return id, false
	}

	g.lastAcceptedAt = fix.Timestamp
	g.lastAcceptedTile = id
	g.lastAcceptedLat = fix.Latitude
	g.lastAcceptedLon = fix.Longitude
	g.hasAccepted = true
	return id, true
}

// Reset clears the acceptance state so the next fix is always accepted.
func (g *Gate) Reset() {
	g.lastAcceptedAt = time.Time{}
	g.lastAcceptedTile = ""
	g.lastAcceptedLat = 0
	g.lastAcceptedLon = 0
	g.hasAccepted = false
}
