package recorder

import (
	"github.com/paulmach/orb"

	"github.com/yuuki2014/white-map/internal/geometry"
)

// worldPolygon is the full-globe rectangle the fog is cut out of.
var worldPolygon = orb.Polygon{orb.Ring{
	{-180, 90},
	{-180, -90},
	{180, -90},
	{180, 90},
	{-180, 90},
}}

// World returns the full-globe fog mask.
func World() orb.Polygon {
	return worldPolygon
}

// FogCompositor derives the visible fog as world minus (visited ∪ cumulative).
type FogCompositor struct {
	engine geometry.Engine
}

func NewFogCompositor(engine geometry.Engine) FogCompositor {
	return FogCompositor{engine: engine}
}

// Compose returns the fog polygon, or nil when the combined revealed area
// already covers the world. Nil inputs mean "nothing revealed".
func (f FogCompositor) Compose(visited, cumulative orb.Geometry) (orb.Geometry, error) {
	combined := visited
	if combined == nil {
		combined = cumulative
	} else if cumulative != nil {
		u, err := f.engine.Union(combined, cumulative)
		if err != nil {
			return nil, err
		}
		combined = u
	}

	if combined == nil {
		return worldPolygon, nil
	}
	return f.engine.Difference(worldPolygon, combined)
}
