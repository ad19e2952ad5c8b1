package geometry

import (
	"errors"
	"fmt"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
)

// ErrOperationFailed wraps failures of the underlying boolean-ops library.
// Callers keep their previous polygon when they see it.
var ErrOperationFailed = errors.New("geometry operation failed")

// Engine is the pluggable planar-geometry capability. Implementations must
// accept Polygon and MultiPolygon inputs; a nil result means an empty shape.
type Engine interface {
	Union(geoms ...orb.Geometry) (orb.Geometry, error)
	Difference(subject, clip orb.Geometry) (orb.Geometry, error)
}

// Polygol implements Engine with martinez boolean clipping.
type Polygol struct{}

func (Polygol) Union(geoms ...orb.Geometry) (orb.Geometry, error) {
	var inputs []polygol.Geom
	for _, g := range geoms {
		if g == nil {
			continue
		}
		pg, err := toGeom(g)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, pg)
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	if len(inputs) == 1 {
		// union of a single shape is the shape itself
		return fromGeom(inputs[0]), nil
	}

	out, err := polygol.Union(inputs[0], inputs[1:]...)
	if err != nil {
		return nil, fmt.Errorf("%w: union: %v", ErrOperationFailed, err)
	}
	return fromGeom(out), nil
}

func (Polygol) Difference(subject, clip orb.Geometry) (orb.Geometry, error) {
	if subject == nil {
		return nil, nil
	}
	if clip == nil {
		return subject, nil
	}

	sub, err := toGeom(subject)
	if err != nil {
		return nil, err
	}
	cl, err := toGeom(clip)
	if err != nil {
		return nil, err
	}

	out, err := polygol.Difference(sub, cl)
	if err != nil {
		return nil, fmt.Errorf("%w: difference: %v", ErrOperationFailed, err)
	}
	return fromGeom(out), nil
}

func toGeom(g orb.Geometry) (polygol.Geom, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return polygol.Geom{polygonCoords(v)}, nil
	case orb.MultiPolygon:
		out := make(polygol.Geom, 0, len(v))
		for _, p := range v {
			out = append(out, polygonCoords(p))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported geometry %T", ErrOperationFailed, g)
	}
}

func polygonCoords(p orb.Polygon) [][][]float64 {
	rings := make([][][]float64, 0, len(p))
	for _, ring := range p {
		pts := make([][]float64, 0, len(ring))
		for _, pt := range ring {
			pts = append(pts, []float64{pt[0], pt[1]})
		}
		rings = append(rings, pts)
	}
	return rings
}

func fromGeom(g polygol.Geom) orb.Geometry {
	polys := make(orb.MultiPolygon, 0, len(g))
	for _, rings := range g {
		poly := make(orb.Polygon, 0, len(rings))
		for _, ring := range rings {
			r := make(orb.Ring, 0, len(ring))
			for _, pt := range ring {
				if len(pt) < 2 {
					continue
				}
				r = append(r, orb.Point{pt[0], pt[1]})
			}
			if len(r) > 0 {
				poly = append(poly, r)
			}
		}
		if len(poly) > 0 {
			polys = append(polys, poly)
		}
	}

	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	default:
		return polys
	}
}
