package recorder

import (
	"log"

	"github.com/paulmach/orb"

	"github.com/yuuki2014/white-map/internal/geometry"
	"github.com/yuuki2014/white-map/internal/tile"
)

// Region is the incrementally revealed area: a tile set plus the merged
// polygon derived from it. The tile set is the source of truth; the polygon
// is a cache that survives union failures and can be rebuilt by rescanning.
type Region struct {
	engine geometry.Engine
	tiles  map[string]struct{}
	merged orb.Geometry
}

func NewRegion(engine geometry.Engine) *Region {
	return &Region{
		engine: engine,
		tiles:  map[string]struct{}{},
	}
}

// Reveal adds tiles not seen before and returns the delta. An empty delta
// skips polygon work entirely; the union is the expensive step.
func (r *Region) Reveal(ids []string) []string {
	var added []string
	for _, id := range ids {
		if _, ok := r.tiles[id]; ok {
			continue
		}
		r.tiles[id] = struct{}{}
		added = append(added, id)
	}
	if len(added) == 0 {
		return nil
	}

	r.merge(added)
	return added
}

func (r *Region) merge(ids []string) {
	geoms := make([]orb.Geometry, 0, len(ids)+1)
	if r.merged != nil {
		geoms = append(geoms, r.merged)
	}
	for _, id := range ids {
		p, err := tile.Polygon(id)
		if err != nil {
			log.Printf("region: skipping malformed tile %q: %v", id, err)
			continue
		}
		geoms = append(geoms, p)
	}

	switch len(geoms) {
	case 0:
		return
	case 1:
		r.merged = geoms[0]
		return
	}

	merged, err := r.engine.Union(geoms...)
	if err != nil {
		// keep the previous polygon; the tile set is still correct and a
		// later Rebuild can recompute the cache
		log.Printf("region: union failed, keeping previous polygon: %v", err)
		return
	}
	r.merged = merged
}

// Rebuild recomputes the merged polygon from the full tile set.
func (r *Region) Rebuild() {
	r.merged = nil
	ids := r.Tiles()
	if len(ids) == 0 {
		return
	}
	r.merge(ids)
}

// Reset clears both the tile set and the polygon.
func (r *Region) Reset() {
	r.tiles = map[string]struct{}{}
	r.merged = nil
}

// Polygon returns the merged polygon, nil when nothing is revealed.
func (r *Region) Polygon() orb.Geometry {
	return r.merged
}

func (r *Region) Tiles() []string {
	ids := make([]string, 0, len(r.tiles))
	for id := range r.tiles {
		ids = append(ids, id)
	}
	return ids
}

func (r *Region) Size() int {
	return len(r.tiles)
}
