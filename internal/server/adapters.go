package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/yuuki2014/white-map/internal/footprint"
	"github.com/yuuki2014/white-map/internal/mymap"
	"github.com/yuuki2014/white-map/internal/recorder"
	"github.com/yuuki2014/white-map/internal/stream"
)

// localPoster feeds the recording engine's footprints straight into the
// persistence service, skipping the HTTP surface the standalone recorder
// client would use.
type localPoster struct {
	footprints *footprint.Service
}

func (p *localPoster) CreateFootprint(ctx context.Context, userID string, fp recorder.Footprint) error {
	_, err := p.footprints.Create(ctx, userID, fp.TripID, fp.Latitude, fp.Longitude, fp.RecordedAt)
	return err
}

func (p *localPoster) BulkCreateFootprints(ctx context.Context, userID string, fps []recorder.Footprint) (int, error) {
	byTrip := map[string][]footprint.BulkItem{}
	for i := range fps {
		fp := fps[i]
		byTrip[fp.TripID] = append(byTrip[fp.TripID], footprint.BulkItem{
			Latitude:   &fp.Latitude,
			Longitude:  &fp.Longitude,
			RecordedAt: &fp.RecordedAt,
		})
	}

	total := 0
	for tripID, items := range byTrip {
		count, err := p.footprints.BulkCreate(ctx, userID, tripID, items)
		if err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

type tileSource struct {
	mymap *mymap.Service
}

func (t *tileSource) CumulativeTiles(ctx context.Context, userID string) ([]string, error) {
	return t.mymap.VisitedTiles(ctx, userID)
}

// liveRenderer turns engine callbacks into hub broadcasts for websocket
// viewers.
type liveRenderer struct {
	hub *stream.Hub
}

type positionPayload struct {
	Type      string    `json:"type"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

type fogPayload struct {
	Type    string            `json:"type"`
	GeoJSON *geojson.Geometry `json:"geojson"`
}

func (r *liveRenderer) PositionUpdated(tripID string, fix recorder.Fix) {
	if tripID == "" {
		return
	}
	payload, err := json.Marshal(positionPayload{
		Type:      "position",
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Timestamp: fix.Timestamp,
	})
	if err != nil {
		log.Printf("server: position payload marshal failed: %v", err)
		return
	}
	r.hub.Broadcast(tripID, payload)
}

func (r *liveRenderer) FogUpdated(tripID string, fog orb.Geometry) {
	if tripID == "" {
		return
	}
	msg := fogPayload{Type: "fog"}
	if fog != nil {
		msg.GeoJSON = geojson.NewGeometry(fog)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("server: fog payload marshal failed: %v", err)
		return
	}
	r.hub.Broadcast(tripID, payload)
}
