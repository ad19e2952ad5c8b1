package recorder

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/yuuki2014/white-map/internal/geometry"
	"github.com/yuuki2014/white-map/internal/tile"
)

type State string

const (
	StateStopped   State = "stopped"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateEnded     State = "ended"
)

// Session orchestrates the gate, the visited region, the footprint buffer
// and the fog compositor for one recording. Transitions from an invalid
// source state are no-ops: the inputs that trigger them (double taps,
// replayed events) are idempotent user interaction, not errors.
type Session struct {
	cfg      Config
	userID   string
	poster   Poster
	tiles    TileSource
	renderer Renderer

	mu         sync.Mutex
	state      State
	tripID     string
	gate       *Gate
	region     *Region
	cumulative *Region
	fog        FogCompositor
	buffer     *Buffer
	lastFix    *Fix
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewSession(cfg Config, userID string, engine geometry.Engine, poster Poster, tiles TileSource, renderer Renderer) *Session {
	return &Session{
		cfg:        cfg,
		userID:     userID,
		poster:     poster,
		tiles:      tiles,
		renderer:   renderer,
		state:      StateStopped,
		gate:       NewGate(cfg.MinDistanceMeters, cfg.ForceInterval, cfg.FootprintPrecision),
		region:     NewRegion(engine),
		cumulative: NewRegion(engine),
		fog:        NewFogCompositor(engine),
		buffer:     NewBuffer(poster, userID),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) TripID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tripID
}

func (s *Session) Buffered() int {
	return s.buffer.Len()
}

// Start begins recording for tripID. resumeTiles pre-reveals the tiles of a
// trip being resumed. The current fix, if any, is posted immediately rather
// than waiting out the first flush interval.
func (s *Session) Start(tripID string, resumeTiles []string) {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateRecording
	s.tripID = tripID
	if len(resumeTiles) > 0 {
		s.region.Reveal(resumeTiles)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	fix := s.lastFix
	s.mu.Unlock()

	go s.run(runCtx)
	go s.seedCumulative(runCtx)

	if fix != nil {
		s.postSingle(runCtx, *fix)
	}
	s.publishFog()
}

// Pause stops revealing and buffering; the fix stream keeps updating the
// displayed position. The buffer is flushed and a snapshot footprint posted
// so nothing is lost if the client dies while paused.
func (s *Session) Pause(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	s.state = StatePaused
	fix := s.lastFix
	s.mu.Unlock()

	if err := s.buffer.Flush(ctx); err != nil {
		log.Printf("session: pause flush failed, retained for retry: %v", err)
	}
	if fix != nil {
		s.postSingle(ctx, *fix)
	}
}

func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return
	}
	s.state = StateRecording
}

// End finishes the recording: the flush timer stops, a final best-effort
// flush runs in the background (teardown cannot block on the network), and
// the per-session fog state is released now that the data is durable.
// Ended is observed only transiently; the session settles in Stopped.
func (s *Session) End() {
	s.mu.Lock()
	if s.state != StateRecording && s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	s.state = StateEnded
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	go func() {
		if err := s.buffer.Flush(context.Background()); err != nil {
			log.Printf("session: final flush failed: %v", err)
		}
	}()

	s.mu.Lock()
	s.region.Reset()
	s.gate.Reset()
	s.tripID = ""
	s.state = StateStopped
	s.mu.Unlock()

	s.publishFog()
}

// Teardown aborts the session without the end-of-trip ceremony, for when
// the client navigates away mid-recording. One best-effort flush is fired.
func (s *Session) Teardown() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.state = StateStopped
	s.tripID = ""
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	go func() {
		if err := s.buffer.Flush(context.Background()); err != nil {
			log.Printf("session: teardown flush failed: %v", err)
		}
	}()
}

// HandleFix ingests one position sample. The displayed position always
// updates; fog reveals unless paused; the gate and buffer only engage while
// recording.
func (s *Session) HandleFix(ctx context.Context, fix Fix) {
	if fix.Timestamp.IsZero() {
		fix.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.lastFix = &fix
	state := s.state
	tripID := s.tripID
	s.mu.Unlock()

	if s.renderer != nil {
		s.renderer.PositionUpdated(tripID, fix)
	}

	if state != StatePaused {
		s.reveal(fix, state == StateStopped)
	}

	if state != StateRecording {
		return
	}
	id, ok := s.gate.Evaluate(fix)
	if !ok {
		return
	}
	s.buffer.Enqueue(Footprint{
		TripID:     tripID,
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		RecordedAt: fix.Timestamp,
		TileID:     id,
	})
}

// VisibilityHidden handles the client being backgrounded: while recording,
// everything buffered is pushed out immediately to minimize loss on abrupt
// termination.
func (s *Session) VisibilityHidden(ctx context.Context) {
	s.mu.Lock()
	state := s.state
	fix := s.lastFix
	s.mu.Unlock()

	if state != StateRecording {
		return
	}
	if err := s.buffer.Flush(ctx); err != nil {
		log.Printf("session: visibility flush failed, retained for retry: %v", err)
	}
	if fix != nil {
		s.postSingle(ctx, *fix)
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.buffer.Flush(ctx); err != nil {
				log.Printf("session: periodic flush failed, retrying next tick: %v", err)
			}
		}
	}
}

func (s *Session) seedCumulative(ctx context.Context) {
	if s.tiles == nil {
		return
	}
	ids, err := s.tiles.CumulativeTiles(ctx, s.userID)
	if err != nil {
		log.Printf("session: cumulative tile fetch failed: %v", err)
		return
	}

	s.mu.Lock()
	// the session may have been torn down while the fetch was in flight
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.cumulative.Reveal(ids)
	s.mu.Unlock()

	s.publishFog()
}

func (s *Session) reveal(fix Fix, transient bool) {
	id, err := tile.Encode(fix.Latitude, fix.Longitude, s.cfg.RevealPrecision)
	if err != nil {
		return
	}
	neighbors, err := tile.Neighbors(id)
	if err != nil {
		return
	}

	s.mu.Lock()
	added := s.region.Reveal(append([]string{id}, neighbors...))
	s.mu.Unlock()
	if len(added) == 0 {
		return
	}

	s.publishFog()

	// before recording starts the reveal is only a preview around the
	// current position; don't let it accumulate
	if transient {
		s.mu.Lock()
		s.region.Reset()
		s.mu.Unlock()
	}
}

func (s *Session) publishFog() {
	s.mu.Lock()
	fog, err := s.fog.Compose(s.region.Polygon(), s.cumulative.Polygon())
	tripID := s.tripID
	s.mu.Unlock()

	if err != nil {
		log.Printf("session: fog composition failed, keeping previous mask: %v", err)
		return
	}
	if s.renderer != nil {
		s.renderer.FogUpdated(tripID, fog)
	}
}

func (s *Session) postSingle(ctx context.Context, fix Fix) {
	s.mu.Lock()
	tripID := s.tripID
	s.mu.Unlock()
	if tripID == "" {
		return
	}

	id, err := tile.Encode(fix.Latitude, fix.Longitude, s.cfg.FootprintPrecision)
	if err != nil {
		return
	}
	fp := Footprint{
		TripID:     tripID,
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		RecordedAt: fix.Timestamp,
		TileID:     id,
	}
	if err := s.poster.CreateFootprint(ctx, s.userID, fp); err != nil {
		log.Printf("session: footprint post failed: %v", err)
	}
}
