package recorder

import (
	"sync"

	"github.com/yuuki2014/white-map/internal/geometry"
)

// Manager owns at most one live session per user. Starting a new recording
// tears down whatever session the user had before, so a stale client can
// never keep writing into an abandoned trip.
type Manager struct {
	cfg      Config
	engine   geometry.Engine
	poster   Poster
	tiles    TileSource
	renderer Renderer

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg Config, engine geometry.Engine, poster Poster, tiles TileSource, renderer Renderer) *Manager {
	return &Manager{
		cfg:      cfg,
		engine:   engine,
		poster:   poster,
		tiles:    tiles,
		renderer: renderer,
		sessions: map[string]*Session{},
	}
}

// Start creates and starts a session for userID, replacing any previous one.
func (m *Manager) Start(userID, tripID string, resumeTiles []string) *Session {
	sess := NewSession(m.cfg, userID, m.engine, m.poster, m.tiles, m.renderer)

	m.mu.Lock()
	old := m.sessions[userID]
	m.sessions[userID] = sess
	m.mu.Unlock()

	if old != nil {
		old.Teardown()
	}
	sess.Start(tripID, resumeTiles)
	return sess
}

// Get returns the user's live session, or nil.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// End finishes and forgets the user's session.
func (m *Manager) End(userID string) {
	m.mu.Lock()
	sess := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if sess != nil {
		sess.End()
	}
}
