package workspace

import (
	"errors"
	"sync"
	"time"

	"github.com/code-explorer/backend/internal/language"
	"github.com/code-explorer/backend/internal/registry"
	"github.com/code-explorer/backend/internal/upload"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxWorkspaces limits concurrent workspaces to bound memory use
const DefaultMaxWorkspaces = 100

// DefaultIdleTimeout is how long an untouched workspace is kept
const DefaultIdleTimeout = 30 * time.Minute

// ErrNotFound is returned for unknown workspace ids.
var ErrNotFound = errors.New("workspace not found")

// Options configures the workspaces a Manager creates.
type Options struct {
	MaxWorkspaces int
	RemovalPolicy registry.RemovalPolicy
	MaxUploadSize int64
	Detector      *language.Detector
	Logger        zerolog.Logger
	// Now is the clock used for access times and upload timestamps.
	Now func() time.Time
}

// Manager tracks live workspaces.
type Manager struct {
	workspaces map[string]*Workspace
	mu         sync.RWMutex
	opts       Options
	log        zerolog.Logger
}

// NewManager creates a workspace manager.
func NewManager(opts Options) *Manager {
	if opts.MaxWorkspaces <= 0 {
		opts.MaxWorkspaces = DefaultMaxWorkspaces
	}
	if opts.Detector == nil {
		opts.Detector = language.NewDetector(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		workspaces: make(map[string]*Workspace),
		opts:       opts,
		log:        opts.Logger.With().Str("component", "workspace").Logger(),
	}
}

// Create starts a new, empty workspace. When the limit is reached the least
// recently used workspace is evicted first.
func (m *Manager) Create() *Workspace {
	id := uuid.New().String()
	now := m.opts.Now()
	log := m.log.With().Str("workspace", id[:8]).Logger()

	ws := newWorkspace(id, now,
		registry.New(registry.WithRemovalPolicy(m.opts.RemovalPolicy)),
		[]upload.Option{
			upload.WithDetector(m.opts.Detector),
			upload.WithMaxSize(m.opts.MaxUploadSize),
			upload.WithClock(m.opts.Now),
		},
		log,
	)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictIfNeededLocked()
	m.workspaces[id] = ws

	m.log.Info().Str("workspace", id[:8]).Int("active", len(m.workspaces)).Msg("workspace created")
	return ws
}

// Get returns a workspace by id.
func (m *Manager) Get(id string) (*Workspace, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ws, ok := m.workspaces[id]
	return ws, ok
}

// Touch returns the workspace and updates its access time so it is not
// cleaned up while in use.
func (m *Manager) Touch(id string) (*Workspace, bool) {
	ws, ok := m.Get(id)
	if !ok {
		return nil, false
	}
	ws.touch(m.opts.Now())
	return ws, true
}

// Delete discards a workspace and its files.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, ok := m.workspaces[id]
	if !ok {
		return ErrNotFound
	}
	ws.close()
	delete(m.workspaces, id)
	return nil
}

// Count returns the number of live workspaces.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workspaces)
}

// CleanupIdle removes workspaces not accessed within maxAge. Workspaces with
// an open event subscription are kept. It returns the number removed.
func (m *Manager) CleanupIdle(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.opts.Now().Add(-maxAge)
	removed := 0
	for id, ws := range m.workspaces {
		if ws.Subscribers() > 0 {
			continue
		}
		if last := ws.LastAccessed(); last.Before(cutoff) {
			ws.close()
			delete(m.workspaces, id)
			removed++
			m.log.Info().
				Str("workspace", id[:8]).
				Dur("idle", m.opts.Now().Sub(last).Round(time.Second)).
				Msg("cleaned up idle workspace")
		}
	}
	return removed
}

// evictIfNeededLocked removes the least recently used workspace when at capacity
func (m *Manager) evictIfNeededLocked() {
	for len(m.workspaces) >= m.opts.MaxWorkspaces {
		var oldestID string
		var oldest time.Time
		for id, ws := range m.workspaces {
			if last := ws.LastAccessed(); oldestID == "" || last.Before(oldest) {
				oldestID, oldest = id, last
			}
		}
		if oldestID == "" {
			return
		}
		m.workspaces[oldestID].close()
		delete(m.workspaces, oldestID)
		m.log.Info().Str("workspace", oldestID[:8]).Msg("evicted least recently used workspace")
	}
}
