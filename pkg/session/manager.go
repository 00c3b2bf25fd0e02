package session

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/ingest"
)

// Manager owns the live sessions of one upload root.
type Manager struct {
	mu       sync.Mutex
	root     string
	cfg      Config
	store    Store
	jobTTL   time.Duration
	sessions map[string]*Session
}

// NewManager creates a manager for upload directories under root. Closed
// sessions record their manifest in store; a nil store keeps them in memory.
func NewManager(root string, cfg Config, store Store) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		root:     root,
		cfg:      cfg.withDefaults(),
		store:    store,
		jobTTL:   DefaultJobTTL,
		sessions: make(map[string]*Session),
	}
}

// Store returns the manifest store.
func (m *Manager) Store() Store { return m.store }

// Create opens and ingests the upload with the given code.
func (m *Manager) Create(ctx context.Context, code string) (*Session, []ingest.Result, error) {
	if err := errors.ValidateUploadCode(code); err != nil {
		return nil, nil, err
	}
	s, err := Open(ctx, filepath.Join(m.root, code), m.cfg)
	if errors.IsSourceVanished(err) {
		return nil, nil, errors.Wrap(errors.ErrCodeNotFound, err, "no upload with code %s", code)
	}
	if err != nil {
		return nil, nil, err
	}
	results, err := s.Ingest(ctx)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.cfg.Logger.Info("session created", "session", s.ID, "code", code)
	return s, results, nil
}

// Get returns the live session with the given ID. An expired session is
// closed, removed and reported as SESSION_EXPIRED.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
	}
	if s.IsExpired() {
		if _, err := m.Close(ctx, id); err != nil {
			m.cfg.Logger.Warn("closing expired session failed", "session", id, "error", err)
		}
		return nil, errors.New(errors.ErrCodeSessionExpired, "session %s expired", id)
	}
	return s, nil
}

// Close finalizes the session, records its manifest and forgets it. The
// session is forgotten even when finalizing fails; the active entry's
// unsaved changes are then lost and the error is returned with the manifest.
func (m *Manager) Close(ctx context.Context, id string) (*Manifest, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
	}
	closeErr := s.Close(ctx)
	if closeErr != nil {
		m.cfg.Logger.Warn("closing session dropped unsaved changes", "session", id, "error", closeErr)
		s.abandon()
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	manifest := s.Manifest(m.jobTTL)
	if err := m.store.Set(ctx, manifest); err != nil {
		return manifest, errors.Wrap(errors.ErrCodeInternal, err, "record manifest of %s", id)
	}
	m.cfg.Logger.Info("session closed", "session", id, "jobs", len(manifest.Jobs))
	return manifest, closeErr
}

// Cleanup closes every expired session and drops expired manifests. It
// returns the number of sessions closed.
func (m *Manager) Cleanup(ctx context.Context) int {
	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.IsExpired() {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	closed := 0
	for _, id := range expired {
		if _, err := m.Close(ctx, id); err != nil {
			m.cfg.Logger.Warn("closing expired session failed", "session", id, "error", err)
		}
		closed++
	}
	if err := m.store.Cleanup(ctx); err != nil {
		m.cfg.Logger.Warn("manifest cleanup failed", "error", err)
	}
	return closed
}

// CloseAll closes every live session. Errors are logged; the first is
// returned.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var first error
	for _, id := range ids {
		if _, err := m.Close(ctx, id); err != nil {
			m.cfg.Logger.Warn("closing session failed", "session", id, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
