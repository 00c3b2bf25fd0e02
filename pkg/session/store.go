package session

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/printomat/pkg/engine"
)

// DefaultJobTTL is how long a manifest is kept after its session closed.
const DefaultJobTTL = 24 * time.Hour

// Job is one document to print.
type Job struct {
	Name    string             `json:"name"`
	File    string             `json:"file"`
	Pages   int                `json:"pages"`
	Options engine.FileOptions `json:"options"`
}

// Manifest records the print jobs of a closed session.
type Manifest struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Dir       string    `json:"dir"`
	CreatedAt time.Time `json:"created_at"`
	ClosedAt  time.Time `json:"closed_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Jobs      []Job     `json:"jobs"`
}

// IsExpired returns true if the manifest is past its retention.
func (m *Manifest) IsExpired() bool {
	return time.Now().After(m.ExpiresAt)
}

// Manifest builds the print manifest of the session from the current
// versions of its entries.
func (s *Session) Manifest(ttl time.Duration) *Manifest {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	m := &Manifest{
		ID:        s.ID,
		Code:      s.Code,
		Dir:       s.Dir,
		CreatedAt: s.CreatedAt,
		ClosedAt:  now,
		ExpiresAt: now.Add(ttl),
		Jobs:      make([]Job, 0, len(s.entries)),
	}
	for _, e := range s.entries {
		m.Jobs = append(m.Jobs, Job{
			Name:    e.Name,
			File:    e.Path.Join(),
			Pages:   e.Pages,
			Options: e.Options,
		})
	}
	return m
}

// Store is the interface for manifest storage backends.
type Store interface {
	// Get retrieves a manifest by session ID.
	// Returns nil, nil if the manifest doesn't exist or has expired.
	Get(ctx context.Context, id string) (*Manifest, error)

	// Set stores a manifest.
	Set(ctx context.Context, m *Manifest) error

	// Delete removes a manifest.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired manifests.
	Cleanup(ctx context.Context) error
}

// MemoryStore keeps manifests in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	manifests map[string]*Manifest
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{manifests: make(map[string]*Manifest)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.manifests[id]
	if !ok || m.IsExpired() {
		return nil, nil
	}
	return m, nil
}

func (s *MemoryStore) Set(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[m.ID] = m
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.manifests, id)
	return nil
}

func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.manifests {
		if m.IsExpired() {
			delete(s.manifests, id)
		}
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
